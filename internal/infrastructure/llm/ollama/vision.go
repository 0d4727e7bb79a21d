package ollama

import (
	"context"
	"encoding/base64"
	"strings"
)

// ImageReader transcribes the text in an image with a multimodal model.
type ImageReader struct {
	client *Client
	model  string
}

func NewImageReader(client *Client, model string) *ImageReader {
	return &ImageReader{client: client, model: model}
}

// ReadImage sends the image inline and returns the transcription. The model works
// from pixels, so mediaType is informational only.
func (r *ImageReader) ReadImage(ctx context.Context, image []byte, _ string) (string, error) {
	text, err := r.client.generate(ctx, generateRequest{
		Model:   r.model,
		Prompt:  ocrPrompt,
		Images:  []string{base64.StdEncoding.EncodeToString(image)},
		Options: generateOptions{Temperature: 0},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
