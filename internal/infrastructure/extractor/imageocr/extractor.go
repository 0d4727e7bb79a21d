// Package imageocr extracts the text of scanned pages and photographed documents
// through an OCR engine.
package imageocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
)

// MaxBytes caps the size of an image handed to the engine.
const MaxBytes = 20 << 20

// Engine recognizes the text in one encoded image.
type Engine interface {
	ReadImage(ctx context.Context, image []byte, mediaType string) (string, error)
}

type Extractor struct {
	storage ports.FileArea
	engine  Engine
}

func NewExtractor(storage ports.FileArea, engine Engine) *Extractor {
	return &Extractor{storage: storage, engine: engine}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	reader, err := e.storage.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("open source image: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read source image: %w", err)
	}
	if len(raw) > MaxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract image text",
			fmt.Errorf("image is larger than %d bytes", MaxBytes))
	}

	text, err := e.engine.ReadImage(ctx, raw, http.DetectContentType(raw))
	if err != nil {
		return "", fmt.Errorf("recognize image text: %w", err)
	}
	return strings.TrimSpace(strings.ToValidUTF8(text, "\uFFFD")), nil
}
