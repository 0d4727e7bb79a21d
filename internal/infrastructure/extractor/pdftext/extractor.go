// Package pdftext extracts the text layer of PDF documents.
package pdftext

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

// MinTextChars is the least amount of text a PDF must carry to not be treated as a
// scanned image.
const MinTextChars = 50

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "open pdf", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", domain.WrapError(domain.ErrUnsupportedFormat, "read pdf page", fmt.Errorf("page %d: %w", i, err))
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return checkTextLayer(sb.String())
}

func checkTextLayer(text string) (string, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < MinTextChars {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract pdf",
			fmt.Errorf("pdf has little or no text layer and looks scanned; upload the pages as images to have them read by OCR"))
	}
	return text, nil
}
