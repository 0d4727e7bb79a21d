// Package docxsummary renders summaries as Word documents laid out for easier
// reading: a sans-serif font, larger type and one paragraph per summary part.
package docxsummary

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	defaultFont  = "Verdana"
	defaultSize  = 14
	headingSize  = 18
	captionColor = "555555"
	textColor    = "000000"
)

type Writer struct {
	font string
	size uint64
}

func NewWriter(font string, size uint64) *Writer {
	if font == "" {
		font = defaultFont
	}
	if size == 0 {
		size = defaultSize
	}
	return &Writer{font: font, size: size}
}

func (w *Writer) ContentType() string {
	return ContentType
}

// Export writes summary as a .docx document to dst.
func (w *Writer) Export(ctx context.Context, summary *domain.Summary, dst io.Writer) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create docx: %w", err)
	}

	w.run(doc.AddParagraph(""), summary.DocumentID, headingSize, textColor).Bold(true)
	w.run(doc.AddParagraph(""), fmt.Sprintf("%s summary", summary.Tier), w.size-2, captionColor)

	for _, part := range strings.Split(summary.Text, "\n\n") {
		if err := ctx.Err(); err != nil {
			return err
		}
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		w.run(doc.AddParagraph(""), part, w.size, textColor)
	}

	// godocx saves to a path; stage the file and stream it.
	dir, err := os.MkdirTemp("", "summary-docx-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	staged := filepath.Join(dir, "summary.docx")
	if err := doc.SaveTo(staged); err != nil {
		return fmt.Errorf("save docx: %w", err)
	}
	f, err := os.Open(staged)
	if err != nil {
		return fmt.Errorf("open staged docx: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func (w *Writer) run(p *docx.Paragraph, text string, size uint64, color string) *docx.Run {
	return p.AddText(text).Font(w.font).Size(size).Color(color)
}
