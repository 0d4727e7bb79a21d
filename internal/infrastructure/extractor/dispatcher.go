// Package extractor selects the text extractor for a stored file from its sniffed
// content type, falling back to the file extension.
package extractor

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/extractor/docx"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/extractor/pdftext"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/extractor/plaintext"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/extractor/spreadsheet"
)

type Kind string

const (
	KindPDF         Kind = "pdf"
	KindDocx        Kind = "docx"
	KindSpreadsheet Kind = "xlsx"
	KindText        Kind = "text"
	KindImage       Kind = "image"
	KindUnknown     Kind = "unknown"
)

const sniffLen = 512

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".text": true,
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".tiff": true, ".webp": true,
}

type Dispatcher struct {
	files      ports.FileArea
	extractors map[Kind]ports.TextExtractor
	logger     *slog.Logger
}

type Option func(*Dispatcher)

// WithExtractor installs or replaces the extractor for kind. Images are only
// readable once an OCR extractor is installed for KindImage.
func WithExtractor(kind Kind, e ports.TextExtractor) Option {
	return func(d *Dispatcher) {
		if e != nil {
			d.extractors[kind] = e
		}
	}
}

// NewDispatcher registers the built-in extractors for every supported kind.
func NewDispatcher(files ports.FileArea, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		files: files,
		extractors: map[Kind]ports.TextExtractor{
			KindPDF:         pdftext.NewExtractor(),
			KindDocx:        docx.NewExtractor(),
			KindSpreadsheet: spreadsheet.NewExtractor(),
			KindText:        plaintext.NewExtractor(files),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Extract(ctx context.Context, path string) (string, error) {
	kind, err := d.Detect(ctx, path)
	if err != nil {
		return "", err
	}
	d.logger.Debug("extract_dispatch", "path", path, "kind", kind)

	if kind == KindUnknown {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text",
			fmt.Errorf("cannot determine the type of %s", filepath.Base(path)))
	}

	e, ok := d.extractors[kind]
	switch {
	case !ok && kind == KindImage:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text",
			fmt.Errorf("%s is an image and no OCR engine is configured", filepath.Base(path)))
	case !ok:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("no extractor for %s", kind))
	}
	return e.Extract(ctx, path)
}

// Detect sniffs the first bytes of the file and resolves zip containers by content.
func (d *Dispatcher) Detect(ctx context.Context, path string) (Kind, error) {
	rc, err := d.files.Open(ctx, path)
	if err != nil {
		return KindUnknown, domain.WrapError(domain.ErrIOFailure, "detect type", err)
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	_ = rc.Close()
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return KindUnknown, domain.WrapError(domain.ErrIOFailure, "detect type", err)
	}

	kind := classify(http.DetectContentType(head[:n]), strings.ToLower(filepath.Ext(path)))
	if kind == KindUnknown && isZip(head[:n]) {
		kind = zipKind(path)
	}
	return kind, nil
}

func classify(contentType, ext string) Kind {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch {
	case mediaType == "application/pdf":
		return KindPDF
	case strings.HasPrefix(mediaType, "image/"):
		return KindImage
	case mediaType == "application/zip":
		switch ext {
		case ".docx":
			return KindDocx
		case ".xlsx", ".xlsm":
			return KindSpreadsheet
		}
		return KindUnknown
	case strings.HasPrefix(mediaType, "text/"):
		return KindText
	}

	switch {
	case ext == ".pdf":
		return KindPDF
	case imageExtensions[ext]:
		return KindImage
	case textExtensions[ext]:
		return KindText
	}
	return KindUnknown
}

func isZip(head []byte) bool {
	return len(head) >= 4 && string(head[:4]) == "PK\x03\x04"
}

// zipKind inspects the archive entries of an office container without a telling
// extension.
func zipKind(path string) Kind {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return KindUnknown
	}
	defer archive.Close()

	for _, f := range archive.File {
		switch {
		case f.Name == "word/document.xml":
			return KindDocx
		case f.Name == "xl/workbook.xml":
			return KindSpreadsheet
		}
	}
	return KindUnknown
}
