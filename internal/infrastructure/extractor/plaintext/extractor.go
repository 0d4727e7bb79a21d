package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/ports"
)

// MaxBytes caps how much of a text file is read into memory.
const MaxBytes = 32 << 20

type Extractor struct {
	storage ports.FileArea
}

func NewExtractor(storage ports.FileArea) *Extractor {
	return &Extractor{storage: storage}
}

// Extract reads the file as UTF-8. Invalid byte sequences are replaced with U+FFFD.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	reader, err := e.storage.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, MaxBytes))
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	text = strings.TrimPrefix(text, "\uFEFF")
	return strings.TrimSpace(text), nil
}
