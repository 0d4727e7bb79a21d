package docxsummary

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/extractor/docx"
)

func TestExportRoundTripsThroughExtractor(t *testing.T) {
	summary := &domain.Summary{
		DocumentID: "chapter_one.pdf",
		Tier:       domain.TierTerse,
		Text:       "The fox runs.\n\nThe dog sleeps.",
	}

	var buf bytes.Buffer
	if err := NewWriter("", 0).Export(context.Background(), summary, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Fatalf("expected a zip container")
	}

	path := filepath.Join(t.TempDir(), "summary.docx")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	text, err := docx.NewExtractor().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	for _, want := range []string{"chapter_one.pdf", "terse summary", "The fox runs.", "The dog sleeps."} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in exported document, got %q", want, text)
		}
	}
}

func TestExportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWriter("Arial", 16).Export(ctx, &domain.Summary{DocumentID: "x", Text: "a\n\nb"}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
