package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

func TestIngestUploadSuccess(t *testing.T) {
	env := newTestEnv(t)
	uc := NewIngestDocumentUseCase(env.lifecycle, env.uploads, env.queue, CollisionReplace, env.logger)

	doc, err := uc.Upload(context.Background(), "My Report (final).pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID != "My_Report__final_.pdf" {
		t.Fatalf("unexpected id %q", doc.ID)
	}
	if doc.Status != domain.StatusProcessing || len(doc.AudioArtifacts) != 0 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	raw, err := os.ReadFile(doc.SourcePath)
	if err != nil || string(raw) != "pdf bytes" {
		t.Fatalf("unexpected stored file: %q, %v", raw, err)
	}
	if len(env.queue.published) != 1 || env.queue.published[0] != doc.ID {
		t.Fatalf("unexpected published ids: %v", env.queue.published)
	}
}

func TestIngestReplaceEvictsPreviousFiles(t *testing.T) {
	env := newTestEnv(t)
	uc := NewIngestDocumentUseCase(env.lifecycle, env.uploads, env.queue, CollisionReplace, env.logger)
	ctx := context.Background()

	first, err := uc.Upload(ctx, "notes.txt", strings.NewReader("v1"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	audioPath, _ := env.audio.Save(ctx, "notes.mp3", strings.NewReader("ID3"))
	if _, err := env.lifecycle.RecordAudio(*first, audioPath); err != nil {
		t.Fatalf("RecordAudio() error = %v", err)
	}

	second, err := uc.Upload(ctx, "notes.txt", strings.NewReader("v2"))
	if err != nil {
		t.Fatalf("second Upload() error = %v", err)
	}
	if _, err := os.Stat(audioPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("audio of replaced upload must be deleted, stat err = %v", err)
	}
	raw, _ := os.ReadFile(second.SourcePath)
	if string(raw) != "v2" {
		t.Fatalf("expected new content, got %q", raw)
	}
	current, err := env.lifecycle.Lookup(ctx, "notes.txt")
	if err != nil || len(current.AudioArtifacts) != 0 {
		t.Fatalf("expected fresh record without audio, got %+v, %v", current, err)
	}
}

func TestIngestRejectPolicyKeepsOriginal(t *testing.T) {
	env := newTestEnv(t)
	uc := NewIngestDocumentUseCase(env.lifecycle, env.uploads, env.queue, CollisionReject, env.logger)
	ctx := context.Background()

	first, err := uc.Upload(ctx, "notes.txt", strings.NewReader("v1"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	_, err = uc.Upload(ctx, "notes.txt", strings.NewReader("v2"))
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	raw, _ := os.ReadFile(first.SourcePath)
	if string(raw) != "v1" {
		t.Fatalf("original content must survive, got %q", raw)
	}
	files, _ := env.uploads.List(ctx)
	if len(files) != 1 {
		t.Fatalf("rejected upload must leave no file behind: %+v", files)
	}
}

func TestIngestRecordsQueueFailure(t *testing.T) {
	env := newTestEnv(t)
	env.queue.err = domain.WrapError(domain.ErrTemporary, "publish", errors.New("queue full"))
	uc := NewIngestDocumentUseCase(env.lifecycle, env.uploads, env.queue, CollisionReplace, env.logger)

	_, err := uc.Upload(context.Background(), "a.txt", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	doc, err := env.lifecycle.Lookup(context.Background(), "a.txt")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if doc.Status != domain.StatusProcessing || doc.Error == "" {
		t.Fatalf("expected processing record with error, got %+v", doc)
	}
}

func TestIngestRejectsEmptyName(t *testing.T) {
	env := newTestEnv(t)
	uc := NewIngestDocumentUseCase(env.lifecycle, env.uploads, env.queue, CollisionReplace, env.logger)
	if _, err := uc.Upload(context.Background(), "...", strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\My Doc.docx`, "My_Doc.docx"},
		{".hidden", "hidden"},
		{"résumé 2024.pdf", "r_sum__2024.pdf"},
		{"", ""},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCollisionPolicy(t *testing.T) {
	if p, err := ParseCollisionPolicy(""); err != nil || p != CollisionReplace {
		t.Fatalf("ParseCollisionPolicy(\"\") = %q, %v", p, err)
	}
	if p, err := ParseCollisionPolicy(" REJECT "); err != nil || p != CollisionReject {
		t.Fatalf("ParseCollisionPolicy(reject) = %q, %v", p, err)
	}
	if _, err := ParseCollisionPolicy("version"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
