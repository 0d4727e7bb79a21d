package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
)

// CollisionPolicy decides what an upload does when its id is already tracked.
type CollisionPolicy string

const (
	// CollisionReplace evicts the tracked document and its files, then registers
	// the new upload.
	CollisionReplace CollisionPolicy = "replace"
	// CollisionReject refuses the upload with ErrConflict.
	CollisionReject CollisionPolicy = "reject"
)

func ParseCollisionPolicy(raw string) (CollisionPolicy, error) {
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CollisionReplace:
		return CollisionReplace, nil
	case CollisionReject:
		return CollisionReject, nil
	default:
		return "", fmt.Errorf("unknown id collision policy %q", raw)
	}
}

type IngestDocumentUseCase struct {
	lifecycle *Lifecycle
	uploads   ports.FileArea
	queue     ports.MessageQueue
	policy    CollisionPolicy
	logger    *slog.Logger

	locks keyedMutex
}

func NewIngestDocumentUseCase(
	lifecycle *Lifecycle,
	uploads ports.FileArea,
	queue ports.MessageQueue,
	policy CollisionPolicy,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if policy == "" {
		policy = CollisionReplace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{
		lifecycle: lifecycle,
		uploads:   uploads,
		queue:     queue,
		policy:    policy,
		logger:    logger,
	}
}

// Upload stores body under the sanitized filename, registers it as Processing and
// publishes it for text extraction.
func (uc *IngestDocumentUseCase) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, error) {
	id := sanitizeFilename(filename)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("filename is empty"))
	}
	if err := uc.checkCollision(id); err != nil {
		return nil, err
	}

	w, path, err := uc.uploads.Create(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Abort()
		return nil, domain.WrapError(domain.ErrIOFailure, "write upload", err)
	}

	unlock := uc.locks.Lock(id)
	doc, err := uc.commit(ctx, id, w)
	unlock()
	if err != nil {
		return nil, err
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		// the record stays Processing and is reclaimed by retention
		_ = uc.lifecycle.RecordFailure(doc.ID, err)
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	uc.logger.Info("document_uploaded", "document_id", doc.ID, "path", path)
	return &doc, nil
}

func (uc *IngestDocumentUseCase) checkCollision(id string) error {
	if uc.policy != CollisionReject {
		return nil
	}
	if _, err := uc.lifecycle.Lookup(context.Background(), id); err == nil {
		return domain.WrapError(domain.ErrConflict, "upload", fmt.Errorf("document %s already exists", id))
	}
	return nil
}

// commit publishes the upload file and registers it. It runs under the id lock so
// two uploads of the same name cannot interleave eviction and registration.
func (uc *IngestDocumentUseCase) commit(ctx context.Context, id string, w ports.BlobWriter) (domain.Document, error) {
	if err := uc.checkCollision(id); err != nil {
		_ = w.Abort()
		return domain.Document{}, err
	}

	if _, err := uc.lifecycle.Lookup(ctx, id); err == nil {
		removed, err := uc.lifecycle.DeleteDocument(ctx, id)
		if err != nil && !domain.IsKind(err, domain.ErrDocumentNotFound) {
			_ = w.Abort()
			return domain.Document{}, fmt.Errorf("evict previous upload: %w", err)
		}
		uc.logger.Info("document_replaced", "document_id", id, "removed", removed)
	}

	if err := w.Close(); err != nil {
		return domain.Document{}, fmt.Errorf("save upload: %w", err)
	}
	return uc.lifecycle.RegisterUpload(id, uc.uploads.PathFor(id)), nil
}

// sanitizeFilename keeps the base name and maps everything outside [A-Za-z0-9._-]
// to '_'. Leading dots are dropped so ids never name hidden files.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	base = strings.TrimLeft(base, ".")
	if len(base) > 128 {
		ext := filepath.Ext(base)
		if len(ext) > 16 {
			ext = ""
		}
		base = base[:128-len(ext)] + ext
	}
	return base
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
