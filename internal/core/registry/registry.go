// Package registry is the authoritative in-memory index of uploaded documents and
// the files derived from them. It owns lifecycle metadata only; file deletion is the
// caller's job, performed after the registry lock has been released.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

type Registry struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
	now  func() time.Time
}

type Option func(*Registry)

// WithClock overrides the time source used for upload and artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		docs: make(map[string]*domain.Document),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Put creates or replaces the record for id. A replaced record's files are not
// touched; callers replacing an id must deal with them or leave them to the sweeps.
func (r *Registry) Put(id, sourcePath string) domain.Document {
	doc := &domain.Document{
		ID:             id,
		SourcePath:     sourcePath,
		UploadTime:     r.now().UTC(),
		AudioArtifacts: []domain.AudioArtifact{},
		Status:         domain.StatusProcessing,
	}

	r.mu.Lock()
	r.docs[id] = doc
	r.mu.Unlock()

	return doc.Clone()
}

// MarkReadyIf marks the record Ready only while it is still the upload made at
// uploadTime. It reports false without changing anything once a re-upload has
// replaced that record.
func (r *Registry) MarkReadyIf(id string, uploadTime time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return false, notFound("mark ready", id)
	}
	if !doc.UploadTime.Equal(uploadTime) {
		return false, nil
	}
	doc.Status = domain.StatusReady
	doc.Error = ""
	return true, nil
}

// MarkFailed records why processing failed. The record stays Processing so that it
// is reclaimed with the other stale uploads.
func (r *Registry) MarkFailed(id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return notFound("mark failed", id)
	}
	if doc.Status == domain.StatusProcessing {
		doc.Error = reason
	}
	return nil
}

// AttachAudioIf appends an artifact to the upload made at uploadTime. Audio rendered
// from a replaced upload is refused with ErrDocumentNotFound.
func (r *Registry) AttachAudioIf(id string, uploadTime time.Time, path string) (domain.AudioArtifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return domain.AudioArtifact{}, notFound("attach audio", id)
	}
	if !doc.UploadTime.Equal(uploadTime) {
		return domain.AudioArtifact{}, domain.WrapError(domain.ErrDocumentNotFound, "attach audio",
			fmt.Errorf("id=%s was re-uploaded at %s", id, doc.UploadTime.Format(time.RFC3339Nano)))
	}
	artifact := domain.AudioArtifact{Path: path, CreatedAt: r.now().UTC()}
	doc.AudioArtifacts = append(doc.AudioArtifacts, artifact)
	return artifact, nil
}

func (r *Registry) Get(id string) (domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return domain.Document{}, notFound("get", id)
	}
	return doc.Clone(), nil
}

// Remove detaches the record and returns every path it owned.
func (r *Registry) Remove(id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, notFound("remove", id)
	}
	delete(r.docs, id)
	return doc.Paths(), nil
}

// EvictIf removes the record only when keep-alive checks fail under the same lock
// that performs the removal, so a concurrent re-upload of the id is never evicted by
// a decision made on the previous record. The returned copy is marked Expired.
func (r *Registry) EvictIf(id string, expired func(domain.Document) bool) (domain.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok || !expired(*doc) {
		return domain.Document{}, false
	}
	delete(r.docs, id)

	out := doc.Clone()
	out.Status = domain.StatusExpired
	return out, true
}

// DetachAudio drops the reference to an audio file from whichever record owns it.
func (r *Registry) DetachAudio(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, doc := range r.docs {
		for i, artifact := range doc.AudioArtifacts {
			if artifact.Path != path {
				continue
			}
			doc.AudioArtifacts = append(doc.AudioArtifacts[:i:i], doc.AudioArtifacts[i+1:]...)
			return id, true
		}
	}
	return "", false
}

func (r *Registry) ListExpired(cutoff time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, doc := range r.docs {
		if doc.UploadTime.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// List returns a snapshot of every record ordered by id.
func (r *Registry) List() []domain.Document {
	r.mu.RLock()
	out := make([]domain.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, doc.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func notFound(operation, id string) error {
	return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
}
