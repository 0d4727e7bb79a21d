package usecase

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/registry"
	"github.com/tayaladitya/dyslexofly/internal/core/retention"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/chunking"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/storage/localfs"
)

type queueFake struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.published = append(f.published, documentID)
	f.mu.Unlock()
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type extractorFake struct {
	mu     sync.Mutex
	texts  map[string]string
	err    error
	calls  int
	during func()
}

func (f *extractorFake) Extract(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.texts[filepath.Base(path)], nil
}

type metricsFake struct {
	mu             sync.Mutex
	hits, misses   int
	chunks         map[string]int
	oversized      int
	engineFailures int
}

func (m *metricsFake) RecordDedup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *metricsFake) RecordChunks(purpose string, chunks, oversized int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks == nil {
		m.chunks = map[string]int{}
	}
	m.chunks[purpose] += chunks
	m.oversized += oversized
}

func (m *metricsFake) RecordEngineFailure(string) {
	m.mu.Lock()
	m.engineFailures++
	m.mu.Unlock()
}

type testEnv struct {
	registry  *registry.Registry
	uploads   *localfs.Storage
	audio     *localfs.Storage
	extractor *extractorFake
	queue     *queueFake
	metrics   *metricsFake
	lifecycle *Lifecycle
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	uploads, err := localfs.New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	audio, err := localfs.New(filepath.Join(t.TempDir(), "audio"))
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}

	env := &testEnv{
		registry:  registry.New(),
		uploads:   uploads,
		audio:     audio,
		extractor: &extractorFake{texts: map[string]string{}},
		queue:     &queueFake{},
		metrics:   &metricsFake{},
		logger:    slog.New(slog.DiscardHandler),
	}
	env.lifecycle = NewLifecycle(
		env.registry,
		retention.Areas{Uploads: uploads, Audio: audio},
		env.extractor,
		chunking.NewChunker(),
		DefaultLifecycleConfig(),
		env.metrics,
		env.logger,
	)
	return env
}

// addReady stores a source file and registers it as a ready document.
func (e *testEnv) addReady(t *testing.T, id, text string) domain.Document {
	t.Helper()
	path, err := e.uploads.Save(context.Background(), id, strings.NewReader(text))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	e.extractor.mu.Lock()
	e.extractor.texts[id] = text
	e.extractor.mu.Unlock()
	doc := e.lifecycle.RegisterUpload(id, path)
	if ok, err := e.lifecycle.RecordReady(doc); err != nil || !ok {
		t.Fatalf("RecordReady() = %v, %v", ok, err)
	}
	return doc
}

// reupload registers id again as a new upload of the same source, the way a
// concurrent replace would.
func (e *testEnv) reupload(t *testing.T, id string) domain.Document {
	t.Helper()
	old, err := e.registry.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	for {
		doc := e.lifecycle.RegisterUpload(id, old.SourcePath)
		if !doc.UploadTime.Equal(old.UploadTime) {
			return doc
		}
	}
}
