package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tayaladitya/dyslexofly/internal/core/dedup"
	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/planning"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
	"github.com/tayaladitya/dyslexofly/internal/core/retention"
)

type LifecycleConfig struct {
	DedupWindow      time.Duration
	DedupMaxEntries  int
	TextCacheTTL     time.Duration
	TextCacheEntries int
	SummaryMaxLength int
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		DedupWindow:      dedup.DefaultWindow,
		DedupMaxEntries:  dedup.DefaultMaxEntries,
		TextCacheTTL:     10 * time.Minute,
		TextCacheEntries: 64,
		SummaryMaxLength: planning.DefaultUpperBound,
	}
}

type existenceKey struct {
	DocumentID string
	ClientKey  string
}

type textKey struct {
	DocumentID string
	UploadNano int64
}

// Lifecycle is the facade over the registry, the file areas and the text of ready
// documents. It is the only writer of the registry outside retention.
type Lifecycle struct {
	registry  ports.DocumentRegistry
	areas     retention.Areas
	extractor ports.TextExtractor
	chunker   ports.Chunker
	planner   *planning.Planner
	metrics   ports.LifecycleMetrics
	logger    *slog.Logger

	cfg       LifecycleConfig
	existence *dedup.Cache[existenceKey, domain.ExistenceResponse]
	texts     *dedup.Cache[textKey, string]
}

func NewLifecycle(
	registry ports.DocumentRegistry,
	areas retention.Areas,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	cfg LifecycleConfig,
	metrics ports.LifecycleMetrics,
	logger *slog.Logger,
) *Lifecycle {
	def := DefaultLifecycleConfig()
	if cfg.TextCacheTTL <= 0 {
		cfg.TextCacheTTL = def.TextCacheTTL
	}
	if cfg.TextCacheEntries <= 0 {
		cfg.TextCacheEntries = def.TextCacheEntries
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		registry:  registry,
		areas:     areas,
		extractor: extractor,
		chunker:   chunker,
		planner:   planning.NewPlanner(cfg.SummaryMaxLength),
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		existence: dedup.New[existenceKey, domain.ExistenceResponse](dedup.Config{
			Window:     cfg.DedupWindow,
			MaxEntries: cfg.DedupMaxEntries,
		}),
		texts: dedup.New[textKey, string](dedup.Config{
			Window:     cfg.TextCacheTTL,
			MaxEntries: cfg.TextCacheEntries,
		}),
	}
}

func (l *Lifecycle) RegisterUpload(id, sourcePath string) domain.Document {
	doc := l.registry.Put(id, sourcePath)
	l.forgetExistence(id)
	return doc
}

// RecordReady marks doc Ready unless it has been replaced by a re-upload since it
// was read, in which case it reports false.
func (l *Lifecycle) RecordReady(doc domain.Document) (bool, error) {
	return l.registry.MarkReadyIf(doc.ID, doc.UploadTime)
}

func (l *Lifecycle) RecordFailure(id string, cause error) error {
	return l.registry.MarkFailed(id, cause.Error())
}

func (l *Lifecycle) RecordAudio(doc domain.Document, path string) (domain.AudioArtifact, error) {
	return l.registry.AttachAudioIf(doc.ID, doc.UploadTime, path)
}

func (l *Lifecycle) Lookup(_ context.Context, id string) (*domain.Document, error) {
	doc, err := l.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument detaches the document and deletes every file it owned. On partial
// failure the returned count is what was actually removed.
func (l *Lifecycle) DeleteDocument(ctx context.Context, id string) (int, error) {
	paths, err := l.registry.Remove(id)
	if err != nil {
		return 0, err
	}
	l.forgetExistence(id)
	l.texts.Forget(func(k textKey) bool { return k.DocumentID == id })

	removed, err := l.areas.RemoveAll(ctx, paths)
	if err != nil {
		l.logger.Error("document_delete_partial", "document_id", id, "removed", removed, "paths", len(paths), "error", err)
		return removed, err
	}
	l.logger.Info("document_deleted", "document_id", id, "removed", removed)
	return removed, nil
}

// CheckExistence answers repeated polls for the same (document, client) pair from a
// short-lived cache. The boolean reports a cache hit.
func (l *Lifecycle) CheckExistence(_ context.Context, id, clientKey string) (domain.ExistenceResponse, bool, error) {
	resp, hit, err := l.existence.GetOrCompute(existenceKey{DocumentID: id, ClientKey: clientKey}, l.cfg.DedupWindow, func() (domain.ExistenceResponse, error) {
		doc, err := l.registry.Get(id)
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			return domain.ExistenceResponse{Exists: false}, nil
		}
		if err != nil {
			return domain.ExistenceResponse{}, err
		}
		return domain.ExistenceResponse{Exists: true, Status: doc.Status}, nil
	})
	if err != nil {
		return domain.ExistenceResponse{}, false, err
	}
	l.metrics.RecordDedup(hit)
	return resp, hit, nil
}

func (l *Lifecycle) Stats(ctx context.Context, id string) (domain.TextStats, error) {
	_, text, err := l.ReadyText(ctx, id)
	if err != nil {
		return domain.TextStats{}, err
	}
	return planning.Stats(text), nil
}

func (l *Lifecycle) PlanSummaryLength(text string, tier domain.Tier) domain.LengthTarget {
	return l.planner.Plan(text, tier)
}

// ChunkForBudget chunks text and reports oversized chunks under purpose.
func (l *Lifecycle) ChunkForBudget(purpose, text string, count func(string) int, maxTokens int) ([]domain.Chunk, error) {
	chunks, err := l.chunker.Chunk(text, count, maxTokens)
	if err != nil {
		return nil, err
	}
	oversized := 0
	for _, c := range chunks {
		if c.Oversized {
			oversized++
			l.logger.Warn("chunk_budget_exceeded",
				"purpose", purpose,
				"chunk", c.Index,
				"tokens", c.Tokens,
				"max_tokens", maxTokens,
				"error", domain.ErrBudgetExceeded,
			)
		}
	}
	l.metrics.RecordChunks(purpose, len(chunks), oversized)
	return chunks, nil
}

// ReadyText returns a ready document together with its extracted text.
func (l *Lifecycle) ReadyText(ctx context.Context, id string) (domain.Document, string, error) {
	doc, err := l.registry.Get(id)
	if err != nil {
		return domain.Document{}, "", err
	}
	if doc.Status != domain.StatusReady {
		reason := "document is still processing"
		if doc.Error != "" {
			reason = "document processing failed: " + doc.Error
		}
		return domain.Document{}, "", domain.WrapError(domain.ErrConflict, "load text", fmt.Errorf("%s (id=%s)", reason, id))
	}
	text, err := l.ExtractText(ctx, doc)
	if err != nil {
		return domain.Document{}, "", err
	}
	return doc, text, nil
}

// ExtractText extracts the source text of doc, reusing a recent extraction of the
// same upload.
func (l *Lifecycle) ExtractText(ctx context.Context, doc domain.Document) (string, error) {
	key := textKey{DocumentID: doc.ID, UploadNano: doc.UploadTime.UnixNano()}
	text, _, err := l.texts.GetOrCompute(key, l.cfg.TextCacheTTL, func() (string, error) {
		return l.extractor.Extract(ctx, doc.SourcePath)
	})
	if err != nil {
		return "", fmt.Errorf("extract text id=%s: %w", doc.ID, err)
	}
	return text, nil
}

func (l *Lifecycle) forgetExistence(id string) {
	l.existence.Forget(func(k existenceKey) bool { return k.DocumentID == id })
}

type nopMetrics struct{}

func (nopMetrics) RecordDedup(bool)              {}
func (nopMetrics) RecordChunks(string, int, int) {}
func (nopMetrics) RecordEngineFailure(string)    {}
