package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/tayaladitya/dyslexofly/internal/adapters/http"
	"github.com/tayaladitya/dyslexofly/internal/config"
	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
	"github.com/tayaladitya/dyslexofly/internal/core/registry"
	"github.com/tayaladitya/dyslexofly/internal/core/retention"
	"github.com/tayaladitya/dyslexofly/internal/core/usecase"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/chunking"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/export/docxsummary"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/extractor"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/extractor/imageocr"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/language"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/llm/gemini"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/llm/ollama"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/queue/memory"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/queue/nats"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/resilience"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/storage/localfs"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/tts/httpspeech"
	"github.com/tayaladitya/dyslexofly/internal/observability/logging"
	"github.com/tayaladitya/dyslexofly/internal/observability/metrics"
)

const serviceName = "dyslexofly-api"

type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry  *registry.Registry
	Queue     ports.MessageQueue
	Scheduler *retention.Scheduler
	Handler   http.Handler

	IngestUC    ports.DocumentIngestor
	ProcessUC   ports.DocumentProcessor
	Lifecycle   ports.DocumentLifecycle
	SummaryUC   ports.SummaryService
	NarrationUC ports.NarrationService

	Metrics        *prometheus.Registry
	lifecycleStats *metrics.LifecycleMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	promRegistry := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPServerMetrics(promRegistry, serviceName)
	lifecycleMetrics := metrics.NewLifecycleMetrics(promRegistry, serviceName)

	uploads, err := localfs.New(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}
	audio, err := localfs.New(cfg.AudioDir)
	if err != nil {
		return nil, fmt.Errorf("init audio storage: %w", err)
	}
	areas := retention.Areas{Uploads: uploads, Audio: audio}

	docs := registry.New()
	metrics.RegisterRegistrySize(promRegistry, serviceName, docs.Len)

	policy, err := usecase.ParseCollisionPolicy(cfg.IDCollisionPolicy)
	if err != nil {
		return nil, fmt.Errorf("parse collision policy: %w", err)
	}

	resilienceCfg := resilience.DefaultConfig()
	if cfg.ResilienceRetries > 0 {
		resilienceCfg.RetryMaxAttempts = cfg.ResilienceRetries
	}
	resilienceCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(resilienceCfg,
		resilience.WithLogger(logging.Component(logger, "engine")),
		resilience.WithObserver(lifecycleMetrics),
	)

	summarizer, err := newSummarizer(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}
	voices, err := httpspeech.LoadVoices(cfg.TTSVoicesFile)
	if err != nil {
		return nil, fmt.Errorf("load voice catalogue: %w", err)
	}
	synthesizer := httpspeech.New(httpspeech.Config{
		BaseURL: cfg.TTSURL,
		APIKey:  cfg.TTSAPIKey,
		Model:   cfg.TTSModel,
		Timeout: cfg.TTSTimeout,
	}, executor)

	queueExecutor := resilience.NewExecutor(resilience.QueueConfig(),
		resilience.WithLogger(logging.Component(logger, "queue")),
		resilience.WithObserver(lifecycleMetrics),
	)
	queue, closeQueue, err := newQueue(cfg, queueExecutor, logger)
	if err != nil {
		return nil, err
	}

	var extractorOpts []extractor.Option
	if cfg.OCREnabled {
		ocr := ollama.NewImageReader(ollama.New(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTimeout, executor), cfg.OllamaVisionModel)
		extractorOpts = append(extractorOpts, extractor.WithExtractor(extractor.KindImage, imageocr.NewExtractor(uploads, ocr)))
	}

	lifecycle := usecase.NewLifecycle(
		docs,
		areas,
		extractor.NewDispatcher(uploads, logging.Component(logger, "extractor"), extractorOpts...),
		chunking.NewChunker(),
		usecase.LifecycleConfig{
			DedupWindow:      cfg.DedupWindow,
			DedupMaxEntries:  cfg.DedupMaxEntries,
			SummaryMaxLength: cfg.SummaryMaxLength,
		},
		lifecycleMetrics,
		logger,
	)
	ingestUC := usecase.NewIngestDocumentUseCase(lifecycle, uploads, queue, policy, logger)
	processUC := usecase.NewProcessDocumentUseCase(lifecycle, logger)
	summaryUC := usecase.NewSummarizeUseCase(lifecycle, summarizer, language.NewDetector(), usecase.SummaryConfig{
		MaxInputChars: cfg.SummaryMaxInputChars,
		ChunkTokens:   cfg.SummaryChunkTokens,
	}, lifecycleMetrics, logger)
	narrationUC := usecase.NewNarrateUseCase(lifecycle, synthesizer, voices, audio, usecase.NarrationConfig{
		ChunkTokens: cfg.TTSChunkTokens,
	}, lifecycleMetrics, logger)

	scheduler := retention.NewScheduler(retention.Config{
		Interval:     cfg.RetentionInterval,
		UploadGrace:  cfg.RetentionUploadGrace,
		MaxAge:       cfg.RetentionMaxAge,
		ErrorBackoff: cfg.RetentionErrorBackoff,
	}, docs, areas, logging.Component(logger, "retention"), retention.WithRecorder(lifecycleMetrics))

	handler := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Ingest:         ingestUC,
		Documents:      lifecycle,
		Summaries:      summaryUC,
		Narration:      narrationUC,
		Audio:          audio,
		Exporter:       docxsummary.NewWriter("", 0),
		Metrics:        httpMetrics,
		MetricsHandler: metrics.Handler(promRegistry),
		Logger:         logging.Component(logger, "http"),
	}).Handler()

	return &App{
		Config: cfg,
		Logger: logger,

		Registry:  docs,
		Queue:     queue,
		Scheduler: scheduler,
		Handler:   handler,

		IngestUC:    ingestUC,
		ProcessUC:   processUC,
		Lifecycle:   lifecycle,
		SummaryUC:   summaryUC,
		NarrationUC: narrationUC,

		Metrics:        promRegistry,
		lifecycleStats: lifecycleMetrics,

		closeFn: closeQueue,
	}, nil
}

// ProcessDocument is the ingest subscriber handler: one bounded processing attempt
// per event.
func (a *App) ProcessDocument(ctx context.Context, documentID string) error {
	timeout := a.Config.ProcessTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	a.lifecycleStats.StartDocument()
	err := a.ProcessUC.ProcessByID(processCtx, documentID)
	a.lifecycleStats.FinishDocument(time.Since(start), err)
	return err
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newSummarizer(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.Summarizer, error) {
	switch cfg.SummaryEngine {
	case "", "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTimeout, executor)
		return ollama.NewSummarizer(client, ollama.WithLanguageModel(domain.LanguageHindi, cfg.OllamaModelHindi)), nil
	case "gemini":
		s, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, executor)
		if err != nil {
			return nil, fmt.Errorf("init gemini summarizer: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown summary engine %q", cfg.SummaryEngine)
	}
}

// newQueue connects to NATS when a broker is configured and otherwise falls back to
// the in-process queue.
func newQueue(cfg config.Config, executor *resilience.Executor, logger *slog.Logger) (ports.MessageQueue, func(), error) {
	if cfg.NATSURL == "" {
		logger.Info("ingest_queue_selected", "kind", "memory", "workers", cfg.IngestWorkers)
		return memory.New(cfg.IngestBuffer, cfg.IngestWorkers, logger), func() {}, nil
	}
	q, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Name:               serviceName,
		QueueGroup:         cfg.NATSQueueGroup,
		HandlerTimeout:     cfg.ProcessTimeout,
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init message queue: %w", err)
	}
	logger.Info("ingest_queue_selected", "kind", "nats", "subject", cfg.NATSSubject)
	return q, q.Close, nil
}
