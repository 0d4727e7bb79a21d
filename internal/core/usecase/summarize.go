package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
)

const truncationNote = "(Note: Original text was truncated for performance.)"

type SummaryConfig struct {
	MaxInputChars int
	ChunkTokens   int
}

func DefaultSummaryConfig() SummaryConfig {
	return SummaryConfig{MaxInputChars: 7500, ChunkTokens: 900}
}

type SummarizeUseCase struct {
	lifecycle  *Lifecycle
	summarizer ports.Summarizer
	languages  ports.LanguageDetector
	cfg        SummaryConfig
	metrics    ports.LifecycleMetrics
	logger     *slog.Logger
}

func NewSummarizeUseCase(
	lifecycle *Lifecycle,
	summarizer ports.Summarizer,
	languages ports.LanguageDetector,
	cfg SummaryConfig,
	metrics ports.LifecycleMetrics,
	logger *slog.Logger,
) *SummarizeUseCase {
	def := DefaultSummaryConfig()
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = def.MaxInputChars
	}
	if cfg.ChunkTokens <= 0 {
		cfg.ChunkTokens = def.ChunkTokens
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SummarizeUseCase{
		lifecycle:  lifecycle,
		summarizer: summarizer,
		languages:  languages,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// Summarize plans the output window on the whole (truncated) text and summarizes
// it chunk by chunk in the language the text is written in. Failing chunks are
// skipped; only a total failure is an error.
func (uc *SummarizeUseCase) Summarize(ctx context.Context, documentID string, tier domain.Tier) (*domain.Summary, error) {
	_, text, err := uc.lifecycle.ReadyText(ctx, documentID)
	if err != nil {
		return nil, err
	}

	text, truncated := truncateRunes(strings.Join(strings.Fields(text), " "), uc.cfg.MaxInputChars)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "summarize", errors.New("document has no text"))
	}

	lang := uc.detectLanguage(text)
	target := uc.lifecycle.PlanSummaryLength(text, tier)
	count := func(s string) int { return uc.summarizer.CountTokens(s, lang) }
	chunks, err := uc.lifecycle.ChunkForBudget("summary", text, count, uc.cfg.ChunkTokens)
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("summary_planned", "document_id", documentID, "language", lang, "chunks", len(chunks), "target_max", target.Max)

	parts := make([]string, 0, len(chunks))
	var lastErr error
	for _, chunk := range chunks {
		out, err := uc.summarizer.Summarize(ctx, chunk.Text, lang, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			uc.metrics.RecordEngineFailure("summary")
			uc.logger.Warn("summary_chunk_failed", "document_id", documentID, "chunk", chunk.Index, "error", err)
			continue
		}
		if out = strings.TrimSpace(out); out != "" {
			parts = append(parts, out)
		}
	}
	if len(parts) == 0 {
		if lastErr == nil {
			lastErr = errors.New("engine returned no text")
		}
		return nil, fmt.Errorf("summarize %s: all %d chunks failed: %w", documentID, len(chunks), lastErr)
	}

	body := strings.Join(parts, "\n\n")
	if truncated {
		body += "\n\n" + truncationNote
	}
	return &domain.Summary{
		DocumentID: documentID,
		Tier:       tier,
		Language:   lang,
		Text:       body,
		Target:     target,
		Chunks:     len(chunks),
		Failed:     len(chunks) - len(parts),
		Truncated:  truncated,
	}, nil
}

func (uc *SummarizeUseCase) detectLanguage(text string) domain.Language {
	if uc.languages == nil {
		return domain.LanguageEnglish
	}
	return uc.languages.Detect(text)
}

func truncateRunes(s string, limit int) (string, bool) {
	if limit <= 0 {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return strings.TrimSpace(s[:i]), true
		}
		n++
	}
	return s, false
}
