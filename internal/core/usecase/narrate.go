package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
)

type NarrationConfig struct {
	ChunkTokens int
}

type NarrateUseCase struct {
	lifecycle   *Lifecycle
	synthesizer ports.SpeechSynthesizer
	voices      ports.VoiceCatalog
	audio       ports.FileArea
	cfg         NarrationConfig
	metrics     ports.LifecycleMetrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewNarrateUseCase(
	lifecycle *Lifecycle,
	synthesizer ports.SpeechSynthesizer,
	voices ports.VoiceCatalog,
	audio ports.FileArea,
	cfg NarrationConfig,
	metrics ports.LifecycleMetrics,
	logger *slog.Logger,
) *NarrateUseCase {
	if cfg.ChunkTokens <= 0 {
		cfg.ChunkTokens = 1000
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NarrateUseCase{
		lifecycle:   lifecycle,
		synthesizer: synthesizer,
		voices:      voices,
		audio:       audio,
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

func (uc *NarrateUseCase) Voices() []domain.Voice {
	return uc.voices.List()
}

// Narrate renders the document text into a single audio file in the audio area and
// attaches it to the document. If the document is removed or re-uploaded meanwhile
// the file is deleted again and ErrDocumentNotFound returned.
func (uc *NarrateUseCase) Narrate(ctx context.Context, documentID string, req domain.SpeechRequest) (*domain.AudioArtifact, error) {
	doc, text, err := uc.lifecycle.ReadyText(ctx, documentID)
	if err != nil {
		return nil, err
	}
	voice := uc.voices.Resolve(req.Language, req.Gender)

	chunks, err := uc.lifecycle.ChunkForBudget("speech", text, uc.synthesizer.CountTokens, uc.cfg.ChunkTokens)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "narrate", fmt.Errorf("document %s has no text", documentID))
	}

	name := audioFileName(doc.ID, voice, uc.now())
	w, path, err := uc.audio.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create audio file: %w", err)
	}
	for _, chunk := range chunks {
		if err := uc.synthesizer.Synthesize(ctx, chunk.Text, voice, w); err != nil {
			_ = w.Abort()
			uc.metrics.RecordEngineFailure("speech")
			return nil, fmt.Errorf("synthesize chunk %d/%d: %w", chunk.Index+1, len(chunks), err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("save audio file: %w", err)
	}

	artifact, err := uc.lifecycle.RecordAudio(doc, path)
	if err != nil {
		if rmErr := uc.audio.Remove(ctx, path); rmErr != nil {
			uc.logger.Warn("audio_cleanup_failed", "document_id", documentID, "path", path, "error", rmErr)
		}
		return nil, err
	}

	uc.logger.Info("audio_generated",
		"document_id", documentID,
		"voice", voice.Name,
		"chunks", len(chunks),
		"path", path,
	)
	return &artifact, nil
}

// audioFileName builds <source>_<lang>_<gender>_<unix>_<suffix>.mp3 where source is
// the document id reduced to at most 30 alphanumerics or underscores.
func audioFileName(documentID string, voice domain.Voice, at time.Time) string {
	var sb strings.Builder
	for _, r := range documentID {
		if sb.Len() >= 30 {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s_%d_%s.mp3", sb.String(), voice.Language, voice.Gender, at.Unix(), suffix)
}
