// Package httpspeech renders text to speech through an OpenAI-compatible
// /v1/audio/speech endpoint.
package httpspeech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/chunking"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/resilience"
)

const maxAudioBytes = 64 << 20

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Format  string
	Timeout time.Duration
}

type Synthesizer struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Synthesizer {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Synthesizer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}
}

type speechRequest struct {
	Model          string `json:"model,omitempty"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize renders chunk with voice and appends the encoded audio to w. Nothing is
// written unless the whole chunk was rendered.
func (s *Synthesizer) Synthesize(ctx context.Context, chunk string, voice domain.Voice, w io.Writer) error {
	text := prepareText(voice.Language, chunk)
	if text == "" {
		return nil
	}
	payload, err := json.Marshal(speechRequest{
		Model:          s.cfg.Model,
		Input:          text,
		Voice:          voice.Name,
		ResponseFormat: s.cfg.Format,
	})
	if err != nil {
		return fmt.Errorf("marshal speech request: %w", err)
	}

	call := func(ctx context.Context) ([]byte, error) {
		return s.post(ctx, payload)
	}
	var audio []byte
	if s.executor == nil {
		audio, err = call(ctx)
	} else {
		audio, err = resilience.Do(ctx, s.executor, "speech_synthesize", call, resilience.HTTPClassifier)
	}
	if err != nil {
		return resilience.MarkTemporary("synthesize speech", err)
	}

	if _, err := w.Write(audio); err != nil {
		return domain.WrapError(domain.ErrIOFailure, "write audio", err)
	}
	return nil
}

func (s *Synthesizer) CountTokens(text string) int {
	return chunking.EstimateTokens(text)
}

func (s *Synthesizer) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if err := resilience.CheckResponse("speech", resp); err != nil {
		return nil, err
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech response is empty")
	}
	return audio, nil
}
