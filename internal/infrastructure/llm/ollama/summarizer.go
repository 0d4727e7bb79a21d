package ollama

import (
	"context"
	"fmt"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/chunking"
)

// Summarizer asks the model for a summary inside the requested word window.
type Summarizer struct {
	client *Client
	models map[domain.Language]string
}

type SummarizerOption func(*Summarizer)

// WithLanguageModel routes chunks in lang to model instead of the client default.
func WithLanguageModel(lang domain.Language, model string) SummarizerOption {
	return func(s *Summarizer) {
		if model != "" {
			s.models[lang] = model
		}
	}
}

func NewSummarizer(client *Client, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{client: client, models: map[domain.Language]string{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Summarizer) Summarize(ctx context.Context, chunk string, lang domain.Language, target domain.LengthTarget) (string, error) {
	text, err := s.client.generate(ctx, generateRequest{
		Model:   s.models[lang],
		Prompt:  buildSummaryPrompt(chunk, lang, target),
		Options: generateOptions{NumPredict: numPredict(lang, target), Temperature: 0.2},
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("ollama returned an empty summary")
	}
	return text, nil
}

func (s *Summarizer) CountTokens(text string, lang domain.Language) int {
	return chunking.CounterFor(lang)(text)
}

// numPredict leaves headroom over max words since a word is more than one token,
// and Devanagari words more than most.
func numPredict(lang domain.Language, target domain.LengthTarget) int {
	if target.Max <= 0 {
		return 0
	}
	if lang == domain.LanguageHindi {
		return target.Max*4 + 16
	}
	return target.Max*2 + 16
}
