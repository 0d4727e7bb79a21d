// Package gemini summarizes text with the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/chunking"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/resilience"
)

const DefaultModel = "gemini-2.0-flash"

type Summarizer struct {
	client   *genai.Client
	model    string
	executor *resilience.Executor
}

func New(ctx context.Context, apiKey, model string, executor *resilience.Executor) (*Summarizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Summarizer{client: client, model: model, executor: executor}, nil
}

func (s *Summarizer) Summarize(ctx context.Context, chunk string, lang domain.Language, target domain.LengthTarget) (string, error) {
	prompt := buildPrompt(chunk, lang, target)
	perWord := 2
	if lang == domain.LanguageHindi {
		perWord = 4
	}
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(target.Max*perWord + 16)}

	call := func(ctx context.Context) (string, error) {
		result, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), cfg)
		if err != nil {
			if isQuotaOrUnavailable(err) {
				return "", domain.WrapError(domain.ErrTemporary, "gemini generate", err)
			}
			return "", fmt.Errorf("gemini generate: %w", err)
		}
		text := responseText(result)
		if text == "" {
			return "", fmt.Errorf("empty response from gemini")
		}
		return text, nil
	}

	if s.executor == nil {
		return call(ctx)
	}
	return resilience.Do(ctx, s.executor, "gemini_generate", call, nil)
}

func (s *Summarizer) CountTokens(text string, lang domain.Language) int {
	return chunking.CounterFor(lang)(text)
}

func buildPrompt(chunk string, lang domain.Language, target domain.LengthTarget) string {
	return fmt.Sprintf(`Summarize the passage for a reader with dyslexia in plain language and short sentences.
Keep the key facts. Answer in %s. Use between %d and %d words. Output only the summary.

---
%s
---`, lang.Name(), target.Min, target.Max, chunk)
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

func isQuotaOrUnavailable(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"429", "quota", "RESOURCE_EXHAUSTED", "503", "UNAVAILABLE"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
