// Package chunking bounds normalized text into sentence-respecting chunks that fit
// the token budget of a length-limited transformation.
//
// Sentences are never split. A sentence that alone exceeds the budget is emitted as
// its own chunk and flagged Oversized; sub-sentence splitting is not attempted.
package chunking

import (
	"fmt"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

// TokenCounter measures text in the vocabulary of the consuming engine.
type TokenCounter func(text string) int

// Normalize collapses every whitespace run to a single space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// danda ends a sentence in Devanagari text.
const danda = "\u0964"

// SplitSentences splits normalized text after '.', '!', '?' or a danda when followed
// by a space.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		end := 0
		switch {
		case text[i] == '.' || text[i] == '!' || text[i] == '?':
			end = i + 1
		case strings.HasPrefix(text[i:], danda):
			end = i + len(danda)
		}
		if end > 0 && end < len(text) && text[end] == ' ' {
			out = append(out, text[start:end])
			start = end + 1
			i = end
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// Chunk greedily packs sentences of text into chunks whose measured size stays
// within maxTokens. Joining the chunk texts with a single space reproduces the
// normalized input.
func Chunk(text string, count TokenCounter, maxTokens int) ([]domain.Chunk, error) {
	if maxTokens <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk text", fmt.Errorf("max tokens must be positive, got %d", maxTokens))
	}
	if count == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk text", fmt.Errorf("token counter is nil"))
	}

	sentences := SplitSentences(Normalize(text))
	if len(sentences) == 0 {
		return nil, nil
	}

	var (
		out     []domain.Chunk
		current string
	)
	flush := func() {
		if current == "" {
			return
		}
		tokens := count(current)
		out = append(out, domain.Chunk{
			Index:     len(out),
			Text:      current,
			Tokens:    tokens,
			Oversized: tokens > maxTokens,
		})
		current = ""
	}

	for _, sentence := range sentences {
		if current == "" {
			current = sentence
			continue
		}
		candidate := current + " " + sentence
		if count(candidate) <= maxTokens {
			current = candidate
			continue
		}
		flush()
		current = sentence
	}
	flush()

	return out, nil
}

// Chunker adapts Chunk to an injectable dependency.
type Chunker struct{}

func NewChunker() Chunker {
	return Chunker{}
}

func (Chunker) Chunk(text string, count func(string) int, maxTokens int) ([]domain.Chunk, error) {
	return Chunk(text, count, maxTokens)
}
