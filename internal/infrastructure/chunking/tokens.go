package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

// CharsPerToken is the rough size of a subword token for Latin scripts.
const CharsPerToken = 4

// DevanagariCharsPerToken is the rough size of a token for Devanagari, which
// subword vocabularies trained mostly on Latin text split much finer.
const DevanagariCharsPerToken = 2

// EstimateTokens approximates a subword tokenizer: about four characters per token,
// never less than one token for non-empty text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(1, (n+CharsPerToken-1)/CharsPerToken)
}

// CounterFor returns the token estimate matching the tokenizer behaviour for lang.
func CounterFor(lang domain.Language) TokenCounter {
	if lang == domain.LanguageHindi {
		return estimateDevanagariTokens
	}
	return EstimateTokens
}

func estimateDevanagariTokens(text string) int {
	devanagari, other := 0, 0
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			devanagari++
		} else {
			other++
		}
	}
	if devanagari+other == 0 {
		return 0
	}
	n := (devanagari+DevanagariCharsPerToken-1)/DevanagariCharsPerToken + (other+CharsPerToken-1)/CharsPerToken
	return max(1, n)
}

// CountWords counts whitespace separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
