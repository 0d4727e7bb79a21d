package domain

import (
	"fmt"
	"strings"
)

// Tier is a verbosity level controlling summary length.
type Tier string

const (
	TierTerse    Tier = "terse"
	TierStandard Tier = "standard"
	TierDetailed Tier = "detailed"
)

func ParseTier(raw string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "terse", "tldr":
		return TierTerse, nil
	case "", "standard", "brief":
		return TierStandard, nil
	case "detailed":
		return TierDetailed, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse tier", fmt.Errorf("unknown tier %q", raw))
	}
}

// Language is the ISO 639-1 code of the language a text is written in.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// Name is the English name of the language as used in engine prompts.
func (l Language) Name() string {
	switch l {
	case LanguageHindi:
		return "Hindi"
	case LanguageEnglish, "":
		return "English"
	default:
		return string(l)
	}
}

// LengthTarget is the output length window handed to a length-limited transformation.
type LengthTarget struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Chunk is a bounded slice of normalized text.
type Chunk struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Tokens    int    `json:"tokens"`
	Oversized bool   `json:"oversized,omitempty"`
}

type Summary struct {
	DocumentID string       `json:"document_id"`
	Tier       Tier         `json:"tier"`
	Language   Language     `json:"language"`
	Text       string       `json:"text"`
	Target     LengthTarget `json:"target"`
	Chunks     int          `json:"chunks"`
	Failed     int          `json:"failed_chunks,omitempty"`
	Truncated  bool         `json:"truncated"`
}

type Voice struct {
	Language string `json:"language" yaml:"language"`
	Gender   string `json:"gender" yaml:"gender"`
	Name     string `json:"name" yaml:"name"`
}

type SpeechRequest struct {
	Language string `json:"language"`
	Gender   string `json:"gender"`
}

type TextStats struct {
	Words              int    `json:"words"`
	Characters         int    `json:"characters"`
	Sentences          int    `json:"sentences"`
	Paragraphs         int    `json:"paragraphs"`
	ReadingTimeMinutes int    `json:"reading_time_minutes"`
	Complexity         string `json:"complexity"`
	EstimatedSeconds   int    `json:"estimated_processing_seconds"`
}
