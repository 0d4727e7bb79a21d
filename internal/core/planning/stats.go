package planning

import (
	"strings"
	"unicode/utf8"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

const wordsPerMinute = 200

func Stats(text string) domain.TextStats {
	if strings.TrimSpace(text) == "" {
		return domain.TextStats{Complexity: "Simple", EstimatedSeconds: 10}
	}

	words := WordCount(text)
	paragraphs := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			paragraphs++
		}
	}

	return domain.TextStats{
		Words:              words,
		Characters:         utf8.RuneCountInString(text),
		Sentences:          countSentenceMarks(text),
		Paragraphs:         paragraphs,
		ReadingTimeMinutes: max(1, words/wordsPerMinute),
		Complexity:         complexity(words),
		EstimatedSeconds:   EstimateProcessingSeconds(words),
	}
}

// EstimateProcessingSeconds is a rough wall-clock estimate for extraction plus one
// transformation pass over a document of the given size.
func EstimateProcessingSeconds(words int) int {
	if words <= 0 {
		return 10
	}
	base := 5.0
	perWord := float64(words) * 0.02
	model := min(30.0, float64(words)*0.05)
	return int(base + perWord + model)
}

func complexity(words int) string {
	switch {
	case words < 500:
		return "Simple"
	case words < 2000:
		return "Medium"
	default:
		return "Complex"
	}
}

// countSentenceMarks counts runs of terminal punctuation.
func countSentenceMarks(text string) int {
	count := 0
	inRun := false
	for _, r := range text {
		terminal := r == '.' || r == '!' || r == '?'
		if terminal && !inRun {
			count++
		}
		inRun = terminal
	}
	return count
}
