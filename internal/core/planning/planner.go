// Package planning derives output length targets for length-limited
// transformations and simple statistics over extracted text.
package planning

import (
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

const (
	DefaultUpperBound = 512

	minMaxLength = 30
	minMinLength = 10
	minGap       = 5
)

// ratios are output/input length percentages per tier.
var ratios = map[domain.Tier]int{
	domain.TierTerse:    15,
	domain.TierStandard: 45,
	domain.TierDetailed: 70,
}

type Planner struct {
	upperBound int
}

func NewPlanner(upperBound int) *Planner {
	if upperBound <= 0 {
		upperBound = DefaultUpperBound
	}
	return &Planner{upperBound: upperBound}
}

// Plan computes the (min, max) output length for text at the given tier. Unknown
// tiers plan as standard.
//
// For inputs shorter than ten words the floor of 10 cannot hold without exceeding
// the input, so both bounds collapse to the word count.
func (p *Planner) Plan(text string, tier domain.Tier) domain.LengthTarget {
	words := WordCount(text)

	ratio, ok := ratios[tier]
	if !ok {
		ratio = ratios[domain.TierStandard]
	}

	maxLen := words * ratio / 100
	maxLen = max(minMaxLength, min(maxLen, words, p.upperBound))

	minLen := maxLen / 2
	minLen = max(minMinLength, min(minLen, maxLen-minGap))

	if maxLen > words {
		maxLen = words
	}
	if minLen > maxLen {
		minLen = maxLen
	}

	return domain.LengthTarget{Min: minLen, Max: maxLen}
}

// Plan uses the default transformation capacity.
func Plan(text string, tier domain.Tier) domain.LengthTarget {
	return NewPlanner(DefaultUpperBound).Plan(text, tier)
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}
