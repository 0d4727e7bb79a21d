package httpspeech

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	zeroWidthJoiners = strings.NewReplacer("\u200c", "", "\u200d", "")
	hindiPunctuation = regexp.MustCompile(`([।,?!])`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// PrepareHindi composes Devanagari to NFC, drops zero-width joiners and spaces out
// punctuation so the engine pauses on it.
func PrepareHindi(text string) string {
	out := norm.NFC.String(text)
	out = zeroWidthJoiners.Replace(out)
	out = hindiPunctuation.ReplaceAllString(out, " $1 ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(out, " "))
}

func prepareText(language, text string) string {
	if strings.EqualFold(language, "hi-in") {
		return PrepareHindi(text)
	}
	return strings.TrimSpace(text)
}
