package language

import (
	"testing"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

func TestDetect(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name string
		text string
		want domain.Language
	}{
		{"hindi", "भारत एक विशाल देश है। यहाँ अनेक भाषाएँ बोली जाती हैं और लोग मिलजुल कर रहते हैं।", domain.LanguageHindi},
		{"english", "The river floods every spring, and the farmers plant rice once the water recedes.", domain.LanguageEnglish},
		{"empty falls back", "   ", domain.LanguageEnglish},
		{"digits fall back", "12345 678", domain.LanguageEnglish},
	}
	for _, tt := range tests {
		if got := d.Detect(tt.text); got != tt.want {
			t.Errorf("%s: Detect() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
