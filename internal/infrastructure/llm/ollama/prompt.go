package ollama

import (
	"fmt"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

func buildSummaryPrompt(chunk string, lang domain.Language, target domain.LengthTarget) string {
	return fmt.Sprintf(`Summarize the passage below for a reader with dyslexia.
Use short sentences and plain words. Keep names, numbers and key facts.
The passage is in %[1]s; write the summary in %[1]s.
Write between %[2]d and %[3]d words. Reply with the summary only, no preamble.

Passage:
%[4]s
`, lang.Name(), target.Min, target.Max, chunk)
}

const ocrPrompt = `Transcribe all text visible in this image exactly as written, in reading order.
Keep line breaks between paragraphs. Do not describe the image or add commentary.
If the image contains no text, reply with an empty response.`
