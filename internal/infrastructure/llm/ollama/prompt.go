package ollama

import (
	"fmt"
	"unicode/utf8"
)

// Context is truncated hard before prompting; oversized contexts are the main
// cause of generation timeouts on small local models.
const maxContextChars = 1500

func truncateContext(contextText string) string {
	if len(contextText) <= maxContextChars {
		return contextText
	}
	cut := maxContextChars
	for cut > 0 && !utf8.RuneStart(contextText[cut]) {
		cut--
	}
	return contextText[:cut] + "\n[...truncated...]"
}

func buildAnswerPrompt(question, contextText string) string {
	return fmt.Sprintf(`STIG Expert: Answer concisely using the provided controls.

Controls:
%s

Question: %s

Brief Answer:`, contextText, question)
}
