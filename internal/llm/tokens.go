package llm

import "unicode/utf8"

// EstimateTokenCount approximates the token count of text at four
// characters per token, rounded up.
func EstimateTokenCount(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
