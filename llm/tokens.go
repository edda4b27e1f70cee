package llm

import "unicode/utf8"

// EstimateTokens approximates the token count of text as runes / 3, never
// less than 1 for non-empty text. Post text mixes scripts, and 3 runes per
// token sits between typical English (~4) and CJK (~1.5) ratios.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/3, 1)
}
