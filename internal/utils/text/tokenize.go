package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenize splits free-form message text into lower-cased words with
// leading and trailing punctuation removed. Pieces consisting only of
// punctuation are dropped, so the result never holds empty strings.
func Tokenize(content string) []string {
	fields := strings.Fields(content)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if token := Normalize(field); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Normalize applies the per-token rule of Tokenize to a single word.
func Normalize(word string) string {
	word = norm.NFC.String(strings.ToLower(word))
	return strings.TrimFunc(word, isPunctuation)
}

func isPunctuation(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
