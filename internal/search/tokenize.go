package search

import "strings"

const tokenPunctuation = `,.!?:;()[]{}"'-`

// TokenizePhrase splits a key phrase into significant search tokens:
// lower-cased, surrounding punctuation stripped, stop words and tokens
// shorter than three runes dropped. A phrase with nothing left after
// filtering falls back to the whole original phrase as its only token, so
// the search still runs literally.
func TokenizePhrase(phrase string) []string {
	words := strings.Fields(strings.ToLower(phrase))

	var tokens []string
	seen := map[string]struct{}{}
	for _, word := range words {
		if _, ok := stopWords[word]; ok {
			continue
		}
		word = strings.Trim(word, tokenPunctuation)
		if len([]rune(word)) < 3 {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		tokens = append(tokens, word)
	}

	if len(tokens) == 0 {
		return []string{phrase}
	}
	return tokens
}
