package memory

import "github.com/m-mizutani/kioku/pkg/memory/vector"

// KeywordScore returns the fraction of query tokens that appear at least once
// in text, using the same tokenization as the vectorizer. The result is in
// [0,1]; an empty query scores 0 against any text.
func KeywordScore(query, text string) float64 {
	queryTokens := vector.Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	textSet := make(map[string]bool)
	for _, t := range vector.Tokenize(text) {
		textSet[t] = true
	}

	// Distinct query tokens only, so repeated words do not skew the ratio
	querySet := make(map[string]bool, len(queryTokens))
	for _, t := range queryTokens {
		querySet[t] = true
	}

	matched := 0
	for t := range querySet {
		if textSet[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(querySet))
}
