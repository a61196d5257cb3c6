// Package vector provides a bag-of-words vectorizer and an in-memory vector
// store with brute-force cosine similarity search.
package vector

import (
	"math"
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it on non-alphanumeric boundaries.
// Empty tokens are dropped. No stemming, no stop words.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TermVector is a sparse term-frequency vector. Keys are indexes into the
// owning Vectorizer's vocabulary. The squared L2 norm is cached at
// construction so that identical vectors compare to exactly 1.
type TermVector struct {
	Freqs  map[int]int
	NormSq float64
}

// Norm returns the L2 norm of the vector
func (v TermVector) Norm() float64 {
	return math.Sqrt(v.NormSq)
}

// Cosine returns the cosine similarity between two term vectors. Comparing
// against a zero vector (empty text) yields 0, never a division by zero.
// Dimensions added to the vocabulary after either vector was built read as 0.
func Cosine(a, b TermVector) float64 {
	if a.NormSq == 0 || b.NormSq == 0 {
		return 0
	}

	// Iterate the smaller map
	small, large := a.Freqs, b.Freqs
	if len(large) < len(small) {
		small, large = large, small
	}

	var dot float64
	for idx, f := range small {
		if g, ok := large[idx]; ok {
			dot += float64(f) * float64(g)
		}
	}
	return dot / math.Sqrt(a.NormSq*b.NormSq)
}

// Vectorizer turns text into term-frequency vectors over an append-only
// vocabulary. The vocabulary grows as a side effect of vectorizing indexed
// text; a term is never removed. Vectorizer is not safe for concurrent use by
// itself; the owning Store serializes access.
type Vectorizer struct {
	vocab map[string]int
}

// NewVectorizer creates a vectorizer with an empty vocabulary
func NewVectorizer() *Vectorizer {
	return &Vectorizer{vocab: make(map[string]int)}
}

// VocabSize returns the current number of known terms
func (v *Vectorizer) VocabSize() int {
	return len(v.vocab)
}

// Vectorize tokenizes text and returns its term-frequency vector, growing the
// vocabulary for unseen terms. Repeated calls with the same text produce
// vectors whose cosine similarity is exactly 1.
func (v *Vectorizer) Vectorize(text string) TermVector {
	tokens := Tokenize(text)
	freqs := make(map[int]int, len(tokens))
	for _, t := range tokens {
		idx, ok := v.vocab[t]
		if !ok {
			idx = len(v.vocab)
			v.vocab[t] = idx
		}
		freqs[idx]++
	}

	return TermVector{Freqs: freqs, NormSq: sumSquares(freqs)}
}

// VectorizeQuery builds a vector for query text without growing the
// vocabulary. Terms never seen in indexed text cannot match anything, so they
// only contribute to the norm.
func (v *Vectorizer) VectorizeQuery(text string) TermVector {
	tokens := Tokenize(text)
	freqs := make(map[int]int, len(tokens))
	unknown := make(map[string]int)
	for _, t := range tokens {
		if idx, ok := v.vocab[t]; ok {
			freqs[idx]++
		} else {
			unknown[t]++
		}
	}

	normSq := sumSquares(freqs)
	for _, f := range unknown {
		normSq += float64(f) * float64(f)
	}

	return TermVector{Freqs: freqs, NormSq: normSq}
}

func sumSquares(freqs map[int]int) float64 {
	var sum float64
	for _, f := range freqs {
		sum += float64(f) * float64(f)
	}
	return sum
}
