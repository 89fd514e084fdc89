// Package similarity provides vector and text similarity utilities.
package similarity

import (
	"math"
	"strings"
	"unicode"
)

// Cosine returns dot(a,b)/(|a||b|). Mismatched lengths and zero-norm
// vectors give 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Norm returns the euclidean length of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Tokenize lowercases text and returns word tokens of at least two
// letters or digits.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) >= 2 {
			out = append(out, w)
		}
	}
	return out
}

// ContentTokens tokenizes text and drops English stop words plus any
// extra stop words given.
func ContentTokens(text string, extra map[string]bool) []string {
	tokens := Tokenize(text)
	out := tokens[:0]
	for _, t := range tokens {
		if IsStopWord(t) || extra[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NGrams joins consecutive tokens into n-grams for every n in [minN, maxN].
// Unigrams come first, then bigrams, in document order.
func NGrams(tokens []string, minN, maxN int) []string {
	if minN < 1 {
		minN = 1
	}
	var out []string
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// IsStopWord reports whether w is an English stop word.
func IsStopWord(w string) bool {
	return englishStopWords[w]
}
