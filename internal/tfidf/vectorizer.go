// Package tfidf implements a term-frequency / inverse-document-frequency
// vectorizer with n-gram support and vocabulary pruning.
package tfidf

import (
	"errors"
	"math"
	"sort"

	"github.com/goatcheese98/career-constellation/pkg/similarity"
)

// ErrEmptyVocabulary is returned by Fit when pruning leaves no terms.
var ErrEmptyVocabulary = errors.New("tfidf: no terms remain after pruning")

// Options controls tokenization and vocabulary pruning.
type Options struct {
	// ExtraStopWords are removed in addition to the English list.
	ExtraStopWords map[string]bool
	NGramMin       int
	NGramMax       int
	// MaxFeatures keeps the most frequent terms across the corpus. 0 means no cap.
	MaxFeatures int
	// MinDF drops terms found in fewer documents than this count.
	MinDF int
	// MaxDF drops terms found in more than this share of documents.
	// Values <= 0 or >= 1 disable the cap.
	MaxDF     float64
	StopWords bool
}

// DefaultOptions returns unigram options with English stop words.
func DefaultOptions() Options {
	return Options{NGramMin: 1, NGramMax: 1, MinDF: 1, StopWords: true}
}

// Vector is a sparse row. Indices are ascending.
type Vector struct {
	Indices []int
	Values  []float64
}

// Dot returns the inner product of two sparse vectors.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// IsZero reports whether the vector has no non-zero entries.
func (v Vector) IsZero() bool { return len(v.Indices) == 0 }

// Dense expands v into a slice of length dim.
func (v Vector) Dense(dim int) []float64 {
	out := make([]float64, dim)
	for k, idx := range v.Indices {
		if idx < dim {
			out[idx] = v.Values[k]
		}
	}
	return out
}

// Vectorizer learns a vocabulary and idf weights from a corpus.
// A fitted Vectorizer is safe for concurrent Transform calls.
type Vectorizer struct {
	vocab map[string]int
	terms []string
	idf   []float64
	opts  Options
}

// New creates an unfitted vectorizer.
func New(opts Options) *Vectorizer {
	if opts.NGramMin < 1 {
		opts.NGramMin = 1
	}
	if opts.NGramMax < opts.NGramMin {
		opts.NGramMax = opts.NGramMin
	}
	if opts.MinDF < 1 {
		opts.MinDF = 1
	}
	return &Vectorizer{opts: opts}
}

// Analyze turns a document into its n-gram terms.
func (v *Vectorizer) Analyze(doc string) []string {
	tokens := similarity.Tokenize(doc)
	if v.opts.StopWords || len(v.opts.ExtraStopWords) > 0 {
		kept := tokens[:0]
		for _, t := range tokens {
			if v.opts.StopWords && similarity.IsStopWord(t) {
				continue
			}
			if v.opts.ExtraStopWords[t] {
				continue
			}
			kept = append(kept, t)
		}
		tokens = kept
	}
	return similarity.NGrams(tokens, v.opts.NGramMin, v.opts.NGramMax)
}

// Fit learns the vocabulary and idf weights from docs.
func (v *Vectorizer) Fit(docs []string) error {
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range v.Analyze(doc) {
			tf[term]++
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	n := len(docs)
	maxDocs := math.Inf(1)
	if v.opts.MaxDF > 0 && v.opts.MaxDF < 1 && n > 1 {
		maxDocs = v.opts.MaxDF * float64(n)
	}

	terms := make([]string, 0, len(df))
	for term, count := range df {
		if count < v.opts.MinDF || float64(count) > maxDocs {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return ErrEmptyVocabulary
	}

	if v.opts.MaxFeatures > 0 && len(terms) > v.opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.opts.MaxFeatures]
	}
	sort.Strings(terms)

	v.terms = terms
	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}
	return nil
}

// Transform vectorizes doc under the fitted vocabulary. Rows are l2-normalized;
// a document with no known terms yields the zero vector.
func (v *Vectorizer) Transform(doc string) Vector {
	counts := make(map[int]float64)
	for _, term := range v.Analyze(doc) {
		if idx, ok := v.vocab[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return Vector{}
	}

	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	var norm float64
	for k, idx := range indices {
		w := counts[idx] * v.idf[idx]
		values[k] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for k := range values {
		values[k] /= norm
	}
	return Vector{Indices: indices, Values: values}
}

// FitTransform fits on docs and returns their vectors.
func (v *Vectorizer) FitTransform(docs []string) ([]Vector, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	out := make([]Vector, len(docs))
	for i, doc := range docs {
		out[i] = v.Transform(doc)
	}
	return out, nil
}

// Dim is the vocabulary size.
func (v *Vectorizer) Dim() int { return len(v.terms) }

// Terms returns the vocabulary in index order.
func (v *Vectorizer) Terms() []string { return v.terms }

// TopTerms returns up to n terms of vec ordered by weight, heaviest first.
// Equal weights keep vocabulary order.
func (v *Vectorizer) TopTerms(vec Vector, n int) []string {
	order := make([]int, len(vec.Indices))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		return vec.Values[order[a]] > vec.Values[order[b]]
	})
	if n > len(order) {
		n = len(order)
	}
	out := make([]string, 0, n)
	for _, k := range order[:n] {
		out = append(out, v.terms[vec.Indices[k]])
	}
	return out
}
