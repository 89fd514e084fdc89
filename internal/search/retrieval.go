package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goatcheese98/career-constellation/internal/chunking"
	"github.com/goatcheese98/career-constellation/internal/tfidf"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

const (
	// DefaultTopK is the number of chunks handed to the generator.
	DefaultTopK = 7
	// MinRelevance discards chunks scoring below this cosine similarity.
	MinRelevance = 0.05
)

// IndexOptions returns the vectorizer settings used for report chunks.
func IndexOptions() tfidf.Options {
	return tfidf.Options{
		NGramMin:    1,
		NGramMax:    3,
		MaxFeatures: 8000,
		MinDF:       1,
		MaxDF:       0.95,
		StopWords:   true,
	}
}

// Index is a lexical TF-IDF index over report chunks. It is immutable after
// construction and safe for concurrent queries.
type Index struct {
	vectorizer *tfidf.Vectorizer
	chunks     []chunking.Chunk
	vectors    []tfidf.Vector
}

// NewIndex fits the vectorizer on the chunk contents. An empty chunk list, or
// one whose vocabulary prunes away entirely, yields an index that retrieves
// nothing.
func NewIndex(chunks []chunking.Chunk, opts tfidf.Options) (*Index, error) {
	idx := &Index{chunks: chunks}
	if len(chunks) == 0 {
		return idx, nil
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	v := tfidf.New(opts)
	vectors, err := v.FitTransform(texts)
	if errors.Is(err, tfidf.ErrEmptyVocabulary) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fit chunk index: %w", err)
	}
	idx.vectorizer = v
	idx.vectors = vectors
	return idx, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Features returns the vocabulary size.
func (idx *Index) Features() int {
	if idx.vectorizer == nil {
		return 0
	}
	return idx.vectorizer.Dim()
}

// Chunks returns the indexed chunks in index order.
func (idx *Index) Chunks() []chunking.Chunk { return idx.chunks }

type scoredChunk struct {
	pos   int
	score float64
}

// Retrieve ranks chunks by cosine similarity to query. Chunks scoring below
// MinRelevance are discarded. When currentReport is non-empty, chunks whose
// source contains it (case-insensitive) come first regardless of score, and
// other chunks only backfill the remaining slots. topK <= 0 uses DefaultTopK.
func (idx *Index) Retrieve(query, currentReport string, topK int) []models.RetrievedContext {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if idx.vectorizer == nil {
		return nil
	}
	q := idx.vectorizer.Transform(query)
	if q.IsZero() {
		return nil
	}

	scored := make([]scoredChunk, 0, len(idx.vectors))
	for i, vec := range idx.vectors {
		// Rows are l2-normalised, so the dot product is the cosine.
		if sim := q.Dot(vec); sim >= MinRelevance {
			scored = append(scored, scoredChunk{pos: i, score: sim})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	current := strings.ToLower(currentReport)
	var priority, others []models.RetrievedContext
	for _, s := range scored {
		ch := &idx.chunks[s.pos]
		rc := models.RetrievedContext{
			Content:        ch.Content,
			Source:         ch.DisplaySource(),
			RelevanceScore: s.score,
		}
		if current != "" && strings.Contains(strings.ToLower(ch.Source), current) {
			priority = append(priority, rc)
		} else {
			others = append(others, rc)
		}
	}

	if len(priority) > topK {
		priority = priority[:topK]
	}
	if room := topK - len(priority); len(others) > room {
		others = others[:room]
	}
	return append(priority, others...)
}
