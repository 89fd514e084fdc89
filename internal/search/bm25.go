package search

import (
	"math"
	"sort"

	"github.com/goatcheese98/career-constellation/pkg/similarity"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type posting struct {
	doc   int
	count int
}

// BM25 is an immutable in-memory BM25 index over a fixed document list.
// Document ids are positions in the slice given to NewBM25.
type BM25 struct {
	inverted   map[string][]posting
	docLengths []int
	avgDL      float64
}

// NewBM25 indexes docs. Stop words are dropped.
func NewBM25(docs []string) *BM25 {
	idx := &BM25{
		inverted:   make(map[string][]posting),
		docLengths: make([]int, len(docs)),
	}
	var total int
	for id, doc := range docs {
		tokens := similarity.ContentTokens(doc, nil)
		idx.docLengths[id] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int)
		var order []string
		for _, t := range tokens {
			if tf[t] == 0 {
				order = append(order, t)
			}
			tf[t]++
		}
		for _, t := range order {
			idx.inverted[t] = append(idx.inverted[t], posting{doc: id, count: tf[t]})
		}
	}
	if len(docs) > 0 {
		idx.avgDL = float64(total) / float64(len(docs))
	}
	return idx
}

// Len returns the number of indexed documents.
func (idx *BM25) Len() int { return len(idx.docLengths) }

// Search scores every document sharing a term with text and returns up to
// limit hits, best first. Equal scores order by document id. limit <= 0 means
// no limit.
func (idx *BM25) Search(text string, limit int) []Hit {
	if len(idx.docLengths) == 0 || idx.avgDL == 0 {
		return nil
	}
	scores := make(map[int]float64)
	seen := make(map[string]bool)
	for _, t := range similarity.ContentTokens(text, nil) {
		if seen[t] {
			continue
		}
		seen[t] = true
		postings, ok := idx.inverted[t]
		if !ok {
			continue
		}
		idf := idx.idf(len(postings))
		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(idx.docLengths[p.doc])
			num := tf * (bm25K1 + 1)
			denom := tf + bm25K1*(1-bm25B+bm25B*(docLen/idx.avgDL))
			scores[p.doc] += idf * (num / denom)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for doc, score := range scores {
		hits = append(hits, Hit{ID: doc, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// idf = ln(1 + (N - n + 0.5) / (n + 0.5))
func (idx *BM25) idf(df int) float64 {
	n := float64(len(idx.docLengths))
	d := float64(df)
	return math.Log(1 + (n-d+0.5)/(d+0.5))
}
