// Package affinity derives similarity structures from embeddings and centroids.
package affinity

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/goatcheese98/career-constellation/pkg/similarity"
)

// JobToCluster returns the cosine similarity of every vector to every
// centroid. The matrix is dense: row i has len(centroids) entries.
func JobToCluster(vectors, centroids [][]float64) [][]float64 {
	normCentroids := make([][]float64, len(centroids))
	for c, centroid := range centroids {
		normCentroids[c] = similarity.Normalize(centroid)
	}

	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		nv := similarity.Normalize(v)
		row := make([]float64, len(centroids))
		for c, nc := range normCentroids {
			row[c] = clamp(similarity.Dot(nv, nc))
		}
		out[i] = row
	}
	return out
}

// PairKey formats the lookup key for two cluster ids, smaller id first.
func PairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// ClusterToCluster returns the similarity of every unordered centroid pair
// keyed by PairKey. ids maps centroid index to cluster id; nil means identity.
func ClusterToCluster(centroids [][]float64, ids []int) map[string]float64 {
	out := make(map[string]float64, len(centroids)*(len(centroids)-1)/2)
	for a := 0; a < len(centroids); a++ {
		for b := a + 1; b < len(centroids); b++ {
			idA, idB := a, b
			if ids != nil {
				idA, idB = ids[a], ids[b]
			}
			out[PairKey(idA, idB)] = clamp(similarity.Cosine(centroids[a], centroids[b]))
		}
	}
	return out
}

// Pairwise is the full point-to-point cosine similarity, stored as the
// strict upper triangle. It is computed once and is read-only afterwards.
type Pairwise struct {
	upper   []float64
	nonZero []bool
	n       int
}

// NewPairwise computes all pairwise similarities. Rows are split into blocks
// processed by up to workers goroutines; workers <= 0 uses GOMAXPROCS.
func NewPairwise(ctx context.Context, vectors [][]float64, workers int) (*Pairwise, error) {
	n := len(vectors)
	p := &Pairwise{
		n:       n,
		upper:   make([]float64, n*(n-1)/2),
		nonZero: make([]bool, n),
	}
	if n == 0 {
		return p, nil
	}

	normed := make([][]float64, n)
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("pairwise: row %d has %d values, want %d", i, len(v), dim)
		}
		normed[i] = similarity.Normalize(v)
		p.nonZero[i] = similarity.Norm(v) > 0
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	const blockRows = 64
	for start := 0; start < n; start += blockRows {
		end := min(start+blockRows, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				base := p.offset(i)
				for j := i + 1; j < n; j++ {
					p.upper[base+j-i-1] = clamp(similarity.Dot(normed[i], normed[j]))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

// N is the number of rows.
func (p *Pairwise) N() int { return p.n }

// offset is the index of (i, i+1) in the packed upper triangle.
func (p *Pairwise) offset(i int) int {
	return i * (2*p.n - i - 1) / 2
}

// At returns sim(i, j). The diagonal is 1 for non-zero rows and 0 otherwise.
func (p *Pairwise) At(i, j int) float64 {
	if i == j {
		if p.nonZero[i] {
			return 1
		}
		return 0
	}
	if i > j {
		i, j = j, i
	}
	return p.upper[p.offset(i)+j-i-1]
}

// Neighbor is a row index with its similarity to a query row.
type Neighbor struct {
	Index      int
	Similarity float64
}

// TopSimilar returns the k rows most similar to row i, excluding i itself.
// Equal scores keep the lower index first.
func (p *Pairwise) TopSimilar(i, k int) []Neighbor {
	if i < 0 || i >= p.n || k <= 0 {
		return nil
	}
	out := make([]Neighbor, 0, p.n-1)
	for j := 0; j < p.n; j++ {
		if j != i {
			out = append(out, Neighbor{Index: j, Similarity: p.At(i, j)})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// clamp keeps rounding noise inside [-1, 1].
func clamp(x float64) float64 {
	return max(-1, min(1, x))
}
