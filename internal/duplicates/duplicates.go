// Package duplicates finds near-duplicate job titles for standardization.
package duplicates

import (
	"sort"
	"strings"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

const (
	// DefaultGlobalThreshold applies to the dataset-wide scan.
	DefaultGlobalThreshold = 0.95
	// DefaultClusterThreshold applies inside a single cluster.
	DefaultClusterThreshold = 0.90
	// DefaultScanFloor is the lowest threshold the load-time global scan
	// keeps pairs for. Queries at or above it filter the stored list.
	DefaultScanFloor = 0.80
	// DefaultCandidateLimit caps standardization candidates per cluster.
	DefaultCandidateLimit = 5
)

// Similarity is the read side of a pairwise similarity matrix.
type Similarity interface {
	N() int
	At(i, j int) float64
}

// Detector scans a pairwise matrix for pairs with differing titles.
type Detector struct {
	sim    Similarity
	titles []string
	lower  []string
}

// NewDetector binds a similarity matrix to the row titles.
func NewDetector(sim Similarity, titles []string) *Detector {
	lower := make([]string, len(titles))
	for i, t := range titles {
		lower[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return &Detector{sim: sim, titles: titles, lower: lower}
}

// Global scans every pair of rows.
func (d *Detector) Global(threshold float64) []models.DuplicatePair {
	n := d.sim.N()
	var pairs []models.DuplicatePair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if p, ok := d.check(i, j, threshold); ok {
				pairs = append(pairs, p)
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

// IntraCluster scans the pairs among members of one cluster. Every pair
// carries the cluster id.
func (d *Detector) IntraCluster(clusterID int, members []int, threshold float64) []models.DuplicatePair {
	ids := append([]int(nil), members...)
	sort.Ints(ids)

	var pairs []models.DuplicatePair
	for a := 0; a < len(ids); a++ {
		for b := a + 1; b < len(ids); b++ {
			if p, ok := d.check(ids[a], ids[b], threshold); ok {
				cid := clusterID
				p.ClusterID = &cid
				pairs = append(pairs, p)
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

func (d *Detector) check(i, j int, threshold float64) (models.DuplicatePair, bool) {
	if d.lower[i] == d.lower[j] {
		return models.DuplicatePair{}, false
	}
	s := d.sim.At(i, j)
	if s <= threshold {
		return models.DuplicatePair{}, false
	}
	return models.DuplicatePair{
		JobA:       i,
		JobB:       j,
		TitleA:     d.titles[i],
		TitleB:     d.titles[j],
		Similarity: s,
	}, true
}

// sortPairs orders by similarity descending, then by (JobA, JobB).
func sortPairs(pairs []models.DuplicatePair) {
	sort.SliceStable(pairs, func(a, b int) bool {
		pa, pb := pairs[a], pairs[b]
		if pa.Similarity != pb.Similarity {
			return pa.Similarity > pb.Similarity
		}
		if pa.JobA != pb.JobA {
			return pa.JobA < pb.JobA
		}
		return pa.JobB < pb.JobB
	})
}

// Above returns the leading pairs of a sorted list whose similarity exceeds
// threshold. The result shares the backing array of pairs.
func Above(pairs []models.DuplicatePair, threshold float64) []models.DuplicatePair {
	i := sort.Search(len(pairs), func(i int) bool { return pairs[i].Similarity <= threshold })
	return pairs[:i]
}

// Top returns at most n pairs from an already sorted list.
func Top(pairs []models.DuplicatePair, n int) []models.DuplicatePair {
	if n >= 0 && len(pairs) > n {
		return pairs[:n]
	}
	return pairs
}

// Candidates picks the titles to standardize in a cluster. With pairs, it
// returns distinct titles in first-seen order. Without pairs, it returns
// distinct titles of the top quartile of members by distance to centroid.
func Candidates(pairs []models.DuplicatePair, members []int, titles []string, distances []float64, limit int) []string {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	seen := make(map[string]bool)
	out := make([]string, 0, limit)
	add := func(t string) bool {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
		return len(out) >= limit
	}

	if len(pairs) > 0 {
		for _, p := range pairs {
			if add(p.TitleA) || add(p.TitleB) {
				break
			}
		}
		return out
	}

	if len(members) == 0 {
		return out
	}
	outliers := append([]int(nil), members...)
	sort.SliceStable(outliers, func(a, b int) bool {
		return distances[outliers[a]] > distances[outliers[b]]
	})
	quartile := max(1, len(outliers)/4)
	for _, idx := range outliers[:quartile] {
		if add(titles[idx]) {
			break
		}
	}
	return out
}

// Messiness is the share of intra-cluster duplicate pairs per member, capped at 1.
func Messiness(pairCount, size int) float64 {
	if size <= 0 {
		return 0
	}
	return min(float64(pairCount)/float64(size), 1)
}
