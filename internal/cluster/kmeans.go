// Package cluster partitions embedding vectors with k-means.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoPoints is returned when KMeans is called without vectors.
	ErrNoPoints = errors.New("cluster: no points")
	// ErrRaggedInput is returned when vectors differ in length.
	ErrRaggedInput = errors.New("cluster: vectors differ in length")
)

// Config holds the k-means parameters. Cluster numbering is only stable for
// a fixed seed and restart count.
type Config struct {
	Seed      uint64
	Restarts  int
	MaxIter   int
	Tolerance float64
}

// DefaultConfig returns seed 42, 10 restarts, 300 iterations and 1e-4 tolerance.
func DefaultConfig() Config {
	return Config{Seed: 42, Restarts: 10, MaxIter: 300, Tolerance: 1e-4}
}

// Result is the best run across restarts.
type Result struct {
	// Assignments holds the cluster of each input row, in [0, K).
	Assignments []int
	Centroids   [][]float64
	// Distances is the euclidean distance of each row to its own centroid.
	Distances  []float64
	Inertia    float64
	K          int
	Iterations int
}

// Sizes counts the members of every cluster.
func (r *Result) Sizes() []int {
	sizes := make([]int, r.K)
	for _, c := range r.Assignments {
		sizes[c]++
	}
	return sizes
}

// Members lists row indices per cluster in ascending order.
func (r *Result) Members() [][]int {
	members := make([][]int, r.K)
	for i, c := range r.Assignments {
		members[c] = append(members[c], i)
	}
	return members
}

// ChooseK returns min(maxK, n/density) clamped to [floor, n].
func ChooseK(n, maxK, density, floor int) int {
	if n <= 0 {
		return 0
	}
	if density <= 0 {
		density = 1
	}
	k := min(maxK, n/density)
	k = max(k, floor)
	return min(k, n)
}

// KMeans runs Lloyd's algorithm with k-means++ seeding. k is clamped to
// [1, len(vectors)]. Restarts run concurrently; the lowest inertia wins and
// ties go to the earliest restart.
func KMeans(ctx context.Context, vectors [][]float64, k int, cfg Config) (*Result, error) {
	n := len(vectors)
	if n == 0 {
		return nil, ErrNoPoints
	}
	d := len(vectors[0])
	data := mat.NewDense(n, max(d, 1), nil)
	for i, v := range vectors {
		if len(v) != d {
			return nil, fmt.Errorf("row %d: %w", i, ErrRaggedInput)
		}
		if d > 0 {
			data.SetRow(i, v)
		}
	}

	k = max(1, min(k, n))
	if cfg.Restarts < 1 {
		cfg.Restarts = 1
	}
	if cfg.MaxIter < 1 {
		cfg.MaxIter = 1
	}
	tol := cfg.Tolerance * meanVariance(data)

	runs := make([]*Result, cfg.Restarts)
	g, ctx := errgroup.WithContext(ctx)
	for r := range cfg.Restarts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(r)))
			runs[r] = lloyd(data, k, cfg.MaxIter, tol, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := runs[0]
	for _, run := range runs[1:] {
		if run.Inertia < best.Inertia {
			best = run
		}
	}
	return best, nil
}

func lloyd(data *mat.Dense, k, maxIter int, tol float64, rng *rand.Rand) *Result {
	n, d := data.Dims()
	centroids := seedPlusPlus(data, k, rng)
	assignments := make([]int, n)
	distances := make([]float64, n)

	iter := 0
	for iter < maxIter {
		iter++
		changed := assign(data, centroids, assignments, distances)
		relocateEmpty(data, centroids, assignments, distances, k)

		next := mat.NewDense(k, d, nil)
		updateCentroids(data, assignments, next)

		var shift float64
		for c := 0; c < k; c++ {
			dist := floats.Distance(centroids.RawRowView(c), next.RawRowView(c), 2)
			shift += dist * dist
		}
		centroids = next
		if !changed && iter > 1 || shift <= tol {
			break
		}
	}

	assign(data, centroids, assignments, distances)
	relocateEmpty(data, centroids, assignments, distances, k)
	updateCentroids(data, assignments, centroids)

	res := &Result{
		Assignments: assignments,
		Centroids:   make([][]float64, k),
		Distances:   make([]float64, n),
		K:           k,
		Iterations:  iter,
	}
	for c := 0; c < k; c++ {
		res.Centroids[c] = append([]float64(nil), centroids.RawRowView(c)...)
	}
	for i := 0; i < n; i++ {
		dist := floats.Distance(data.RawRowView(i), res.Centroids[assignments[i]], 2)
		res.Distances[i] = dist
		res.Inertia += dist * dist
	}
	return res
}

// seedPlusPlus picks k initial centroids with D² weighting.
func seedPlusPlus(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)
	centroids.SetRow(0, data.RawRowView(rng.IntN(n)))

	closest := make([]float64, n)
	for i := range closest {
		closest[i] = sqDist(data.RawRowView(i), centroids.RawRowView(0))
	}

	for c := 1; c < k; c++ {
		total := floats.Sum(closest)
		idx := rng.IntN(n)
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			for i, w := range closest {
				cum += w
				if cum >= target {
					idx = i
					break
				}
			}
		}
		centroids.SetRow(c, data.RawRowView(idx))
		for i := range closest {
			closest[i] = math.Min(closest[i], sqDist(data.RawRowView(i), centroids.RawRowView(c)))
		}
	}
	return centroids
}

// assign moves every point to its nearest centroid and reports whether any
// assignment changed. Ties go to the lower cluster index.
func assign(data, centroids *mat.Dense, assignments []int, distances []float64) bool {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	changed := false
	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		best, bestDist := 0, math.Inf(1)
		for c := 0; c < k; c++ {
			if dist := sqDist(point, centroids.RawRowView(c)); dist < bestDist {
				best, bestDist = c, dist
			}
		}
		if assignments[i] != best {
			changed = true
		}
		assignments[i] = best
		distances[i] = bestDist
	}
	return changed
}

// relocateEmpty gives each empty cluster the point farthest from its own
// centroid, taken from a cluster that can spare it.
func relocateEmpty(data, centroids *mat.Dense, assignments []int, distances []float64, k int) {
	counts := make([]int, k)
	for _, c := range assignments {
		counts[c]++
	}
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, dist := range distances {
			if counts[assignments[i]] > 1 && dist > farDist {
				far, farDist = i, dist
			}
		}
		if far < 0 {
			return
		}
		counts[assignments[far]]--
		counts[c]++
		assignments[far] = c
		distances[far] = 0
		centroids.SetRow(c, data.RawRowView(far))
	}
}

func updateCentroids(data *mat.Dense, assignments []int, centroids *mat.Dense) {
	k, d := centroids.Dims()
	sums := make([][]float64, k)
	counts := make([]float64, k)
	for c := range sums {
		sums[c] = make([]float64, d)
	}
	for i, c := range assignments {
		floats.Add(sums[c], data.RawRowView(i))
		counts[c]++
	}
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/counts[c], sums[c])
		centroids.SetRow(c, sums[c])
	}
}

// meanVariance is the mean per-feature variance, the scale for tolerance.
func meanVariance(data *mat.Dense) float64 {
	n, d := data.Dims()
	if n < 2 {
		return 0
	}
	col := make([]float64, n)
	var total float64
	for j := 0; j < d; j++ {
		mat.Col(col, j, data)
		total += stat.PopVariance(col, nil)
	}
	return total / float64(d)
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
