package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// blobs returns three well separated groups of points.
func blobs() [][]float64 {
	var out [][]float64
	centers := [][]float64{{0, 0}, {10, 10}, {-10, 10}}
	offsets := [][]float64{{0.1, 0}, {-0.1, 0.1}, {0, -0.1}, {0.2, 0.1}}
	for _, c := range centers {
		for _, o := range offsets {
			out = append(out, []float64{c[0] + o[0], c[1] + o[1]})
		}
	}
	return out
}

type KMeansSuite struct {
	suite.Suite
	ctx context.Context
}

func TestKMeansSuite(t *testing.T) {
	suite.Run(t, new(KMeansSuite))
}

func (s *KMeansSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *KMeansSuite) TestPartitionsAllPoints() {
	points := blobs()
	res, err := KMeans(s.ctx, points, 3, DefaultConfig())
	s.Require().NoError(err)

	s.Len(res.Assignments, len(points))
	total := 0
	for _, size := range res.Sizes() {
		s.Positive(size)
		total += size
	}
	s.Equal(len(points), total)
	for _, c := range res.Assignments {
		s.GreaterOrEqual(c, 0)
		s.Less(c, res.K)
	}
}

func (s *KMeansSuite) TestSeparatesBlobs() {
	res, err := KMeans(s.ctx, blobs(), 3, DefaultConfig())
	s.Require().NoError(err)

	for g := 0; g < 3; g++ {
		first := res.Assignments[g*4]
		for i := 1; i < 4; i++ {
			s.Equal(first, res.Assignments[g*4+i], "group %d split", g)
		}
	}
	s.Equal([]int{4, 4, 4}, res.Sizes())
	s.Less(res.Inertia, 1.0)
}

func (s *KMeansSuite) TestDeterministic() {
	a, err := KMeans(s.ctx, blobs(), 3, DefaultConfig())
	s.Require().NoError(err)
	b, err := KMeans(s.ctx, blobs(), 3, DefaultConfig())
	s.Require().NoError(err)

	s.Equal(a.Assignments, b.Assignments)
	s.Equal(a.Centroids, b.Centroids)
	s.Equal(a.Inertia, b.Inertia)
}

func (s *KMeansSuite) TestClampsKToN() {
	res, err := KMeans(s.ctx, [][]float64{{0, 0}, {1, 1}}, 5, DefaultConfig())
	s.Require().NoError(err)
	s.Equal(2, res.K)
	s.Equal([]int{1, 1}, res.Sizes())
}

func (s *KMeansSuite) TestIdenticalPointsStillFillClusters() {
	points := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	res, err := KMeans(s.ctx, points, 2, DefaultConfig())
	s.Require().NoError(err)
	for _, size := range res.Sizes() {
		s.Positive(size)
	}
}

func (s *KMeansSuite) TestDistancesMatchCentroids() {
	res, err := KMeans(s.ctx, blobs(), 3, DefaultConfig())
	s.Require().NoError(err)
	for i, dist := range res.Distances {
		s.GreaterOrEqual(dist, 0.0)
		s.Less(dist, 1.0, "point %d", i)
	}
}

func (s *KMeansSuite) TestErrors() {
	_, err := KMeans(s.ctx, nil, 3, DefaultConfig())
	s.ErrorIs(err, ErrNoPoints)

	_, err = KMeans(s.ctx, [][]float64{{1, 2}, {1}}, 1, DefaultConfig())
	s.ErrorIs(err, ErrRaggedInput)
}

func TestChooseK(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "empty", n: 0, want: 0},
		{name: "tiny uses n", n: 2, want: 2},
		{name: "small uses floor", n: 25, want: 3},
		{name: "mid", n: 80, want: 8},
		{name: "capped", n: 5000, want: 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseK(tt.n, 15, 10, 3))
		})
	}
}

func TestMembers(t *testing.T) {
	res := &Result{Assignments: []int{1, 0, 1, 2}, K: 3}
	require.Equal(t, [][]int{{1}, {0, 2}, {3}}, res.Members())
}
