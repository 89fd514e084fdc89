package constellation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LayoutExtent is the half-width of the normalized layout cube.
const LayoutExtent = 50.0

// Layout projects vectors onto their first three principal components and
// scales each axis to [-LayoutExtent, LayoutExtent]. Axes without variance,
// or beyond the data rank, are 0.
func Layout(vectors [][]float64) ([][3]float64, error) {
	n := len(vectors)
	out := make([][3]float64, n)
	if n < 2 || len(vectors[0]) == 0 {
		return out, nil
	}
	d := len(vectors[0])

	x := mat.NewDense(n, d, nil)
	for i, v := range vectors {
		x.SetRow(i, v)
	}
	var pc stat.PC
	if !pc.PrincipalComponents(x, nil) {
		return nil, errors.New("layout: principal component analysis did not converge")
	}
	var v mat.Dense
	pc.VectorsTo(&v)

	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			x.Set(i, j, col[i]-mean)
		}
	}

	_, rank := v.Dims()
	comps := min(3, rank)
	for c := 0; c < comps; c++ {
		flipSign(&v, c)
	}

	var proj mat.Dense
	proj.Mul(x, v.Slice(0, d, 0, comps))
	for c := 0; c < comps; c++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < n; i++ {
			lo = math.Min(lo, proj.At(i, c))
			hi = math.Max(hi, proj.At(i, c))
		}
		for i := 0; i < n; i++ {
			if hi-lo < 1e-12 {
				out[i][c] = 0
				continue
			}
			out[i][c] = (proj.At(i, c)-lo)/(hi-lo)*2*LayoutExtent - LayoutExtent
		}
	}
	return out, nil
}

// flipSign makes the largest-magnitude loading of component c positive so
// the projection does not mirror between runs.
func flipSign(v *mat.Dense, c int) {
	rows, _ := v.Dims()
	var big float64
	for r := 0; r < rows; r++ {
		if x := v.At(r, c); math.Abs(x) > math.Abs(big) {
			big = x
		}
	}
	if big < 0 {
		for r := 0; r < rows; r++ {
			v.Set(r, c, -v.At(r, c))
		}
	}
}
