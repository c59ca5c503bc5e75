package kernel

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Stat534/splm/model"
)

// A DistanceMatrix holds the pairwise Euclidean distances between N
// locations. Built once, read-only afterwards: the sampler rebuilds
// covariance matrices from it every iteration, and concurrent chains may
// share a single instance.
type DistanceMatrix struct {
	n int
	d *mat.SymDense
}

// NewDistanceMatrix computes all pairwise distances between the given
// coordinate rows.
func NewDistanceMatrix(coords [][]float64) (*DistanceMatrix, error) {
	n := len(coords)
	if n < 1 {
		return nil, model.InvalidParameter("coords", "need at least one location")
	}

	dim := len(coords[0])
	for _, c := range coords {
		if len(c) != dim {
			return nil, model.DimensionMismatch("coordinate dims", dim, len(c))
		}
	}

	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, euclid(coords[i], coords[j]))
		}
	}

	return &DistanceMatrix{n: n, d: d}, nil
}

// N returns the number of locations.
func (dm *DistanceMatrix) N() int {
	return dm.n
}

// At returns the distance between locations i and j.
func (dm *DistanceMatrix) At(i, j int) float64 {
	return dm.d.At(i, j)
}

// CrossDistances computes the N x M distances between two coordinate sets
// (observed rows by prediction rows).
func CrossDistances(a, b [][]float64) (*mat.Dense, error) {
	if len(a) < 1 || len(b) < 1 {
		return nil, model.InvalidParameter("coords", "need at least one location on each side")
	}

	dim := len(a[0])
	for _, c := range a {
		if len(c) != dim {
			return nil, model.DimensionMismatch("coordinate dims", dim, len(c))
		}
	}
	for _, c := range b {
		if len(c) != dim {
			return nil, model.DimensionMismatch("coordinate dims", dim, len(c))
		}
	}

	d := mat.NewDense(len(a), len(b), nil)
	for i, ca := range a {
		for j, cb := range b {
			d.Set(i, j, euclid(ca, cb))
		}
	}

	return d, nil
}

func euclid(a, b []float64) float64 {
	s := 0.0
	for k := range a {
		diff := a[k] - b[k]
		s += diff * diff
	}
	return math.Sqrt(s)
}
