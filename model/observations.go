package model

import (
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// An ObservationSet holds everything the sampler needs about the data: N
// point locations in R^d, the N x p covariate matrix X, and the length-N
// response vector y. It is owned by the caller and treated as read-only by
// the sampler.
type ObservationSet struct {
	Coords [][]float64 // N rows of d coordinates each
	X      *mat.Dense  // N x p covariates (include an intercept column yourself)
	Y      []float64   // N responses
}

// NewObservationSet builds and validates an observation set.
func NewObservationSet(coords [][]float64, x *mat.Dense, y []float64) (*ObservationSet, error) {
	o := &ObservationSet{
		Coords: coords,
		X:      x,
		Y:      y,
	}

	if err := o.Check(); err != nil {
		return nil, err
	}
	return o, nil
}

// N returns the number of observations.
func (o *ObservationSet) N() int {
	return len(o.Y)
}

// P returns the number of covariates.
func (o *ObservationSet) P() int {
	if o.X == nil {
		return 0
	}
	_, p := o.X.Dims()
	return p
}

// Dim returns the coordinate dimensionality, 0 for an empty set.
func (o *ObservationSet) Dim() int {
	if len(o.Coords) < 1 {
		return 0
	}
	return len(o.Coords[0])
}

// Check returns an error if the set's invariants do not hold: every size
// must agree, coordinates must share one dimensionality, and p <= N for
// identifiability.
func (o *ObservationSet) Check() error {
	n := len(o.Y)
	if n < 1 {
		return InvalidParameter("y", "need at least one observation")
	}

	if len(o.Coords) != n {
		return DimensionMismatch("coordinate rows", n, len(o.Coords))
	}

	dim := len(o.Coords[0])
	if dim < 1 {
		return InvalidParameter("coords", "zero-dimensional coordinates")
	}
	for i, c := range o.Coords {
		if len(c) != dim {
			return DimensionMismatch("coordinate dims in row "+strconv.Itoa(i), dim, len(c))
		}
	}

	if o.X == nil {
		return InvalidParameter("X", "no covariate matrix supplied")
	}
	rows, p := o.X.Dims()
	if rows != n {
		return DimensionMismatch("covariate rows", n, rows)
	}
	if p < 1 || p > n {
		return InvalidParameter("X", "need 1 <= p <= N covariates, have p=%d N=%d", p, n)
	}

	return nil
}

// A PredictionSet holds M new locations (and their covariates, needed for
// response-scale prediction). Supplied once, read-only.
type PredictionSet struct {
	Coords [][]float64 // M rows of d coordinates each
	X      *mat.Dense  // M x p covariates, same p as the observations
}

// NewPredictionSet builds and validates a prediction set against the
// observation set it will be used with.
func NewPredictionSet(coords [][]float64, x *mat.Dense, obs *ObservationSet) (*PredictionSet, error) {
	p := &PredictionSet{
		Coords: coords,
		X:      x,
	}

	if len(coords) < 1 {
		return nil, InvalidParameter("pred coords", "need at least one prediction location")
	}

	dim := obs.Dim()
	for i, c := range coords {
		if len(c) != dim {
			return nil, DimensionMismatch("prediction coordinate dims in row "+strconv.Itoa(i), dim, len(c))
		}
	}

	if x == nil {
		return nil, InvalidParameter("pred X", "no covariate matrix supplied")
	}
	rows, cols := x.Dims()
	if rows != len(coords) {
		return nil, DimensionMismatch("prediction covariate rows", len(coords), rows)
	}
	if cols != obs.P() {
		return nil, DimensionMismatch("prediction covariate cols", obs.P(), cols)
	}

	return p, nil
}

// M returns the number of prediction locations.
func (p *PredictionSet) M() int {
	return len(p.Coords)
}
