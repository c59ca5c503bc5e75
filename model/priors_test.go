package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestPriorCheckGood(t *testing.T) {
	assert := assert.New(t)

	coords, x, y := goodObs()
	obs, err := NewObservationSet(coords, x, y)
	assert.NoError(err)

	pr := DefaultPriors(0.1, 10.0)
	assert.NoError(pr.Check(obs))

	// Proper beta prior
	pr.Beta = BetaPrior{
		Mean: []float64{0, 0},
		Prec: mat.NewSymDense(2, []float64{0.01, 0, 0, 0.01}),
	}
	assert.NoError(pr.Check(obs))

	// Grid phi prior
	pr.Phi = PhiPrior{Grid: []float64{0.5, 1.0, 2.0, 4.0}}
	assert.NoError(pr.Check(obs))
}

func TestPriorCheckBad(t *testing.T) {
	assert := assert.New(t)

	coords, x, y := goodObs()
	obs, err := NewObservationSet(coords, x, y)
	assert.NoError(err)

	cases := []struct {
		Name string
		Spec *PriorSpec
	}{
		{"BadSigmaShape", &PriorSpec{
			Beta:    BetaPrior{Flat: true},
			SigmaSq: InvGamma{Shape: 0, Rate: 1},
			TauSq:   NuggetPrior{InvGamma: InvGamma{Shape: 2, Rate: 1}},
			Phi:     PhiPrior{Lo: 0.1, Hi: 10},
		}},
		{"BadTauRate", &PriorSpec{
			Beta:    BetaPrior{Flat: true},
			SigmaSq: InvGamma{Shape: 2, Rate: 1},
			TauSq:   NuggetPrior{InvGamma: InvGamma{Shape: 2, Rate: -1}},
			Phi:     PhiPrior{Lo: 0.1, Hi: 10},
		}},
		{"BadPhiBounds", &PriorSpec{
			Beta:    BetaPrior{Flat: true},
			SigmaSq: InvGamma{Shape: 2, Rate: 1},
			TauSq:   NuggetPrior{InvGamma: InvGamma{Shape: 2, Rate: 1}},
			Phi:     PhiPrior{Lo: 10, Hi: 0.1},
		}},
		{"NegPhiLo", &PriorSpec{
			Beta:    BetaPrior{Flat: true},
			SigmaSq: InvGamma{Shape: 2, Rate: 1},
			TauSq:   NuggetPrior{InvGamma: InvGamma{Shape: 2, Rate: 1}},
			Phi:     PhiPrior{Lo: -1, Hi: 10},
		}},
		{"UnsortedGrid", &PriorSpec{
			Beta:    BetaPrior{Flat: true},
			SigmaSq: InvGamma{Shape: 2, Rate: 1},
			TauSq:   NuggetPrior{InvGamma: InvGamma{Shape: 2, Rate: 1}},
			Phi:     PhiPrior{Grid: []float64{2, 1, 3}},
		}},
		{"NonPosGridPoint", &PriorSpec{
			Beta:    BetaPrior{Flat: true},
			SigmaSq: InvGamma{Shape: 2, Rate: 1},
			TauSq:   NuggetPrior{InvGamma: InvGamma{Shape: 2, Rate: 1}},
			Phi:     PhiPrior{Grid: []float64{0, 1, 2}},
		}},
		{"BetaMeanDim", &PriorSpec{
			Beta:    BetaPrior{Mean: []float64{0}, Prec: mat.NewSymDense(2, nil)},
			SigmaSq: InvGamma{Shape: 2, Rate: 1},
			TauSq:   NuggetPrior{InvGamma: InvGamma{Shape: 2, Rate: 1}},
			Phi:     PhiPrior{Lo: 0.1, Hi: 10},
		}},
	}

	for _, c := range cases {
		err := c.Spec.Check(obs)
		assert.Error(err, c.Name)

		var ip *InvalidParameterError
		var dm *DimensionMismatchError
		assert.True(errors.As(err, &ip) || errors.As(err, &dm), c.Name)
	}
}

func TestNuggetPointMassCollinear(t *testing.T) {
	assert := assert.New(t)

	// Perfectly collinear covariates: second column is 2x the first
	coords := [][]float64{{0, 0}, {1, 0}, {0, 1}, {2, 2}}
	x := mat.NewDense(4, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
	})
	y := []float64{0.1, 1.2, -0.3, 2.5}

	obs, err := NewObservationSet(coords, x, y)
	assert.NoError(err)

	pr := DefaultPriors(0.1, 10)
	pr.TauSq = NuggetPrior{FixZero: true}

	err = pr.Check(obs)
	assert.Error(err)
	var ip *InvalidParameterError
	assert.ErrorAs(err, &ip)

	// Full-rank X with a zero nugget is fine
	_, xr, _ := goodObs()
	obs2, err := NewObservationSet(coords, xr, y)
	assert.NoError(err)
	assert.NoError(pr.Check(obs2))
}

func TestParametersCheck(t *testing.T) {
	assert := assert.New(t)

	pr := DefaultPriors(0.1, 10)

	good := &Parameters{Beta: []float64{0, 1}, SigmaSq: 1, TauSq: 0.5, Phi: 2}
	assert.NoError(good.Check(pr, 2))

	cl := good.Clone()
	cl.Beta[0] = 99
	assert.Equal(0.0, good.Beta[0])

	cases := []*Parameters{
		{Beta: []float64{0}, SigmaSq: 1, TauSq: 0.5, Phi: 2},     // beta dim
		{Beta: []float64{0, 1}, SigmaSq: 0, TauSq: 0.5, Phi: 2},  // sill
		{Beta: []float64{0, 1}, SigmaSq: 1, TauSq: 0, Phi: 2},    // nugget
		{Beta: []float64{0, 1}, SigmaSq: 1, TauSq: 0.5, Phi: -2}, // decay
		{Beta: []float64{0, 1}, SigmaSq: 1, TauSq: 0.5, Phi: 99}, // outside support
	}
	for i, c := range cases {
		assert.Error(c.Check(pr, 2), "case %d", i)
	}

	// Zero nugget valid only under a point-mass prior
	pr.TauSq = NuggetPrior{FixZero: true}
	zn := &Parameters{Beta: []float64{0, 1}, SigmaSq: 1, TauSq: 0, Phi: 2}
	assert.NoError(zn.Check(pr, 2))
	nz := &Parameters{Beta: []float64{0, 1}, SigmaSq: 1, TauSq: 0.5, Phi: 2}
	assert.Error(nz.Check(pr, 2))
}
