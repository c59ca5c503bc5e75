package field

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/Stat534/splm/kernel"
	"github.com/Stat534/splm/model"
	"github.com/Stat534/splm/rand"
	"github.com/Stat534/splm/sampler"
)

// fixtureObs builds a small deterministic observation set.
func fixtureObs(t *testing.T, n int, seed int64) *model.ObservationSet {
	t.Helper()

	gen, err := rand.NewGenerator(seed)
	if err != nil {
		t.Fatal(err)
	}

	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = []float64{10 * gen.Float64(), 10 * gen.Float64()}
	}

	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1.0)
		x.Set(i, 1, 2*gen.Float64()-1)
		y[i] = x.At(i, 1) + math.Sin(coords[i][0]) + 0.3*(gen.Float64()-0.5)
	}

	obs, err := model.NewObservationSet(coords, x, y)
	if err != nil {
		t.Fatal(err)
	}
	return obs
}

// fixtureChain runs a short chain over the fixture data.
func fixtureChain(t *testing.T, obs *model.ObservationSet, storeField bool) *sampler.Chain {
	t.Helper()

	cfg := sampler.Config{
		Iterations: 30,
		BurnIn:     20,
		Thin:       2,
		Start:      &model.Parameters{Beta: []float64{0, 0}, SigmaSq: 1, TauSq: 0.5, Phi: 2},
		Tuning:     sampler.Tuning{PhiStep: 0.5},
		Seed:       404,
		StoreField: storeField,
	}

	g, err := sampler.NewGibbs(obs, kernel.Exponential, model.DefaultPriors(0.1, 30), cfg)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := g.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return ch
}

func TestRecoverIdempotent(t *testing.T) {
	assert := assert.New(t)

	obs := fixtureObs(t, 12, 1)
	ch := fixtureChain(t, obs, false)

	r1, err := Recover(ch, obs, kernel.Exponential, 99)
	assert.NoError(err)
	r2, err := Recover(ch, obs, kernel.Exponential, 99)
	assert.NoError(err)

	assert.Equal(ch.Len(), len(r1.Draws))
	for i := range r1.Draws {
		assert.Equal(r1.Draws[i], r2.Draws[i], "draw %d", i)
		assert.Equal(obs.N(), len(r1.Draws[i]))
	}

	// A different seed moves the composition draws
	r3, err := Recover(ch, obs, kernel.Exponential, 100)
	assert.NoError(err)
	assert.NotEqual(r1.Draws[0], r3.Draws[0])
}

func TestRecoverUsesStoredField(t *testing.T) {
	assert := assert.New(t)

	obs := fixtureObs(t, 12, 2)
	ch := fixtureChain(t, obs, true)
	assert.True(ch.HasField())

	rec, err := Recover(ch, obs, kernel.Exponential, 1)
	assert.NoError(err)

	for i := range rec.Draws {
		assert.Equal(ch.Field[i], rec.Draws[i])
	}

	// Owned copies, not aliases
	rec.Draws[0][0] += 100
	assert.NotEqual(ch.Field[0][0], rec.Draws[0][0])
}

func TestRecoverIncompatible(t *testing.T) {
	assert := assert.New(t)

	obs := fixtureObs(t, 12, 3)
	ch := fixtureChain(t, obs, false)

	// Wrong observation count
	other := fixtureObs(t, 11, 3)
	_, err := Recover(ch, other, kernel.Exponential, 1)
	assert.Error(err)
	var ic *model.IncompatibleChainError
	assert.ErrorAs(err, &ic)

	// Wrong covariance family
	_, err = Recover(ch, obs, kernel.Gaussian, 1)
	assert.Error(err)
	assert.ErrorAs(err, &ic)

	// Wrong covariate count
	x1 := mat.NewDense(12, 1, nil)
	for i := 0; i < 12; i++ {
		x1.Set(i, 0, 1)
	}
	obs1, err := model.NewObservationSet(obs.Coords, x1, obs.Y)
	assert.NoError(err)
	_, err = Recover(ch, obs1, kernel.Exponential, 1)
	assert.Error(err)
	assert.ErrorAs(err, &ic)

	// Empty chain
	_, err = Recover(&sampler.Chain{N: 12, P: 2, Kernel: "exponential"}, obs, kernel.Exponential, 1)
	assert.Error(err)
	assert.ErrorAs(err, &ic)
}

func TestRecoverZeroNugget(t *testing.T) {
	assert := assert.New(t)

	obs := fixtureObs(t, 10, 4)

	// A hand-built chain with tauSq = 0: the field is pinned to the trend
	// residual, no sampling involved
	ch := &sampler.Chain{
		N:      10,
		P:      2,
		Kernel: "exponential",
		Draws: []*model.Parameters{
			{Beta: []float64{0.5, 1.0}, SigmaSq: 2, TauSq: 0, Phi: 3},
		},
		Sweeps:   1,
		Complete: true,
	}

	rec, err := Recover(ch, obs, kernel.Exponential, 7)
	assert.NoError(err)

	for j := 0; j < obs.N(); j++ {
		fitted := 0.5*obs.X.At(j, 0) + 1.0*obs.X.At(j, 1)
		assert.InDelta(obs.Y[j]-fitted, rec.Draws[0][j], 1e-10)
	}
}
