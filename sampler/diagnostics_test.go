package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Stat534/splm/model"
)

func TestSummarize(t *testing.T) {
	assert := assert.New(t)

	ch := smallChain()
	d, err := Summarize(ch)
	assert.NoError(err)

	assert.Equal(5, len(d.Params))
	assert.InDelta(2.0/6.0, d.AcceptRate, 1e-12)

	byName := map[string]ParamSummary{}
	for _, p := range d.Params {
		byName[p.Name] = p
	}

	assert.InDelta(3.0, byName["sigmaSq"].Mean, 1e-12)
	assert.InDelta(2.0, byName["phi"].Q50, 1e-12)
	assert.InDelta(1.0, byName["beta1"].Q50, 1e-12)

	// 2/6 acceptance sits inside [0.15, 0.5]: no step warning; sweeps
	// outnumber divergences: no degeneracy warning
	assert.Equal(0, len(d.Warnings))
}

func TestSummarizeWarnings(t *testing.T) {
	assert := assert.New(t)

	ch := smallChain()
	ch.PhiAccepts, ch.PhiRejects = 1, 99
	d, err := Summarize(ch)
	assert.NoError(err)
	assert.Equal(1, len(d.Warnings))

	ch.PhiAccepts, ch.PhiRejects = 99, 1
	d, err = Summarize(ch)
	assert.NoError(err)
	assert.Equal(1, len(d.Warnings))

	// Divergence on every sweep is flagged but never fatal
	ch.PhiAccepts, ch.PhiRejects = 30, 70
	ch.Divergences = int64(ch.Sweeps)
	d, err = Summarize(ch)
	assert.NoError(err)
	assert.Equal(1, len(d.Warnings))

	// No proposals at all (grid update) never warns about acceptance
	ch.PhiAccepts, ch.PhiRejects, ch.Divergences = 0, 0, 0
	d, err = Summarize(ch)
	assert.NoError(err)
	assert.Equal(0, len(d.Warnings))
}

func TestSummarizeEmptyChain(t *testing.T) {
	assert := assert.New(t)

	_, err := Summarize(&Chain{})
	assert.Error(err)
	var ic *model.IncompatibleChainError
	assert.ErrorAs(err, &ic)
}

func TestQuantiles(t *testing.T) {
	assert := assert.New(t)

	series := []float64{5, 1, 3, 2, 4}
	qs, err := Quantiles(series, []float64{0.0, 0.5, 1.0})
	assert.NoError(err)
	assert.Equal(1.0, qs[0])
	assert.Equal(3.0, qs[1])
	assert.Equal(5.0, qs[2])

	// Input order preserved, input untouched
	assert.Equal([]float64{5, 1, 3, 2, 4}, series)

	_, err = Quantiles(nil, []float64{0.5})
	assert.Error(err)
	_, err = Quantiles(series, []float64{1.5})
	assert.Error(err)
}
