package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Stat534/splm/model"
)

func smallChain() *Chain {
	return &Chain{
		N:      3,
		P:      2,
		Kernel: "exponential",
		Draws: []*model.Parameters{
			{Beta: []float64{0.1, 1.1}, SigmaSq: 2.0, TauSq: 0.4, Phi: 1.5},
			{Beta: []float64{0.2, 0.9}, SigmaSq: 3.0, TauSq: 0.6, Phi: 2.5},
			{Beta: []float64{0.3, 1.0}, SigmaSq: 4.0, TauSq: 0.5, Phi: 2.0},
		},
		Sweeps:     6,
		PhiAccepts: 2,
		PhiRejects: 4,
		Complete:   true,
	}
}

func TestChainAccessors(t *testing.T) {
	assert := assert.New(t)

	ch := smallChain()
	assert.Equal(3, ch.Len())
	assert.False(ch.HasField())
	assert.InDelta(2.0/6.0, ch.AcceptRate(), 1e-12)

	assert.Equal([]string{"beta0", "beta1", "sigmaSq", "tauSq", "phi"}, ch.ParamNames())

	s, err := ch.ParamSeries("phi")
	assert.NoError(err)
	assert.InDeltaSlice([]float64{1.5, 2.5, 2.0}, s, 1e-12)

	s, err = ch.ParamSeries("beta1")
	assert.NoError(err)
	assert.InDeltaSlice([]float64{1.1, 0.9, 1.0}, s, 1e-12)

	_, err = ch.ParamSeries("beta7")
	assert.Error(err)
	_, err = ch.ParamSeries("nope")
	assert.Error(err)
}

func TestChainSnapshotIsolation(t *testing.T) {
	assert := assert.New(t)

	ch := smallChain()
	ch.Field = [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}

	cp := ch.snapshot(true)
	assert.True(cp.Complete)
	assert.True(cp.HasField())

	// Mutating the copy must not touch the original
	cp.Draws[0].Beta[0] = 99
	cp.Field[0][0] = 99
	assert.Equal(0.1, ch.Draws[0].Beta[0])
	assert.Equal(1.0, ch.Field[0][0])
}

func TestAcceptRateNoProposals(t *testing.T) {
	assert := assert.New(t)

	ch := &Chain{}
	assert.Equal(0.0, ch.AcceptRate())
}
