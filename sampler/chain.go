package sampler

import (
	"strconv"

	"github.com/Stat534/splm/model"
)

// A Chain is the ordered sequence of retained posterior draws from one
// sampler run, plus the counters the diagnostics need. It is built up by the
// sampler and immutable once the run completes: accessors hand out copies.
type Chain struct {
	N      int    // observations the chain was fit to
	P      int    // covariates
	Kernel string // covariance family name

	Draws []*model.Parameters
	Field [][]float64 // latent field per retained draw; nil unless StoreField

	Sweeps      int   // total sweeps performed, burn-in included
	PhiAccepts  int64 // accepted decay proposals
	PhiRejects  int64 // rejected decay proposals (bounds and ratio rejections)
	Divergences int64 // Cholesky failures absorbed as rejections

	Complete bool // false if the run was cancelled between iterations
}

// Len returns the number of retained draws.
func (c *Chain) Len() int {
	return len(c.Draws)
}

// HasField reports whether latent field draws were stored with the chain.
func (c *Chain) HasField() bool {
	return len(c.Field) == len(c.Draws) && len(c.Field) > 0
}

// AcceptRate returns the Metropolis acceptance rate for the decay update, or
// 0 when no proposals were made (grid updates make none).
func (c *Chain) AcceptRate() float64 {
	tot := c.PhiAccepts + c.PhiRejects
	if tot < 1 {
		return 0
	}
	return float64(c.PhiAccepts) / float64(tot)
}

// ParamSeries extracts one named scalar series from the retained draws.
// Valid names are "sigmaSq", "tauSq", "phi", and "beta<i>".
func (c *Chain) ParamSeries(name string) ([]float64, error) {
	out := make([]float64, len(c.Draws))

	pick, err := paramPicker(name, c.P)
	if err != nil {
		return nil, err
	}

	for i, d := range c.Draws {
		out[i] = pick(d)
	}
	return out, nil
}

// ParamNames returns every scalar series name in the chain, betas first.
func (c *Chain) ParamNames() []string {
	names := make([]string, 0, c.P+3)
	for i := 0; i < c.P; i++ {
		names = append(names, "beta"+strconv.Itoa(i))
	}
	return append(names, "sigmaSq", "tauSq", "phi")
}

func paramPicker(name string, p int) (func(*model.Parameters) float64, error) {
	switch name {
	case "sigmaSq":
		return func(m *model.Parameters) float64 { return m.SigmaSq }, nil
	case "tauSq":
		return func(m *model.Parameters) float64 { return m.TauSq }, nil
	case "phi":
		return func(m *model.Parameters) float64 { return m.Phi }, nil
	}

	for i := 0; i < p; i++ {
		if name == "beta"+strconv.Itoa(i) {
			idx := i
			return func(m *model.Parameters) float64 { return m.Beta[idx] }, nil
		}
	}

	return nil, model.IncompatibleChain("no parameter series named %q", name)
}

// snapshot returns a copy of the chain safe to hand to the caller while the
// sampler may still advance (e.g. after a cancelled run).
func (c *Chain) snapshot(complete bool) *Chain {
	cp := &Chain{
		N:           c.N,
		P:           c.P,
		Kernel:      c.Kernel,
		Draws:       make([]*model.Parameters, len(c.Draws)),
		Sweeps:      c.Sweeps,
		PhiAccepts:  c.PhiAccepts,
		PhiRejects:  c.PhiRejects,
		Divergences: c.Divergences,
		Complete:    complete,
	}
	for i, d := range c.Draws {
		cp.Draws[i] = d.Clone()
	}
	if c.Field != nil {
		cp.Field = make([][]float64, len(c.Field))
		for i, w := range c.Field {
			cp.Field[i] = append([]float64(nil), w...)
		}
	}
	return cp
}
