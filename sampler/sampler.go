// Package sampler implements the MCMC engine for the Bayesian spatial
// linear model
//
//	y = X*beta + W + eps,  W ~ N(0, sigmaSq * R(phi)),  eps ~ N(0, tauSq * I)
//
// where R(phi) is an isotropic correlation matrix over the observation
// locations. The latent field W is an explicit block in the Gibbs sweep, so
// beta, sigmaSq, and tauSq all have closed-form full conditionals
// (multivariate normal and inverse-gamma); only the decay phi needs a
// Metropolis step (or a categorical draw over a configured grid).
package sampler

import (
	"github.com/Stat534/splm/model"
)

// Phase is the sampler's run state. Sweeps taken while burning in are
// discarded from the output chain but still drive step-size adaptation.
type Phase int

// The sampler lifecycle, in order.
const (
	PhaseUninitialized Phase = iota
	PhaseBurnIn
	PhaseSampling
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBurnIn:
		return "burn-in"
	case PhaseSampling:
		return "sampling"
	case PhaseComplete:
		return "complete"
	}
	return "unknown"
}

// Tuning holds the Metropolis proposal settings for the non-conjugate decay
// update. PhiStep is the standard deviation of the log-scale random walk.
// With Adapt set the step is rescaled during burn-in from the acceptance
// rate over a sliding window, and frozen once sampling starts.
type Tuning struct {
	PhiStep float64
	Adapt   bool
	Window  int
}

// Config is the full, explicit configuration for one chain. There is no
// hidden global state anywhere: the seed, starting values, and priors all
// live here.
type Config struct {
	Iterations int               // post-burn-in sweeps
	BurnIn     int               // discarded initial sweeps
	Thin       int               // retain every Thin-th post-burn-in sweep
	Start      *model.Parameters // starting values, required
	Tuning     Tuning
	Seed       int64
	StoreField bool // keep the latent field draw alongside each retained sample
}

// Check validates the run configuration against the observation set and
// prior spec. All violations surface here, before any sampling happens.
func (c *Config) Check(obs *model.ObservationSet, pr *model.PriorSpec) error {
	if c.Iterations < 1 {
		return model.InvalidParameter("iterations", "need at least 1, have %d", c.Iterations)
	}
	if c.BurnIn < 0 {
		return model.InvalidParameter("burnIn", "must be >= 0, have %d", c.BurnIn)
	}
	if c.Thin < 1 {
		return model.InvalidParameter("thin", "must be >= 1, have %d", c.Thin)
	}

	if c.Start == nil {
		return model.InvalidParameter("start", "starting values are required")
	}
	if err := c.Start.Check(pr, obs.P()); err != nil {
		return err
	}

	// A grid prior draws phi categorically and needs no proposal step
	if len(pr.Phi.Grid) == 0 {
		if c.Tuning.PhiStep <= 0 {
			return model.InvalidParameter("tuning.phiStep", "must be > 0, have %f", c.Tuning.PhiStep)
		}
	}
	if c.Tuning.Adapt && c.Tuning.Window < 2 {
		return model.InvalidParameter("tuning.window", "adaptation needs a window >= 2, have %d", c.Tuning.Window)
	}

	return nil
}
