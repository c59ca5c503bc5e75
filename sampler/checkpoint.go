package sampler

import (
	"github.com/pkg/errors"

	"github.com/Stat534/splm/kernel"
	"github.com/Stat534/splm/model"
	"github.com/Stat534/splm/rand"
)

// A Checkpoint captures everything needed to continue a chain in another
// process: the last parameter state, the latent field, the PRNG stream
// position, and the iteration counters. Retained draws are NOT part of the
// checkpoint; the caller persists the partial Chain separately and splices
// the resumed chain's draws onto it.
//
// For in-process interruption no checkpoint is needed: a cancelled Run
// leaves the sampler intact and calling Run again picks up where it stopped.
type Checkpoint struct {
	Params *model.Parameters
	Field  []float64

	Seed      int64
	RandCount uint64

	Sweep       int
	PhiStep     float64
	PhiAccepts  int64
	PhiRejects  int64
	Divergences int64
}

// Checkpoint snapshots the sampler's state between iterations.
func (g *Gibbs) Checkpoint() *Checkpoint {
	return &Checkpoint{
		Params:      g.cur.Clone(),
		Field:       append([]float64(nil), g.w.RawVector().Data...),
		Seed:        g.gen.StreamSeed(),
		RandCount:   g.gen.StreamCount(),
		Sweep:       g.sweep,
		PhiStep:     g.step,
		PhiAccepts:  g.chain.PhiAccepts,
		PhiRejects:  g.chain.PhiRejects,
		Divergences: g.chain.Divergences,
	}
}

// RestoreGibbs rebuilds a sampler from a checkpoint taken with the same
// observations, kernel, priors, and config. The PRNG stream is replayed to
// its checkpointed position, so the resumed chain is bit-identical to one
// that was never interrupted. The adaptation window restarts empty, which
// only matters if the checkpoint landed mid burn-in.
func RestoreGibbs(obs *model.ObservationSet, kern kernel.Isotropic, pr *model.PriorSpec, cfg Config, ck *Checkpoint) (*Gibbs, error) {
	g, err := NewGibbs(obs, kern, pr, cfg)
	if err != nil {
		return nil, err
	}

	if ck.Params == nil {
		return nil, model.IncompatibleChain("checkpoint has no parameter state")
	}
	if err := ck.Params.Check(pr, obs.P()); err != nil {
		return nil, errors.Wrap(err, "Checkpoint parameters do not fit this model")
	}
	if len(ck.Field) != obs.N() {
		return nil, model.IncompatibleChain("checkpoint field has %d entries, want %d", len(ck.Field), obs.N())
	}
	if ck.Sweep < 0 || ck.Sweep > cfg.BurnIn+cfg.Iterations {
		return nil, model.IncompatibleChain("checkpoint sweep %d outside run of %d", ck.Sweep, cfg.BurnIn+cfg.Iterations)
	}

	gen, err := rand.Restore(ck.Seed, ck.RandCount)
	if err != nil {
		return nil, errors.Wrap(err, "Could not restore PRNG stream")
	}
	g.gen = gen
	g.norm.Src = gen

	g.cur = ck.Params.Clone()
	copy(g.w.RawVector().Data, ck.Field)
	g.sweep = ck.Sweep
	g.step = ck.PhiStep
	g.chain.Sweeps = ck.Sweep
	g.chain.PhiAccepts = ck.PhiAccepts
	g.chain.PhiRejects = ck.PhiRejects
	g.chain.Divergences = ck.Divergences

	// The first sweep builds and counts every grid entry, so a restore past
	// sweep 0 rebuilds them without recounting bad points.
	for _, e := range g.grid {
		g.buildGridEntry(e)
	}
	if ck.Sweep > 0 {
		g.chain.Divergences = ck.Divergences
	}

	// Rebuild the phi-keyed cache at the checkpointed decay
	kernel.CorrMatrix(g.corr, g.kern, g.dists, g.cur.Phi)
	if ok := g.cholR.Factorize(g.corr); !ok {
		return nil, model.InvalidParameter("phi",
			"correlation matrix is not positive definite at checkpointed value %f", g.cur.Phi)
	}
	g.logDetR = g.cholR.LogDet()
	if !pr.TauSq.FixZero {
		if err := g.cholR.InverseTo(g.rinv); err != nil {
			return nil, errors.Wrap(err, "Could not invert checkpointed correlation matrix")
		}
	}

	switch {
	case ck.Sweep >= cfg.BurnIn+cfg.Iterations:
		g.phase = PhaseComplete
	case ck.Sweep >= cfg.BurnIn:
		g.phase = PhaseSampling
	case ck.Sweep > 0:
		g.phase = PhaseBurnIn
	default:
		g.phase = PhaseUninitialized
	}

	return g, nil
}
