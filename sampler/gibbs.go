package sampler

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Stat534/splm/buffer"
	"github.com/Stat534/splm/kernel"
	"github.com/Stat534/splm/model"
	"github.com/Stat534/splm/rand"
)

// Gibbs is the posterior sampler for one chain. It owns its PRNG stream, its
// evolving parameter state, and the chain it is building; nothing is shared
// and nothing is global, so independent chains can run concurrently.
//
// Sweep order is fixed: latent field W, then beta, then the variance
// components, then phi. With the nugget fixed at zero the latent field is
// not free (W = y - X*beta exactly) and the sweep switches to the
// marginalized no-nugget conditionals for beta and sigmaSq.
type Gibbs struct {
	// Progress, if set before Run, is called after every completed sweep.
	Progress func(sweep int, phase Phase)

	obs  *model.ObservationSet
	pr   *model.PriorSpec
	kern kernel.Isotropic
	cfg  Config

	dists *kernel.DistanceMatrix
	gen   *rand.Generator
	norm  distuv.Normal

	n, p int
	y    *mat.VecDense
	xtx  *mat.SymDense

	cur *model.Parameters
	w   *mat.VecDense // latent field (or the exact residual when tauSq is fixed at 0)

	// cache keyed on the current phi
	corr    *mat.SymDense
	cholR   *mat.Cholesky
	logDetR float64
	rinv    *mat.SymDense

	// proposal scratch, reused across sweeps
	corrProp *mat.SymDense
	cholProp *mat.Cholesky

	grid []*gridEntry

	phase  Phase
	sweep  int
	step   float64
	window *buffer.AcceptWindow

	chain *Chain
}

// gridEntry caches the expensive per-grid-point factorization: built once on
// first use, reused for every subsequent sweep.
type gridEntry struct {
	phi     float64
	corr    *mat.SymDense
	chol    *mat.Cholesky
	logDet  float64
	rinv    *mat.SymDense
	built   bool
	bad     bool
	counted bool
}

// NewGibbs validates everything and returns a sampler ready to Run. Setup
// problems (invalid hyperparameters, dimension mismatches, a starting phi at
// which the correlation matrix is not positive definite) all fail here.
func NewGibbs(obs *model.ObservationSet, kern kernel.Isotropic, pr *model.PriorSpec, cfg Config) (*Gibbs, error) {
	if err := obs.Check(); err != nil {
		return nil, errors.Wrap(err, "Bad observation set")
	}
	if err := pr.Check(obs); err != nil {
		return nil, errors.Wrap(err, "Bad prior spec")
	}
	if err := cfg.Check(obs, pr); err != nil {
		return nil, errors.Wrap(err, "Bad sampler config")
	}

	dists, err := kernel.NewDistanceMatrix(obs.Coords)
	if err != nil {
		return nil, errors.Wrap(err, "Could not build distance matrix")
	}

	gen, err := rand.NewGenerator(cfg.Seed)
	if err != nil {
		return nil, err
	}

	n, p := obs.N(), obs.P()

	g := &Gibbs{
		obs:   obs,
		pr:    pr,
		kern:  kern,
		cfg:   cfg,
		dists: dists,
		gen:   gen,
		norm:  distuv.Normal{Mu: 0, Sigma: 1, Src: gen},
		n:     n,
		p:     p,
		y:     mat.NewVecDense(n, append([]float64(nil), obs.Y...)),
		cur:   cfg.Start.Clone(),
		w:     mat.NewVecDense(n, nil),

		corr:     mat.NewSymDense(n, nil),
		cholR:    &mat.Cholesky{},
		rinv:     mat.NewSymDense(n, nil),
		corrProp: mat.NewSymDense(n, nil),
		cholProp: &mat.Cholesky{},

		phase:  PhaseUninitialized,
		step:   cfg.Tuning.PhiStep,
		window: buffer.NewAcceptWindow(windowSize(cfg.Tuning)),
	}

	g.xtx = mat.NewSymDense(p, nil)
	g.xtx.SymOuterK(1.0, obs.X.T())

	if len(pr.Phi.Grid) > 0 {
		g.grid = make([]*gridEntry, len(pr.Phi.Grid))
		for i, phi := range pr.Phi.Grid {
			g.grid[i] = &gridEntry{phi: phi}
		}
	}

	// The starting covariance must factor cleanly; anything else is a bad
	// starting value, not a divergence.
	kernel.CorrMatrix(g.corr, g.kern, g.dists, g.cur.Phi)
	if ok := g.cholR.Factorize(g.corr); !ok {
		return nil, model.InvalidParameter("phi",
			"correlation matrix is not positive definite at starting value %f", g.cur.Phi)
	}
	g.logDetR = g.cholR.LogDet()
	if !g.pr.TauSq.FixZero {
		if err := g.cholR.InverseTo(g.rinv); err != nil {
			return nil, errors.Wrap(err, "Could not invert starting correlation matrix")
		}
	}

	// Start the field at the trend residual so the first variance draws see
	// a sane quadratic form.
	g.residTo(g.w, false)

	g.chain = &Chain{
		N:      n,
		P:      p,
		Kernel: kern.Name(),
	}
	if cfg.StoreField {
		g.chain.Field = make([][]float64, 0, cfg.Iterations/cfg.Thin+1)
	}

	return g, nil
}

func windowSize(t Tuning) int {
	if t.Window > 0 {
		return t.Window
	}
	return 50
}

// Phase returns the sampler's current lifecycle phase.
func (g *Gibbs) Phase() Phase {
	return g.phase
}

// Run advances the chain until burn-in plus the configured iterations have
// completed, then finalizes and returns the chain. Cancellation is
// cooperative and lands only between iterations: a cancelled Run returns the
// partial chain alongside the context error, and calling Run again resumes
// exactly where it stopped.
func (g *Gibbs) Run(ctx context.Context) (*Chain, error) {
	if g.phase == PhaseComplete {
		return g.chain.snapshot(true), nil
	}

	total := g.cfg.BurnIn + g.cfg.Iterations

	for g.sweep < total {
		select {
		case <-ctx.Done():
			return g.chain.snapshot(false), errors.Wrap(ctx.Err(), "Run stopped between iterations")
		default:
		}

		if g.sweep < g.cfg.BurnIn {
			g.phase = PhaseBurnIn
		} else {
			g.phase = PhaseSampling
		}

		g.oneSweep()
		g.sweep++
		g.chain.Sweeps = g.sweep

		if g.sweep > g.cfg.BurnIn {
			post := g.sweep - g.cfg.BurnIn
			if (post-1)%g.cfg.Thin == 0 {
				g.record()
			}
		}

		if g.Progress != nil {
			g.Progress(g.sweep, g.phase)
		}
	}

	g.phase = PhaseComplete
	return g.chain.snapshot(true), nil
}

// record appends the current state to the chain.
func (g *Gibbs) record() {
	g.chain.Draws = append(g.chain.Draws, g.cur.Clone())
	if g.cfg.StoreField {
		g.chain.Field = append(g.chain.Field, append([]float64(nil), g.w.RawVector().Data...))
	}
}

// oneSweep performs one full update sweep. Numerical trouble inside any
// block is absorbed: the block keeps its current value, the divergence
// counter goes up, and the sweep continues.
func (g *Gibbs) oneSweep() {
	if g.pr.TauSq.FixZero {
		g.updateBetaNoNugget()
		g.residTo(g.w, false) // W is exactly the trend residual here
		g.updateSigmaSq()
		g.updatePhi()
		return
	}

	g.updateW()
	g.updateBeta()
	g.updateSigmaSq()
	g.updateTauSq()
	g.updatePhi()
}

// residTo writes y - X*beta (and optionally minus W) into dst.
func (g *Gibbs) residTo(dst *mat.VecDense, subtractField bool) {
	beta := mat.NewVecDense(g.p, g.cur.Beta)
	dst.MulVec(g.obs.X, beta)
	dst.SubVec(g.y, dst)
	if subtractField {
		dst.SubVec(dst, g.w)
	}
}

// updateW draws the latent field from its full conditional
//
//	W | rest ~ N(A^-1 b, A^-1),  A = R^-1/sigmaSq + I/tauSq,  b = (y - X*beta)/tauSq
func (g *Gibbs) updateW() {
	prec := mat.NewSymDense(g.n, nil)
	for i := 0; i < g.n; i++ {
		for j := i; j < g.n; j++ {
			v := g.rinv.At(i, j) / g.cur.SigmaSq
			if i == j {
				v += 1.0 / g.cur.TauSq
			}
			prec.SetSym(i, j, v)
		}
	}

	rhs := mat.NewVecDense(g.n, nil)
	g.residTo(rhs, false)
	rhs.ScaleVec(1.0/g.cur.TauSq, rhs)

	draw, ok := g.precisionDraw(prec, rhs)
	if !ok {
		g.chain.Divergences++
		return
	}
	g.w.CopyVec(draw)
}

// updateBeta draws the coefficients from their full conditional with the
// field subtracted out: precision B0 + X^T X/tauSq.
func (g *Gibbs) updateBeta() {
	prec := mat.NewSymDense(g.p, nil)
	for i := 0; i < g.p; i++ {
		for j := i; j < g.p; j++ {
			v := g.xtx.At(i, j) / g.cur.TauSq
			if !g.pr.Beta.Flat {
				v += g.pr.Beta.Prec.At(i, j)
			}
			prec.SetSym(i, j, v)
		}
	}

	tmp := mat.NewVecDense(g.n, nil)
	tmp.SubVec(g.y, g.w)

	rhs := mat.NewVecDense(g.p, nil)
	rhs.MulVec(g.obs.X.T(), tmp)
	rhs.ScaleVec(1.0/g.cur.TauSq, rhs)
	g.addBetaPriorTerm(rhs)

	draw, ok := g.precisionDraw(prec, rhs)
	if !ok {
		g.chain.Divergences++
		return
	}
	copy(g.cur.Beta, draw.RawVector().Data)
}

// updateBetaNoNugget draws the coefficients for the tauSq = 0 model, where
// the marginal likelihood is y ~ N(X*beta, sigmaSq*R): precision
// B0 + X^T R^-1 X / sigmaSq.
func (g *Gibbs) updateBetaNoNugget() {
	s := mat.NewDense(g.n, g.p, nil)
	if err := g.cholR.SolveTo(s, g.obs.X); err != nil {
		g.chain.Divergences++
		return
	}

	var xrx mat.Dense
	xrx.Mul(g.obs.X.T(), s)

	prec := mat.NewSymDense(g.p, nil)
	for i := 0; i < g.p; i++ {
		for j := i; j < g.p; j++ {
			v := 0.5 * (xrx.At(i, j) + xrx.At(j, i)) / g.cur.SigmaSq
			if !g.pr.Beta.Flat {
				v += g.pr.Beta.Prec.At(i, j)
			}
			prec.SetSym(i, j, v)
		}
	}

	rhs := mat.NewVecDense(g.p, nil)
	rhs.MulVec(s.T(), g.y)
	rhs.ScaleVec(1.0/g.cur.SigmaSq, rhs)
	g.addBetaPriorTerm(rhs)

	draw, ok := g.precisionDraw(prec, rhs)
	if !ok {
		g.chain.Divergences++
		return
	}
	copy(g.cur.Beta, draw.RawVector().Data)
}

func (g *Gibbs) addBetaPriorTerm(rhs *mat.VecDense) {
	if g.pr.Beta.Flat {
		return
	}
	b0 := mat.NewVecDense(g.p, g.pr.Beta.Mean)
	tmp := mat.NewVecDense(g.p, nil)
	tmp.MulVec(g.pr.Beta.Prec, b0)
	rhs.AddVec(rhs, tmp)
}

// precisionDraw samples from N(A^-1 b, A^-1) given A in precision form:
// factor A = U^T U, solve for the mean, then x = mean + U^-1 z.
func (g *Gibbs) precisionDraw(prec *mat.SymDense, rhs *mat.VecDense) (*mat.VecDense, bool) {
	dim := rhs.Len()

	var chol mat.Cholesky
	if ok := chol.Factorize(prec); !ok {
		return nil, false
	}

	mean := mat.NewVecDense(dim, nil)
	if err := chol.SolveVecTo(mean, rhs); err != nil {
		return nil, false
	}

	u := mat.NewTriDense(dim, mat.Upper, nil)
	chol.UTo(u)

	z := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		z.SetVec(i, g.norm.Rand())
	}

	x := mat.NewVecDense(dim, nil)
	if err := x.SolveVec(u, z); err != nil {
		return nil, false
	}

	x.AddVec(mean, x)
	return x, true
}

// fieldQuad returns W^T R^-1 W for the given factorization of R.
func (g *Gibbs) fieldQuad(chol *mat.Cholesky) (float64, bool) {
	tmp := mat.NewVecDense(g.n, nil)
	if err := chol.SolveVecTo(tmp, g.w); err != nil {
		return 0, false
	}
	return mat.Dot(g.w, tmp), true
}

// updateSigmaSq draws the partial sill from its conjugate inverse-gamma full
// conditional IG(a + N/2, b + W^T R^-1 W / 2).
func (g *Gibbs) updateSigmaSq() {
	q, ok := g.fieldQuad(g.cholR)
	if !ok {
		g.chain.Divergences++
		return
	}

	ig := distuv.Gamma{
		Alpha: g.pr.SigmaSq.Shape + float64(g.n)/2.0,
		Beta:  g.pr.SigmaSq.Rate + q/2.0,
		Src:   g.gen,
	}
	g.cur.SigmaSq = 1.0 / ig.Rand()
}

// updateTauSq draws the nugget from IG(a + N/2, b + ||y - X*beta - W||^2/2).
func (g *Gibbs) updateTauSq() {
	resid := mat.NewVecDense(g.n, nil)
	g.residTo(resid, true)

	ig := distuv.Gamma{
		Alpha: g.pr.TauSq.Shape + float64(g.n)/2.0,
		Beta:  g.pr.TauSq.Rate + mat.Dot(resid, resid)/2.0,
		Src:   g.gen,
	}
	g.cur.TauSq = 1.0 / ig.Rand()
}

// updatePhi dispatches on the configured prior: log-scale random walk
// Metropolis on an interval, or a categorical Gibbs draw over a grid.
func (g *Gibbs) updatePhi() {
	if len(g.grid) > 0 {
		g.updatePhiGrid()
		return
	}
	g.updatePhiMetropolis()
}

func (g *Gibbs) updatePhiMetropolis() {
	accepted := false
	defer func() {
		if accepted {
			g.chain.PhiAccepts++
		} else {
			g.chain.PhiRejects++
		}
		g.adaptStep(accepted)
	}()

	phiOld := g.cur.Phi
	lp := math.Log(phiOld)
	lpNew := lp + g.step*g.norm.Rand()
	phiNew := math.Exp(lpNew)

	if phiNew < g.pr.Phi.Lo || phiNew > g.pr.Phi.Hi {
		return
	}

	kernel.CorrMatrix(g.corrProp, g.kern, g.dists, phiNew)
	if ok := g.cholProp.Factorize(g.corrProp); !ok {
		// Not positive definite: a divergence, absorbed as a rejection
		g.chain.Divergences++
		return
	}

	qCur, ok := g.fieldQuad(g.cholR)
	if !ok {
		g.chain.Divergences++
		return
	}
	qNew, ok := g.fieldQuad(g.cholProp)
	if !ok {
		g.chain.Divergences++
		return
	}

	logDetNew := g.cholProp.LogDet()
	half := 1.0 / (2.0 * g.cur.SigmaSq)

	// Uniform prior on phi, log-scale proposal: the Jacobian contributes
	// log(phiNew) - log(phi).
	logAlpha := (-0.5*logDetNew - qNew*half) - (-0.5*g.logDetR - qCur*half) + (lpNew - lp)

	if logAlpha < 0 && math.Log(g.gen.Float64()) >= logAlpha {
		return
	}

	// Accept: swap the proposal cache in as current
	g.cur.Phi = phiNew
	g.corr, g.corrProp = g.corrProp, g.corr
	g.cholR, g.cholProp = g.cholProp, g.cholR
	g.logDetR = logDetNew
	if !g.pr.TauSq.FixZero {
		if err := g.cholR.InverseTo(g.rinv); err != nil {
			// Inversion after a clean factorization should not fail; treat
			// as a divergence and roll the acceptance back.
			g.chain.Divergences++
			g.corr, g.corrProp = g.corrProp, g.corr
			g.cholR, g.cholProp = g.cholProp, g.cholR
			g.logDetR = g.cholR.LogDet()
			g.cur.Phi = phiOld
			return
		}
	}
	accepted = true
}

// updatePhiGrid draws phi categorically over the configured grid. Each grid
// point's factorization is built once and cached, so after the first pass
// the update costs one triangular solve per point.
func (g *Gibbs) updatePhiGrid() {
	logw := make([]float64, len(g.grid))
	maxLog := math.Inf(-1)

	for i, e := range g.grid {
		if !e.built {
			g.buildGridEntry(e)
		}
		if e.bad {
			logw[i] = math.Inf(-1)
			continue
		}

		q, ok := g.fieldQuad(e.chol)
		if !ok {
			logw[i] = math.Inf(-1)
			continue
		}
		logw[i] = -0.5*e.logDet - q/(2.0*g.cur.SigmaSq)
		if logw[i] > maxLog {
			maxLog = logw[i]
		}
	}

	if math.IsInf(maxLog, -1) {
		// Every grid point diverged; keep the current state
		g.chain.Divergences++
		return
	}

	weights := make([]float64, len(logw))
	for i, lw := range logw {
		if math.IsInf(lw, -1) {
			continue
		}
		weights[i] = math.Exp(lw - maxLog)
	}

	idx, err := g.gen.Categorical(weights)
	if err != nil {
		g.chain.Divergences++
		return
	}

	e := g.grid[idx]
	g.cur.Phi = e.phi
	g.corr = e.corr
	g.cholR = e.chol
	g.logDetR = e.logDet
	if !g.pr.TauSq.FixZero {
		g.rinv = e.rinv
	}
}

func (g *Gibbs) buildGridEntry(e *gridEntry) {
	e.built = true
	e.corr = mat.NewSymDense(g.n, nil)
	kernel.CorrMatrix(e.corr, g.kern, g.dists, e.phi)

	e.chol = &mat.Cholesky{}
	if ok := e.chol.Factorize(e.corr); !ok {
		e.bad = true
		if !e.counted {
			e.counted = true
			g.chain.Divergences++
		}
		return
	}
	e.logDet = e.chol.LogDet()

	if !g.pr.TauSq.FixZero {
		e.rinv = mat.NewSymDense(g.n, nil)
		if err := e.chol.InverseTo(e.rinv); err != nil {
			e.bad = true
			if !e.counted {
				e.counted = true
				g.chain.Divergences++
			}
		}
	}
}

// adaptStep rescales the Metropolis step from the windowed acceptance rate.
// Only active during burn-in with Tuning.Adapt set; the step is frozen for
// the sampling phase so the retained chain targets the right posterior.
func (g *Gibbs) adaptStep(accepted bool) {
	if !g.cfg.Tuning.Adapt || g.phase != PhaseBurnIn {
		return
	}

	g.window.Add(accepted)
	if !g.window.Full() {
		return
	}

	rate := g.window.Rate()
	switch {
	case rate > 0.5:
		g.step *= 1.4
		g.window.Reset()
	case rate < 0.15:
		g.step /= 1.4
		g.window.Reset()
	}
}
