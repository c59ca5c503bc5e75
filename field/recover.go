// Package field post-processes a completed chain: it reconstructs the
// latent spatial random effect at the observed locations for each retained
// posterior draw, and simulates the predictive field (and response) at new
// locations. These are the kriging-type composition draws: conditional on
// one draw of (beta, sigmaSq, tauSq, phi), the field is multivariate normal
// with mean and covariance given by the joint Gaussian model.
package field

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/Stat534/splm/kernel"
	"github.com/Stat534/splm/model"
	"github.com/Stat534/splm/rand"
	"github.com/Stat534/splm/sampler"
)

// A Recovery holds one latent field draw per retained chain sample, at the
// N observed locations.
type Recovery struct {
	N     int
	Draws [][]float64
}

// Recover reconstructs the latent field for every retained draw of the
// chain. When the sampler stored its field draws the stored values are
// returned directly (no randomness involved); otherwise each field is drawn
// from its conditional
//
//	W | y, theta ~ N( B Om^-1 r,  B - B Om^-1 B )
//
// with B = sigmaSq*R(phi), Om = B + tauSq*I, and r = y - X*beta. The same
// seed always yields the same recovery.
func Recover(ch *sampler.Chain, obs *model.ObservationSet, kern kernel.Isotropic, seed int64) (*Recovery, error) {
	if err := checkChain(ch, obs, kern); err != nil {
		return nil, err
	}

	n := obs.N()
	out := &Recovery{N: n, Draws: make([][]float64, ch.Len())}

	if ch.HasField() {
		for i, w := range ch.Field {
			out.Draws[i] = append([]float64(nil), w...)
		}
		return out, nil
	}

	dists, err := kernel.NewDistanceMatrix(obs.Coords)
	if err != nil {
		return nil, err
	}

	gen, err := rand.NewGenerator(seed)
	if err != nil {
		return nil, err
	}

	corr := mat.NewSymDense(n, nil)
	omega := mat.NewSymDense(n, nil)
	b := mat.NewSymDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	beta := mat.NewVecDense(obs.P(), nil)

	for i, d := range ch.Draws {
		copy(beta.RawVector().Data, d.Beta)
		resid.MulVec(obs.X, beta)
		resid.SubVec(mat.NewVecDense(n, obs.Y), resid)

		// tauSq = 0 pins the field to the residual exactly
		if d.TauSq == 0 {
			out.Draws[i] = append([]float64(nil), resid.RawVector().Data...)
			continue
		}

		kernel.CorrMatrix(corr, kern, dists, d.Phi)
		for r := 0; r < n; r++ {
			for c := r; c < n; c++ {
				v := d.SigmaSq * corr.At(r, c)
				b.SetSym(r, c, v)
				if r == c {
					v += d.TauSq
				}
				omega.SetSym(r, c, v)
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(omega); !ok {
			return nil, errors.Errorf("Draw %d: marginal covariance failed factorization", i)
		}

		// mean = B Om^-1 r
		tmp := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(tmp, resid); err != nil {
			return nil, errors.Wrapf(err, "Draw %d: conditional mean solve failed", i)
		}
		mean := mat.NewVecDense(n, nil)
		mean.MulVec(b, tmp)

		// cov = B - B Om^-1 B
		s := mat.NewDense(n, n, nil)
		if err := chol.SolveTo(s, b); err != nil {
			return nil, errors.Wrapf(err, "Draw %d: conditional covariance solve failed", i)
		}
		var bs mat.Dense
		bs.Mul(b, s)

		cov := mat.NewSymDense(n, nil)
		for r := 0; r < n; r++ {
			for c := r; c < n; c++ {
				cov.SetSym(r, c, b.At(r, c)-0.5*(bs.At(r, c)+bs.At(c, r)))
			}
		}

		w, err := mvnDraw(mean.RawVector().Data, cov, gen)
		if err != nil {
			return nil, errors.Wrapf(err, "Draw %d", i)
		}
		out.Draws[i] = w
	}

	return out, nil
}

// mvnDraw samples from N(mean, cov), retrying once with diagonal jitter if
// the conditional covariance lost positive definiteness to rounding.
func mvnDraw(mean []float64, cov *mat.SymDense, gen *rand.Generator) ([]float64, error) {
	norm, ok := distmv.NewNormal(mean, cov, gen)
	if !ok {
		n := cov.SymmetricDim()
		for i := 0; i < n; i++ {
			cov.SetSym(i, i, cov.At(i, i)+1e-8)
		}
		norm, ok = distmv.NewNormal(mean, cov, gen)
		if !ok {
			return nil, errors.Errorf("Conditional covariance is not positive definite")
		}
	}
	return norm.Rand(nil), nil
}

func checkChain(ch *sampler.Chain, obs *model.ObservationSet, kern kernel.Isotropic) error {
	if ch.Len() < 1 {
		return model.IncompatibleChain("chain has no retained draws")
	}
	if ch.N != obs.N() {
		return model.IncompatibleChain("chain was fit to %d observations, have %d", ch.N, obs.N())
	}
	if ch.P != obs.P() {
		return model.IncompatibleChain("chain was fit with %d covariates, have %d", ch.P, obs.P())
	}
	if ch.Kernel != kern.Name() {
		return model.IncompatibleChain("chain used the %s family, recovery asked for %s", ch.Kernel, kern.Name())
	}
	for i, d := range ch.Draws {
		if len(d.Beta) != obs.P() {
			return model.IncompatibleChain("draw %d has %d coefficients, want %d", i, len(d.Beta), obs.P())
		}
	}
	return nil
}
