package field

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Stat534/splm/kernel"
	"github.com/Stat534/splm/model"
	"github.com/Stat534/splm/rand"
	"github.com/Stat534/splm/sampler"
)

// Predictions holds per-draw simulations at the M prediction locations:
// the latent surface and the response-scale prediction (trend plus surface,
// plus nugget noise when requested).
type Predictions struct {
	M        int
	Field    [][]float64
	Response [][]float64
}

// Predict simulates the field and response at new locations, one draw per
// retained chain sample, conditional on the recovered field at the observed
// locations:
//
//	W* | W, theta ~ N( C^T R^-1 W,  sigmaSq*(R* - C^T R^-1 C) )
//
// with C the observed-to-new cross-correlation and R* the new-location
// correlation. With addNugget the response draws include independent
// N(0, tauSq) measurement noise.
func Predict(rec *Recovery, ch *sampler.Chain, obs *model.ObservationSet, pred *model.PredictionSet,
	kern kernel.Isotropic, seed int64, addNugget bool) (*Predictions, error) {

	if err := checkChain(ch, obs, kern); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, model.IncompatibleChain("no recovery supplied")
	}
	if len(rec.Draws) != ch.Len() {
		return nil, model.IncompatibleChain("recovery has %d draws, chain has %d", len(rec.Draws), ch.Len())
	}
	if rec.N != obs.N() {
		return nil, model.IncompatibleChain("recovery covers %d locations, observations have %d", rec.N, obs.N())
	}

	n, m := obs.N(), pred.M()

	dists, err := kernel.NewDistanceMatrix(obs.Coords)
	if err != nil {
		return nil, err
	}
	predDists, err := kernel.NewDistanceMatrix(pred.Coords)
	if err != nil {
		return nil, err
	}
	crossDists, err := kernel.CrossDistances(obs.Coords, pred.Coords)
	if err != nil {
		return nil, err
	}

	gen, err := rand.NewGenerator(seed)
	if err != nil {
		return nil, err
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: gen}

	out := &Predictions{
		M:        m,
		Field:    make([][]float64, ch.Len()),
		Response: make([][]float64, ch.Len()),
	}

	corr := mat.NewSymDense(n, nil)
	predCorr := mat.NewSymDense(m, nil)
	cross := mat.NewDense(n, m, nil)
	w := mat.NewVecDense(n, nil)
	beta := mat.NewVecDense(obs.P(), nil)

	for i, d := range ch.Draws {
		kernel.CorrMatrix(corr, kern, dists, d.Phi)
		kernel.CorrMatrix(predCorr, kern, predDists, d.Phi)
		kernel.CrossCorrMatrix(cross, kern, crossDists, d.Phi)

		var chol mat.Cholesky
		if ok := chol.Factorize(corr); !ok {
			return nil, errors.Errorf("Draw %d: observed correlation failed factorization", i)
		}

		copy(w.RawVector().Data, rec.Draws[i])

		// mean = C^T R^-1 W
		tmp := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(tmp, w); err != nil {
			return nil, errors.Wrapf(err, "Draw %d: predictive mean solve failed", i)
		}
		mean := mat.NewVecDense(m, nil)
		mean.MulVec(cross.T(), tmp)

		// cov = sigmaSq*(R* - C^T R^-1 C)
		s := mat.NewDense(n, m, nil)
		if err := chol.SolveTo(s, cross); err != nil {
			return nil, errors.Wrapf(err, "Draw %d: predictive covariance solve failed", i)
		}
		var cs mat.Dense
		cs.Mul(cross.T(), s)

		cov := mat.NewSymDense(m, nil)
		for r := 0; r < m; r++ {
			for c := r; c < m; c++ {
				v := predCorr.At(r, c) - 0.5*(cs.At(r, c)+cs.At(c, r))
				cov.SetSym(r, c, d.SigmaSq*v)
			}
		}

		wstar, err := mvnDraw(mean.RawVector().Data, cov, gen)
		if err != nil {
			return nil, errors.Wrapf(err, "Draw %d", i)
		}
		out.Field[i] = wstar

		copy(beta.RawVector().Data, d.Beta)
		trend := mat.NewVecDense(m, nil)
		trend.MulVec(pred.X, beta)

		resp := make([]float64, m)
		for j := 0; j < m; j++ {
			resp[j] = trend.AtVec(j) + wstar[j]
		}
		if addNugget && d.TauSq > 0 {
			sd := math.Sqrt(d.TauSq)
			for j := 0; j < m; j++ {
				resp[j] += sd * norm.Rand()
			}
		}
		out.Response[i] = resp
	}

	return out, nil
}

// Summaries reduces per-draw location values to per-location quantiles: one
// row per location, one column per requested probability.
func Summaries(draws [][]float64, probs []float64) ([][]float64, error) {
	if len(draws) < 1 {
		return nil, model.IncompatibleChain("no draws to summarize")
	}
	for _, p := range probs {
		if p < 0 || p > 1 {
			return nil, model.InvalidParameter("quantile", "probability %f outside [0, 1]", p)
		}
	}

	m := len(draws[0])
	for _, d := range draws {
		if len(d) != m {
			return nil, model.DimensionMismatch("draw length", m, len(d))
		}
	}

	out := make([][]float64, m)
	series := make([]float64, len(draws))
	for loc := 0; loc < m; loc++ {
		for i, d := range draws {
			series[i] = d[loc]
		}
		sort.Float64s(series)

		row := make([]float64, len(probs))
		for k, p := range probs {
			row[k] = stat.Quantile(p, stat.Empirical, series, nil)
		}
		out[loc] = row
	}

	return out, nil
}

// DefaultProbs are the 5/50/95 summary probabilities.
var DefaultProbs = []float64{0.05, 0.50, 0.95}
