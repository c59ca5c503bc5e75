package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// BetaPrior is a multivariate normal prior on the regression coefficients,
// held in mean/precision form because the Gibbs update works in precision
// space. A nil Prec with Flat=true gives the improper flat prior (legal here
// because N >= p and the likelihood is proper in beta).
type BetaPrior struct {
	Mean []float64
	Prec *mat.SymDense
	Flat bool
}

// InvGamma holds inverse-gamma hyperparameters in shape/rate form.
type InvGamma struct {
	Shape float64
	Rate  float64
}

// NuggetPrior is the tau^2 prior: either a proper inverse-gamma or an
// explicit point mass at zero (no measurement error).
type NuggetPrior struct {
	InvGamma
	FixZero bool
}

// PhiPrior is the prior on the spatial decay. Phi has no conjugate form, so
// the prior is either uniform on a finite interval (continuous Metropolis
// update) or a uniform discrete grid (categorical update). Leaving Grid nil
// selects the continuous form.
type PhiPrior struct {
	Lo   float64
	Hi   float64
	Grid []float64
}

// Contains reports whether phi lies in the prior's support.
func (pp *PhiPrior) Contains(phi float64) bool {
	if len(pp.Grid) > 0 {
		for _, g := range pp.Grid {
			if g == phi {
				return true
			}
		}
		return false
	}
	return phi >= pp.Lo && phi <= pp.Hi
}

// PriorSpec collects one prior per parameter block.
type PriorSpec struct {
	Beta    BetaPrior
	SigmaSq InvGamma
	TauSq   NuggetPrior
	Phi     PhiPrior
}

// DefaultPriors returns the weakly informative spec used by the fit command
// when the config names none: flat beta, IG(2, 1) variance components, and
// uniform decay on the given interval. Explicit, never applied silently.
func DefaultPriors(phiLo, phiHi float64) *PriorSpec {
	return &PriorSpec{
		Beta:    BetaPrior{Flat: true},
		SigmaSq: InvGamma{Shape: 2.0, Rate: 1.0},
		TauSq:   NuggetPrior{InvGamma: InvGamma{Shape: 2.0, Rate: 1.0}},
		Phi:     PhiPrior{Lo: phiLo, Hi: phiHi},
	}
}

// Check validates the prior spec against the observation set it will be used
// with. Every violation is an InvalidParameterError raised before sampling
// starts.
func (pr *PriorSpec) Check(obs *ObservationSet) error {
	p := obs.P()

	if !pr.Beta.Flat {
		if len(pr.Beta.Mean) != p {
			return DimensionMismatch("beta prior mean", p, len(pr.Beta.Mean))
		}
		if pr.Beta.Prec == nil {
			return InvalidParameter("beta prior", "non-flat prior requires a precision matrix")
		}
		if r := pr.Beta.Prec.SymmetricDim(); r != p {
			return DimensionMismatch("beta prior precision", p, r)
		}
	}

	if pr.SigmaSq.Shape <= 0 || pr.SigmaSq.Rate <= 0 {
		return InvalidParameter("sigmaSq prior", "inverse-gamma needs shape and rate > 0, have (%f, %f)",
			pr.SigmaSq.Shape, pr.SigmaSq.Rate)
	}

	if pr.TauSq.FixZero {
		// With no nugget the model is y = X beta + W exactly. A rank
		// deficient X then makes beta unidentifiable, so reject it here
		// instead of producing NaN draws later.
		if rankDeficient(obs.X) {
			return InvalidParameter("tauSq prior", "point mass at 0 with collinear covariates is unidentifiable")
		}
	} else if pr.TauSq.Shape <= 0 || pr.TauSq.Rate <= 0 {
		return InvalidParameter("tauSq prior", "inverse-gamma needs shape and rate > 0, have (%f, %f)",
			pr.TauSq.Shape, pr.TauSq.Rate)
	}

	if len(pr.Phi.Grid) > 0 {
		grid := pr.Phi.Grid
		if !sort.Float64sAreSorted(grid) {
			return InvalidParameter("phi prior", "grid must be sorted ascending")
		}
		for _, g := range grid {
			if g <= 0 {
				return InvalidParameter("phi prior", "grid point %f is not > 0", g)
			}
		}
		for i := 1; i < len(grid); i++ {
			if grid[i] == grid[i-1] {
				return InvalidParameter("phi prior", "duplicate grid point %f", grid[i])
			}
		}
	} else {
		if pr.Phi.Lo <= 0 || pr.Phi.Hi <= pr.Phi.Lo {
			return InvalidParameter("phi prior", "need 0 < lo < hi, have (%f, %f)", pr.Phi.Lo, pr.Phi.Hi)
		}
	}

	return nil
}

// rankDeficient reports whether x has (numerically) less than full column
// rank, using the SVD condition threshold sigma_min <= eps * sigma_max.
func rankDeficient(x *mat.Dense) bool {
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDNone); !ok {
		return true
	}

	vals := svd.Values(nil)
	if len(vals) < 1 {
		return true
	}

	const eps = 1e-10
	return vals[len(vals)-1] <= eps*vals[0]
}
