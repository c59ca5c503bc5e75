// Package kernel provides the isotropic spatial covariance families and the
// precomputed distance matrices the sampler builds its working covariance
// from. Distances are computed once from raw coordinates; everything the
// MCMC loop touches per iteration is a pure function of a distance matrix
// and the current parameters.
package kernel

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Stat534/splm/model"
)

// Isotropic is the shared evaluation contract for the covariance families: a
// correlation as a function of separation distance and the decay parameter.
// Implementations are stateless and side effect free. The full covariance is
// always sigma^2 * Corr(d, phi), with the nugget added separately on the
// diagonal.
type Isotropic interface {
	Corr(d, phi float64) float64
	Name() string
}

// The closed set of supported families. Selected explicitly in
// configuration; there is no runtime dispatch on strings inside the sampler.
type (
	exponential struct{}
	gaussian    struct{}
	spherical   struct{}
	matern32    struct{}
)

// Exponential is exp(-phi*d), the default family.
var Exponential Isotropic = exponential{}

// Gaussian is exp(-(phi*d)^2).
var Gaussian Isotropic = gaussian{}

// Spherical has compact support with effective range 1/phi.
var Spherical Isotropic = spherical{}

// Matern32 is the Matern family with smoothness 3/2 and decay phi.
var Matern32 Isotropic = matern32{}

func (exponential) Corr(d, phi float64) float64 {
	return math.Exp(-phi * d)
}

func (exponential) Name() string { return "exponential" }

func (gaussian) Corr(d, phi float64) float64 {
	pd := phi * d
	return math.Exp(-pd * pd)
}

func (gaussian) Name() string { return "gaussian" }

func (spherical) Corr(d, phi float64) float64 {
	pd := phi * d
	if pd >= 1 {
		return 0
	}
	return 1 - 1.5*pd + 0.5*pd*pd*pd
}

func (spherical) Name() string { return "spherical" }

func (matern32) Corr(d, phi float64) float64 {
	pd := math.Sqrt(3) * phi * d
	return (1 + pd) * math.Exp(-pd)
}

func (matern32) Name() string { return "matern32" }

// ByName returns the family selected in configuration. The sampler itself
// only ever sees the Isotropic value.
func ByName(name string) (Isotropic, error) {
	switch name {
	case "", "exponential":
		return Exponential, nil
	case "gaussian":
		return Gaussian, nil
	case "spherical":
		return Spherical, nil
	case "matern32":
		return Matern32, nil
	}
	return nil, model.InvalidParameter("kernel", "unknown covariance family %q", name)
}

// Cov evaluates the point covariance sigma^2 * Corr(d, phi) with full domain
// checking. Degenerate inputs fail, they are never clamped.
func Cov(k Isotropic, d, sigmaSq, phi float64) (float64, error) {
	if d < 0 {
		return 0, model.InvalidParameter("distance", "must be >= 0, have %f", d)
	}
	if sigmaSq <= 0 {
		return 0, model.InvalidParameter("sigmaSq", "must be > 0, have %f", sigmaSq)
	}
	if phi <= 0 {
		return 0, model.InvalidParameter("phi", "must be > 0, have %f", phi)
	}

	return sigmaSq * k.Corr(d, phi), nil
}

// CorrMatrix fills dst with the N x N correlation matrix R(phi) over the
// precomputed distances. dst must be sized to match. This is the O(N^2)
// inner-loop cost that distance precomputation keeps from being O(N^2 * d).
func CorrMatrix(dst *mat.SymDense, k Isotropic, dm *DistanceMatrix, phi float64) {
	n := dm.N()
	for i := 0; i < n; i++ {
		dst.SetSym(i, i, 1.0)
		for j := i + 1; j < n; j++ {
			dst.SetSym(i, j, k.Corr(dm.At(i, j), phi))
		}
	}
}

// CrossCorrMatrix fills dst with the N x M cross-correlation between
// observed and prediction locations.
func CrossCorrMatrix(dst *mat.Dense, k Isotropic, cross *mat.Dense, phi float64) {
	n, m := cross.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			dst.Set(i, j, k.Corr(cross.At(i, j), phi))
		}
	}
}
