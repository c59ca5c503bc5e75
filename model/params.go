package model

// Parameters is the state vector of the spatial linear model: regression
// coefficients, the partial sill of the spatial process, the nugget, and the
// spatial decay. One consistent parameterization is used everywhere: SigmaSq
// scales the spatial correlation matrix and nothing else, TauSq is the iid
// measurement noise variance and nothing else.
type Parameters struct {
	Beta    []float64 // p regression coefficients
	SigmaSq float64   // partial sill, > 0
	TauSq   float64   // nugget, >= 0 (zero only when the prior fixes it there)
	Phi     float64   // spatial decay, > 0
}

// Clone returns a deep copy.
func (p *Parameters) Clone() *Parameters {
	cp := &Parameters{
		Beta:    make([]float64, len(p.Beta)),
		SigmaSq: p.SigmaSq,
		TauSq:   p.TauSq,
		Phi:     p.Phi,
	}
	copy(cp.Beta, p.Beta)
	return cp
}

// Check validates the parameter vector against the given prior spec (the
// spec carries the configured phi bounds and whether a zero nugget is
// allowed).
func (p *Parameters) Check(pr *PriorSpec, wantP int) error {
	if len(p.Beta) != wantP {
		return DimensionMismatch("beta", wantP, len(p.Beta))
	}
	if p.SigmaSq <= 0 {
		return InvalidParameter("sigmaSq", "partial sill must be > 0, have %f", p.SigmaSq)
	}
	if pr.TauSq.FixZero {
		if p.TauSq != 0 {
			return InvalidParameter("tauSq", "prior fixes nugget at 0 but starting value is %f", p.TauSq)
		}
	} else if p.TauSq <= 0 {
		return InvalidParameter("tauSq", "nugget must be > 0, have %f", p.TauSq)
	}
	if p.Phi <= 0 {
		return InvalidParameter("phi", "decay must be > 0, have %f", p.Phi)
	}
	if !pr.Phi.Contains(p.Phi) {
		return InvalidParameter("phi", "starting value %f outside configured support", p.Phi)
	}
	return nil
}
