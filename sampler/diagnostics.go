package sampler

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Stat534/splm/model"
)

// ParamSummary holds the posterior summary for one scalar parameter.
type ParamSummary struct {
	Name string
	Mean float64
	Q05  float64
	Q50  float64
	Q95  float64
}

// Diagnostics summarizes a retained chain: per-parameter quantiles and
// means, the Metropolis acceptance rate, the divergence rate, and heuristic
// convergence warnings. Warnings are advisory, never fatal.
type Diagnostics struct {
	Params      []ParamSummary
	AcceptRate  float64
	Divergences int64
	Warnings    []string
}

// Acceptance-rate band for a healthy continuous Metropolis step.
const (
	acceptLow  = 0.15
	acceptHigh = 0.5
)

// Summarize computes diagnostics over a completed chain.
func Summarize(c *Chain) (*Diagnostics, error) {
	if c.Len() < 1 {
		return nil, model.IncompatibleChain("chain has no retained draws")
	}

	d := &Diagnostics{
		AcceptRate:  c.AcceptRate(),
		Divergences: c.Divergences,
	}

	for _, name := range c.ParamNames() {
		series, err := c.ParamSeries(name)
		if err != nil {
			return nil, err
		}
		d.Params = append(d.Params, summarizeSeries(name, series))
	}

	// Heuristic convergence flags
	if tot := c.PhiAccepts + c.PhiRejects; tot > 0 {
		if d.AcceptRate < acceptLow {
			d.Warnings = append(d.Warnings,
				fmt.Sprintf("decay acceptance rate %.3f below %.2f: step size likely too large", d.AcceptRate, acceptLow))
		} else if d.AcceptRate > acceptHigh {
			d.Warnings = append(d.Warnings,
				fmt.Sprintf("decay acceptance rate %.3f above %.2f: step size likely too small", d.AcceptRate, acceptHigh))
		}
	}

	if c.Sweeps > 0 && c.Divergences >= int64(c.Sweeps) {
		d.Warnings = append(d.Warnings,
			fmt.Sprintf("%d divergences over %d sweeps: the chain is likely degenerate", c.Divergences, c.Sweeps))
	}

	return d, nil
}

// Quantiles returns the requested quantiles of a series. The probs must lie
// in [0, 1].
func Quantiles(series []float64, probs []float64) ([]float64, error) {
	if len(series) < 1 {
		return nil, model.IncompatibleChain("empty series")
	}

	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)

	out := make([]float64, len(probs))
	for i, p := range probs {
		if p < 0 || p > 1 {
			return nil, model.InvalidParameter("quantile", "probability %f outside [0, 1]", p)
		}
		out[i] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}
	return out, nil
}

func summarizeSeries(name string, series []float64) ParamSummary {
	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)

	return ParamSummary{
		Name: name,
		Mean: stat.Mean(series, nil),
		Q05:  stat.Quantile(0.05, stat.Empirical, sorted, nil),
		Q50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		Q95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
}
