package cmd

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Stat534/splm/field"
	"github.com/Stat534/splm/kernel"
	"github.com/Stat534/splm/model"
	"github.com/Stat534/splm/sampler"
)

// FitRun loads the configured data, runs the requested number of chains in
// parallel, and reports posterior summaries. Optional extras (latent field
// recovery, prediction at new locations, a trace file) hang off the config.
func FitRun(sp *startupParams) error {
	cfg := sp.cfg

	if len(cfg.Data.Coords) < 1 || len(cfg.Data.Covariates) < 1 || len(cfg.Data.Response) < 1 {
		return errors.New("Config must name coords, covariates, and response data files")
	}

	sp.verb.Printf("Reading data: %s / %s / %s\n", cfg.Data.Coords, cfg.Data.Covariates, cfg.Data.Response)
	obs, err := model.NewObservationSetFromFiles(cfg.Data.Coords, cfg.Data.Covariates, cfg.Data.Response)
	if err != nil {
		return err
	}
	sp.verb.Printf("Data has %d observations, %d covariates\n", obs.N(), obs.P())

	kern, err := cfg.Kernel()
	if err != nil {
		return err
	}
	pr := cfg.Priors()
	if err := pr.Check(obs); err != nil {
		return err
	}

	nChains := cfg.Sampler.Chains
	if nChains < 1 {
		return model.InvalidParameter("chains", "need at least 1, have %d", nChains)
	}

	var mon *monitor
	if len(sp.monitorAddr) > 0 {
		mon = &monitor{}
		if err := mon.Start(sp.monitorAddr); err != nil {
			return err
		}
		defer mon.Stop()
		mon.Chains.Set(int64(nChains))
		mon.Iterations.Set(int64(cfg.Sampler.Iterations))
		mon.BurnIn.Set(int64(cfg.Sampler.BurnIn))
	}

	sp.out.Printf("Running %d chain(s): %d iterations after %d burn-in, kernel %s\n",
		nChains, cfg.Sampler.Iterations, cfg.Sampler.BurnIn, kern.Name())

	startTime := time.Now()
	chains := make([]*sampler.Chain, nChains)
	chainErrs := make([]error, nChains)

	var wg sync.WaitGroup
	for i := 0; i < nChains; i++ {
		g, err := sampler.NewGibbs(obs, kern, pr, cfg.SamplerConfig(obs.P(), i))
		if err != nil {
			return errors.Wrapf(err, "Chain %d setup failed", i)
		}
		if mon != nil {
			g.Progress = func(sweep int, phase sampler.Phase) {
				mon.SweepsDone.Add(1)
				mon.RunTime.Set(time.Since(startTime).Seconds())
			}
		}

		wg.Add(1)
		go func(i int, g *sampler.Gibbs) {
			defer wg.Done()
			chains[i], chainErrs[i] = g.Run(context.Background())
			if mon != nil {
				mon.ChainsDone.Add(1)
				if chains[i] != nil {
					mon.Divergences.Add(chains[i].Divergences)
				}
			}
		}(i, g)
	}
	wg.Wait()

	for i, err := range chainErrs {
		if err != nil {
			return errors.Wrapf(err, "Chain %d failed", i)
		}
	}
	sp.out.Printf("Sampling finished in %.1fs\n", time.Since(startTime).Seconds())

	for i, ch := range chains {
		diag, err := sampler.Summarize(ch)
		if err != nil {
			return errors.Wrapf(err, "Chain %d diagnostics failed", i)
		}
		reportChain(sp, i, diag)
	}

	if nChains > 1 {
		diag, err := sampler.Summarize(pooled(chains))
		if err != nil {
			return errors.Wrap(err, "Pooled diagnostics failed")
		}
		sp.out.Printf("--------------------------------------------------\n")
		sp.out.Printf("Pooled over %d chains\n", nChains)
		sp.out.Printf("%-12s %10s %10s %10s %10s\n", "param", "mean", "q05", "q50", "q95")
		for _, ps := range diag.Params {
			sp.out.Printf("%-12s %10.4f %10.4f %10.4f %10.4f\n", ps.Name, ps.Mean, ps.Q05, ps.Q50, ps.Q95)
		}
	}

	if sp.traceFd != nil {
		writeTrace(sp, chains)
	}

	recSeed := cfg.Sampler.Seed + int64(nChains)
	var rec *field.Recovery
	if cfg.Output.RecoverField || len(cfg.Predict.Coords) > 0 {
		rec, err = field.Recover(chains[0], obs, kern, recSeed)
		if err != nil {
			return errors.Wrap(err, "Latent field recovery failed")
		}
	}

	if cfg.Output.RecoverField {
		if err := reportField(sp, "Recovered field (chain 0)", rec.Draws); err != nil {
			return err
		}
	}

	if len(cfg.Predict.Coords) > 0 {
		if err := runPredict(sp, rec, chains[0], obs, kern, recSeed+1); err != nil {
			return err
		}
	}

	return nil
}

// pooled concatenates the retained draws of several chains fit to the same
// data into one chain for a combined summary.
func pooled(chains []*sampler.Chain) *sampler.Chain {
	p := &sampler.Chain{
		N:        chains[0].N,
		P:        chains[0].P,
		Kernel:   chains[0].Kernel,
		Complete: true,
	}
	for _, ch := range chains {
		p.Draws = append(p.Draws, ch.Draws...)
		p.Sweeps += ch.Sweeps
		p.PhiAccepts += ch.PhiAccepts
		p.PhiRejects += ch.PhiRejects
		p.Divergences += ch.Divergences
	}
	return p
}

// reportChain prints one chain's posterior summaries and warnings.
func reportChain(sp *startupParams, idx int, diag *sampler.Diagnostics) {
	sp.out.Printf("--------------------------------------------------\n")
	sp.out.Printf("Chain %d: accept rate %.3f, divergences %d\n", idx, diag.AcceptRate, diag.Divergences)
	sp.out.Printf("%-12s %10s %10s %10s %10s\n", "param", "mean", "q05", "q50", "q95")
	for _, ps := range diag.Params {
		sp.out.Printf("%-12s %10.4f %10.4f %10.4f %10.4f\n", ps.Name, ps.Mean, ps.Q05, ps.Q50, ps.Q95)
	}
	for _, w := range diag.Warnings {
		sp.out.Printf("WARNING: %s\n", w)
	}
}

// reportField prints per-location quantiles of latent field draws.
func reportField(sp *startupParams, title string, draws [][]float64) error {
	sums, err := field.Summaries(draws, field.DefaultProbs)
	if err != nil {
		return err
	}
	sp.out.Printf("--------------------------------------------------\n")
	sp.out.Printf("%s\n", title)
	sp.out.Printf("%-8s %10s %10s %10s\n", "loc", "q05", "q50", "q95")
	for i, row := range sums {
		sp.out.Printf("%-8d %10.4f %10.4f %10.4f\n", i, row[0], row[1], row[2])
	}
	return nil
}

// runPredict draws the field and response at the configured new locations.
func runPredict(sp *startupParams, rec *field.Recovery, ch *sampler.Chain,
	obs *model.ObservationSet, kern kernel.Isotropic, seed int64) error {

	cfg := sp.cfg
	coordRows, err := model.ReadTableFile(cfg.Predict.Coords)
	if err != nil {
		return err
	}
	covarRows, err := model.ReadTableFile(cfg.Predict.Covariates)
	if err != nil {
		return err
	}
	pred, err := model.NewPredictionSet(coordRows, model.TableMatrix(covarRows), obs)
	if err != nil {
		return err
	}

	sp.verb.Printf("Predicting at %d new locations\n", pred.M())
	p, err := field.Predict(rec, ch, obs, pred, kern, seed, cfg.Predict.AddNugget)
	if err != nil {
		return errors.Wrap(err, "Prediction failed")
	}

	if err := reportField(sp, "Predicted field", p.Field); err != nil {
		return err
	}
	return reportField(sp, "Predicted response", p.Response)
}

// writeTrace dumps every retained draw from every chain to the trace file,
// one row per draw: chain index then the parameter values.
func writeTrace(sp *startupParams, chains []*sampler.Chain) {
	names := chains[0].ParamNames()
	sp.trace.Printf("chain %s\n", strings.Join(names, " "))

	for ci, ch := range chains {
		for _, d := range ch.Draws {
			var sb strings.Builder
			for _, b := range d.Beta {
				sb.WriteString(formatFloat(b))
				sb.WriteByte(' ')
			}
			sb.WriteString(formatFloat(d.SigmaSq))
			sb.WriteByte(' ')
			sb.WriteString(formatFloat(d.TauSq))
			sb.WriteByte(' ')
			sb.WriteString(formatFloat(d.Phi))
			sp.trace.Printf("%d %s\n", ci, sb.String())
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
