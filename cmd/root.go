// Package cmd wires the command line interface. All real work happens in
// the library packages; this package only parses flags, loads config, and
// reports results.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Stat534/splm/config"
)

// startupParams gathers everything the subcommands need: the loaded config,
// flag overrides, and the output loggers.
type startupParams struct {
	cfgFile     string
	verbose     bool
	randomSeed  int64
	monitorAddr string

	cfg *config.Config

	out     *log.Logger
	verb    *log.Logger
	trace   *log.Logger
	traceFd *os.File
}

// Setup loads the config file and opens the loggers. Flag overrides beat
// file values, which beat defaults.
func (sp *startupParams) Setup() error {
	cfg, err := config.LoadConfig(sp.cfgFile)
	if err != nil {
		return err
	}
	sp.cfg = cfg

	if sp.randomSeed != 0 {
		sp.cfg.Sampler.Seed = sp.randomSeed
	}
	if sp.verbose {
		sp.cfg.Output.Verbose = true
	}

	sp.out = log.New(os.Stdout, "", 0)
	if sp.cfg.Output.Verbose {
		sp.verb = log.New(os.Stderr, "", 0)
	} else {
		sp.verb = log.New(io.Discard, "", 0)
	}

	sp.trace = log.New(io.Discard, "", 0)
	if len(sp.cfg.Output.Trace) > 0 {
		fd, err := os.Create(sp.cfg.Output.Trace)
		if err != nil {
			return err
		}
		sp.traceFd = fd
		sp.trace = log.New(fd, "", 0)
	}

	return nil
}

// Close flushes and closes the trace file if one was opened.
func (sp *startupParams) Close() {
	if sp.traceFd != nil {
		sp.traceFd.Close()
		sp.traceFd = nil
	}
}

var sp = &startupParams{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "splm",
	Short: "Bayesian spatial linear model fitting",
	Long: `splm fits the Bayesian hierarchical spatial linear model

    y = X*beta + W + eps,  W ~ N(0, sigmaSq*R(phi)),  eps ~ N(0, tauSq*I)

by Gibbs sampling, with a Metropolis (or gridded) update for the spatial
decay phi. It can recover the latent surface at the observed locations and
predict it at new ones.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Run the sampler on the configured data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sp.Setup(); err != nil {
			return err
		}
		defer sp.Close()
		return FitRun(sp)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.PersistentFlags().StringVarP(&sp.cfgFile, "config", "c", "splm.yaml", "config file to read")
	rootCmd.PersistentFlags().BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	rootCmd.PersistentFlags().Int64VarP(&sp.randomSeed, "seed", "r", 0, "Random seed override (0 uses the config value)")
	rootCmd.PersistentFlags().StringVarP(&sp.monitorAddr, "monitor", "m", "", "Address for the HTTP progress monitor (empty disables it)")

	rootCmd.AddCommand(fitCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
