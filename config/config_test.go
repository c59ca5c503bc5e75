package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.Equal("exponential", cfg.Model.Kernel)
	assert.Equal(2, cfg.Sampler.Chains)
	assert.Equal(5000, cfg.Sampler.Iterations)
	assert.True(cfg.Sampler.Adapt)

	k, err := cfg.Kernel()
	assert.NoError(err)
	assert.Equal("exponential", k.Name())

	pr := cfg.Priors()
	assert.True(pr.Beta.Flat)
	assert.Equal(2.0, pr.SigmaSq.Shape)
	assert.False(pr.TauSq.FixZero)
	assert.Equal(0.1, pr.Phi.Lo)
}

func TestLoadConfigMissingFile(t *testing.T) {
	assert := assert.New(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(err)
	assert.Equal(DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	assert := assert.New(t)

	src := `
model:
  kernel: gaussian
  tauSqZero: true
  phiGrid: [0.5, 1.0, 2.0]
sampler:
  chains: 4
  iterations: 100
  seed: 7
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	assert.NoError(os.WriteFile(path, []byte(src), 0644))

	cfg, err := LoadConfig(path)
	assert.NoError(err)

	// Overridden
	assert.Equal("gaussian", cfg.Model.Kernel)
	assert.Equal(4, cfg.Sampler.Chains)
	assert.Equal(100, cfg.Sampler.Iterations)
	assert.Equal(int64(7), cfg.Sampler.Seed)

	// Defaults retained where the file is silent
	assert.Equal(1000, cfg.Sampler.BurnIn)
	assert.Equal(0.5, cfg.Sampler.PhiStep)

	pr := cfg.Priors()
	assert.True(pr.TauSq.FixZero)
	assert.Equal([]float64{0.5, 1.0, 2.0}, pr.Phi.Grid)
}

func TestLoadConfigBadYAML(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	assert.NoError(os.WriteFile(path, []byte("model: [not, a, map"), 0644))

	_, err := LoadConfig(path)
	assert.Error(err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Model.Kernel = "matern32"
	cfg.Sampler.Seed = 99

	path := filepath.Join(t.TempDir(), "sub", "run.yaml")
	assert.NoError(SaveConfig(cfg, path))

	back, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(cfg, back)
}

func TestSamplerConfig(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Sampler.Seed = 100

	sc := cfg.SamplerConfig(3, 2)
	assert.Equal(int64(102), sc.Seed)
	assert.Equal([]float64{0, 0, 0}, sc.Start.Beta)
	assert.Equal(1.0, sc.Start.SigmaSq)

	// Grid prior pins the starting phi onto the grid
	cfg.Model.PhiGrid = []float64{0.25, 0.5}
	sc = cfg.SamplerConfig(3, 0)
	assert.Equal(0.25, sc.Start.Phi)

	// Zero nugget forces the starting tauSq to zero
	cfg.Model.TauSqZero = true
	sc = cfg.SamplerConfig(3, 0)
	assert.Equal(0.0, sc.Start.TauSq)
}
