package rand

import (
	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// A Generator is an explicitly seeded Mersenne twister PRNG. Unlike the
// stdlib global source, every Generator is owned by exactly one sampler, and
// every draw is counted so that the stream position can be checkpointed and
// replayed. Generator implements golang.org/x/exp/rand.Source, which is the
// source interface gonum's distuv/distmv distributions consume.
type Generator struct {
	mt    *mt19937.MT19937
	seed  int64
	count uint64
}

var _ exprand.Source = (*Generator)(nil)

// NewGenerator returns a new PRNG seeded with the given seed.
func NewGenerator(seed int64) (*Generator, error) {
	mt := mt19937.New()
	mt.Seed(seed)

	g := &Generator{
		mt:   mt,
		seed: seed,
	}

	return g, nil
}

// Restore returns a generator positioned count draws into the stream that the
// given seed produces. The stream is replayed draw by draw, so restoring a
// long-running chain costs O(count) but leaves the stream bit-identical to
// the one that was checkpointed.
func Restore(seed int64, count uint64) (*Generator, error) {
	g, err := NewGenerator(seed)
	if err != nil {
		return nil, err
	}

	for i := uint64(0); i < count; i++ {
		g.mt.Uint64()
	}
	g.count = count

	return g, nil
}

// Seed reseeds the generator and resets the draw counter. Part of the
// exp/rand Source interface.
func (g *Generator) Seed(seed uint64) {
	g.mt.Seed(int64(seed))
	g.seed = int64(seed)
	g.count = 0
}

// Uint64 returns the next raw draw from the twister. All other methods pull
// from this, so count is the exact stream position.
func (g *Generator) Uint64() uint64 {
	g.count++
	return g.mt.Uint64()
}

// StreamSeed returns the seed the stream was started from.
func (g *Generator) StreamSeed() int64 {
	return g.seed
}

// StreamCount returns the number of raw draws taken so far. Saving
// (StreamSeed, StreamCount) is enough to Restore the generator.
func (g *Generator) StreamCount() uint64 {
	return g.count
}

// Int63 provides the same interface as Go's math/rand.
func (g *Generator) Int63() int64 {
	return int64(g.Uint64() >> 1)
}

// Int63n draws uniformly from [0, n). This is the stdlib rejection algorithm
// against our own stream.
func (g *Generator) Int63n(n int64) (int64, error) {
	if n <= 0 {
		return 0, errors.Errorf("Invalid argument %d to Int63n", n)
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int63() & (n - 1), nil
	}

	max := int64((1 << 63) - 1 - (1<<63)%uint64(n))
	v := g.Int63()
	for v > max {
		v = g.Int63()
	}

	return v % n, nil
}

// Float64 draws uniformly from [0, 1).
func (g *Generator) Float64() float64 {
	// See the Go lang comments for Rand Float64 implementation for details
	return float64(g.Int63()>>10) / (1 << 53)
}

// Categorical draws an index from the (unnormalized, non-negative) weight
// vector. Used for the discrete-grid range update.
func (g *Generator) Categorical(weights []float64) (int, error) {
	if len(weights) < 1 {
		return 0, errors.Errorf("Can not draw from 0 weights")
	}

	tot := 0.0
	for i, w := range weights {
		if w < 0 {
			return 0, errors.Errorf("Negative weight %f at index %d", w, i)
		}
		tot += w
	}
	if tot <= 0 {
		return 0, errors.Errorf("Weight vector sums to %f", tot)
	}

	// Validation happens above so distuv's panics are unreachable
	dist := distuv.NewCategorical(weights, g)
	return int(dist.Rand()), nil
}
