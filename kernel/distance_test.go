package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMatrix(t *testing.T) {
	assert := assert.New(t)

	coords := [][]float64{{0, 0}, {3, 4}, {0, 1}}
	dm, err := NewDistanceMatrix(coords)
	assert.NoError(err)
	assert.Equal(3, dm.N())

	// Zero diagonal, symmetric, known values
	for i := 0; i < 3; i++ {
		assert.Equal(0.0, dm.At(i, i))
		for j := 0; j < 3; j++ {
			assert.Equal(dm.At(i, j), dm.At(j, i))
		}
	}
	assert.InDelta(5.0, dm.At(0, 1), 1e-12)
	assert.InDelta(1.0, dm.At(0, 2), 1e-12)

	_, err = NewDistanceMatrix(nil)
	assert.Error(err)

	_, err = NewDistanceMatrix([][]float64{{0, 0}, {1}})
	assert.Error(err)
}

func TestCrossDistances(t *testing.T) {
	assert := assert.New(t)

	a := [][]float64{{0, 0}, {1, 1}}
	b := [][]float64{{3, 4}, {0, 0}, {1, 0}}

	d, err := CrossDistances(a, b)
	assert.NoError(err)

	r, c := d.Dims()
	assert.Equal(2, r)
	assert.Equal(3, c)
	assert.InDelta(5.0, d.At(0, 0), 1e-12)
	assert.InDelta(0.0, d.At(0, 1), 1e-12)
	assert.InDelta(1.0, d.At(1, 2), 1e-12)

	_, err = CrossDistances(a, nil)
	assert.Error(err)

	_, err = CrossDistances(a, [][]float64{{1, 2, 3}})
	assert.Error(err)
}
