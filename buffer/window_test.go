package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowEmpty(t *testing.T) {
	assert := assert.New(t)

	w := NewAcceptWindow(4)
	assert.False(w.Full())
	assert.Equal(0.0, w.Rate())
	assert.Equal(int64(0), w.TotalSeen)
}

func TestWindowSizeFix(t *testing.T) {
	assert := assert.New(t)

	w := NewAcceptWindow(0)
	assert.Equal(1, w.BufSize)
	w.Add(true)
	assert.True(w.Full())
	assert.Equal(1.0, w.Rate())
}

func TestWindowRate(t *testing.T) {
	assert := assert.New(t)

	w := NewAcceptWindow(4)

	w.Add(true)
	w.Add(false)
	assert.False(w.Full())
	assert.InDelta(0.5, w.Rate(), 1e-12)

	w.Add(true)
	w.Add(true)
	assert.True(w.Full())
	assert.InDelta(0.75, w.Rate(), 1e-12)
	assert.Equal(int64(4), w.TotalSeen)

	// Oldest entries get overwritten
	w.Add(false)
	w.Add(false)
	w.Add(false)
	w.Add(false)
	assert.InDelta(0.0, w.Rate(), 1e-12)
	assert.Equal(int64(8), w.TotalSeen)
}

func TestWindowReset(t *testing.T) {
	assert := assert.New(t)

	w := NewAcceptWindow(2)
	w.Add(true)
	w.Add(true)
	assert.True(w.Full())

	w.Reset()
	assert.False(w.Full())
	assert.Equal(0.0, w.Rate())
	assert.Equal(int64(2), w.TotalSeen)

	w.Add(false)
	assert.InDelta(0.0, w.Rate(), 1e-12)
}
