package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaU64_NormalAndWrap(t *testing.T) {
	assert.Equal(t, uint64(5), DeltaU64(15, 10))
	assert.Equal(t, uint64(0), DeltaU64(0, 0))
	// counter wrapped (now < prev): delta reported as zero per spec.
	assert.Equal(t, uint64(0), DeltaU64(3, math.MaxUint64-2))
}

func TestSafeDiv(t *testing.T) {
	assert.Equal(t, 2.0, SafeDiv(10, 5))
	assert.Equal(t, 0.0, SafeDiv(10, 0))
	assert.Equal(t, 0.0, SafeDiv(10, 1e-15))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-1))
	assert.Equal(t, 1.0, Clamp01(2))
	assert.Equal(t, 0.5, Clamp01(0.5))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestClampF(t *testing.T) {
	assert.Equal(t, 1.0, ClampF(-5, 1, 10))
	assert.Equal(t, 10.0, ClampF(50, 1, 10))
	assert.Equal(t, 5.0, ClampF(5, 1, 10))
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{1}))
	// [2,4,4,4,5,5,7,9] has sample stddev 2.138...
	assert.InDelta(t, 2.1380899, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-6)
}
