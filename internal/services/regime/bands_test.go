package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBandsPopulation(t *testing.T) {
	b := ComputeBands([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, b.Mean)
	assert.Equal(t, 2.0, b.SD)
	assert.Equal(t, 7.0, b.Upper1)
	assert.Equal(t, 9.0, b.Upper2)
	assert.Equal(t, 3.0, b.Lower1)
	assert.Equal(t, 1.0, b.Lower2)
}

func TestComputeBandsSymmetryAndOrder(t *testing.T) {
	b := ComputeBands([]float64{0.92, 0.37, 0.8, 0.52, 1.7, 2.3})
	assert.InDelta(t, b.Upper1-b.Mean, b.Mean-b.Lower1, 1e-12)
	assert.InDelta(t, b.Upper2-b.Mean, b.Mean-b.Lower2, 1e-12)
	assert.Greater(t, b.Upper2, b.Upper1)
	assert.Greater(t, b.Upper1, b.Mean)
	assert.Greater(t, b.Mean, b.Lower1)
	assert.Greater(t, b.Lower1, b.Lower2)
}

func TestComputeBandsDegenerate(t *testing.T) {
	b := ComputeBands([]float64{3, 3, 3})
	assert.Equal(t, 3.0, b.Mean)
	assert.Zero(t, b.SD)
	assert.Equal(t, b.Mean, b.Upper2)

	assert.Zero(t, ComputeBands(nil))
}
