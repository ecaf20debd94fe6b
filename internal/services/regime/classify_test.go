package regime

import (
	"testing"

	"MarketRegime/internal/domain/models"
	"MarketRegime/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandClassifier(t *testing.T) {
	b := models.Bands{Mean: 5, SD: 2, Upper1: 7, Upper2: 9, Lower1: 3, Lower2: 1}
	c := BandClassifier{}

	assert.Equal(t, models.RegimeExpansion, c.Classify(7.0001, b))
	assert.Equal(t, models.RegimeNeutral, c.Classify(7, b))
	assert.Equal(t, models.RegimeNeutral, c.Classify(5, b))
	assert.Equal(t, models.RegimeNeutral, c.Classify(3, b))
	assert.Equal(t, models.RegimeContraction, c.Classify(2.9999, b))
}

func TestThresholdClassifier(t *testing.T) {
	c := ThresholdClassifier{Threshold: 1.50}

	assert.Equal(t, models.RegimeAbove, c.Classify(2.1, models.Bands{}))
	assert.Equal(t, models.RegimeAbove, c.Classify(1.50, models.Bands{}))
	assert.Equal(t, models.RegimeBreached, c.Classify(1.49, models.Bands{}))
	assert.Equal(t, models.RegimeBreached, c.Classify(0.92, models.Bands{}))
	assert.Equal(t, models.RegimeBreached, c.Classify(0.37, models.Bands{}))
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier(config.ClassifierConfig{Kind: "threshold", Threshold: 1.5})
	require.NoError(t, err)
	assert.Equal(t, "threshold", c.Kind())

	c, err = NewClassifier(config.ClassifierConfig{Kind: "bands"})
	require.NoError(t, err)
	assert.Equal(t, "bands", c.Kind())

	_, err = NewClassifier(config.ClassifierConfig{Kind: "hysteresis"})
	assert.Error(t, err)
}
