package regime

import (
	"fmt"

	"MarketRegime/internal/domain/models"
	"MarketRegime/pkg/config"
)

// Classifier maps the latest scalar to a regime. Implementations are pure.
type Classifier interface {
	Classify(latest float64, bands models.Bands) models.Regime
	Kind() string
}

// BandClassifier compares against the 1-sigma bands.
type BandClassifier struct{}

func (BandClassifier) Classify(latest float64, b models.Bands) models.Regime {
	switch {
	case latest > b.Upper1:
		return models.RegimeExpansion
	case latest < b.Lower1:
		return models.RegimeContraction
	default:
		return models.RegimeNeutral
	}
}

func (BandClassifier) Kind() string { return config.ClassifierBands }

// ThresholdClassifier compares against a fixed domain level; bands are ignored.
type ThresholdClassifier struct {
	Threshold float64
}

func (t ThresholdClassifier) Classify(latest float64, _ models.Bands) models.Regime {
	if latest >= t.Threshold {
		return models.RegimeAbove
	}
	return models.RegimeBreached
}

func (ThresholdClassifier) Kind() string { return config.ClassifierThreshold }

// NewClassifier builds the configured classifier.
func NewClassifier(cc config.ClassifierConfig) (Classifier, error) {
	switch cc.Kind {
	case config.ClassifierBands:
		return BandClassifier{}, nil
	case config.ClassifierThreshold:
		return ThresholdClassifier{Threshold: cc.Threshold}, nil
	default:
		return nil, fmt.Errorf("classifier: unknown kind %q", cc.Kind)
	}
}
