package regime

import (
	"math"

	"MarketRegime/internal/domain/models"
)

// ComputeBands returns population mean/sd bands over every value.
// The sample is the whole visible history, so the divisor is N.
func ComputeBands(values []float64) models.Bands {
	if len(values) == 0 {
		return models.Bands{}
	}
	n := float64(len(values))

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / n)

	return models.Bands{
		Mean:   mean,
		SD:     sd,
		Upper1: mean + sd,
		Upper2: mean + 2*sd,
		Lower1: mean - sd,
		Lower2: mean - 2*sd,
	}
}
