package regime

import "MarketRegime/internal/domain/models"

// DefaultExtremeLimit caps how many extremes are surfaced.
const DefaultExtremeLimit = 10

// Labels names the two sides of an extreme.
type Labels struct {
	Upper string
	Lower string
}

// DetectExtremes returns points strictly beyond the 2-sigma bands, keeping the most recent limit.
// series must be ascending by date.
func DetectExtremes(series []models.DerivedPoint, b models.Bands, labels Labels, limit int) []models.ExtremeEvent {
	if limit < 1 {
		limit = DefaultExtremeLimit
	}
	out := make([]models.ExtremeEvent, 0)
	for _, p := range series {
		switch {
		case p.Value > b.Upper2:
			out = append(out, models.ExtremeEvent{Date: p.Date, Value: p.Value, Label: labels.Upper})
		case p.Value < b.Lower2:
			out = append(out, models.ExtremeEvent{Date: p.Date, Value: p.Value, Label: labels.Lower})
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
