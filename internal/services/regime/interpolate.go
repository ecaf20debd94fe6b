package regime

import (
	"time"

	"MarketRegime/internal/domain/models"
)

// DefaultRecencyWindow is how old a target may be and still take the live reading as-is.
const DefaultRecencyWindow = 30 * 24 * time.Hour

// Interpolator estimates raw inputs for arbitrary days from a sparse anchor table.
type Interpolator struct {
	anchors []models.Point
	window  time.Duration
}

// NewInterpolator expects anchors sorted ascending by date.
func NewInterpolator(anchors []models.Point, window time.Duration) *Interpolator {
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	return &Interpolator{anchors: anchors, window: window}
}

// At returns every anchor field estimated for target.
// current is the latest live reading (may be nil); now anchors the recency window and the forward blend.
func (in *Interpolator) At(target time.Time, current *models.Point, now time.Time) map[string]float64 {
	out := make(map[string]float64)
	if len(in.anchors) == 0 {
		if current != nil {
			for k, v := range current.Fields {
				out[k] = v
			}
		}
		return out
	}

	age := now.Sub(target)
	recent := current != nil && age >= 0 && age < in.window
	for _, name := range in.anchors[0].FieldNames() {
		if recent {
			if v, ok := current.Field(name); ok {
				out[name] = v
				continue
			}
		}
		out[name] = in.field(name, target, current, now)
	}
	return out
}

// Value is At for a single field.
func (in *Interpolator) Value(field string, target time.Time, current *models.Point, now time.Time) (float64, bool) {
	v, ok := in.At(target, current, now)[field]
	return v, ok
}

func (in *Interpolator) field(name string, target time.Time, current *models.Point, now time.Time) float64 {
	first := in.anchors[0]
	if !target.After(first.Date) {
		return first.Fields[name]
	}

	last := in.anchors[len(in.anchors)-1]
	if target.After(last.Date) {
		base := last.Fields[name]
		if current == nil {
			return base
		}
		live, ok := current.Field(name)
		if !ok {
			return base
		}
		span := now.Sub(last.Date)
		if span <= 0 {
			return live
		}
		ratio := clamp(float64(target.Sub(last.Date))/float64(span), 0, 1)
		return base + (live-base)*ratio
	}

	for i := 0; i < len(in.anchors)-1; i++ {
		curr, next := in.anchors[i], in.anchors[i+1]
		if target.Before(curr.Date) || target.After(next.Date) {
			continue
		}
		if target.Equal(curr.Date) {
			return curr.Fields[name]
		}
		if target.Equal(next.Date) {
			return next.Fields[name]
		}
		ratio := float64(target.Sub(curr.Date)) / float64(next.Date.Sub(curr.Date))
		return lerp(curr.Fields[name], next.Fields[name], ratio)
	}
	return last.Fields[name]
}

func lerp(a, b, ratio float64) float64 {
	return a + (b-a)*ratio
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
