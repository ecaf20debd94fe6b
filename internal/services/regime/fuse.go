package regime

import (
	"errors"
	"sort"
	"time"

	"MarketRegime/internal/domain/models"
)

// DefaultStride keeps every 7th live point.
const DefaultStride = 7

// ErrEmptySeries is returned when fusion leaves nothing to compute over.
var ErrEmptySeries = errors.New("fused series is empty")

// Fuse merges anchors before the live cutoff with down-sampled live readings.
// The cutoff is the first live reading's date; with no live readings every anchor qualifies.
// Points before from are dropped (zero from keeps everything).
func Fuse(historical, live []models.Point, from time.Time, stride int) ([]models.Point, error) {
	if stride < 1 {
		stride = DefaultStride
	}

	live = inRange(live, from)
	sort.SliceStable(live, func(i, j int) bool { return live[i].Date.Before(live[j].Date) })

	var cutoff time.Time
	hasCutoff := len(live) > 0
	if hasCutoff {
		cutoff = live[0].Date
	}

	out := make([]models.Point, 0, len(historical)+len(live)/stride+1)
	for _, p := range inRange(historical, from) {
		if hasCutoff && !p.Date.Before(cutoff) {
			continue
		}
		p.Source = models.ProvenanceHistorical
		out = append(out, p)
	}
	for i, p := range live {
		if i%stride != 0 && i != len(live)-1 {
			continue
		}
		p.Source = models.ProvenanceLive
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, ErrEmptySeries
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return dedupeLastWins(out), nil
}

// dedupeLastWins expects out sorted ascending (stable) and keeps the last point of each day.
func dedupeLastWins(in []models.Point) []models.Point {
	out := in[:0]
	for i, p := range in {
		if i+1 < len(in) && in[i+1].Date.Equal(p.Date) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func inRange(points []models.Point, from time.Time) []models.Point {
	out := make([]models.Point, 0, len(points))
	for _, p := range points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		out = append(out, p)
	}
	return out
}
