package providers

import (
	"sort"
	"time"

	"MarketRegime/internal/domain/models"
)

// normalize sorts by day, keeps the last value of each day and drops days outside [from, to].
// A zero from or to leaves that side open.
func normalize(obs []models.Observation, from, to time.Time) []models.Observation {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	out := make([]models.Observation, 0, len(obs))
	for _, o := range obs {
		if !from.IsZero() && o.Date.Before(from) {
			continue
		}
		if !to.IsZero() && o.Date.After(to) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(o.Date) {
			out[n-1] = o
			continue
		}
		out = append(out, o)
	}
	return out
}
