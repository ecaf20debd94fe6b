package regime

import (
	"fmt"
	"sort"
	"time"

	"MarketRegime/internal/domain/models"
)

// LiveSeries is what the adapters returned for one request, keyed by raw input field.
type LiveSeries map[string][]models.Observation

// assembleLive turns per-field observations into live points dated by the primary series.
// Secondary fields take the latest observation at or before each day; days older than a
// secondary series fall back to the interpolator with that series' last value as the live reading.
func (p *Pipeline) assembleLive(series LiveSeries, now time.Time) ([]models.Point, error) {
	primary := series[p.primary]
	if len(primary) == 0 {
		return nil, fmt.Errorf("live %s: primary series %s is empty", p.name, p.primary)
	}

	secondaries := make(map[string][]models.Observation, len(p.fields)-1)
	for _, f := range p.fields {
		if f == p.primary {
			continue
		}
		obs := series[f]
		if len(obs) == 0 {
			return nil, fmt.Errorf("live %s: series %s is empty", p.name, f)
		}
		sorted := append([]models.Observation(nil), obs...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
		secondaries[f] = sorted
	}

	points := make([]models.Point, 0, len(primary))
	for _, o := range primary {
		fields := map[string]float64{p.primary: o.Value}
		for f, obs := range secondaries {
			if v, ok := asOf(obs, o.Date); ok {
				fields[f] = v
				continue
			}
			last := obs[len(obs)-1]
			current := &models.Point{Date: last.Date, Fields: map[string]float64{f: last.Value}, Source: models.ProvenanceLive}
			v, ok := p.interp.Value(f, o.Date, current, now)
			if !ok {
				return nil, fmt.Errorf("live %s: cannot estimate %s for %s", p.name, f, o.Date.Format("2006-01-02"))
			}
			fields[f] = v
		}
		points = append(points, models.Point{Date: o.Date, Fields: fields, Source: models.ProvenanceLive})
	}
	return points, nil
}

// asOf returns the latest observation on or before day. obs must be ascending.
func asOf(obs []models.Observation, day time.Time) (float64, bool) {
	i := sort.Search(len(obs), func(i int) bool { return obs[i].Date.After(day) })
	if i == 0 {
		return 0, false
	}
	return obs[i-1].Value, true
}
