package models

import "encoding/json"

// IndicatorRequest is the query accepted by every indicator route.
type IndicatorRequest struct {
	Range string `query:"range" json:"range" default:"max" validate:"omitempty,oneof=1y 3y 5y 10y max"`
}

// IndicatorResponse is the wire contract shared by all indicator routes.
type IndicatorResponse struct {
	History     []HistoryEntry `json:"history"`
	Current     CurrentReading `json:"current"`
	Bands       BandsView      `json:"bands"`
	Extremes    []ExtremeView  `json:"extremes"`
	LastUpdated string         `json:"lastUpdated"`
	DataSource  DataSource     `json:"dataSource"`
	Error       string         `json:"error,omitempty"`
}

// HistoryEntry is one row of the history array: date, scalar and raw inputs.
type HistoryEntry struct {
	Date   string
	Values map[string]float64
}

func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(h.Values)+1)
	for k, v := range h.Values {
		m[k] = v
	}
	m["date"] = h.Date
	return json.Marshal(m)
}

// CurrentReading renders as {"<scalar>": value, "regime": "..."}.
type CurrentReading struct {
	Scalar string
	Value  float64
	Regime Regime
}

func (c CurrentReading) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		c.Scalar: c.Value,
		"regime": c.Regime,
	})
}

// BandsView holds the mean and the ±1σ/±2σ levels, rounded like the scalar.
type BandsView struct {
	Upper2 float64 `json:"upper2"`
	Upper1 float64 `json:"upper1"`
	Mean   float64 `json:"mean"`
	Lower1 float64 `json:"lower1"`
	Lower2 float64 `json:"lower2"`
}

// ExtremeView is one ±2σ breach.
type ExtremeView struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// IndicatorInfo is one row of the indicator catalog.
type IndicatorInfo struct {
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Scalar     string   `json:"scalar"`
	Classifier string   `json:"classifier"`
	Threshold  float64  `json:"threshold,omitempty"`
	Fields     []string `json:"fields"`
}
