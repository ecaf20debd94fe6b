package models

import (
	"math"
	"sort"
	"time"
)

// Provenance tags where a point came from.
type Provenance string

const (
	ProvenanceHistorical Provenance = "historical"
	ProvenanceLive       Provenance = "live"
)

// Point is one calendar day of raw indicator inputs. Treat as immutable.
type Point struct {
	Date   time.Time
	Fields map[string]float64
	Source Provenance
}

// Field returns the named raw input.
func (p Point) Field(name string) (float64, bool) {
	v, ok := p.Fields[name]
	return v, ok
}

// FieldNames returns the point's field names in sorted order.
func (p Point) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Observation is a single normalized value returned by a source adapter.
type Observation struct {
	Date  time.Time
	Value float64
}

// DerivedPoint is a fused point plus its computed scalar (unrounded).
type DerivedPoint struct {
	Point
	Value float64
}

// Bands are the whole-sample statistical thresholds of a derived series.
type Bands struct {
	Mean   float64
	SD     float64
	Upper1 float64
	Upper2 float64
	Lower1 float64
	Lower2 float64
}

// Regime is the classified state of the latest scalar.
type Regime string

const (
	RegimeExpansion   Regime = "expansion"
	RegimeContraction Regime = "contraction"
	RegimeNeutral     Regime = "neutral"
	RegimeAbove       Regime = "above"
	RegimeBreached    Regime = "breached"
)

// ExtremeEvent marks a derived point beyond the 2-sigma bands.
type ExtremeEvent struct {
	Date  time.Time
	Value float64
	Label string
}

// DataSource tells whether a response was built from live data.
type DataSource string

const (
	DataSourceLive     DataSource = "live"
	DataSourceFallback DataSource = "fallback"
)

// Round rounds v to the given number of decimal places.
func Round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}
