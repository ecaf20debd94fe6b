package repository

import (
	"context"
	"time"

	"MarketRegime/internal/domain/models"
)

// SourceAdapter fetches one live series from an upstream provider.
// Implementations return an ascending, non-empty series or an error; never a partial parse.
type SourceAdapter interface {
	Name() string
	Field() string
	Fetch(ctx context.Context, from, to time.Time) ([]models.Observation, error)
}

// AnchorTable is the curated, read-only history of one indicator.
type AnchorTable interface {
	Indicator() string
	Version() int
	// Fields lists the raw input names every anchor carries.
	Fields() []string
	Anchors() []models.Point
}

// Metrics records indicator runs, adapter failures and latencies.
type Metrics interface {
	RecordRun(indicator string, source models.DataSource)
	RecordAdapterError(adapter string)
	RecordLatency(op string, seconds float64)
	RecordScalar(indicator string, value float64)
}
