package service

import (
	"context"

	"MarketRegime/internal/domain/models"
)

// IndicatorEvaluator computes one indicator response for a lookback window.
// It never fails: live errors degrade to a historical-only response.
type IndicatorEvaluator interface {
	Evaluate(ctx context.Context, indicator string, lookback models.Lookback) (*models.IndicatorResponse, bool)
	Catalog() []models.IndicatorInfo
}
