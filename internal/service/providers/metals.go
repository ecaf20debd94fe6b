package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"MarketRegime/internal/domain/models"
	drepo "MarketRegime/internal/domain/repository"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/util"
)

// SpotAdapter reads a single current price from a /price/{symbol} endpoint.
// When fallback is positive it stands in for the price if the provider fails.
type SpotAdapter struct {
	base     *Base
	field    string
	symbol   string
	fallback float64
	logger   *applogger.Logger
}

func NewSpotAdapter(base *Base, field, symbol string, fallback float64, logger *applogger.Logger) *SpotAdapter {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &SpotAdapter{base: base, field: field, symbol: symbol, fallback: fallback, logger: logger}
}

func (a *SpotAdapter) Name() string { return a.base.Name() + ":" + a.symbol }

func (a *SpotAdapter) Field() string { return a.field }

// Fetch returns one observation dated to the day of to. from is ignored.
func (a *SpotAdapter) Fetch(ctx context.Context, _, to time.Time) ([]models.Observation, error) {
	price, err := a.price(ctx)
	if err != nil {
		if a.fallback <= 0 || ctx.Err() != nil {
			return nil, err
		}
		a.logger.Warn("spot price unavailable, using configured fallback",
			applogger.String("adapter", a.Name()),
			applogger.Float64("fallback", a.fallback),
			applogger.Error(err))
		price = a.fallback
	}
	return []models.Observation{{Date: util.Day(to), Value: price}}, nil
}

func (a *SpotAdapter) price(ctx context.Context) (float64, error) {
	body, err := a.base.Get(ctx, "/price/"+url.PathEscape(a.symbol), nil, func(b []byte) error {
		_, perr := parseSpot(b)
		return perr
	})
	if err != nil {
		return 0, err
	}
	p, err := parseSpot(body)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", a.Name(), err)
	}
	return p, nil
}

func parseSpot(b []byte) (float64, error) {
	var body struct {
		Price *float64        `json:"price"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(body.Error) > 0 && string(body.Error) != "null" {
		return 0, fmt.Errorf("%w: %s", ErrProviderError, string(body.Error))
	}
	if body.Price == nil {
		return 0, fmt.Errorf("%w: missing price", ErrEmptyPayload)
	}
	p := *body.Price
	if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: price %v", ErrMalformedResponse, p)
	}
	return p, nil
}

var _ drepo.SourceAdapter = (*SpotAdapter)(nil)
