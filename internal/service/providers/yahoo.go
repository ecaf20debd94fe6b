package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"MarketRegime/internal/domain/models"
	drepo "MarketRegime/internal/domain/repository"
	"MarketRegime/pkg/util"
)

// ChartAdapter reads daily closes from a Yahoo-style /v8/finance/chart/{symbol} endpoint.
type ChartAdapter struct {
	base   *Base
	field  string
	symbol string
}

// NewChartAdapter reads symbol's daily closes into field.
func NewChartAdapter(base *Base, field, symbol string) *ChartAdapter {
	return &ChartAdapter{base: base, field: field, symbol: symbol}
}

func (a *ChartAdapter) Name() string { return a.base.Name() + ":" + a.symbol }

func (a *ChartAdapter) Field() string { return a.field }

type chartEnvelope struct {
	Chart *struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (a *ChartAdapter) Fetch(ctx context.Context, from, to time.Time) ([]models.Observation, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	if from.IsZero() {
		q.Set("range", "max")
	} else {
		q.Set("period1", strconv.FormatInt(util.Day(from).Unix(), 10))
		// end on the next day boundary so the cache key is stable within a day
		q.Set("period2", strconv.FormatInt(util.Day(to).AddDate(0, 0, 1).Unix(), 10))
	}

	body, err := a.base.Get(ctx, "/v8/finance/chart/"+url.PathEscape(a.symbol), q, func(b []byte) error {
		_, perr := parseChart(b)
		return perr
	})
	if err != nil {
		return nil, err
	}
	obs, err := parseChart(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}
	obs = normalize(obs, util.Day(from), util.Day(to))
	if len(obs) == 0 {
		return nil, fmt.Errorf("%s: %w", a.Name(), ErrEmptyPayload)
	}
	return obs, nil
}

func parseChart(b []byte) ([]models.Observation, error) {
	var env chartEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Chart == nil {
		return nil, fmt.Errorf("%w: missing chart", ErrMalformedResponse)
	}
	if e := env.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrProviderError, e.Code, e.Description)
	}
	if len(env.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no chart result", ErrEmptyPayload)
	}
	res := env.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: missing quote", ErrMalformedResponse)
	}
	closes := res.Indicators.Quote[0].Close
	if len(closes) != len(res.Timestamp) {
		return nil, fmt.Errorf("%w: %d timestamps, %d closes", ErrMalformedResponse, len(res.Timestamp), len(closes))
	}

	obs := make([]models.Observation, 0, len(closes))
	for i, c := range closes {
		// halted sessions come back as null
		if c == nil || math.IsNaN(*c) || math.IsInf(*c, 0) {
			continue
		}
		obs = append(obs, models.Observation{Date: util.Day(time.Unix(res.Timestamp[i], 0)), Value: *c})
	}
	return obs, nil
}

var _ drepo.SourceAdapter = (*ChartAdapter)(nil)
