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

// MarketChartAdapter reads one series ("prices", "market_caps", "total_volumes")
// from a CoinGecko-style /coins/{id}/market_chart endpoint of [ms, value] pairs.
type MarketChartAdapter struct {
	base   *Base
	field  string
	id     string
	series string
}

// NewMarketChartAdapter reads series of coin id into field. An empty series means "prices".
func NewMarketChartAdapter(base *Base, field, id, series string) *MarketChartAdapter {
	if series == "" {
		series = "prices"
	}
	return &MarketChartAdapter{base: base, field: field, id: id, series: series}
}

func (a *MarketChartAdapter) Name() string { return a.base.Name() + ":" + a.id + ":" + a.series }

func (a *MarketChartAdapter) Field() string { return a.field }

func (a *MarketChartAdapter) Fetch(ctx context.Context, from, to time.Time) ([]models.Observation, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("interval", "daily")
	q.Set("days", daysParam(from, to))

	body, err := a.base.Get(ctx, "/coins/"+url.PathEscape(a.id)+"/market_chart", q, func(b []byte) error {
		_, perr := a.parse(b)
		return perr
	})
	if err != nil {
		return nil, err
	}
	rows, err := a.parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}

	obs := make([]models.Observation, 0, len(rows))
	for _, r := range rows {
		obs = append(obs, models.Observation{Date: util.FromUnixMillis(int64(*r[0])), Value: *r[1]})
	}
	obs = normalize(obs, util.Day(from), util.Day(to))
	if len(obs) == 0 {
		return nil, fmt.Errorf("%s: %w", a.Name(), ErrEmptyPayload)
	}
	return obs, nil
}

func (a *MarketChartAdapter) parse(b []byte) ([][]*float64, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if e, ok := raw["error"]; ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderError, string(e))
	}
	if s, ok := raw["status"]; ok {
		var st struct {
			ErrorCode    int    `json:"error_code"`
			ErrorMessage string `json:"error_message"`
		}
		if err := json.Unmarshal(s, &st); err == nil && st.ErrorCode != 0 {
			return nil, fmt.Errorf("%w: %d %s", ErrProviderError, st.ErrorCode, st.ErrorMessage)
		}
	}
	series, ok := raw[a.series]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedResponse, a.series)
	}
	var rows [][]*float64
	if err := json.Unmarshal(series, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, a.series, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, a.series)
	}
	for i, r := range rows {
		if len(r) != 2 || r[0] == nil || r[1] == nil {
			return nil, fmt.Errorf("%w: %s row %d", ErrMalformedResponse, a.series, i)
		}
		if math.IsNaN(*r[1]) || math.IsInf(*r[1], 0) {
			return nil, fmt.Errorf("%w: %s row %d not finite", ErrMalformedResponse, a.series, i)
		}
	}
	return rows, nil
}

// daysParam converts a range to CoinGecko's "days" argument.
func daysParam(from, to time.Time) string {
	if from.IsZero() {
		return "max"
	}
	days := int(math.Ceil(to.Sub(from).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return strconv.Itoa(days)
}

var _ drepo.SourceAdapter = (*MarketChartAdapter)(nil)
