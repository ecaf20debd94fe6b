package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"MarketRegime/internal/domain/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvaluator struct {
	calls []models.Lookback
}

func (f *fakeEvaluator) Evaluate(_ context.Context, name string, lb models.Lookback) (*models.IndicatorResponse, bool) {
	if name != "line" && name != "echo" {
		return nil, false
	}
	f.calls = append(f.calls, lb)
	return &models.IndicatorResponse{
		History:     []models.HistoryEntry{{Date: "2025-01-01", Values: map[string]float64{"ratio": 2.24, "spx": 5881.63, "gold": 2625}}},
		Current:     models.CurrentReading{Scalar: "ratio", Value: 2.24, Regime: models.RegimeAbove},
		Bands:       models.BandsView{Upper2: 3, Upper1: 2, Mean: 1, Lower1: 0.5, Lower2: 0.1},
		Extremes:    []models.ExtremeView{},
		LastUpdated: "2026-10-15T14:30:00Z",
		DataSource:  models.DataSourceFallback,
		Error:       "live data unavailable: yahoo:GC=F: upstream 503",
	}, true
}

func (f *fakeEvaluator) Catalog() []models.IndicatorInfo {
	return []models.IndicatorInfo{
		{Name: "line", Title: "Equities vs gold", Scalar: "ratio", Classifier: "threshold", Threshold: 1.5, Fields: []string{"spx", "gold"}},
		{Name: "echo", Title: "Macro stress echo", Scalar: "index", Classifier: "bands", Fields: []string{"vix", "move"}},
	}
}

func newTestEcho(ev *fakeEvaluator) *echo.Echo {
	e := echo.New()
	NewIndicatorsEchoHandler(nil, ev).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIndicator_Success(t *testing.T) {
	ev := &fakeEvaluator{}
	rec := do(newTestEcho(ev), "/api/indicators/line?range=5y")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get(echo.HeaderCacheControl))
	assert.Equal(t, []models.Lookback{models.Lookback5Y}, ev.calls)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fallback", body["dataSource"])
	assert.Contains(t, body["error"], "upstream 503")
	current := body["current"].(map[string]interface{})
	assert.Equal(t, 2.24, current["ratio"])
	assert.Equal(t, "above", current["regime"])
	history := body["history"].([]interface{})
	require.Len(t, history, 1)
	assert.Equal(t, "2025-01-01", history[0].(map[string]interface{})["date"])
}

func TestIndicator_Alias(t *testing.T) {
	ev := &fakeEvaluator{}
	rec := do(newTestEcho(ev), "/api/echo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.Lookback{models.LookbackMax}, ev.calls)
}

func TestIndicator_InvalidRangeStill200(t *testing.T) {
	ev := &fakeEvaluator{}
	rec := do(newTestEcho(ev), "/api/indicators/line?range=7w")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ev.calls, 1)
	assert.Equal(t, models.Lookback(""), ev.calls[0])
}

func TestIndicator_Unknown(t *testing.T) {
	rec := do(newTestEcho(&fakeEvaluator{}), "/api/indicators/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Status int `json:"status"`
		Data   []struct {
			Code   string                 `json:"code"`
			Params map[string]interface{} `json:"params"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_NOT_FOUND", body.Data[0].Code)
	assert.Equal(t, "nope", body.Data[0].Params["name"])
}

func TestCatalog(t *testing.T) {
	rec := do(newTestEcho(&fakeEvaluator{}), "/api/indicators")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.IndicatorInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "line", body.Data[0].Name)
	assert.Equal(t, 1.5, body.Data[0].Threshold)
}
