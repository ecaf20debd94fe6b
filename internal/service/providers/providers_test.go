package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"MarketRegime/pkg/cache"
	"MarketRegime/pkg/config"
	xhttp "MarketRegime/pkg/http"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func fakeServer(t *testing.T, hits *int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testBase(name, url string, opts ...BaseOption) *Base {
	return NewBase(name, url, xhttp.NewClient(xhttp.WithTimeout(2*time.Second)), opts...)
}

func TestMarketChartAdapter_Fetch(t *testing.T) {
	d1 := day(2026, 10, 13).UnixMilli()
	d2 := day(2026, 10, 14).UnixMilli()
	intraday := testNow.Add(-time.Hour).UnixMilli()
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "max", r.URL.Query().Get("days"))
		assert.Equal(t, "secret", r.Header.Get("x-cg-demo-api-key"))
		fmt.Fprintf(w, `{"prices":[[%d,1]],"market_caps":[[%d,2.0e12],[%d,1.9e12],[%d,2.1e12],[%d,2.2e12]]}`,
			d1, d2, d1, testNow.Add(-2*time.Hour).UnixMilli(), intraday)
	})

	a := NewMarketChartAdapter(testBase("coingecko", srv.URL, WithAPIKey("x-cg-demo-api-key", "secret")), "crypto_cap", "bitcoin", "market_caps")
	assert.Equal(t, "crypto_cap", a.Field())

	obs, err := a.Fetch(context.Background(), time.Time{}, testNow)
	require.NoError(t, err)
	require.Len(t, obs, 3)
	assert.Equal(t, day(2026, 10, 13), obs[0].Date)
	assert.Equal(t, 1.9e12, obs[0].Value)
	assert.Equal(t, day(2026, 10, 14), obs[1].Date)
	// same-day readings collapse to the last one
	assert.Equal(t, day(2026, 10, 15), obs[2].Date)
	assert.Equal(t, 2.2e12, obs[2].Value)
}

func TestMarketChartAdapter_DaysFromRange(t *testing.T) {
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "366", r.URL.Query().Get("days"))
		fmt.Fprintf(w, `{"prices":[[%d,100]]}`, day(2026, 10, 1).UnixMilli())
	})
	a := NewMarketChartAdapter(testBase("coingecko", srv.URL), "btc", "bitcoin", "")
	obs, err := a.Fetch(context.Background(), day(2025, 10, 15), testNow)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 100.0, obs[0].Value)
}

func TestMarketChartAdapter_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want error
	}{
		{"error field", `{"error":"coin not found"}`, 200, ErrProviderError},
		{"status error", `{"status":{"error_code":429,"error_message":"rate limited"}}`, 200, ErrProviderError},
		{"missing series", `{"prices":[[1,2]]}`, 200, ErrMalformedResponse},
		{"short row", `{"market_caps":[[1700000000000]]}`, 200, ErrMalformedResponse},
		{"null value", `{"market_caps":[[1700000000000,null]]}`, 200, ErrMalformedResponse},
		{"not json", `<html>`, 200, ErrMalformedResponse},
		{"empty", `{"market_caps":[]}`, 200, ErrEmptyPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})
			a := NewMarketChartAdapter(testBase("coingecko", srv.URL), "crypto_cap", "bitcoin", "market_caps")
			_, err := a.Fetch(context.Background(), time.Time{}, testNow)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMarketChartAdapter_StatusError(t *testing.T) {
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	a := NewMarketChartAdapter(testBase("coingecko", srv.URL), "crypto_cap", "bitcoin", "market_caps")
	_, err := a.Fetch(context.Background(), time.Time{}, testNow)

	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestMarketChartAdapter_OutsideRangeIsEmpty(t *testing.T) {
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"prices":[[%d,100]]}`, day(2020, 1, 1).UnixMilli())
	})
	a := NewMarketChartAdapter(testBase("coingecko", srv.URL), "btc", "bitcoin", "prices")
	_, err := a.Fetch(context.Background(), day(2025, 10, 15), testNow)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestChartAdapter_Fetch(t *testing.T) {
	ts := []int64{
		day(2026, 10, 12).Add(13 * time.Hour).Unix(),
		day(2026, 10, 13).Add(13 * time.Hour).Unix(),
		day(2026, 10, 14).Add(13 * time.Hour).Unix(),
	}
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/^GSPC", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, fmt.Sprint(day(2026, 10, 1).Unix()), r.URL.Query().Get("period1"))
		fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"symbol":"^GSPC"},"timestamp":[%d,%d,%d],
			"indicators":{"quote":[{"close":[5800.5,null,5850.25]}]}}],"error":null}}`, ts[0], ts[1], ts[2])
	})

	a := NewChartAdapter(testBase("yahoo", srv.URL), "spx", "^GSPC")
	obs, err := a.Fetch(context.Background(), day(2026, 10, 1), testNow)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, day(2026, 10, 12), obs[0].Date)
	assert.Equal(t, 5800.5, obs[0].Value)
	assert.Equal(t, day(2026, 10, 14), obs[1].Date)
	assert.Equal(t, 5850.25, obs[1].Value)
}

func TestChartAdapter_MaxRange(t *testing.T) {
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "max", r.URL.Query().Get("range"))
		assert.Empty(t, r.URL.Query().Get("period1"))
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d],"indicators":{"quote":[{"close":[18.2]}]}}],"error":null}}`,
			day(2026, 10, 14).Unix())
	})
	a := NewChartAdapter(testBase("yahoo", srv.URL), "vix", "^VIX")
	obs, err := a.Fetch(context.Background(), time.Time{}, testNow)
	require.NoError(t, err)
	require.Len(t, obs, 1)
}

func TestChartAdapter_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"chart error", `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, ErrProviderError},
		{"no result", `{"chart":{"result":[],"error":null}}`, ErrEmptyPayload},
		{"no chart", `{"finance":{}}`, ErrMalformedResponse},
		{"no quote", `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[]}}],"error":null}}`, ErrMalformedResponse},
		{"length mismatch", `{"chart":{"result":[{"timestamp":[1,2],"indicators":{"quote":[{"close":[1]}]}}],"error":null}}`, ErrMalformedResponse},
		{"all null", `{"chart":{"result":[{"timestamp":[1760486400],"indicators":{"quote":[{"close":[null]}]}}],"error":null}}`, ErrEmptyPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			a := NewChartAdapter(testBase("yahoo", srv.URL), "spx", "^GSPC")
			_, err := a.Fetch(context.Background(), time.Time{}, testNow)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSpotAdapter_Fetch(t *testing.T) {
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price/XAU", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"Gold","price":2411.3,"symbol":"XAU"}`))
	})
	a := NewSpotAdapter(testBase("metals", srv.URL), "gold", "XAU", 2350, nil)
	obs, err := a.Fetch(context.Background(), time.Time{}, testNow)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, day(2026, 10, 15), obs[0].Date)
	assert.Equal(t, 2411.3, obs[0].Value)
}

func TestSpotAdapter_Fallback(t *testing.T) {
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	withFallback := NewSpotAdapter(testBase("metals", srv.URL), "gold", "XAU", 2350, nil)
	obs, err := withFallback.Fetch(context.Background(), time.Time{}, testNow)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 2350.0, obs[0].Value)

	without := NewSpotAdapter(testBase("metals", srv.URL), "gold", "XAU", 0, nil)
	_, err = without.Fetch(context.Background(), time.Time{}, testNow)
	assert.Error(t, err)
}

func TestSpotAdapter_Rejects(t *testing.T) {
	for body, want := range map[string]error{
		`{"error":"symbol not supported"}`: ErrProviderError,
		`{"name":"Gold"}`:                  ErrEmptyPayload,
		`{"price":-1}`:                     ErrMalformedResponse,
		`[1,2]`:                            ErrMalformedResponse,
	} {
		srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		a := NewSpotAdapter(testBase("metals", srv.URL), "gold", "XAU", 0, nil)
		_, err := a.Fetch(context.Background(), time.Time{}, testNow)
		assert.ErrorIs(t, err, want, body)
	}
}

func TestBase_CachesOnlyValidBodies(t *testing.T) {
	var hits int32
	valid := int32(1)
	srv := fakeServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&valid) == 0 {
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		_, _ = w.Write([]byte(`{"price":2400}`))
	})
	mem := cache.NewMemoryCache()
	defer mem.Close()

	a := NewSpotAdapter(testBase("metals", srv.URL, WithCache(mem, time.Minute)), "gold", "XAU", 0, nil)
	for i := 0; i < 3; i++ {
		obs, err := a.Fetch(context.Background(), time.Time{}, testNow)
		require.NoError(t, err)
		assert.Equal(t, 2400.0, obs[0].Value)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	atomic.StoreInt32(&valid, 0)
	b := NewChartAdapter(testBase("yahoo", srv.URL, WithCache(mem, time.Minute)), "spx", "^GSPC")
	for i := 0; i < 2; i++ {
		_, err := b.Fetch(context.Background(), time.Time{}, testNow)
		require.Error(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestBase_BreakerOpens(t *testing.T) {
	var hits int32
	srv := fakeServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	base := testBase("yahoo", srv.URL, WithBreaker(BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}))
	a := NewChartAdapter(base, "spx", "^GSPC")

	for i := 0; i < 2; i++ {
		_, err := a.Fetch(context.Background(), time.Time{}, testNow)
		require.Error(t, err)
	}
	_, err := a.Fetch(context.Background(), time.Time{}, testNow)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestChartAdapter_CacheKeyStableWithinDay(t *testing.T) {
	var hits int32
	srv := fakeServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprint(day(2026, 10, 16).Unix()), r.URL.Query().Get("period2"))
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d],"indicators":{"quote":[{"close":[5850.25]}]}}],"error":null}}`,
			day(2026, 10, 14).Add(13*time.Hour).Unix())
	})
	mem := cache.NewMemoryCache()
	defer mem.Close()

	a := NewChartAdapter(testBase("yahoo", srv.URL, WithCache(mem, time.Minute)), "spx", "^GSPC")
	for _, to := range []time.Time{testNow, testNow.Add(time.Second), testNow.Add(3 * time.Hour)} {
		obs, err := a.Fetch(context.Background(), day(2025, 10, 15), to)
		require.NoError(t, err)
		require.Len(t, obs, 1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestBase_CancelledCallsDoNotOpenBreaker(t *testing.T) {
	var stall int32 = 1
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&stall) == 1 {
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`{"price":2411.3}`))
	})
	base := testBase("metals", srv.URL, WithBreaker(BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}))
	a := NewSpotAdapter(base, "gold", "XAU", 2350, nil)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := a.Fetch(ctx, time.Time{}, testNow)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		cancel()
	}

	atomic.StoreInt32(&stall, 0)
	obs, err := a.Fetch(context.Background(), time.Time{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2411.3, obs[0].Value)
}

func TestBase_ClientTimeoutsOpenBreaker(t *testing.T) {
	srv := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	client := xhttp.NewClient(xhttp.WithTimeout(20 * time.Millisecond))
	base := NewBase("metals", srv.URL, client, WithBreaker(BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}))

	for i := 0; i < 2; i++ {
		_, err := base.Get(context.Background(), "/price/XAU", nil, nil)
		require.Error(t, err)
	}
	_, err := base.Get(context.Background(), "/price/XAU", nil, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBase_MissingBaseURL(t *testing.T) {
	_, err := testBase("yahoo", "").Get(context.Background(), "/x", nil, nil)
	assert.Error(t, err)
}

func TestRegistry_Adapters(t *testing.T) {
	reg := NewRegistryFromBases(map[string]*Base{
		ProviderCoinGecko: testBase(ProviderCoinGecko, "http://cg"),
		ProviderMetals:    testBase(ProviderMetals, "http://metals"),
	}, nil)

	ic := config.IndicatorConfig{
		Name: "alchemy",
		Sources: []config.SourceConfig{
			{Field: "gold", Provider: ProviderMetals, Kind: config.SourceSpot, ID: "XAU", Fallback: 2350},
			{Field: "crypto_cap", Provider: ProviderCoinGecko, Kind: config.SourceMarketChart, ID: "bitcoin", Series: "market_caps", Primary: true},
		},
	}
	adapters, err := reg.Adapters(ic)
	require.NoError(t, err)
	require.Len(t, adapters, 2)
	assert.Equal(t, "crypto_cap", adapters[0].Field())
	assert.IsType(t, &MarketChartAdapter{}, adapters[0])
	assert.IsType(t, &SpotAdapter{}, adapters[1])

	ic.Sources = append(ic.Sources, config.SourceConfig{Field: "spx", Provider: ProviderYahoo, Kind: config.SourceChart, ID: "^GSPC"})
	_, err = reg.Adapters(ic)
	assert.Error(t, err)
}
