package di

import (
	"fmt"

	"MarketRegime/internal/domain/repository"
	"MarketRegime/internal/handler/api"
	"MarketRegime/internal/repository/anchors"
	"MarketRegime/internal/service/providers"
	"MarketRegime/internal/usecase"
	"MarketRegime/pkg/cache"
	"MarketRegime/pkg/config"
	xhttp "MarketRegime/pkg/http"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/metrics"
	"MarketRegime/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const userAgent = "market-regime/1.0"

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvidePrometheusRegistry creates the registry served at the metrics path.
func ProvidePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCache creates the provider response cache for the configured backend.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	memory := func() *cache.MemoryCache {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	}
	if cfg.Cache.Backend == "memory" {
		return memory(), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		// cache is an optimisation; keep serving without redis
		l.Warn("redis unavailable, using memory cache",
			applogger.String("addr", fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port)),
			applogger.Error(err))
		return memory(), nil
	}
	if cfg.Cache.Backend == "layered" {
		return cache.NewLayeredCache(rc, cfg.Cache.MemoryMaxSize, cfg.Cache.TTL), nil
	}
	return rc, nil
}

// ProvideHTTPClient creates the outbound client shared by every provider.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.HTTP.Timeout), xhttp.WithUserAgent(userAgent))
}

// ProvideProviderRegistry builds one throttled, circuit-broken transport per upstream.
func ProvideProviderRegistry(cfg *config.Config, client *xhttp.Client, c cache.Service, l *applogger.Logger) *providers.Registry {
	return providers.NewRegistry(cfg, client, c, l)
}

// ProvideAnchorTables loads the embedded anchor tables.
func ProvideAnchorTables() ([]repository.AnchorTable, error) {
	all, err := anchors.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("anchor tables: %w", err)
	}
	out := make([]repository.AnchorTable, 0, len(all))
	for _, t := range all {
		out = append(out, t)
	}
	return out, nil
}

// ProvideIndicatorService creates the indicator use case.
func ProvideIndicatorService(
	cfg *config.Config,
	tables []repository.AnchorTable,
	factory usecase.AdapterFactory,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.IndicatorService, error) {
	return usecase.NewIndicatorService(cfg, tables, factory, m, l)
}

// ProvideHTTPHandler creates the indicator routes.
func ProvideHTTPHandler(l *applogger.Logger, svc *usecase.IndicatorService) xhttp.Handler {
	return api.NewIndicatorsEchoHandler(l, svc)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, srv *xhttp.Server, c cache.Service, l *applogger.Logger) *server.App {
	return server.New(cfg, srv, c, l)
}
