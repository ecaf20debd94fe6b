package providers

import (
	"fmt"

	drepo "MarketRegime/internal/domain/repository"
	"MarketRegime/pkg/cache"
	"MarketRegime/pkg/config"
	xhttp "MarketRegime/pkg/http"
	applogger "MarketRegime/pkg/logger"
)

const (
	ProviderCoinGecko = "coingecko"
	ProviderYahoo     = "yahoo"
	ProviderMetals    = "metals"
)

// Registry holds one Base per provider and builds adapters from source bindings.
type Registry struct {
	bases  map[string]*Base
	logger *applogger.Logger
}

// NewRegistry builds a Base for every configured provider sharing the client and cache.
func NewRegistry(cfg *config.Config, client *xhttp.Client, c cache.Service, logger *applogger.Logger) *Registry {
	if logger == nil {
		logger = applogger.Nop()
	}
	breaker := BreakerSettings{
		ConsecutiveFailures: cfg.HTTP.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.HTTP.Breaker.OpenTimeout,
		Interval:            cfg.HTTP.Breaker.Interval,
	}
	build := func(name string, pc config.ProviderConfig) *Base {
		opts := []BaseOption{
			WithRateLimit(cfg.HTTP.RPS, cfg.HTTP.Burst),
			WithBreaker(breaker),
			WithLogger(logger),
		}
		if pc.APIKey != "" {
			opts = append(opts, WithAPIKey(pc.APIKeyHeader, pc.APIKey))
		}
		if c != nil {
			opts = append(opts, WithCache(c, cfg.Cache.TTL))
		}
		return NewBase(name, pc.BaseURL, client, opts...)
	}
	return &Registry{
		bases: map[string]*Base{
			ProviderCoinGecko: build(ProviderCoinGecko, cfg.Providers.CoinGecko),
			ProviderYahoo:     build(ProviderYahoo, cfg.Providers.Yahoo),
			ProviderMetals:    build(ProviderMetals, cfg.Providers.Metals),
		},
		logger: logger,
	}
}

// NewRegistryFromBases is used by tests that point providers at fake servers.
func NewRegistryFromBases(bases map[string]*Base, logger *applogger.Logger) *Registry {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Registry{bases: bases, logger: logger}
}

// Adapter builds the adapter for one source binding.
func (r *Registry) Adapter(src config.SourceConfig) (drepo.SourceAdapter, error) {
	base, ok := r.bases[src.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", src.Provider)
	}
	switch src.Kind {
	case config.SourceMarketChart:
		return NewMarketChartAdapter(base, src.Field, src.ID, src.Series), nil
	case config.SourceSpot:
		return NewSpotAdapter(base, src.Field, src.ID, src.Fallback, r.logger), nil
	case config.SourceChart:
		return NewChartAdapter(base, src.Field, src.ID), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// Adapters builds every source of an indicator, primary first.
func (r *Registry) Adapters(ic config.IndicatorConfig) ([]drepo.SourceAdapter, error) {
	out := make([]drepo.SourceAdapter, 0, len(ic.Sources))
	for _, primary := range []bool{true, false} {
		for _, src := range ic.Sources {
			if src.Primary != primary {
				continue
			}
			a, err := r.Adapter(src)
			if err != nil {
				return nil, fmt.Errorf("indicator %s field %s: %w", ic.Name, src.Field, err)
			}
			out = append(out, a)
		}
	}
	return out, nil
}
