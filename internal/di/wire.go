//go:build wireinject
// +build wireinject

package di

import (
	"MarketRegime/internal/service/providers"
	"MarketRegime/internal/usecase"
	"MarketRegime/pkg/config"
	"MarketRegime/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvidePrometheusRegistry,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideHTTPClient,
		ProvideProviderRegistry,
		wire.Bind(new(usecase.AdapterFactory), new(*providers.Registry)),
		ProvideAnchorTables,

		// Use cases
		ProvideIndicatorService,

		// Transport
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
