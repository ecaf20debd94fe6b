package metrics

import (
	"MarketRegime/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	adapterErrors *prometheus.CounterVec
	lastScalar    *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder whose collectors are registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regime_indicator_runs_total",
				Help: "Indicator computations by data source",
			},
			[]string{"indicator", "source"},
		),
		adapterErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regime_adapter_errors_total",
				Help: "Failed live fetches by source adapter",
			},
			[]string{"adapter"},
		),
		lastScalar: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regime_indicator_value",
				Help: "Last computed scalar for an indicator",
			},
			[]string{"indicator"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regime_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRun counts one indicator computation.
func (r *Recorder) RecordRun(indicator string, source models.DataSource) {
	r.runsTotal.WithLabelValues(indicator, string(source)).Inc()
}

// RecordAdapterError counts a failed live fetch.
func (r *Recorder) RecordAdapterError(adapter string) {
	r.adapterErrors.WithLabelValues(adapter).Inc()
}

// RecordScalar records the latest scalar for an indicator.
func (r *Recorder) RecordScalar(indicator string, value float64) {
	r.lastScalar.WithLabelValues(indicator).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
