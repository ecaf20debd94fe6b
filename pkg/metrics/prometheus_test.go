package metrics

import (
	"testing"

	"MarketRegime/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordRun("line", models.DataSourceLive)
	r.RecordRun("line", models.DataSourceFallback)
	r.RecordRun("line", models.DataSourceFallback)
	r.RecordAdapterError("yahoo:^GSPC")
	r.RecordScalar("echo", 42.5)
	r.RecordLatency("indicator.line", 0.12)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("line", "live")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("line", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.adapterErrors.WithLabelValues("yahoo:^GSPC")))
	assert.Equal(t, 42.5, testutil.ToFloat64(r.lastScalar.WithLabelValues("echo")))

	n, err := testutil.GatherAndCount(reg, "regime_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
