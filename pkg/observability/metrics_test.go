package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RowsIngestedTotal.WithLabelValues("ads").Add(10)
	m.RowsSkippedTotal.WithLabelValues("ads").Inc()
	m.ResolutionsTotal.WithLabelValues("new_record").Inc()
	m.PendingReviewCases.Set(3)
	m.ReportBuildsTotal.Inc()

	assert.InDelta(t, 10.0, testutil.ToFloat64(m.RowsIngestedTotal.WithLabelValues("ads")), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.PendingReviewCases), 1e-9)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewMetricsSeparateRegistries(t *testing.T) {
	// Two instances must not collide as long as they use their own registry.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.ReportBuildsTotal.Inc()
	assert.InDelta(t, 1.0, testutil.ToFloat64(a.ReportBuildsTotal), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.ReportBuildsTotal), 1e-9)
}
