package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_IsolatedRegistries(t *testing.T) {
	// Two collectors on separate registries must not panic on duplicate registration
	a := NewCollector("lst_platform", prometheus.NewRegistry())
	b := NewCollector("lst_platform", prometheus.NewRegistry())

	a.RecordDaySkipped("not_found")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.DaysSkippedTotal.WithLabelValues("not_found")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DaysSkippedTotal.WithLabelValues("not_found")))
}

func TestCollector_Helpers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.RecordAPIRequest("/api/days", "GET", "200")
	c.RecordAPIError("not_found", "/api/sessions/{id}")
	c.RecordIngestionError("missing_day")
	c.RecordCacheLookup(true)
	c.RecordCacheLookup(false)
	c.RecordCacheLookup(false)
	c.RecordDBError("get_day")
	c.UpdateDBConnectionPool(2, 3, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/days", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIErrorsTotal.WithLabelValues("not_found", "/api/sessions/{id}")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.IngestionErrorsTotal.WithLabelValues("missing_day")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RenderCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.RenderCacheTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBErrorsTotal.WithLabelValues("get_day")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("total")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_render_cache_lookups_total"])
	assert.True(t, names["test_db_connection_pool"])
}

func TestTimer_ObservesIntoHistogram(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	timer := c.NewTimer(c.RenderDuration.WithLabelValues("heatmap"))
	d := timer.ObserveDuration()
	assert.GreaterOrEqual(t, d.Seconds(), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.RenderDuration))

	assert.NotPanics(t, func() { c.NewTimer(nil).ObserveDuration() })
}
