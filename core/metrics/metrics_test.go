package metrics_test

import (
	"errors"
	"testing"

	"collection-engine/core/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	rec.ObserveLoad("Order.lines", nil)
	rec.ObserveLoad("Order.lines", nil)
	rec.ObserveLoad("Order.lines", errors.New("boom"))
	rec.ObserveProbe("Order.lines", "size")
	rec.ObserveRows("Order.lines", "insert_row", 3)
	rec.ObserveRows("Order.lines", "delete_row", 0)
	rec.ObserveCache("Order.lines", true)
	rec.ObserveCache("Order.lines", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.LoadsTotal.WithLabelValues("Order.lines", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.LoadsTotal.WithLabelValues("Order.lines", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.ProbesTotal.WithLabelValues("Order.lines", "size")))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.RowsFlushedTotal.WithLabelValues("Order.lines", "insert_row")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.RowsFlushedTotal), "Zero-row observations are not recorded")
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.CacheLookupsTotal.WithLabelValues("Order.lines", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.CacheLookupsTotal.WithLabelValues("Order.lines", "miss")))
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *metrics.Recorder
	assert.NotPanics(t, func() {
		rec.ObserveLoad("r", nil)
		rec.ObserveProbe("r", "contains")
		rec.ObserveRows("r", "update_row", 1)
		rec.ObserveCache("r", true)
	})
}
