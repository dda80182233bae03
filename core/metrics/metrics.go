package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "collection_engine"

	collectionSubsystem = "collection"
	cacheSubsystem      = "cache"
)

// Recorder holds the engine counters.
type Recorder struct {
	// LoadsTotal counts collection loads by role and outcome.
	// Labels: role, status (success, error)
	LoadsTotal *prometheus.CounterVec

	// ProbesTotal counts store probes by role and kind.
	// Labels: role, kind (size, contains)
	ProbesTotal *prometheus.CounterVec

	// RowsFlushedTotal counts executed row mutations.
	// Labels: role, action (delete_row, update_row, insert_row)
	RowsFlushedTotal *prometheus.CounterVec

	// CacheLookupsTotal counts second-level cache lookups.
	// Labels: role, result (hit, miss)
	CacheLookupsTotal *prometheus.CounterVec
}

// New creates a Recorder and registers its counters with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		LoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: collectionSubsystem,
			Name:      "loads_total",
			Help:      "Collection loads by role and status.",
		}, []string{"role", "status"}),
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: collectionSubsystem,
			Name:      "probes_total",
			Help:      "Size and containment probes answered without a load.",
		}, []string{"role", "kind"}),
		RowsFlushedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: collectionSubsystem,
			Name:      "rows_flushed_total",
			Help:      "Row mutations written to the store.",
		}, []string{"role", "action"}),
		CacheLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: cacheSubsystem,
			Name:      "lookups_total",
			Help:      "Second-level cache lookups by result.",
		}, []string{"role", "result"}),
	}
}

// ObserveLoad records one load attempt.
func (r *Recorder) ObserveLoad(role string, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.LoadsTotal.WithLabelValues(role, status).Inc()
}

// ObserveProbe records one answered probe.
func (r *Recorder) ObserveProbe(role, kind string) {
	if r == nil {
		return
	}
	r.ProbesTotal.WithLabelValues(role, kind).Inc()
}

// ObserveRows records n executed row mutations of one action type.
func (r *Recorder) ObserveRows(role, action string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.RowsFlushedTotal.WithLabelValues(role, action).Add(float64(n))
}

// ObserveCache records a cache hit or miss.
func (r *Recorder) ObserveCache(role string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookupsTotal.WithLabelValues(role, result).Inc()
}
