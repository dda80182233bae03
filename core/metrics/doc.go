// Package metrics exposes Prometheus counters for the collection engine.
//
// A Recorder counts collection loads, load failures, store probes, flushed rows
// by action and second-level cache lookups. All methods are safe on a nil
// *Recorder, so components can take an optional recorder without nil checks.
//
// # Usage Example
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.New(reg)
//	rec.ObserveLoad("Order.lines", nil)
//
// The server exposes the registry on /metrics.
package metrics
