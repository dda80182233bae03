// Package cacheregion implements the second-level collection cache on object
// storage.
//
// A Region keeps one JSON object per collection under
// <prefix><Owner>.<property>/<owner id>.json holding the tokens produced by
// PersistentCollection.Disassemble. Sessions of feature/store read it before
// loading rows and write it after a successful flush.
//
// Reads are mirrored in memory for a configurable TTL. Concurrent misses for the
// same object are collapsed with singleflight, so a burst of requests for one
// hot collection costs one GetObject.
//
// Tokens go through encoding/json, so numeric tokens come back as float64. The
// value types in core/valuetype normalize them on Assemble.
package cacheregion
