// Package integrity provides health checks for the collection engine.
//
// # Checks Provided
//
//   - Schema: Validates that the collection row table matches the CollectionRow
//     model (columns, types). Columns without an explicit type are only checked
//     for existence.
//   - Cache: Loads one collection straight from its rows and compares it with
//     the cache region entry. Bags and sets are compared regardless of order.
//
// # HTTP Endpoints
//
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/cache/:role/:owner : Runs the cache check (supports ?fix=true to evict a stale entry).
package integrity
