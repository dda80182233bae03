// Package inspect exposes persistent collections over HTTP.
//
// Every request opens its own store session, so responses reflect committed
// rows (or the cache region, when enabled) and never a half-flushed state.
//
// # Routes
//
//   - GET /collections/:role/:owner: loads the collection and returns its rows
//     with the reconcile summary.
//   - GET /collections/:role/:owner/size: element count. Extra-lazy roles answer
//     with a count query; "loaded" reports whether the elements were read.
//   - POST /collections/:role/:owner/changes: applies {"add", "remove", "put",
//     "remove_keys"} and flushes. With ?dry_run=true only the plan is returned.
//   - DELETE /collections/:role/cache: purges the cache region for the role.
//
// Roles are written in their qualified form, e.g. /collections/Order.lines/42.
package inspect
