// Package reconcile turns the in-memory state of a persistent collection into
// row mutations against its backing store.
//
// Reconciliation is split into two steps so callers can inspect the work before
// doing it:
//
// 1. BuildPlan initializes the collection when needed (replaying its delayed
// operation queue), compares it with its snapshot and produces an ordered list
// of actions: row deletes, then row updates, then row inserts. Collections that
// were never touched produce an empty plan without a load.
//
// 2. ApplyPlan executes the actions through a Mutator. Mutators that also
// implement BatchDeleter, BatchUpdater or BatchInserter receive each action
// group in one call. On success the collection snapshot is refreshed and the
// dirty flag is cleared. Callers applying inside a transaction set
// ReconcileOptions.Deferred and call ReconcilePlan.Commit after it commits.
//
// Execution follows the same safety switches for every caller: nothing runs
// unless ReconcileOptions.Confirmed is true and DryRun is false.
//
// # Usage Example
//
//	plan, err := reconcile.BuildPlan(ctx, orderLines)
//	if err != nil {
//	    return err
//	}
//	executed, err := reconcile.ApplyPlan(ctx, plan, rowStore, reconcile.ReconcileOptions{Confirmed: true})
//
// Flush combines both steps.
package reconcile
