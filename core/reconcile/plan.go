package reconcile

import (
	"context"
	"fmt"

	"collection-engine/core/collection"
)

// BuildPlan computes the row mutations that bring the backing store in line with
// the current state of pc. It does NOT execute actions; use ApplyPlan for that.
//
// A collection that was never initialized and carries no queued work yields an
// empty plan without touching the store. Otherwise the collection is initialized
// (replaying its queue) and diffed against its snapshot.
func BuildPlan(ctx context.Context, pc collection.PersistentCollection) (*ReconcilePlan, error) {
	if pc == nil {
		return nil, fmt.Errorf("build plan: nil collection")
	}

	plan := &ReconcilePlan{
		Key:    pc.Key(),
		source: pc,
	}
	plan.Result = describe(pc)

	if !pc.WasInitialized() && !pc.IsDirty() {
		plan.Result.Unchanged = true
		return plan, nil
	}

	if err := pc.ForceInitialization(ctx); err != nil {
		return nil, err
	}
	if err := pc.PreInsert(); err != nil {
		return nil, fmt.Errorf("failed to prepare rows of %s: %w", pc.Key(), err)
	}

	entries := pc.Entries()
	plan.Result.CurrentSize = len(entries)
	if !pc.IsDirty() && pc.EqualsSnapshot() {
		plan.Result.Unchanged = true
		return plan, nil
	}

	actions, summary, err := buildActions(pc, entries)
	if err != nil {
		return nil, err
	}
	plan.Actions = actions
	plan.Summary = summary
	plan.Result.Unchanged = summary.Total() == 0
	return plan, nil
}

// buildActions emits deletes first, then updates, then inserts.
func buildActions(pc collection.PersistentCollection, entries []collection.Row) ([]Action, PlanSummary, error) {
	var summary PlanSummary
	var actions []Action

	for _, target := range pc.GetDeletes() {
		actions = append(actions, Action{
			Type:   ActionDeleteRow,
			Target: target,
			Reason: "removed since snapshot",
		})
		summary.Deletes++
	}

	if pc.IsRowUpdatePossible() {
		for i, row := range entries {
			if !pc.NeedsUpdating(row, i) {
				continue
			}
			target, err := pc.GetIndex(row, i)
			if err != nil {
				return nil, summary, fmt.Errorf("failed to address row %d of %s: %w", i, pc.Key(), err)
			}
			actions = append(actions, Action{
				Type:   ActionUpdateRow,
				Target: target,
				Row:    row,
				Reason: "element changed",
			})
			summary.Updates++
		}
	}

	for i, row := range entries {
		if !pc.NeedsInserting(row, i) {
			continue
		}
		actions = append(actions, Action{
			Type:   ActionInsertRow,
			Row:    row,
			Reason: "not present in snapshot",
		})
		summary.Inserts++
	}

	return actions, summary, nil
}

func describe(pc collection.PersistentCollection) ReconcileResult {
	key := pc.Key()
	result := ReconcileResult{
		Role:             key.Role.String(),
		Owner:            fmt.Sprint(key.OwnerID),
		State:            pc.State().String(),
		Dirty:            pc.IsDirty(),
		QueuedOperations: len(pc.QueuedOperations()),
	}
	if p := pc.Persister(); p != nil {
		result.Classification = p.Classification().String()
	}
	if sn, ok := pc.Snapshot(); ok {
		result.SnapshotSize = sn.Len()
	}
	return result
}

// ApplyPlan executes the actions in a reconcile plan.
// Returns the number of actions executed and any error encountered.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
// After every action succeeded the collection snapshot is refreshed, unless
// opts.Deferred is set.
func ApplyPlan(
	ctx context.Context,
	plan *ReconcilePlan,
	mutator Mutator,
	opts ReconcileOptions,
) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}
	if plan == nil {
		return 0, fmt.Errorf("apply plan: nil plan")
	}
	if mutator == nil {
		return 0, fmt.Errorf("apply plan for %s: nil mutator", plan.Key)
	}

	var (
		deletes []any
		updates []Action
		inserts []collection.Row
	)
	for _, action := range plan.Actions {
		switch action.Type {
		case ActionDeleteRow:
			deletes = append(deletes, action.Target)
		case ActionUpdateRow:
			updates = append(updates, action)
		case ActionInsertRow:
			inserts = append(inserts, action.Row)
		default:
			return 0, fmt.Errorf("unknown action type %q", action.Type)
		}
	}

	key := plan.Key

	if len(deletes) > 0 {
		if batch, ok := mutator.(BatchDeleter); ok {
			if err := batch.DeleteRows(ctx, key, deletes); err != nil {
				return executed, fmt.Errorf("failed to batch delete rows of %s: %w", key, err)
			}
			executed += len(deletes)
		} else {
			for _, target := range deletes {
				if err := mutator.DeleteRow(ctx, key, target); err != nil {
					return executed, fmt.Errorf("failed to delete row %v of %s: %w", target, key, err)
				}
				executed++
			}
		}
	}

	if len(updates) > 0 {
		if batch, ok := mutator.(BatchUpdater); ok {
			if err := batch.UpdateRows(ctx, key, updates); err != nil {
				return executed, fmt.Errorf("failed to batch update rows of %s: %w", key, err)
			}
			executed += len(updates)
		} else {
			for _, action := range updates {
				if err := mutator.UpdateRow(ctx, key, action.Target, action.Row); err != nil {
					return executed, fmt.Errorf("failed to update row %v of %s: %w", action.Target, key, err)
				}
				executed++
			}
		}
	}

	if len(inserts) > 0 {
		if batch, ok := mutator.(BatchInserter); ok {
			if err := batch.InsertRows(ctx, key, inserts); err != nil {
				return executed, fmt.Errorf("failed to batch insert rows of %s: %w", key, err)
			}
			executed += len(inserts)
		} else {
			for _, row := range inserts {
				if err := mutator.InsertRow(ctx, key, row); err != nil {
					return executed, fmt.Errorf("failed to insert row of %s: %w", key, err)
				}
				executed++
			}
		}
	}

	if !opts.Deferred {
		plan.Commit()
	}
	return executed, nil
}

// Flush is a convenience wrapper that plans and optionally applies actions.
// It returns the plan, number of actions executed, and any error.
func Flush(
	ctx context.Context,
	pc collection.PersistentCollection,
	mutator Mutator,
	opts ReconcileOptions,
) (*ReconcilePlan, int, error) {
	plan, err := BuildPlan(ctx, pc)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, plan, mutator, opts)
	return plan, executed, err
}
