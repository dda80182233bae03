package reconcile

import "collection-engine/core/collection"

// ReconcileResult describes the state of one persistent collection at plan time.
type ReconcileResult struct {
	// Role is the qualified collection role, e.g. "Order.lines".
	Role string `json:"role"`

	// Owner is the printable owner identifier.
	Owner string `json:"owner"`

	// Classification is the collection kind (bag, list, ...).
	Classification string `json:"classification"`

	// State is the lifecycle state before planning.
	State string `json:"state"`

	// Dirty reports whether the collection was mutated since its snapshot.
	Dirty bool `json:"dirty"`

	// Unchanged reports whether the current elements equal the snapshot.
	Unchanged bool `json:"unchanged"`

	// SnapshotSize is the number of elements in the snapshot.
	SnapshotSize int `json:"snapshot_size"`

	// CurrentSize is the number of current rows.
	CurrentSize int `json:"current_size"`

	// QueuedOperations counts the delayed operations replayed by planning.
	QueuedOperations int `json:"queued_operations"`
}

// ActionType represents the type of row mutation.
type ActionType string

const (
	// ActionDeleteRow deletes one backing row.
	ActionDeleteRow ActionType = "delete_row"
	// ActionUpdateRow rewrites the element of an existing row.
	ActionUpdateRow ActionType = "update_row"
	// ActionInsertRow inserts a new backing row.
	ActionInsertRow ActionType = "insert_row"
)

// Action represents a planned row mutation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Target identifies the row to delete or update: a position for lists and
	// arrays, a key for ordered maps, an identifier for id-bags and the element
	// itself for bags and sets.
	Target any `json:"target,omitempty"`

	// Row is the current row for update and insert actions.
	Row collection.Row `json:"row"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// ReconcilePlan contains the planned row mutations of one collection.
type ReconcilePlan struct {
	// Key identifies the planned collection.
	Key collection.Key `json:"key"`

	// Result describes the collection at plan time.
	Result ReconcileResult `json:"result"`

	// Actions contains planned mutations in execution order:
	// deletes, then updates, then inserts.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`

	// Orphans lists the elements dropped from an orphan-delete collection.
	// Planners outside this package fill it in.
	Orphans []any `json:"orphans,omitempty"`

	source collection.PersistentCollection
}

// Commit marks the planned collection as flushed: its snapshot is replaced
// by the current state and its dirty flag is cleared.
func (p *ReconcilePlan) Commit() {
	if p.source != nil {
		p.source.PostFlush()
	}
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	// Deletes counts planned row deletions.
	Deletes int `json:"deletes"`

	// Updates counts planned row updates.
	Updates int `json:"updates"`

	// Inserts counts planned row insertions.
	Inserts int `json:"inserts"`
}

// Total returns the number of planned actions.
func (s PlanSummary) Total() int {
	return s.Deletes + s.Updates + s.Inserts
}

// ReconcileOptions controls whether a plan is executed.
type ReconcileOptions struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// Confirmed indicates the caller has confirmed the mutations.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool

	// Deferred leaves the collection snapshot untouched after execution.
	// Callers applying plans inside a transaction call Commit once it commits.
	Deferred bool
}
