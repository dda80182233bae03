package reconcile

import (
	"context"
	"fmt"
	"testing"

	"collection-engine/core/collection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMutator records sequential mutations in call order.
type mockMutator struct {
	calls    []string
	deleted  []any
	updated  []any
	inserted []collection.Row
	failOn   ActionType
}

func newMockMutator() *mockMutator {
	return &mockMutator{}
}

func (m *mockMutator) DeleteRow(_ context.Context, _ collection.Key, target any) error {
	if m.failOn == ActionDeleteRow {
		return fmt.Errorf("delete failed")
	}
	m.calls = append(m.calls, "delete")
	m.deleted = append(m.deleted, target)
	return nil
}

func (m *mockMutator) UpdateRow(_ context.Context, _ collection.Key, target any, _ collection.Row) error {
	if m.failOn == ActionUpdateRow {
		return fmt.Errorf("update failed")
	}
	m.calls = append(m.calls, "update")
	m.updated = append(m.updated, target)
	return nil
}

func (m *mockMutator) InsertRow(_ context.Context, _ collection.Key, row collection.Row) error {
	if m.failOn == ActionInsertRow {
		return fmt.Errorf("insert failed")
	}
	m.calls = append(m.calls, "insert")
	m.inserted = append(m.inserted, row)
	return nil
}

// mockBatchMutator adds batch methods on top of mockMutator.
type mockBatchMutator struct {
	mockMutator
	batchDeletes [][]any
	batchUpdates [][]Action
	batchInserts [][]collection.Row
}

func (m *mockBatchMutator) DeleteRows(_ context.Context, _ collection.Key, targets []any) error {
	m.calls = append(m.calls, "delete_batch")
	m.batchDeletes = append(m.batchDeletes, targets)
	return nil
}

func (m *mockBatchMutator) UpdateRows(_ context.Context, _ collection.Key, actions []Action) error {
	m.calls = append(m.calls, "update_batch")
	m.batchUpdates = append(m.batchUpdates, actions)
	return nil
}

func (m *mockBatchMutator) InsertRows(_ context.Context, _ collection.Key, rows []collection.Row) error {
	m.calls = append(m.calls, "insert_batch")
	m.batchInserts = append(m.batchInserts, rows)
	return nil
}

func samplePlan() *ReconcilePlan {
	return &ReconcilePlan{
		Key: collection.Key{OwnerID: 1, Role: linesRole},
		Actions: []Action{
			{Type: ActionDeleteRow, Target: 4},
			{Type: ActionDeleteRow, Target: 5},
			{Type: ActionUpdateRow, Target: 0, Row: collection.Row{Index: 0, Value: "a"}},
			{Type: ActionInsertRow, Row: collection.Row{Index: 6, Value: "b"}},
			{Type: ActionInsertRow, Row: collection.Row{Index: 7, Value: "c"}},
		},
	}
}

// TestApplyPlan_UsesBatchMethods tests that ApplyPlan uses batch methods when available.
func TestApplyPlan_UsesBatchMethods(t *testing.T) {
	mutator := &mockBatchMutator{}

	executed, err := ApplyPlan(context.Background(), samplePlan(), mutator, ReconcileOptions{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, 5, executed)

	assert.Equal(t, []string{"delete_batch", "update_batch", "insert_batch"}, mutator.calls)
	require.Len(t, mutator.batchDeletes, 1)
	assert.Equal(t, []any{4, 5}, mutator.batchDeletes[0])
	require.Len(t, mutator.batchUpdates, 1)
	assert.Len(t, mutator.batchUpdates[0], 1)
	require.Len(t, mutator.batchInserts, 1)
	assert.Len(t, mutator.batchInserts[0], 2)
	assert.Empty(t, mutator.deleted, "Should NOT use individual delete")
	assert.Empty(t, mutator.inserted, "Should NOT use individual insert")
}

// TestApplyPlan_FallbackToSequential tests fallback when batch methods not available.
func TestApplyPlan_FallbackToSequential(t *testing.T) {
	mutator := newMockMutator()

	executed, err := ApplyPlan(context.Background(), samplePlan(), mutator, ReconcileOptions{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, 5, executed)

	assert.Equal(t, []string{"delete", "delete", "update", "insert", "insert"}, mutator.calls)
	assert.Equal(t, []any{4, 5}, mutator.deleted)
	assert.Equal(t, []any{0}, mutator.updated)
	assert.Equal(t, "c", mutator.inserted[1].Value)
}

func TestApplyPlan_Guards(t *testing.T) {
	tests := []struct {
		name string
		opts ReconcileOptions
	}{
		{"NotConfirmed", ReconcileOptions{}},
		{"DryRun", ReconcileOptions{Confirmed: true, DryRun: true}},
		{"DryRunNotConfirmed", ReconcileOptions{DryRun: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutator := newMockMutator()
			executed, err := ApplyPlan(context.Background(), samplePlan(), mutator, tt.opts)
			assert.NoError(t, err)
			assert.Equal(t, 0, executed)
			assert.Empty(t, mutator.calls)
		})
	}
}

func TestApplyPlan_StopsOnFailure(t *testing.T) {
	mutator := newMockMutator()
	mutator.failOn = ActionUpdateRow

	executed, err := ApplyPlan(context.Background(), samplePlan(), mutator, ReconcileOptions{Confirmed: true})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "update failed")
	assert.Equal(t, 2, executed, "Deletes ran before the failing update")
	assert.Empty(t, mutator.inserted)
}

func TestApplyPlan_InvalidInput(t *testing.T) {
	opts := ReconcileOptions{Confirmed: true}

	_, err := ApplyPlan(context.Background(), nil, newMockMutator(), opts)
	assert.Error(t, err)

	_, err = ApplyPlan(context.Background(), samplePlan(), nil, opts)
	assert.Error(t, err)

	bad := &ReconcilePlan{Actions: []Action{{Type: "purge"}}}
	_, err = ApplyPlan(context.Background(), bad, newMockMutator(), opts)
	assert.Error(t, err)
}
