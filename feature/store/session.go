package store

import (
	"context"
	"fmt"
	"reflect"

	"collection-engine/core/collection"
	"collection-engine/core/logger"
	"collection-engine/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Session is a unit of work over a Store. It implements collection.Session
// with size and containment probes, tracks the collections it bound and
// flushes them in one transaction. A Session is not safe for concurrent use.
type Session struct {
	store       *Store
	open        bool
	order       []collection.Key
	collections map[collection.Key]collection.PersistentCollection
}

var (
	_ collection.Session       = (*Session)(nil)
	_ collection.SizeProbe     = (*Session)(nil)
	_ collection.ContainsProbe = (*Session)(nil)
)

// IsOpen reports whether the session can still load data.
func (s *Session) IsOpen() bool { return s.open }

// LoadCollection reads the persisted rows of key.
func (s *Session) LoadCollection(ctx context.Context, key collection.Key) ([]collection.Row, error) {
	if !s.open {
		return nil, fmt.Errorf("session is closed")
	}
	rows, err := s.store.Rows(ctx, key)
	s.store.metrics.ObserveLoad(key.Role.String(), err)
	if err != nil {
		return nil, err
	}
	logger.WithCollection(s.store.log, key.Role.String(), key.OwnerID).Debug("Collection loaded", zap.Int("rows", len(rows)))
	return rows, nil
}

// ProbeSize counts the persisted rows of key. Lists and arrays are measured
// by their highest position instead, since loading pads gaps with nil.
func (s *Session) ProbeSize(ctx context.Context, key collection.Key) (int, bool, error) {
	p, err := s.store.persister(key)
	if err != nil {
		return 0, false, err
	}
	var n int
	if indexed(p.Classification()) {
		n, err = s.store.Span(ctx, key)
	} else {
		n, err = s.store.Count(ctx, key)
	}
	if err != nil {
		return 0, false, err
	}
	s.store.metrics.ObserveProbe(key.Role.String(), "size")
	return n, true, nil
}

// ProbeContains checks whether a row holds element. Maps are not probed, and
// neither is nil in lists and arrays: their nil positions have no row.
func (s *Session) ProbeContains(ctx context.Context, key collection.Key, element any) (bool, bool, error) {
	p, err := s.store.persister(key)
	if err != nil {
		return false, false, err
	}
	if p.Classification() == collection.OrderedMap || (element == nil && indexed(p.Classification())) {
		return false, false, nil
	}
	text, err := encodeValue(p.ElementType(), element)
	if err != nil {
		return false, false, err
	}
	var n int64
	if err := s.store.scope(ctx, s.store.db, key).Where("value = ?", text).Count(&n).Error; err != nil {
		return false, false, fmt.Errorf("failed to probe %s: %w", key, err)
	}
	s.store.metrics.ObserveProbe(key.Role.String(), "contains")
	return n > 0, true, nil
}

func indexed(c collection.Classification) bool {
	return c == collection.List || c == collection.Array
}

// Collection returns the collection of role owned by owner, creating and
// binding an uninitialized wrapper on first use. A cache hit initializes it
// without a load.
func (s *Session) Collection(ctx context.Context, role collection.Role, owner any) (collection.PersistentCollection, error) {
	key := collection.Key{OwnerID: owner, Role: role}
	if pc, ok := s.collections[key]; ok {
		return pc, nil
	}
	if !s.open {
		return nil, fmt.Errorf("session is closed")
	}

	pc, err := s.store.registry.Instantiate(key)
	if err != nil {
		return nil, err
	}
	if err := pc.SetCurrentSession(s); err != nil {
		return nil, err
	}
	s.fromCache(ctx, pc)
	s.track(pc)
	return pc, nil
}

func (s *Session) fromCache(ctx context.Context, pc collection.PersistentCollection) {
	if s.store.cache == nil {
		return
	}
	key := pc.Key()
	l := logger.WithCollection(s.store.log, key.Role.String(), key.OwnerID)

	tokens, hit, err := s.store.cache.Get(ctx, key)
	if err != nil {
		l.Warn("Cache lookup failed", zap.Error(err))
		return
	}
	s.store.metrics.ObserveCache(key.Role.String(), hit)
	if !hit {
		return
	}
	if err := pc.InitializeFromCache(pc.Persister(), tokens, key.OwnerID); err != nil {
		l.Warn("Discarding unreadable cache entry", zap.Error(err))
		_ = s.store.cache.Evict(ctx, key)
	}
}

// Attach binds a wrapped collection, e.g. one created for a new owner, to the session.
func (s *Session) Attach(pc collection.PersistentCollection) error {
	key := pc.Key()
	if existing, ok := s.collections[key]; ok && existing != pc {
		return fmt.Errorf("session already tracks a collection for %s", key)
	}
	if err := pc.SetCurrentSession(s); err != nil {
		return err
	}
	if _, ok := s.collections[key]; !ok {
		s.track(pc)
	}
	return nil
}

// Wrap adopts raw as the collection of role for owner and attaches it. Every
// element of raw is written on the next flush.
func (s *Session) Wrap(role collection.Role, owner any, raw collection.Raw) (collection.PersistentCollection, error) {
	p, err := s.store.persister(collection.Key{Role: role})
	if err != nil {
		return nil, err
	}
	sem, err := collection.SemanticsFor(p.Classification())
	if err != nil {
		return nil, err
	}
	pc, err := sem.Wrap(p, collection.Key{OwnerID: owner, Role: role}, raw)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(pc); err != nil {
		return nil, err
	}
	return pc, nil
}

func (s *Session) track(pc collection.PersistentCollection) {
	s.collections[pc.Key()] = pc
	s.order = append(s.order, pc.Key())
}

// Plan builds the reconcile plan of every tracked collection without executing it.
// Plans of orphan-delete roles list their orphans; such a role refuses to plan
// a queued clear, whose orphans are unknown.
func (s *Session) Plan(ctx context.Context) ([]*reconcile.ReconcilePlan, error) {
	plans := make([]*reconcile.ReconcilePlan, 0, len(s.order))
	for _, key := range s.order {
		pc := s.collections[key]
		orphanDelete := pc.Persister().HasOrphanDelete()

		var queued []any
		if orphanDelete {
			var err error
			if queued, err = pc.QueuedOrphans(); err != nil {
				return nil, fmt.Errorf("failed to plan %s: %w", key, err)
			}
		}
		plan, err := reconcile.BuildPlan(ctx, pc)
		if err != nil {
			return nil, err
		}
		if orphanDelete {
			plan.Orphans = append(queued, orphansOf(pc)...)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// orphansOf returns the snapshot elements no current row holds, one per
// vanished occurrence.
func orphansOf(pc collection.PersistentCollection) []any {
	sn, ok := pc.Snapshot()
	if !ok {
		return nil
	}
	vt := pc.Persister().ElementType()
	current := pc.Entries()
	used := make([]bool, len(current))

	var orphans []any
	for _, old := range sn.Values() {
		if old == nil {
			continue
		}
		matched := false
		for j, row := range current {
			if !used[j] && row.Value != nil && sameElement(vt, old, row.Value) {
				used[j], matched = true, true
				break
			}
		}
		if !matched {
			orphans = append(orphans, old)
		}
	}
	return orphans
}

func sameElement(vt collection.ValueType, a, b any) bool {
	if vt == nil {
		return reflect.DeepEqual(a, b)
	}
	return vt.IsEqual(a, b)
}

// Flush writes every pending change in one transaction. Snapshots are only
// refreshed once the transaction commits, so a failed flush can be retried.
func (s *Session) Flush(ctx context.Context) ([]*reconcile.ReconcilePlan, int, error) {
	if !s.open {
		return nil, 0, fmt.Errorf("session is closed")
	}
	plans, err := s.Plan(ctx)
	if err != nil {
		return nil, 0, err
	}

	executed := 0
	opts := reconcile.ReconcileOptions{Confirmed: true, Deferred: true}
	err = s.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := s.store.Writer(tx)
		for _, plan := range plans {
			n, err := reconcile.ApplyPlan(ctx, plan, w, opts)
			executed += n
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return plans, 0, fmt.Errorf("flush rolled back: %w", err)
	}

	for _, plan := range plans {
		plan.Commit()
		role := plan.Key.Role.String()
		s.store.metrics.ObserveRows(role, string(reconcile.ActionDeleteRow), plan.Summary.Deletes)
		s.store.metrics.ObserveRows(role, string(reconcile.ActionUpdateRow), plan.Summary.Updates)
		s.store.metrics.ObserveRows(role, string(reconcile.ActionInsertRow), plan.Summary.Inserts)
		if plan.Summary.Total() > 0 {
			s.writeThrough(ctx, s.collections[plan.Key])
		}
		if len(plan.Orphans) > 0 {
			logger.WithCollection(s.store.log, role, plan.Key.OwnerID).Info("Orphans removed", zap.Int("orphans", len(plan.Orphans)))
		}
	}
	s.store.log.Info("Session flushed", zap.Int("collections", len(plans)), zap.Int("rows", executed))
	return plans, executed, nil
}

func (s *Session) writeThrough(ctx context.Context, pc collection.PersistentCollection) {
	if s.store.cache == nil || !pc.WasInitialized() {
		return
	}
	key := pc.Key()
	tokens, err := pc.Disassemble(pc.Persister())
	if err == nil {
		err = s.store.cache.Put(ctx, key, tokens)
	}
	if err != nil {
		logger.WithCollection(s.store.log, key.Role.String(), key.OwnerID).Warn("Cache write failed", zap.Error(err))
		_ = s.store.cache.Evict(ctx, key)
	}
}

// Evict stops tracking the collection of key and detaches it.
func (s *Session) Evict(ctx context.Context, key collection.Key) {
	pc, ok := s.collections[key]
	if !ok {
		return
	}
	pc.Detach()
	delete(s.collections, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Close ends the session. Tracked collections are detached: loaded ones keep
// their elements, unloaded ones fail on access.
func (s *Session) Close() {
	for _, key := range s.order {
		s.collections[key].Detach()
	}
	s.open = false
}
