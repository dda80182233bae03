package inspect

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"collection-engine/core/collection"
	"collection-engine/core/logger"
	"collection-engine/core/reconcile"
	"collection-engine/feature/store"

	"go.uber.org/zap"
)

var (
	// ErrUnknownRole is returned for roles missing from the registry.
	ErrUnknownRole = errors.New("unknown collection role")
	// ErrInvalidChange is returned when a change carries values the role cannot hold.
	ErrInvalidChange = errors.New("invalid change")
	// ErrCacheDisabled is returned by Purge when no cache region is configured.
	ErrCacheDisabled = errors.New("cache region is disabled")
)

// Purger drops every cached entry of a role.
type Purger interface {
	Purge(ctx context.Context, role collection.Role) (int, error)
}

// Service answers collection queries with a fresh session per call.
type Service struct {
	store  *store.Store
	purger Purger
	logger *zap.Logger
}

// NewService creates the inspect service. purger may be nil.
func NewService(st *store.Store, purger Purger, logger *zap.Logger) *Service {
	return &Service{store: st, purger: purger, logger: logger}
}

// CollectionReport describes one materialized collection.
type CollectionReport struct {
	Result reconcile.ReconcileResult `json:"result"`
	Rows   []collection.Row          `json:"rows"`
}

// SizeReport is the answer of a size query.
type SizeReport struct {
	Role  string `json:"role"`
	Owner string `json:"owner"`
	Size  int    `json:"size"`

	// Loaded reports whether answering required loading the elements.
	Loaded bool `json:"loaded"`
}

// Change is a batch of edits applied to one collection. Put entries are
// applied in key order.
type Change struct {
	Add        []any          `json:"add"`
	Remove     []any          `json:"remove"`
	Put        map[string]any `json:"put"`
	RemoveKeys []string       `json:"remove_keys"`
}

// ChangeReport is the outcome of ApplyChange.
type ChangeReport struct {
	DryRun   bool                      `json:"dry_run"`
	Executed int                       `json:"executed"`
	Result   reconcile.ReconcileResult `json:"result"`
	Actions  []reconcile.Action        `json:"actions"`
	Summary  reconcile.PlanSummary     `json:"summary"`
}

type adder interface {
	Add(ctx context.Context, v any) (bool, error)
}

type remover interface {
	Remove(ctx context.Context, v any) (bool, error)
}

type sizer interface {
	Size(ctx context.Context) (int, error)
}

type mapper interface {
	Put(ctx context.Context, k, v any) (any, bool, error)
	RemoveKey(ctx context.Context, k any) (any, bool, error)
}

func (s *Service) open(ctx context.Context, role collection.Role, owner string) (*store.Session, collection.PersistentCollection, error) {
	if _, ok := s.store.Registry().Lookup(role); !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	session := s.store.OpenSession()
	pc, err := session.Collection(ctx, role, owner)
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	return session, pc, nil
}

// Describe loads the collection and reports its rows.
func (s *Service) Describe(ctx context.Context, role collection.Role, owner string) (*CollectionReport, error) {
	session, pc, err := s.open(ctx, role, owner)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := pc.ForceInitialization(ctx); err != nil {
		return nil, err
	}
	plan, err := reconcile.BuildPlan(ctx, pc)
	if err != nil {
		return nil, err
	}
	rows := pc.Entries()
	if rows == nil {
		rows = []collection.Row{}
	}
	return &CollectionReport{Result: plan.Result, Rows: rows}, nil
}

// Size counts the elements. Extra-lazy roles answer with a count query.
func (s *Service) Size(ctx context.Context, role collection.Role, owner string) (*SizeReport, error) {
	session, pc, err := s.open(ctx, role, owner)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	report := &SizeReport{Role: role.String(), Owner: owner}
	switch c := pc.(type) {
	case sizer:
		report.Size, err = c.Size(ctx)
	case *collection.PersistentArray:
		report.Size, err = c.Len(ctx)
	default:
		err = fmt.Errorf("%w: size of %s", collection.ErrUnsupportedOperation, role)
	}
	if err != nil {
		return nil, err
	}
	report.Loaded = pc.WasInitialized()
	return report, nil
}

// ApplyChange edits the collection and flushes it. With dryRun the session is
// discarded after planning and nothing is written.
func (s *Service) ApplyChange(ctx context.Context, role collection.Role, owner string, change Change, dryRun bool) (*ChangeReport, error) {
	session, pc, err := s.open(ctx, role, owner)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := s.edit(ctx, pc, change); err != nil {
		return nil, err
	}

	report := &ChangeReport{DryRun: dryRun}
	var plans []*reconcile.ReconcilePlan
	if dryRun {
		plans, err = session.Plan(ctx)
	} else {
		plans, report.Executed, err = session.Flush(ctx)
	}
	if err != nil {
		return nil, err
	}
	for _, plan := range plans {
		if plan.Key != pc.Key() {
			continue
		}
		report.Result = plan.Result
		report.Actions = plan.Actions
		report.Summary = plan.Summary
	}

	logger.WithCollection(s.logger, role.String(), owner).Info("Collection change applied",
		zap.Bool("dry_run", dryRun),
		zap.Int("actions", report.Summary.Total()),
		zap.Int("executed", report.Executed),
	)
	return report, nil
}

func (s *Service) edit(ctx context.Context, pc collection.PersistentCollection, change Change) error {
	p := pc.Persister()
	elements := p.ElementType()

	normalize := func(vt collection.ValueType, v any) (any, error) {
		if vt == nil {
			return v, nil
		}
		return vt.Assemble(v)
	}

	if len(change.Put) > 0 || len(change.RemoveKeys) > 0 {
		m, ok := pc.(mapper)
		if !ok {
			return fmt.Errorf("%w: keyed edits on %s", collection.ErrUnsupportedOperation, p.Classification())
		}
		for _, k := range change.RemoveKeys {
			key, err := normalize(p.IndexType(), k)
			if err != nil {
				return fmt.Errorf("%w: key %q: %v", ErrInvalidChange, k, err)
			}
			if _, _, err := m.RemoveKey(ctx, key); err != nil {
				return err
			}
		}
		for _, k := range slices.Sorted(maps.Keys(change.Put)) {
			v := change.Put[k]
			key, err := normalize(p.IndexType(), k)
			if err != nil {
				return fmt.Errorf("%w: key %q: %v", ErrInvalidChange, k, err)
			}
			value, err := normalize(elements, v)
			if err != nil {
				return fmt.Errorf("%w: value for key %q: %v", ErrInvalidChange, k, err)
			}
			if _, _, err := m.Put(ctx, key, value); err != nil {
				return err
			}
		}
	}

	if len(change.Remove) > 0 {
		r, ok := pc.(remover)
		if !ok {
			return fmt.Errorf("%w: remove on %s", collection.ErrUnsupportedOperation, p.Classification())
		}
		for _, v := range change.Remove {
			value, err := normalize(elements, v)
			if err != nil {
				return fmt.Errorf("%w: element %v: %v", ErrInvalidChange, v, err)
			}
			if _, err := r.Remove(ctx, value); err != nil {
				return err
			}
		}
	}

	if len(change.Add) > 0 {
		a, ok := pc.(adder)
		if !ok {
			return fmt.Errorf("%w: add on %s", collection.ErrUnsupportedOperation, p.Classification())
		}
		for _, v := range change.Add {
			value, err := normalize(elements, v)
			if err != nil {
				return fmt.Errorf("%w: element %v: %v", ErrInvalidChange, v, err)
			}
			if _, err := a.Add(ctx, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Purge drops the cached entries of role.
func (s *Service) Purge(ctx context.Context, role collection.Role) (int, error) {
	if s.purger == nil {
		return 0, ErrCacheDisabled
	}
	if _, ok := s.store.Registry().Lookup(role); !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	return s.purger.Purge(ctx, role)
}
