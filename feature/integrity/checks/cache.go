package checks

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"collection-engine/core/collection"
	"collection-engine/feature/store"
)

// CacheReport compares the cache region entry of one collection with its rows.
type CacheReport struct {
	Role         string `json:"role"`
	Owner        string `json:"owner"`
	Cached       bool   `json:"cached"`
	RowTokens    int    `json:"row_tokens"`
	CachedTokens int    `json:"cached_tokens"`
	Status       string `json:"status"` // "ok", "missing", "stale"
}

// RowSource reads the committed rows of a collection.
type RowSource interface {
	Rows(ctx context.Context, key collection.Key) ([]collection.Row, error)
}

// rowSession loads straight from the row table so the check never reads the
// cache it is verifying.
type rowSession struct {
	rows RowSource
}

func (rowSession) IsOpen() bool { return true }

func (s rowSession) LoadCollection(ctx context.Context, key collection.Key) ([]collection.Row, error) {
	return s.rows.Rows(ctx, key)
}

// CheckCacheEntry loads key from its rows and compares the disassembled form
// with the cached tokens.
func CheckCacheEntry(ctx context.Context, registry *collection.Registry, rows RowSource, cache store.Cache, key collection.Key) (*CacheReport, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache region is not configured")
	}

	pc, err := registry.Instantiate(key)
	if err != nil {
		return nil, err
	}
	if err := pc.SetCurrentSession(rowSession{rows: rows}); err != nil {
		return nil, err
	}
	defer pc.Detach()

	if err := pc.ForceInitialization(ctx); err != nil {
		return nil, err
	}
	expected, err := pc.Disassemble(pc.Persister())
	if err != nil {
		return nil, fmt.Errorf("failed to disassemble %s: %w", key, err)
	}

	cached, hit, err := cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry of %s: %w", key, err)
	}

	report := &CacheReport{
		Role:         key.Role.String(),
		Owner:        fmt.Sprint(key.OwnerID),
		Cached:       hit,
		RowTokens:    len(expected),
		CachedTokens: len(cached),
		Status:       "ok",
	}
	if !hit {
		report.Status = "missing"
		return report, nil
	}

	same, err := sameTokens(pc.Persister().Classification(), expected, cached)
	if err != nil {
		return nil, err
	}
	if !same {
		report.Status = "stale"
	}
	return report, nil
}

// sameTokens compares token lists through their JSON form, which makes ints
// and the float64 values of a decoded entry equal. Order only matters for
// positional classifications; map and id-bag tokens are compared as pairs.
func sameTokens(kind collection.Classification, a, b []any) (bool, error) {
	width := 1
	if kind == collection.OrderedMap || kind == collection.IDBag {
		width = 2
	}
	ua, err := units(a, width)
	if err != nil {
		return false, err
	}
	ub, err := units(b, width)
	if err != nil {
		return false, err
	}
	if kind != collection.List && kind != collection.Array && kind != collection.SortedSet {
		slices.Sort(ua)
		slices.Sort(ub)
	}
	return slices.Equal(ua, ub), nil
}

func units(tokens []any, width int) ([]string, error) {
	if len(tokens)%width != 0 {
		return nil, fmt.Errorf("token list of length %d is not a multiple of %d", len(tokens), width)
	}
	out := make([]string, 0, len(tokens)/width)
	for i := 0; i < len(tokens); i += width {
		data, err := json.Marshal(tokens[i : i+width])
		if err != nil {
			return nil, fmt.Errorf("failed to encode token %d: %w", i, err)
		}
		out = append(out, string(data))
	}
	return out, nil
}
