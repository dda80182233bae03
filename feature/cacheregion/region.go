package cacheregion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"collection-engine/core/collection"
	"collection-engine/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// document is the JSON object stored per collection.
type document struct {
	Role    string    `json:"role"`
	Owner   string    `json:"owner"`
	Tokens  []any     `json:"tokens"`
	Written time.Time `json:"written"`
}

// entry is a locally held copy of a document.
type entry struct {
	tokens []any
	built  time.Time
}

// Region is a second-level cache of disassembled collections. Entries live
// as JSON objects in a bucket and are mirrored in memory for ttl.
type Region struct {
	client storage.Client
	bucket string
	prefix string
	ttl    time.Duration
	log    *zap.Logger

	mu    sync.RWMutex
	local map[string]entry
	sf    singleflight.Group
}

// New creates a region storing objects under prefix in bucket. A zero ttl
// disables the in-memory mirror.
func New(client storage.Client, bucket, prefix string, ttl time.Duration, log *zap.Logger) *Region {
	if log == nil {
		log = zap.NewNop()
	}
	return &Region{
		client: client,
		bucket: bucket,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
		local:  make(map[string]entry),
	}
}

// ObjectName returns the object holding the entry of key.
func (r *Region) ObjectName(key collection.Key) string {
	return fmt.Sprintf("%s%s/%s.json", r.prefix, key.Role, url.PathEscape(fmt.Sprint(key.OwnerID)))
}

func (r *Region) fresh(name string) ([]any, bool) {
	if r.ttl <= 0 {
		return nil, false
	}
	r.mu.RLock()
	e, ok := r.local[name]
	r.mu.RUnlock()
	if !ok || time.Since(e.built) > r.ttl {
		return nil, false
	}
	return e.tokens, true
}

func (r *Region) remember(name string, tokens []any) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	r.local[name] = entry{tokens: tokens, built: time.Now()}
	r.mu.Unlock()
}

func (r *Region) forget(name string) {
	r.mu.Lock()
	delete(r.local, name)
	r.mu.Unlock()
}

// fetchResult is shared between concurrent Get calls for one object.
type fetchResult struct {
	tokens []any
	found  bool
}

// Get returns the cached tokens of key. Concurrent misses of the mirror for
// the same key share one object read.
func (r *Region) Get(ctx context.Context, key collection.Key) ([]any, bool, error) {
	name := r.ObjectName(key)
	if tokens, ok := r.fresh(name); ok {
		return tokens, true, nil
	}

	result, err, _ := r.sf.Do(name, func() (any, error) {
		if tokens, ok := r.fresh(name); ok {
			return fetchResult{tokens: tokens, found: true}, nil
		}
		doc, found, err := r.read(ctx, name)
		if err != nil || !found {
			return fetchResult{}, err
		}
		r.remember(name, doc.Tokens)
		return fetchResult{tokens: doc.Tokens, found: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := result.(fetchResult)
	return res.tokens, res.found, nil
}

func (r *Region) read(ctx context.Context, name string) (document, bool, error) {
	var doc document
	data, found, err := storage.ReadObject(ctx, r.client, r.bucket, name)
	if err != nil || !found {
		return doc, false, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, false, fmt.Errorf("failed to parse cache object %s: %w", name, err)
	}
	return doc, true, nil
}

// Put stores tokens as the entry of key.
func (r *Region) Put(ctx context.Context, key collection.Key, tokens []any) error {
	name := r.ObjectName(key)
	doc := document{
		Role:    key.Role.String(),
		Owner:   fmt.Sprint(key.OwnerID),
		Tokens:  tokens,
		Written: time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", name, err)
	}

	if err := storage.WriteObject(ctx, r.client, r.bucket, name, data, "application/json"); err != nil {
		r.forget(name)
		return err
	}
	r.remember(name, tokens)
	r.log.Debug("Cache entry written", zap.String("object", name), zap.Int("tokens", len(tokens)))
	return nil
}

// Evict removes the entry of key. Evicting a missing entry is not an error.
func (r *Region) Evict(ctx context.Context, key collection.Key) error {
	name := r.ObjectName(key)
	r.forget(name)
	if err := r.client.RemoveObject(ctx, r.bucket, name, minio.RemoveObjectOptions{}); err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("failed to remove cache object %s: %w", name, err)
	}
	return nil
}

// Purge removes every entry of role and returns how many objects were removed.
func (r *Region) Purge(ctx context.Context, role collection.Role) (int, error) {
	prefix := fmt.Sprintf("%s%s/", r.prefix, role)

	r.mu.Lock()
	for name := range r.local {
		if strings.HasPrefix(name, prefix) {
			delete(r.local, name)
		}
	}
	r.mu.Unlock()

	var names []string
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range r.client.ListObjects(ctx, r.bucket, opts) {
		if obj.Err != nil {
			return 0, fmt.Errorf("failed to list cache objects under %s: %w", prefix, obj.Err)
		}
		names = append(names, obj.Key)
	}
	if len(names) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(names))
	for _, name := range names {
		objectsCh <- minio.ObjectInfo{Key: name}
	}
	close(objectsCh)

	var errors []string
	for rerr := range r.client.RemoveObjects(ctx, r.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", rerr.ObjectName, rerr.Err))
		}
	}
	if len(errors) > 0 {
		return len(names) - len(errors), fmt.Errorf("purge had %d errors: %v", len(errors), errors)
	}

	r.log.Info("Cache region purged", zap.String("prefix", prefix), zap.Int("objects", len(names)))
	return len(names), nil
}
