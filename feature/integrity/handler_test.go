package integrity_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"collection-engine/core/collection"
	"collection-engine/core/mapping"
	"collection-engine/feature/integrity"
	"collection-engine/feature/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string][]any
}

func (m *memCache) Get(_ context.Context, key collection.Key) ([]any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens, ok := m.entries[key.String()]
	return tokens, ok, nil
}

func (m *memCache) Put(_ context.Context, key collection.Key, tokens []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key.String()] = tokens
	return nil
}

func (m *memCache) Evict(_ context.Context, key collection.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key.String())
	return nil
}

var linesKey = collection.Key{OwnerID: "7", Role: collection.Role{Owner: "Order", Property: "lines"}}

func setupTestApp(t *testing.T) (*fiber.App, *memCache) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	reg, err := mapping.BuildRegistry(mapping.Config{Roles: "Order.lines=bag,element=int"})
	require.NoError(t, err)
	cache := &memCache{entries: map[string][]any{}}
	st := store.New(db, reg, zap.NewNop(), store.WithCache(cache))
	require.NoError(t, st.Migrate(context.Background()))

	seed := st.OpenSession()
	_, err = seed.Wrap(linesKey.Role, linesKey.OwnerID, collection.RawListOf(1, 2))
	require.NoError(t, err)
	_, _, err = seed.Flush(context.Background())
	require.NoError(t, err)
	seed.Close()

	feature := integrity.NewFeature(db, st, cache, zap.NewNop())
	assert.Equal(t, "integrity", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	require.NoError(t, feature.Load(app))
	return app, cache
}

func getJSON(t *testing.T, app *fiber.App, url string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", url, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleSchemaCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/schema")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, "sqlite", body["driver"])
}

func TestHandleCacheCheck(t *testing.T) {
	app, cache := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/cache/Order.lines/7")
	require.Equal(t, 200, status)
	assert.Equal(t, "checked", body["status"])
	assert.Equal(t, "ok", body["report"].(map[string]any)["status"], "Flush writes the entry through")

	require.NoError(t, cache.Put(context.Background(), linesKey, []any{1}))

	status, body = getJSON(t, app, "/integrity/cache/Order.lines/7")
	require.Equal(t, 200, status)
	assert.Equal(t, "stale", body["report"].(map[string]any)["status"])

	status, body = getJSON(t, app, "/integrity/cache/Order.lines/7?fix=true")
	require.Equal(t, 200, status)
	assert.Equal(t, "fixed", body["status"])

	_, found, _ := cache.Get(context.Background(), linesKey)
	assert.False(t, found)
}

func TestHandleCacheCheck_BadRole(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/cache/lines/7")
	assert.Equal(t, 400, status)
	assert.NotEmpty(t, body["error"])
}
