package loader_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"collection-engine/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeature struct {
	name    string
	enabled bool
	err     error
	loads   int
}

func (f *stubFeature) Name() string    { return f.name }
func (f *stubFeature) IsEnabled() bool { return f.enabled }

func (f *stubFeature) Load(app fiber.Router) error {
	f.loads++
	if f.err != nil {
		return f.err
	}
	app.Get("/"+f.name, func(c *fiber.Ctx) error { return c.SendString(f.name) })
	return nil
}

func TestManager_LoadAll(t *testing.T) {
	app := fiber.New()
	on := &stubFeature{name: "inspect", enabled: true}
	off := &stubFeature{name: "other"}

	mgr := loader.NewManager()
	mgr.Register(on)
	mgr.Register(off)
	mgr.Register(nil)
	assert.Len(t, mgr.Features(), 2)

	loaded, err := mgr.LoadAll(app)
	require.NoError(t, err)
	assert.Equal(t, []string{"inspect"}, loaded)
	assert.Equal(t, 1, on.loads)
	assert.Equal(t, 0, off.loads)

	resp, err := app.Test(httptest.NewRequest("GET", "/inspect", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestManager_LoadAllFailure(t *testing.T) {
	mgr := loader.NewManager()
	mgr.Register(&stubFeature{name: "a", enabled: true})
	mgr.Register(&stubFeature{name: "b", enabled: true, err: errors.New("boom")})
	mgr.Register(&stubFeature{name: "c", enabled: true})

	loaded, err := mgr.LoadAll(fiber.New())
	assert.ErrorContains(t, err, "failed to load feature b")
	assert.Equal(t, []string{"a"}, loaded)
}

func TestManager_DuplicateName(t *testing.T) {
	mgr := loader.NewManager()
	mgr.Register(&stubFeature{name: "a", enabled: true})
	mgr.Register(&stubFeature{name: "a"})

	_, err := mgr.LoadAll(fiber.New())
	assert.ErrorContains(t, err, "registered twice")
}
