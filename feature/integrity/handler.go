package integrity

import (
	"collection-engine/core/collection"
	"collection-engine/core/logger"
	"collection-engine/core/mapping"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/cache/:role/:owner", h.HandleCacheCheck)
}

// HandleSchemaCheck verifies the collection row table.
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.Matched {
		l.Warn("Schema drift detected", zap.Strings("errors", report.Errors))
	}
	return c.JSON(report)
}

// HandleCacheCheck compares a cache entry with its rows and optionally evicts
// it when stale.
func (h *Handler) HandleCacheCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	role, err := mapping.ParseRole(c.Params("role"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	key := collection.Key{OwnerID: c.Params("owner"), Role: role}

	report, err := h.service.CheckCache(c.Context(), key)
	if err != nil {
		l.Error("Cache check failed", zap.String("collection", key.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if report.Status == "stale" {
		l.Warn("Stale cache entry detected", zap.String("collection", key.String()))

		if fix {
			if err := h.service.FixCache(c.Context(), key); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to evict cache entry",
					"details": err.Error(),
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"report": report,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "checked",
		"report": report,
	})
}
