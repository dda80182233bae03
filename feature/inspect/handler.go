package inspect

import (
	"errors"

	"collection-engine/core/collection"
	"collection-engine/core/logger"
	"collection-engine/core/mapping"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for collections.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the collection routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/collections")
	group.Get("/:role/:owner", h.HandleGetCollection)
	group.Get("/:role/:owner/size", h.HandleGetSize)
	group.Post("/:role/:owner/changes", h.HandlePostChange)
	group.Delete("/:role/cache", h.HandlePurgeCache)
}

// HandleGetCollection loads a collection and returns its rows.
func (h *Handler) HandleGetCollection(c *fiber.Ctx) error {
	role, err := mapping.ParseRole(c.Params("role"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.Describe(c.Context(), role, c.Params("owner"))
	if err != nil {
		l.Error("Collection load failed", zap.String("role", role.String()), zap.Error(err))
		return fail(c, statusOf(err), err)
	}
	return c.JSON(report)
}

// HandleGetSize returns the element count of a collection.
func (h *Handler) HandleGetSize(c *fiber.Ctx) error {
	role, err := mapping.ParseRole(c.Params("role"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	report, err := h.service.Size(c.Context(), role, c.Params("owner"))
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Collection size failed", zap.String("role", role.String()), zap.Error(err))
		return fail(c, statusOf(err), err)
	}
	return c.JSON(report)
}

// HandlePostChange edits a collection. Pass ?dry_run=true to only plan the
// resulting row mutations.
func (h *Handler) HandlePostChange(c *fiber.Ctx) error {
	role, err := mapping.ParseRole(c.Params("role"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	var change Change
	if err := c.BodyParser(&change); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.ApplyChange(c.Context(), role, c.Params("owner"), change, c.QueryBool("dry_run"))
	if err != nil {
		l.Error("Collection change failed", zap.String("role", role.String()), zap.Error(err))
		return fail(c, statusOf(err), err)
	}
	return c.JSON(report)
}

// HandlePurgeCache drops the cached entries of a role.
func (h *Handler) HandlePurgeCache(c *fiber.Ctx) error {
	role, err := mapping.ParseRole(c.Params("role"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	removed, err := h.service.Purge(c.Context(), role)
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Cache purge failed", zap.String("role", role.String()), zap.Error(err))
		return fail(c, statusOf(err), err)
	}
	return c.JSON(fiber.Map{"role": role.String(), "removed": removed})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrUnknownRole):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidChange):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrCacheDisabled):
		return fiber.StatusNotImplemented
	case errors.Is(err, collection.ErrUnsupportedOperation), errors.Is(err, collection.ErrIndexOutOfBounds):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
