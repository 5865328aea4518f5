// Package api exposes the catalog and plans over HTTP.
package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/plans"
	"meal-planner/internal/store"
)

type Handler struct {
	catalog *catalog.Repository
	plans   *plans.Repository
	service *plans.Service
}

func NewHandler(cat *catalog.Repository, repo *plans.Repository, svc *plans.Service) *Handler {
	return &Handler{catalog: cat, plans: repo, service: svc}
}

// pathID returns the :id parameter. Values that are not UUIDs cannot exist
// and are reported as not found.
func pathID(c *fiber.Ctx, entity string) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", NotFoundError(entity, id)
	}
	return id, nil
}

// checkIDs rejects ids that are not UUIDs.
func checkIDs(field string, ids []string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return FieldError(field, fmt.Sprintf("Invalid id: %s", id))
		}
	}
	return nil
}

// writeError translates domain and store errors into AppErrors. Unknown
// errors pass through to the error handler.
func writeError(err error, entity, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError(entity, id)
	case errors.Is(err, store.ErrUniqueViolation):
		return ConflictError(fmt.Sprintf("A %s with this name already exists", entity))
	case errors.Is(err, catalog.ErrNameRequired):
		return FieldError("name", "Name is required")
	case errors.Is(err, catalog.ErrUnknownTag):
		return FieldError("tag_ids", err.Error())
	case errors.Is(err, plans.ErrInvalidWeek):
		return FieldError("week_number", plans.ErrInvalidWeek.Error())
	case errors.Is(err, plans.ErrUnknownPreset):
		return FieldError("preset", err.Error())
	case errors.Is(err, plans.ErrUnknownMeal):
		return FieldError("meal_ids", err.Error())
	}
	return err
}

// planError is writeError with the plan-specific conflict message.
func planError(err error, id string) error {
	if errors.Is(err, store.ErrUniqueViolation) {
		return ConflictError("A plan for this week already exists")
	}
	return writeError(err, "plan", id)
}
