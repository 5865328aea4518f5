package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"meal-planner/internal/store"
)

type planBody struct {
	WeekNumber string   `json:"week_number"`
	MealIDs    []string `json:"meal_ids"`
}

type generateBody struct {
	WeekNumber string `json:"week_number"`
	Preset     string `json:"preset"`
}

// ListPresets handles GET /api/presets
func (h *Handler) ListPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Presets()})
}

// DefaultPreset handles GET /api/presets/default?week=2025-W04. Without a
// week it answers for the next free week.
func (h *Handler) DefaultPreset(c *fiber.Ctx) error {
	weekNumber := strings.TrimSpace(c.Query("week"))
	if weekNumber == "" {
		next, err := h.service.NextAvailableWeek(c.UserContext())
		if err != nil {
			return err
		}
		weekNumber = next
	}
	key, err := h.service.DefaultPreset(weekNumber)
	if err != nil {
		return planError(err, "")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"week_number": weekNumber, "preset": key}})
}

// ListPlans handles GET /api/plans
func (h *Handler) ListPlans(c *fiber.Ctx) error {
	list, err := h.plans.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": list})
}

// NextWeek handles GET /api/plans/next-week
func (h *Handler) NextWeek(c *fiber.Ctx) error {
	next, err := h.service.NextAvailableWeek(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"week_number": next}})
}

// CurrentPlan handles GET /api/plans/current
func (h *Handler) CurrentPlan(c *fiber.Ctx) error {
	current := h.service.CurrentWeek()
	plan, err := h.plans.GetByWeek(c.UserContext(), current)
	if errors.Is(err, store.ErrNotFound) {
		return NewAppError("NOT_FOUND", 404, "No plan for week "+current)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": plan})
}

// GetPlan handles GET /api/plans/:id
func (h *Handler) GetPlan(c *fiber.Ctx) error {
	id, err := pathID(c, "plan")
	if err != nil {
		return err
	}
	plan, err := h.plans.Get(c.UserContext(), id)
	if err != nil {
		return planError(err, id)
	}
	return c.JSON(fiber.Map{"data": plan})
}

// CreatePlan handles POST /api/plans
func (h *Handler) CreatePlan(c *fiber.Ctx) error {
	var body planBody
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError()
	}
	if err := checkIDs("meal_ids", body.MealIDs); err != nil {
		return err
	}
	ctx := c.UserContext()
	created, err := h.plans.CreateWithMeals(ctx, strings.TrimSpace(body.WeekNumber), body.MealIDs)
	if err != nil {
		return planError(err, "")
	}
	plan, err := h.plans.Get(ctx, created.ID)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": plan})
}

// GeneratePlan handles POST /api/plans/generate
func (h *Handler) GeneratePlan(c *fiber.Ctx) error {
	var body generateBody
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError()
	}
	gen, err := h.service.Generate(c.UserContext(), body.WeekNumber, body.Preset)
	if err != nil {
		return planError(err, "")
	}
	return c.Status(201).JSON(fiber.Map{"data": fiber.Map{
		"id":          gen.ID,
		"week_number": gen.WeekNumber,
		"preset":      gen.Preset,
		"warnings":    gen.Warnings,
	}})
}

// UpdatePlan handles PUT /api/plans/:id
func (h *Handler) UpdatePlan(c *fiber.Ctx) error {
	id, err := pathID(c, "plan")
	if err != nil {
		return err
	}
	var body planBody
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError()
	}
	if err := checkIDs("meal_ids", body.MealIDs); err != nil {
		return err
	}
	plan, err := h.plans.Update(c.UserContext(), id, strings.TrimSpace(body.WeekNumber), body.MealIDs)
	if err != nil {
		return planError(err, id)
	}
	return c.JSON(fiber.Map{"data": plan})
}

// DeletePlan handles DELETE /api/plans/:id
func (h *Handler) DeletePlan(c *fiber.Ctx) error {
	id, err := pathID(c, "plan")
	if err != nil {
		return err
	}
	if err := h.plans.Delete(c.UserContext(), id); err != nil {
		return planError(err, id)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// AddPlannedMeal handles POST /api/plans/:id/meals
func (h *Handler) AddPlannedMeal(c *fiber.Ctx) error {
	id, err := pathID(c, "plan")
	if err != nil {
		return err
	}
	var body struct {
		MealID string `json:"meal_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError()
	}
	if err := checkIDs("meal_id", []string{body.MealID}); err != nil {
		return err
	}
	pm, err := h.plans.AddMeal(c.UserContext(), id, body.MealID)
	if err != nil {
		return planError(err, id)
	}
	return c.Status(201).JSON(fiber.Map{"data": pm})
}

// TogglePlannedMeal handles POST /api/planned-meals/:id/toggle
func (h *Handler) TogglePlannedMeal(c *fiber.Ctx) error {
	id, err := pathID(c, "planned meal")
	if err != nil {
		return err
	}
	done, err := h.plans.ToggleDone(c.UserContext(), id)
	if err != nil {
		return writeError(err, "planned meal", id)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "done": done}})
}

// RemovePlannedMeal handles DELETE /api/planned-meals/:id
func (h *Handler) RemovePlannedMeal(c *fiber.Ctx) error {
	id, err := pathID(c, "planned meal")
	if err != nil {
		return err
	}
	if err := h.plans.RemoveMeal(c.UserContext(), id); err != nil {
		return writeError(err, "planned meal", id)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}
