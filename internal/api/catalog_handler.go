package api

import (
	"github.com/gofiber/fiber/v2"
)

type tagBody struct {
	Name string `json:"name"`
}

type mealBody struct {
	Name   string   `json:"name"`
	TagIDs []string `json:"tag_ids"`
}

// ListTags handles GET /api/tags
func (h *Handler) ListTags(c *fiber.Ctx) error {
	tags, err := h.catalog.ListTags(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tags})
}

// GetTag handles GET /api/tags/:id
func (h *Handler) GetTag(c *fiber.Ctx) error {
	id, err := pathID(c, "tag")
	if err != nil {
		return err
	}
	tag, err := h.catalog.GetTag(c.UserContext(), id)
	if err != nil {
		return writeError(err, "tag", id)
	}
	return c.JSON(fiber.Map{"data": tag})
}

// CreateTag handles POST /api/tags
func (h *Handler) CreateTag(c *fiber.Ctx) error {
	var body tagBody
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError()
	}
	tag, err := h.catalog.CreateTag(c.UserContext(), body.Name)
	if err != nil {
		return writeError(err, "tag", "")
	}
	return c.Status(201).JSON(fiber.Map{"data": tag})
}

// UpdateTag handles PUT /api/tags/:id
func (h *Handler) UpdateTag(c *fiber.Ctx) error {
	id, err := pathID(c, "tag")
	if err != nil {
		return err
	}
	var body tagBody
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError()
	}
	tag, err := h.catalog.UpdateTag(c.UserContext(), id, body.Name)
	if err != nil {
		return writeError(err, "tag", id)
	}
	return c.JSON(fiber.Map{"data": tag})
}

// DeleteTag handles DELETE /api/tags/:id
func (h *Handler) DeleteTag(c *fiber.Ctx) error {
	id, err := pathID(c, "tag")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteTag(c.UserContext(), id); err != nil {
		return writeError(err, "tag", id)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// ListMeals handles GET /api/meals
func (h *Handler) ListMeals(c *fiber.Ctx) error {
	meals, err := h.catalog.ListMeals(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": meals})
}

// GetMeal handles GET /api/meals/:id
func (h *Handler) GetMeal(c *fiber.Ctx) error {
	id, err := pathID(c, "meal")
	if err != nil {
		return err
	}
	meal, err := h.catalog.GetMeal(c.UserContext(), id)
	if err != nil {
		return writeError(err, "meal", id)
	}
	return c.JSON(fiber.Map{"data": meal})
}

// CreateMeal handles POST /api/meals
func (h *Handler) CreateMeal(c *fiber.Ctx) error {
	var body mealBody
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError()
	}
	if err := checkIDs("tag_ids", body.TagIDs); err != nil {
		return err
	}
	meal, err := h.catalog.CreateMeal(c.UserContext(), body.Name, body.TagIDs)
	if err != nil {
		return writeError(err, "meal", "")
	}
	return c.Status(201).JSON(fiber.Map{"data": meal})
}

// UpdateMeal handles PUT /api/meals/:id
func (h *Handler) UpdateMeal(c *fiber.Ctx) error {
	id, err := pathID(c, "meal")
	if err != nil {
		return err
	}
	var body mealBody
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError()
	}
	if err := checkIDs("tag_ids", body.TagIDs); err != nil {
		return err
	}
	meal, err := h.catalog.UpdateMeal(c.UserContext(), id, body.Name, body.TagIDs)
	if err != nil {
		return writeError(err, "meal", id)
	}
	return c.JSON(fiber.Map{"data": meal})
}

// DeleteMeal handles DELETE /api/meals/:id
func (h *Handler) DeleteMeal(c *fiber.Ctx) error {
	id, err := pathID(c, "meal")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteMeal(c.UserContext(), id); err != nil {
		return writeError(err, "meal", id)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}
