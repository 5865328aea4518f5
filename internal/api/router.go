package api

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the catalog and plan routes behind authMW.
func RegisterRoutes(app *fiber.App, h *Handler, authMW fiber.Handler) {
	api := app.Group("/api", authMW)

	api.Get("/tags", h.ListTags)
	api.Post("/tags", h.CreateTag)
	api.Get("/tags/:id", h.GetTag)
	api.Put("/tags/:id", h.UpdateTag)
	api.Delete("/tags/:id", h.DeleteTag)

	api.Get("/meals", h.ListMeals)
	api.Post("/meals", h.CreateMeal)
	api.Get("/meals/:id", h.GetMeal)
	api.Put("/meals/:id", h.UpdateMeal)
	api.Delete("/meals/:id", h.DeleteMeal)

	api.Get("/presets", h.ListPresets)
	api.Get("/presets/default", h.DefaultPreset)

	api.Get("/plans", h.ListPlans)
	api.Post("/plans", h.CreatePlan)
	api.Get("/plans/next-week", h.NextWeek)
	api.Get("/plans/current", h.CurrentPlan)
	api.Post("/plans/generate", h.GeneratePlan)
	api.Get("/plans/:id", h.GetPlan)
	api.Put("/plans/:id", h.UpdatePlan)
	api.Delete("/plans/:id", h.DeletePlan)
	api.Post("/plans/:id/meals", h.AddPlannedMeal)

	api.Post("/planned-meals/:id/toggle", h.TogglePlannedMeal)
	api.Delete("/planned-meals/:id", h.RemovePlannedMeal)
}
