package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"meal-planner/internal/api"
	"meal-planner/internal/auth"
	"meal-planner/internal/catalog"
	"meal-planner/internal/config"
	"meal-planner/internal/generation"
	"meal-planner/internal/plans"
	"meal-planner/internal/scheduler"
	"meal-planner/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, driver: %s, db: %s)", cfg.Server.Port, cfg.Database.Driver, cfg.Database.Name)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Apply schema migrations
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap schema: %v", err)
	}
	log.Println("Schema ready")

	// 4. Presets and season schedule
	presets := cfg.Generation.Catalog()
	schedule, err := plans.NewSchedule(cfg.Generation.Schedule, presets)
	if err != nil {
		log.Fatalf("Invalid generation schedule: %v", err)
	}
	log.Printf("Loaded %d presets", presets.Len())

	// 5. Repositories and services
	catalogRepo := catalog.NewRepository(db)
	planRepo := plans.NewRepository(db)
	planService := plans.NewService(planRepo, catalogRepo, presets, schedule, generation.NewEngine(nil))
	users := auth.NewUsers(db)

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Auth routes (registered before the protected /api group)
	authMW := auth.AuthMiddleware(cfg.JWTSecret)
	authHandler := auth.NewAuthHandler(users, cfg.JWTSecret, cfg.Auth)
	auth.RegisterAuthRoutes(app, authHandler, authMW)

	// 9. Catalog and plan routes (auth required)
	api.RegisterRoutes(app, api.NewHandler(catalogRepo, planRepo, planService), authMW)

	// 10. Start refresh token cleanup
	sched := scheduler.New(users, cfg.Scheduler.TokenCleanupInterval)
	sched.Start()
	defer sched.Stop()

	// 11. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}
