package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"meal-planner/internal/auth"
	"meal-planner/internal/catalog"
	"meal-planner/internal/config"
	"meal-planner/internal/generation"
	"meal-planner/internal/plans"
	"meal-planner/internal/store"
)

func main() {
	flags := flag.NewFlagSet("mealctl", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to the config file (defaults to app.yaml)")
	flags.Usage = printUsage
	flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap schema: %v", err)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "user-add":
		err = userAdd(ctx, auth.NewUsers(db), arg(rest, 0, "user-add <email>"))
	case "user-delete":
		err = userDelete(ctx, auth.NewUsers(db), arg(rest, 0, "user-delete <email>"))
	case "user-reset-password":
		err = userResetPassword(ctx, auth.NewUsers(db), arg(rest, 0, "user-reset-password <email>"))
	case "seed":
		err = seed(ctx, catalog.NewRepository(db), arg(rest, 0, "seed <file.json>"))
	case "generate":
		preset := ""
		if len(rest) > 1 {
			preset = rest[1]
		}
		err = generate(ctx, cfg, db, arg(rest, 0, "generate <week> [preset]"), preset)
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func arg(args []string, i int, usage string) string {
	if len(args) <= i {
		fmt.Printf("Usage: mealctl %s\n", usage)
		os.Exit(1)
	}
	return args[i]
}

func userAdd(ctx context.Context, users *auth.Users, email string) error {
	password, err := auth.GeneratePassword()
	if err != nil {
		return err
	}
	if _, err := users.Create(ctx, email, password); err != nil {
		return err
	}
	fmt.Println("User created successfully!")
	fmt.Printf("Email: %s\n", email)
	fmt.Printf("Password: %s\n", password)
	fmt.Println("\nSave this password - it cannot be recovered.")
	return nil
}

func userDelete(ctx context.Context, users *auth.Users, email string) error {
	if err := users.Delete(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user with email %q not found", email)
		}
		return err
	}
	fmt.Printf("User %s deleted.\n", email)
	return nil
}

func userResetPassword(ctx context.Context, users *auth.Users, email string) error {
	password, err := auth.GeneratePassword()
	if err != nil {
		return err
	}
	if err := users.SetPassword(ctx, email, password); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user with email %q not found", email)
		}
		return err
	}
	fmt.Println("Password reset successfully!")
	fmt.Printf("Email: %s\n", email)
	fmt.Printf("New password: %s\n", password)
	fmt.Println("\nSave this password - it cannot be recovered.")
	return nil
}

func seed(ctx context.Context, repo *catalog.Repository, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	meals, err := catalog.ReadSeed(f)
	if err != nil {
		return err
	}
	fmt.Printf("Seeding %d meals...\n", len(meals))
	report, err := repo.Seed(ctx, meals)
	if err != nil {
		return err
	}
	fmt.Printf("Tags created: %d\n", report.TagsCreated)
	fmt.Printf("Meals created: %d (skipped %d existing)\n", report.MealsCreated, report.MealsSkipped)
	fmt.Printf("Tag links added: %d\n", report.LinksAdded)
	return nil
}

// generate previews a plan for week without storing it.
func generate(ctx context.Context, cfg *config.Config, db *store.Store, week, preset string) error {
	presets := cfg.Generation.Catalog()
	schedule, err := plans.NewSchedule(cfg.Generation.Schedule, presets)
	if err != nil {
		return err
	}
	catalogRepo := catalog.NewRepository(db)
	svc := plans.NewService(plans.NewRepository(db), catalogRepo, presets, schedule, generation.NewEngine(nil))

	gen, err := svc.Preview(ctx, week, preset)
	if err != nil {
		return err
	}
	candidates, err := catalogRepo.Candidates(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.Name
	}

	fmt.Printf("Week %s, preset %s (dry run)\n", gen.WeekNumber, gen.Preset)
	for i, id := range gen.MealIDs {
		fmt.Printf("%2d. %s\n", i+1, names[id])
	}
	for _, w := range gen.Warnings {
		fmt.Printf("WARN: %s\n", w)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: mealctl [-config app.yaml] <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  user-add <email>              Create a user with a generated password")
	fmt.Println("  user-delete <email>           Delete a user and their sessions")
	fmt.Println("  user-reset-password <email>   Replace a user's password")
	fmt.Println("  seed <file.json>              Import meals and tags (idempotent)")
	fmt.Println("  generate <week> [preset]      Preview a generated plan without saving")
}
