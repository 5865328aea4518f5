package plans

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"meal-planner/internal/config"
	"meal-planner/internal/generation"
	"meal-planner/internal/store"
	"meal-planner/internal/week"
)

var testPresets = []generation.Preset{
	{
		Name:           "Test",
		Key:            "test",
		FixedMealNames: []string{"soupe", "Ghost"},
		RandomRules: []generation.RandomRule{
			{Count: 1, RequiredTag: "pasta", ExcludedTags: []string{"soup"}},
		},
	},
	{
		Name:           "Other",
		Key:            "other",
		FixedMealNames: []string{"Soupe"},
	},
}

func newService(t *testing.T, f *fixture, rules []config.SeasonRule) *Service {
	t.Helper()
	presets := generation.NewCatalog(testPresets)
	schedule, err := NewSchedule(rules, presets)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	engine := generation.NewEngine(rand.New(rand.NewPCG(7, 11)))
	svc := NewService(f.plans, f.catalog, presets, schedule, engine)
	// Wednesday 2025-03-05 falls in plan week 2025-W09.
	svc.SetClock(func() time.Time { return time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC) })
	return svc
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	soup := f.meal(t, "Soupe", "soup")
	carbo := f.meal(t, "Carbonara", "pasta")
	svc := newService(t, f, nil)

	gen, err := svc.Generate(ctx, " 2025-W10 ", "test")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.ID == "" || gen.WeekNumber != "2025-W10" || gen.Preset != "test" {
		t.Fatalf("unexpected result %+v", gen)
	}
	if len(gen.MealIDs) != 2 || gen.MealIDs[0] != soup.ID || gen.MealIDs[1] != carbo.ID {
		t.Fatalf("expected [soup carbonara], got %v", gen.MealIDs)
	}
	if len(gen.Warnings) != 1 || gen.Warnings[0] != `Fixed meal "Ghost" not found` {
		t.Fatalf("unexpected warnings %v", gen.Warnings)
	}

	detail, err := f.plans.Get(ctx, gen.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Meals) != 2 {
		t.Fatalf("expected 2 stored meals, got %+v", detail.Meals)
	}

	if _, err := svc.Generate(ctx, "2025-W10", "test"); !errors.Is(err, store.ErrUniqueViolation) {
		t.Fatalf("expected unique violation for existing week, got %v", err)
	}
	if _, err := svc.Generate(ctx, "2025-10", "test"); !errors.Is(err, ErrInvalidWeek) {
		t.Fatalf("expected ErrInvalidWeek, got %v", err)
	}
	if _, err := svc.Generate(ctx, "2025-W12", "autumn"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestService_GenerateSkipsPreviouslyDoneMeals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.meal(t, "Soupe", "soup")
	carbo := f.meal(t, "Carbonara", "pasta")
	bolo := f.meal(t, "Bolognese", "pasta")
	svc := newService(t, f, nil)

	prev, err := f.plans.CreateWithMeals(ctx, "2025-W09", []string{carbo.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d, _ := f.plans.Get(ctx, prev.ID)
	if _, err := f.plans.ToggleDone(ctx, d.Meals[0].ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	for _, w := range []string{"2025-W10", "2025-W11"} {
		gen, err := svc.Preview(ctx, w, "test")
		if err != nil {
			t.Fatalf("preview: %v", err)
		}
		if w == "2025-W10" {
			if len(gen.MealIDs) != 2 || gen.MealIDs[1] != bolo.ID {
				t.Fatalf("expected Bolognese after done Carbonara, got %v", gen.MealIDs)
			}
		}
		if gen.ID != "" {
			t.Fatalf("preview must not persist, got id %s", gen.ID)
		}
	}
	weeks, _ := f.plans.ExistingWeeks(ctx)
	if len(weeks) != 1 {
		t.Fatalf("expected preview to leave plans untouched, got %v", weeks)
	}
}

func TestService_GenerateUsesSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.meal(t, "Soupe", "soup")
	svc := newService(t, f, []config.SeasonRule{
		{Preset: "other", When: "month == 1"},
		{Preset: "test", When: "true"},
	})

	gen, err := svc.Generate(ctx, "2025-W02", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.Preset != "other" {
		t.Fatalf("expected scheduled preset other, got %s", gen.Preset)
	}
	if len(gen.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", gen.Warnings)
	}
}

func TestService_NextAvailableWeek(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newService(t, f, nil)

	if got := svc.CurrentWeek(); got != "2025-W09" {
		t.Fatalf("expected current week 2025-W09, got %s", got)
	}
	next, err := svc.NextAvailableWeek(ctx)
	if err != nil {
		t.Fatalf("next week: %v", err)
	}
	if next != "2025-W10" {
		t.Fatalf("expected 2025-W10, got %s", next)
	}

	for _, w := range []string{"2025-W10", "2025-W11"} {
		if _, err := f.plans.Create(ctx, w); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	next, _ = svc.NextAvailableWeek(ctx)
	if next != "2025-W12" {
		t.Fatalf("expected 2025-W12, got %s", next)
	}
}

func TestService_NextAvailableWeekGivesUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newService(t, f, nil)

	w := "2025-W09"
	for i := 0; i < 12; i++ {
		var err error
		if w, err = week.Increment(w); err != nil {
			t.Fatalf("increment: %v", err)
		}
		if _, err := f.plans.Create(ctx, w); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	next, err := svc.NextAvailableWeek(ctx)
	if err != nil {
		t.Fatalf("next week: %v", err)
	}
	// W10 plus ten increments.
	if next != "2025-W20" {
		t.Fatalf("expected 2025-W20, got %s", next)
	}
}

func TestSchedule_DefaultSeasons(t *testing.T) {
	schedule, err := NewSchedule(config.DefaultSchedule, generation.DefaultCatalog())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	tests := []struct {
		week string
		want string
	}{
		{"2025-W02", "winter"}, // Saturday 2025-01-11
		{"2025-W13", "winter"}, // Saturday 2025-03-29
		{"2025-W14", "summer"}, // Saturday 2025-04-05
		{"2025-W27", "summer"},
		{"2025-W39", "summer"}, // Saturday 2025-09-27
		{"2025-W40", "winter"}, // Saturday 2025-10-04
		{"2026-W01", "winter"},
	}
	for _, tt := range tests {
		w, err := week.Parse(tt.week)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.week, err)
		}
		got, err := schedule.Pick(w)
		if err != nil {
			t.Fatalf("pick %s: %v", tt.week, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.week, tt.want, got)
		}
	}
}

func TestSchedule_FallbackAndErrors(t *testing.T) {
	presets := generation.NewCatalog(testPresets)

	s, err := NewSchedule([]config.SeasonRule{{Preset: "other", When: "year < 2000"}}, presets)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	got, err := s.Pick(week.Week{Year: 2025, Num: 20})
	if err != nil || got != "test" {
		t.Fatalf("expected fallback to first preset, got %q (%v)", got, err)
	}

	if _, err := NewSchedule([]config.SeasonRule{{Preset: "nope", When: "true"}}, presets); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
	if _, err := NewSchedule([]config.SeasonRule{{Preset: "test", When: "month +"}}, presets); err == nil {
		t.Fatal("expected compile error")
	}
	if _, err := NewSchedule([]config.SeasonRule{{Preset: "test", When: "month + 1"}}, presets); err == nil {
		t.Fatal("expected non-boolean expression to be rejected")
	}
	if _, err := NewSchedule([]config.SeasonRule{{Preset: "test", When: "season == 1"}}, presets); err == nil {
		t.Fatal("expected unknown variable to be rejected")
	}
}

func TestSchedule_CustomPresetsWithoutSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	body := "generation:\n  presets:\n    - key: spring\n      name: Spring\n    - key: autumn\n      name: Autumn\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	schedule, err := NewSchedule(cfg.Generation.Schedule, cfg.Generation.Catalog())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	for _, w := range []week.Week{{Year: 2025, Num: 2}, {Year: 2025, Num: 27}} {
		got, err := schedule.Pick(w)
		if err != nil || got != "spring" {
			t.Fatalf("%s: expected first preset spring, got %q (%v)", w, got, err)
		}
	}
}
