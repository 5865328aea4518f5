package plans

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"meal-planner/internal/generation"
	"meal-planner/internal/week"
)

// maxWeekLookahead bounds the search for a free week.
const maxWeekLookahead = 10

// CandidateSource supplies the meal catalog to the generator.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]generation.MealCandidate, error)
}

// Service generates plans and answers week questions on top of Repository.
type Service struct {
	repo     *Repository
	meals    CandidateSource
	presets  *generation.Catalog
	engine   *generation.Engine
	schedule *Schedule
	now      func() time.Time
}

// NewService wires a service. A nil engine draws from the global random source.
func NewService(repo *Repository, meals CandidateSource, presets *generation.Catalog, schedule *Schedule, engine *generation.Engine) *Service {
	if engine == nil {
		engine = generation.NewEngine(nil)
	}
	return &Service{
		repo:     repo,
		meals:    meals,
		presets:  presets,
		engine:   engine,
		schedule: schedule,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Presets() []generation.Preset {
	return s.presets.All()
}

// CurrentWeek returns the plan week containing the current time.
func (s *Service) CurrentWeek() string {
	return week.Current(s.now())
}

// NextAvailableWeek returns the first week after the current one that has no
// plan. After maxWeekLookahead occupied weeks it returns the last one tried.
func (s *Service) NextAvailableWeek(ctx context.Context) (string, error) {
	existing, err := s.repo.ExistingWeeks(ctx)
	if err != nil {
		return "", err
	}
	candidate, err := week.Increment(s.CurrentWeek())
	if err != nil {
		return "", err
	}
	for i := 0; i < maxWeekLookahead && existing[candidate]; i++ {
		next, err := week.Increment(candidate)
		if err != nil {
			return "", err
		}
		candidate = next
	}
	return candidate, nil
}

// DefaultPreset returns the preset key the schedule assigns to weekNumber.
func (s *Service) DefaultPreset(weekNumber string) (string, error) {
	w, err := week.Parse(weekNumber)
	if err != nil {
		return "", ErrInvalidWeek
	}
	return s.schedule.Pick(w)
}

// Preview runs the generator without persisting anything.
func (s *Service) Preview(ctx context.Context, weekNumber, presetKey string) (*Generated, error) {
	weekNumber = strings.TrimSpace(weekNumber)
	preset, err := s.resolve(weekNumber, presetKey)
	if err != nil {
		return nil, err
	}
	res, err := s.run(ctx, weekNumber, preset)
	if err != nil {
		return nil, err
	}
	return &Generated{
		WeekNumber: weekNumber,
		Preset:     preset.Key,
		MealIDs:    res.MealIDs,
		Warnings:   res.Messages(),
	}, nil
}

// Generate builds a plan for weekNumber from a preset and stores it. An empty
// presetKey uses the schedule. A week that already has a plan fails with
// store.ErrUniqueViolation.
func (s *Service) Generate(ctx context.Context, weekNumber, presetKey string) (*Generated, error) {
	weekNumber = strings.TrimSpace(weekNumber)
	preset, err := s.resolve(weekNumber, presetKey)
	if err != nil {
		return nil, err
	}
	res, err := s.run(ctx, weekNumber, preset)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.CreateWithMeals(ctx, weekNumber, res.MealIDs)
	if err != nil {
		return nil, err
	}
	if len(res.Warnings) > 0 {
		log.Printf("WARN: plan %s generated with %d warnings using preset %s", weekNumber, len(res.Warnings), preset.Key)
	}
	return &Generated{
		ID:         plan.ID,
		WeekNumber: plan.WeekNumber,
		Preset:     preset.Key,
		MealIDs:    res.MealIDs,
		Warnings:   res.Messages(),
	}, nil
}

func (s *Service) resolve(weekNumber, presetKey string) (generation.Preset, error) {
	if !week.Valid(weekNumber) {
		return generation.Preset{}, ErrInvalidWeek
	}
	presetKey = strings.TrimSpace(presetKey)
	if presetKey == "" {
		key, err := s.DefaultPreset(weekNumber)
		if err != nil {
			return generation.Preset{}, err
		}
		presetKey = key
	}
	preset, ok := s.presets.FindPreset(presetKey)
	if !ok {
		return generation.Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, presetKey)
	}
	return preset, nil
}

func (s *Service) run(ctx context.Context, weekNumber string, preset generation.Preset) (generation.Result, error) {
	candidates, err := s.meals.Candidates(ctx)
	if err != nil {
		return generation.Result{}, fmt.Errorf("load catalog: %w", err)
	}
	previous, err := s.repo.PreviousDoneMealIDs(ctx, weekNumber)
	if err != nil {
		return generation.Result{}, err
	}
	return s.engine.Generate(preset, candidates, previous), nil
}
