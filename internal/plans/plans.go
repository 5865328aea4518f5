// Package plans stores week plans and generates them from presets.
package plans

import (
	"errors"
	"time"

	"meal-planner/internal/catalog"
)

var (
	ErrInvalidWeek   = errors.New("invalid week format. Use ISO 8601 format (e.g., 2025-W04)")
	ErrUnknownPreset = errors.New("unknown preset")
	ErrUnknownMeal   = errors.New("unknown meal")
)

// WeekPlan is a plan header with the number of planned meals.
type WeekPlan struct {
	ID         string    `json:"id"`
	WeekNumber string    `json:"week_number"`
	CreatedAt  time.Time `json:"created_at"`
	MealCount  int       `json:"meal_count"`
}

// Summary is a plan as shown in the plan list.
type Summary struct {
	ID         string    `json:"id"`
	WeekNumber string    `json:"week_number"`
	CreatedAt  time.Time `json:"created_at"`
	MealNames  []string  `json:"meal_names"`
	DoneCount  int       `json:"done_count"`
}

type PlannedMeal struct {
	ID       string        `json:"id"`
	MealID   string        `json:"meal_id"`
	MealName string        `json:"meal_name"`
	Done     bool          `json:"done"`
	Tags     []catalog.Tag `json:"tags"`
}

// Detail is a plan with its meals, ordered by meal name.
type Detail struct {
	ID         string        `json:"id"`
	WeekNumber string        `json:"week_number"`
	CreatedAt  time.Time     `json:"created_at"`
	StartDate  string        `json:"start_date"`
	EndDate    string        `json:"end_date"`
	Meals      []PlannedMeal `json:"meals"`
}

// Generated is the outcome of generating a plan.
type Generated struct {
	ID         string   `json:"id"`
	WeekNumber string   `json:"week_number"`
	Preset     string   `json:"preset"`
	MealIDs    []string `json:"meal_ids"`
	Warnings   []string `json:"warnings"`
}
