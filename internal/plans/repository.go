package plans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/store"
	"meal-planner/internal/week"
)

type Repository struct {
	store *store.Store
}

func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// List returns every plan, newest week first, with meal names in name order.
func (r *Repository) List(ctx context.Context) ([]Summary, error) {
	d := r.store.Dialect
	rows, err := store.Query(ctx, d, r.store.DB,
		"SELECT id, week_number, created_at FROM week_plans ORDER BY week_number DESC")
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	plans := []Summary{}
	index := make(map[string]int)
	for rows.Next() {
		var p Summary
		if err := rows.Scan(&p.ID, &p.WeekNumber, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.MealNames = []string{}
		index[p.ID] = len(plans)
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(plans) == 0 {
		return plans, nil
	}

	rows, err = store.Query(ctx, d, r.store.DB,
		`SELECT pm.week_plan_id, m.name, pm.done
		 FROM planned_meals pm
		 JOIN meals m ON m.id = pm.meal_id
		 ORDER BY m.name`)
	if err != nil {
		return nil, fmt.Errorf("list planned meals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var planID, name string
		var done bool
		if err := rows.Scan(&planID, &name, &done); err != nil {
			return nil, fmt.Errorf("scan planned meal: %w", err)
		}
		i, ok := index[planID]
		if !ok {
			continue
		}
		plans[i].MealNames = append(plans[i].MealNames, name)
		if done {
			plans[i].DoneCount++
		}
	}
	return plans, rows.Err()
}

// Get returns a plan with its meals and their tags.
func (r *Repository) Get(ctx context.Context, id string) (*Detail, error) {
	return r.get(ctx, r.store.DB, "id", id)
}

// GetByWeek returns the plan for a week number.
func (r *Repository) GetByWeek(ctx context.Context, weekNumber string) (*Detail, error) {
	return r.get(ctx, r.store.DB, "week_number", weekNumber)
}

// Create inserts an empty plan.
func (r *Repository) Create(ctx context.Context, weekNumber string) (*WeekPlan, error) {
	if !week.Valid(weekNumber) {
		return nil, ErrInvalidWeek
	}
	p := &WeekPlan{ID: uuid.NewString(), WeekNumber: weekNumber, CreatedAt: time.Now().UTC()}
	if _, err := store.Exec(ctx, r.store.Dialect, r.store.DB,
		"INSERT INTO week_plans (id, week_number, created_at) VALUES (?, ?, ?)",
		p.ID, p.WeekNumber, p.CreatedAt); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return p, nil
}

// CreateWithMeals inserts a plan and its meals in one transaction.
func (r *Repository) CreateWithMeals(ctx context.Context, weekNumber string, mealIDs []string) (*WeekPlan, error) {
	if !week.Valid(weekNumber) {
		return nil, ErrInvalidWeek
	}
	p := &WeekPlan{ID: uuid.NewString(), WeekNumber: weekNumber, CreatedAt: time.Now().UTC()}
	err := r.store.WithTx(ctx, func(tx store.Querier) error {
		if _, err := store.Exec(ctx, r.store.Dialect, tx,
			"INSERT INTO week_plans (id, week_number, created_at) VALUES (?, ?, ?)",
			p.ID, p.WeekNumber, p.CreatedAt); err != nil {
			return err
		}
		for _, mealID := range dedupe(mealIDs) {
			if _, err := r.insertPlannedMeal(ctx, tx, p.ID, mealID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	p.MealCount = len(dedupe(mealIDs))
	return p, nil
}

// Update changes the week number and sets the plan's meals to mealIDs.
// Meals already in the plan keep their done state.
func (r *Repository) Update(ctx context.Context, id, weekNumber string, mealIDs []string) (*Detail, error) {
	if !week.Valid(weekNumber) {
		return nil, ErrInvalidWeek
	}
	wanted := dedupe(mealIDs)
	var detail *Detail
	err := r.store.WithTx(ctx, func(tx store.Querier) error {
		d := r.store.Dialect
		n, err := store.Exec(ctx, d, tx, "UPDATE week_plans SET week_number = ? WHERE id = ?", weekNumber, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}

		existing, err := r.plannedMealIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		keep := make(map[string]bool, len(wanted))
		for _, mealID := range wanted {
			keep[mealID] = true
		}
		for mealID := range existing {
			if keep[mealID] {
				continue
			}
			if _, err := store.Exec(ctx, d, tx,
				"DELETE FROM planned_meals WHERE week_plan_id = ? AND meal_id = ?", id, mealID); err != nil {
				return err
			}
		}
		for _, mealID := range wanted {
			if existing[mealID] {
				continue
			}
			if _, err := r.insertPlannedMeal(ctx, tx, id, mealID); err != nil {
				return err
			}
		}

		detail, err = r.get(ctx, tx, "id", id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	return detail, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	n, err := store.Exec(ctx, r.store.Dialect, r.store.DB, "DELETE FROM week_plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddMeal appends a meal to a plan.
func (r *Repository) AddMeal(ctx context.Context, planID, mealID string) (*PlannedMeal, error) {
	var pm *PlannedMeal
	err := r.store.WithTx(ctx, func(tx store.Querier) error {
		var exists int
		err := store.QueryRow(ctx, r.store.Dialect, tx,
			"SELECT COUNT(*) FROM week_plans WHERE id = ?", planID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return store.ErrNotFound
		}
		id, err := r.insertPlannedMeal(ctx, tx, planID, mealID)
		if err != nil {
			return err
		}
		pm = &PlannedMeal{ID: id, MealID: mealID, Tags: []catalog.Tag{}}
		return store.QueryRow(ctx, r.store.Dialect, tx,
			"SELECT name FROM meals WHERE id = ?", mealID).Scan(&pm.MealName)
	})
	if err != nil {
		return nil, fmt.Errorf("add meal: %w", err)
	}
	return pm, nil
}

// RemoveMeal deletes one planned meal.
func (r *Repository) RemoveMeal(ctx context.Context, plannedMealID string) error {
	n, err := store.Exec(ctx, r.store.Dialect, r.store.DB,
		"DELETE FROM planned_meals WHERE id = ?", plannedMealID)
	if err != nil {
		return fmt.Errorf("remove meal: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ToggleDone flips a planned meal's done flag and returns the new value.
func (r *Repository) ToggleDone(ctx context.Context, plannedMealID string) (bool, error) {
	var done bool
	err := r.store.WithTx(ctx, func(tx store.Querier) error {
		d := r.store.Dialect
		if err := store.QueryRow(ctx, d, tx,
			"SELECT done FROM planned_meals WHERE id = ?", plannedMealID).Scan(&done); err != nil {
			return store.ScanErr(err)
		}
		done = !done
		_, err := store.Exec(ctx, d, tx, "UPDATE planned_meals SET done = ? WHERE id = ?", done, plannedMealID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("toggle planned meal: %w", err)
	}
	return done, nil
}

// PreviousDoneMealIDs returns the meals marked done in the latest plan whose
// week sorts before weekNumber. It is empty when there is no such plan.
func (r *Repository) PreviousDoneMealIDs(ctx context.Context, weekNumber string) (map[string]bool, error) {
	d := r.store.Dialect
	out := make(map[string]bool)

	var planID string
	err := store.QueryRow(ctx, d, r.store.DB,
		"SELECT id FROM week_plans WHERE week_number < ? ORDER BY week_number DESC LIMIT 1",
		weekNumber).Scan(&planID)
	if err != nil {
		if errors.Is(store.ScanErr(err), store.ErrNotFound) {
			return out, nil
		}
		return nil, fmt.Errorf("find previous plan: %w", err)
	}

	rows, err := store.Query(ctx, d, r.store.DB,
		"SELECT meal_id FROM planned_meals WHERE week_plan_id = ? AND done = ?", planID, true)
	if err != nil {
		return nil, fmt.Errorf("previous done meals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan meal id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ExistingWeeks returns the set of week numbers that already have a plan.
func (r *Repository) ExistingWeeks(ctx context.Context) (map[string]bool, error) {
	rows, err := store.Query(ctx, r.store.Dialect, r.store.DB, "SELECT week_number FROM week_plans")
	if err != nil {
		return nil, fmt.Errorf("existing weeks: %w", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan week: %w", err)
		}
		out[w] = true
	}
	return out, rows.Err()
}

// --- helpers ---

func (r *Repository) get(ctx context.Context, q store.Querier, column, value string) (*Detail, error) {
	d := r.store.Dialect
	var p Detail
	err := store.QueryRow(ctx, d, q,
		"SELECT id, week_number, created_at FROM week_plans WHERE "+column+" = ?", value).
		Scan(&p.ID, &p.WeekNumber, &p.CreatedAt)
	if err != nil {
		return nil, store.ScanErr(err)
	}
	if w, err := week.Parse(p.WeekNumber); err == nil {
		start, end := w.DateRange(time.UTC)
		p.StartDate = start.Format(time.DateOnly)
		p.EndDate = end.Format(time.DateOnly)
	}

	rows, err := store.Query(ctx, d, q,
		`SELECT pm.id, m.id, m.name, pm.done
		 FROM planned_meals pm
		 JOIN meals m ON m.id = pm.meal_id
		 WHERE pm.week_plan_id = ?
		 ORDER BY m.name`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load planned meals: %w", err)
	}
	p.Meals = []PlannedMeal{}
	for rows.Next() {
		pm := PlannedMeal{Tags: []catalog.Tag{}}
		if err := rows.Scan(&pm.ID, &pm.MealID, &pm.MealName, &pm.Done); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan planned meal: %w", err)
		}
		p.Meals = append(p.Meals, pm)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(p.Meals) == 0 {
		return &p, nil
	}

	rows, err = store.Query(ctx, d, q,
		`SELECT DISTINCT mt.meal_id, t.id, t.name
		 FROM planned_meals pm
		 JOIN meal_tags mt ON mt.meal_id = pm.meal_id
		 JOIN tags t ON t.id = mt.tag_id
		 WHERE pm.week_plan_id = ?
		 ORDER BY t.name`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load planned meal tags: %w", err)
	}
	defer rows.Close()
	tags := make(map[string][]catalog.Tag)
	for rows.Next() {
		var mealID string
		var t catalog.Tag
		if err := rows.Scan(&mealID, &t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags[mealID] = append(tags[mealID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range p.Meals {
		if ts, ok := tags[p.Meals[i].MealID]; ok {
			p.Meals[i].Tags = ts
		}
	}
	return &p, nil
}

func (r *Repository) plannedMealIDs(ctx context.Context, q store.Querier, planID string) (map[string]bool, error) {
	rows, err := store.Query(ctx, r.store.Dialect, q,
		"SELECT meal_id FROM planned_meals WHERE week_plan_id = ?", planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *Repository) insertPlannedMeal(ctx context.Context, q store.Querier, planID, mealID string) (string, error) {
	id := uuid.NewString()
	_, err := store.Exec(ctx, r.store.Dialect, q,
		"INSERT INTO planned_meals (id, week_plan_id, meal_id, done) VALUES (?, ?, ?, ?)",
		id, planID, mealID, false)
	if errors.Is(err, store.ErrForeignKeyViolation) {
		return "", fmt.Errorf("%w: %s", ErrUnknownMeal, mealID)
	}
	return id, err
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
