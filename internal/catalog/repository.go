package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meal-planner/internal/generation"
	"meal-planner/internal/store"
)

type Repository struct {
	store *store.Store
}

func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// --- tags ---

func (r *Repository) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := store.Query(ctx, r.store.Dialect, r.store.DB, "SELECT id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *Repository) GetTag(ctx context.Context, id string) (*Tag, error) {
	var t Tag
	err := store.QueryRow(ctx, r.store.Dialect, r.store.DB,
		"SELECT id, name FROM tags WHERE id = ?", id).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, store.ScanErr(err)
	}
	return &t, nil
}

// FindTagByName returns the tag with exactly this name.
func (r *Repository) FindTagByName(ctx context.Context, name string) (*Tag, error) {
	var t Tag
	err := store.QueryRow(ctx, r.store.Dialect, r.store.DB,
		"SELECT id, name FROM tags WHERE name = ?", name).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, store.ScanErr(err)
	}
	return &t, nil
}

func (r *Repository) CreateTag(ctx context.Context, name string) (*Tag, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	t := &Tag{ID: uuid.NewString(), Name: name}
	if _, err := store.Exec(ctx, r.store.Dialect, r.store.DB,
		"INSERT INTO tags (id, name) VALUES (?, ?)", t.ID, t.Name); err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return t, nil
}

func (r *Repository) UpdateTag(ctx context.Context, id, name string) (*Tag, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	n, err := store.Exec(ctx, r.store.Dialect, r.store.DB,
		"UPDATE tags SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return &Tag{ID: id, Name: name}, nil
}

func (r *Repository) DeleteTag(ctx context.Context, id string) error {
	n, err := store.Exec(ctx, r.store.Dialect, r.store.DB, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- meals ---

// ListMeals returns all meals ordered by name, each with tags ordered by name.
func (r *Repository) ListMeals(ctx context.Context) ([]Meal, error) {
	d := r.store.Dialect
	rows, err := store.Query(ctx, d, r.store.DB, "SELECT id, name, created_at FROM meals ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	meals := []Meal{}
	for rows.Next() {
		var m Meal
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		m.Tags = []Tag{}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(meals) == 0 {
		return meals, nil
	}

	tagsByMeal, err := r.tagsByMeal(ctx, r.store.DB, "")
	if err != nil {
		return nil, err
	}
	for i := range meals {
		if tags, ok := tagsByMeal[meals[i].ID]; ok {
			meals[i].Tags = tags
		}
	}
	return meals, nil
}

func (r *Repository) GetMeal(ctx context.Context, id string) (*Meal, error) {
	return r.getMeal(ctx, r.store.DB, id)
}

func (r *Repository) CreateMeal(ctx context.Context, name string, tagIDs []string) (*Meal, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	var meal *Meal
	err = r.store.WithTx(ctx, func(tx store.Querier) error {
		if _, err := store.Exec(ctx, r.store.Dialect, tx,
			"INSERT INTO meals (id, name, created_at) VALUES (?, ?, ?)",
			id, name, time.Now().UTC()); err != nil {
			return err
		}
		if err := r.setTags(ctx, tx, id, tagIDs); err != nil {
			return err
		}
		meal, err = r.getMeal(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create meal: %w", err)
	}
	return meal, nil
}

// UpdateMeal renames the meal and replaces its tag set.
func (r *Repository) UpdateMeal(ctx context.Context, id, name string, tagIDs []string) (*Meal, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	var meal *Meal
	err = r.store.WithTx(ctx, func(tx store.Querier) error {
		n, err := store.Exec(ctx, r.store.Dialect, tx, "UPDATE meals SET name = ? WHERE id = ?", name, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		if _, err := store.Exec(ctx, r.store.Dialect, tx, "DELETE FROM meal_tags WHERE meal_id = ?", id); err != nil {
			return err
		}
		if err := r.setTags(ctx, tx, id, tagIDs); err != nil {
			return err
		}
		meal, err = r.getMeal(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update meal: %w", err)
	}
	return meal, nil
}

func (r *Repository) DeleteMeal(ctx context.Context, id string) error {
	n, err := store.Exec(ctx, r.store.Dialect, r.store.DB, "DELETE FROM meals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Candidates returns the whole catalog in the shape the generator consumes.
func (r *Repository) Candidates(ctx context.Context) ([]generation.MealCandidate, error) {
	meals, err := r.ListMeals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]generation.MealCandidate, len(meals))
	for i := range meals {
		out[i] = generation.MealCandidate{
			ID:   meals[i].ID,
			Name: meals[i].Name,
			Tags: meals[i].TagNames(),
		}
	}
	return out, nil
}

// --- helpers ---

func (r *Repository) getMeal(ctx context.Context, q store.Querier, id string) (*Meal, error) {
	var m Meal
	err := store.QueryRow(ctx, r.store.Dialect, q,
		"SELECT id, name, created_at FROM meals WHERE id = ?", id).Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err != nil {
		return nil, store.ScanErr(err)
	}
	tags, err := r.tagsByMeal(ctx, q, id)
	if err != nil {
		return nil, err
	}
	m.Tags = tags[id]
	if m.Tags == nil {
		m.Tags = []Tag{}
	}
	return &m, nil
}

// tagsByMeal groups tag rows by meal id, restricted to one meal when mealID is set.
func (r *Repository) tagsByMeal(ctx context.Context, q store.Querier, mealID string) (map[string][]Tag, error) {
	query := `SELECT mt.meal_id, t.id, t.name
		FROM meal_tags mt
		JOIN tags t ON t.id = mt.tag_id`
	var args []any
	if mealID != "" {
		query += " WHERE mt.meal_id = ?"
		args = append(args, mealID)
	}
	query += " ORDER BY t.name"

	rows, err := store.Query(ctx, r.store.Dialect, q, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load meal tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Tag)
	for rows.Next() {
		var mid string
		var t Tag
		if err := rows.Scan(&mid, &t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan meal tag: %w", err)
		}
		out[mid] = append(out[mid], t)
	}
	return out, rows.Err()
}

func (r *Repository) setTags(ctx context.Context, q store.Querier, mealID string, tagIDs []string) error {
	for _, tagID := range uniqueIDs(tagIDs) {
		_, err := store.Exec(ctx, r.store.Dialect, q,
			"INSERT INTO meal_tags (meal_id, tag_id) VALUES (?, ?)", mealID, tagID)
		if errors.Is(err, store.ErrForeignKeyViolation) {
			return fmt.Errorf("%w: %s", ErrUnknownTag, tagID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
