package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"meal-planner/internal/store"
)

// SeedMeal is one entry of a seed file.
type SeedMeal struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// SeedReport counts what a seed run created.
type SeedReport struct {
	TagsCreated  int
	MealsCreated int
	MealsSkipped int
	LinksAdded   int
}

// ReadSeed decodes a JSON array of meals.
func ReadSeed(r io.Reader) ([]SeedMeal, error) {
	var meals []SeedMeal
	if err := json.NewDecoder(r).Decode(&meals); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return meals, nil
}

// Seed creates missing tags and meals by name and links each meal to its
// tags. Running it twice changes nothing the second time.
func (r *Repository) Seed(ctx context.Context, meals []SeedMeal) (*SeedReport, error) {
	report := &SeedReport{}
	err := r.store.WithTx(ctx, func(tx store.Querier) error {
		tagIDs := make(map[string]string)
		for _, m := range meals {
			for _, name := range m.Tags {
				name = strings.TrimSpace(name)
				if name == "" || tagIDs[name] != "" {
					continue
				}
				id, created, err := r.ensure(ctx, tx, "tags", name)
				if err != nil {
					return err
				}
				if created {
					report.TagsCreated++
				}
				tagIDs[name] = id
			}
		}

		for _, m := range meals {
			name, err := cleanName(m.Name)
			if err != nil {
				return err
			}
			mealID, created, err := r.ensure(ctx, tx, "meals", name)
			if err != nil {
				return err
			}
			if created {
				report.MealsCreated++
			} else {
				report.MealsSkipped++
			}
			for _, tag := range m.Tags {
				tagID := tagIDs[strings.TrimSpace(tag)]
				if tagID == "" {
					continue
				}
				// A failed insert aborts a postgres transaction, so check first.
				var linked int
				if err := store.QueryRow(ctx, r.store.Dialect, tx,
					"SELECT COUNT(*) FROM meal_tags WHERE meal_id = ? AND tag_id = ?", mealID, tagID).
					Scan(&linked); err != nil {
					return err
				}
				if linked > 0 {
					continue
				}
				if _, err := store.Exec(ctx, r.store.Dialect, tx,
					"INSERT INTO meal_tags (meal_id, tag_id) VALUES (?, ?)", mealID, tagID); err != nil {
					return err
				}
				report.LinksAdded++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return report, nil
}

// ensure returns the id of the row named name in table, inserting it if absent.
func (r *Repository) ensure(ctx context.Context, q store.Querier, table, name string) (string, bool, error) {
	d := r.store.Dialect
	var id string
	err := store.QueryRow(ctx, d, q, "SELECT id FROM "+table+" WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(store.ScanErr(err), store.ErrNotFound) {
		return "", false, err
	}

	id = uuid.NewString()
	if table == "meals" {
		_, err = store.Exec(ctx, d, q, "INSERT INTO meals (id, name, created_at) VALUES (?, ?, ?)",
			id, name, time.Now().UTC())
	} else {
		_, err = store.Exec(ctx, d, q, "INSERT INTO tags (id, name) VALUES (?, ?)", id, name)
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
