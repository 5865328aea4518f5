// Package storetest opens throwaway SQLite stores for tests.
package storetest

import (
	"context"
	"testing"

	"meal-planner/internal/config"
	"meal-planner/internal/store"
)

// New returns a migrated SQLite store in a temp directory, closed on cleanup.
func New(t testing.TB) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "test"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return s
}
