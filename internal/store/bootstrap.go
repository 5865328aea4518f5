package store

import (
	"context"
	"fmt"
)

// Bootstrap brings the schema up to date.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := NewMigrator(s).Migrate(ctx); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}
