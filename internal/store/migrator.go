package store

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Migration is one versioned schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

const migrationsTable = "schema_migrations"

type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// Migrate applies every dialect migration newer than the recorded version.
// Each migration runs in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("ensure %s: %w", migrationsTable, err)
	}

	current, err := m.Version(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, mig := range m.store.Dialect.Migrations() {
		if mig.Version <= current {
			continue
		}
		err := m.store.WithTx(ctx, func(tx Querier) error {
			if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
				return fmt.Errorf("apply: %w", err)
			}
			_, err := Exec(ctx, m.store.Dialect, tx,
				"INSERT INTO "+migrationsTable+" (version, name, applied_at) VALUES (?, ?, ?)",
				mig.Version, mig.Name, time.Now().UTC())
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		log.Printf("Applied migration %d (%s)", mig.Version, mig.Name)
		applied++
	}
	return applied, nil
}

// Version returns the highest applied migration, or 0.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	var v int
	err := m.store.DB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM "+migrationsTable).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	exists, err := m.store.Dialect.TableExists(ctx, m.store.DB, migrationsTable)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = m.store.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMP NOT NULL
)`)
	return err
}
