package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS watchlist (
		repo TEXT PRIMARY KEY,
		added_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS filter_presets (
		name TEXT PRIMARY KEY,
		filter TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
}

// Migrate applies the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
