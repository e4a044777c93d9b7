package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/issuescout/issuescout/internal/core"
)

// SavePreset stores a named filter, replacing any previous definition.
func (s *Store) SavePreset(ctx context.Context, name string, f core.Filter) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("preset name is required")
	}

	encoded, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO filter_presets (name, filter, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			filter = excluded.filter,
			updated_at = excluded.updated_at
	`, name, string(encoded), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	return nil
}

// GetPreset loads a named filter. A missing preset returns an error.
func (s *Store) GetPreset(ctx context.Context, name string) (core.Filter, error) {
	var f core.Filter
	if s == nil || s.DB == nil {
		return f, errors.New("store is not initialized")
	}

	var encoded string
	row := s.DB.QueryRowContext(ctx, `SELECT filter FROM filter_presets WHERE name = ?`, strings.TrimSpace(name))
	if err := row.Scan(&encoded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return f, fmt.Errorf("preset %q not found", name)
		}
		return f, fmt.Errorf("load preset: %w", err)
	}

	if err := json.Unmarshal([]byte(encoded), &f); err != nil {
		return f, fmt.Errorf("decode preset: %w", err)
	}
	return f, nil
}

// ListPresets returns preset names ordered alphabetically.
func (s *Store) ListPresets(ctx context.Context) ([]string, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT name FROM filter_presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeletePreset removes a preset; deleting an absent one is a no-op.
func (s *Store) DeletePreset(ctx context.Context, name string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM filter_presets WHERE name = ?`, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	return nil
}
