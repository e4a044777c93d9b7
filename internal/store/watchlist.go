package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddRepo adds one "owner/name" entry to the watchlist. Adding an
// existing entry is a no-op.
func (s *Store) AddRepo(ctx context.Context, repo string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	repo, err := normalizeRepo(repo)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO watchlist (repo, added_at) VALUES (?, ?)
		ON CONFLICT(repo) DO NOTHING
	`, repo, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("add repository: %w", err)
	}
	return nil
}

// RemoveRepo removes an entry; removing an absent entry is a no-op.
func (s *Store) RemoveRepo(ctx context.Context, repo string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	repo, err := normalizeRepo(repo)
	if err != nil {
		return err
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM watchlist WHERE repo = ?`, repo); err != nil {
		return fmt.Errorf("remove repository: %w", err)
	}
	return nil
}

// ListRepos returns the watchlist ordered by name.
func (s *Store) ListRepos(ctx context.Context) ([]string, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT repo FROM watchlist ORDER BY repo`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var repos []string
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

func normalizeRepo(repo string) (string, error) {
	repo = strings.TrimSpace(repo)
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("repository must be owner/name, got %q", repo)
	}
	return repo, nil
}
