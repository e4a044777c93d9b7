//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/issuescout/issuescout/internal/config"
	"github.com/issuescout/issuescout/internal/core"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenMemoryStore(t *testing.T) {
	s := openMemoryStore(t)
	require.NotNil(t, s.DB)
}

func TestOpenFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "issuescout.db")
	s, err := Open(context.Background(), config.StoreConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{})
	require.Error(t, err)
}

func TestWatchlist(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	require.NoError(t, s.AddRepo(ctx, "acme/widgets"))
	require.NoError(t, s.AddRepo(ctx, "acme/alpha"))
	require.NoError(t, s.AddRepo(ctx, "acme/widgets"), "re-adding is a no-op")

	repos, err := s.ListRepos(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"acme/alpha", "acme/widgets"}, repos)

	require.NoError(t, s.RemoveRepo(ctx, "acme/alpha"))
	require.NoError(t, s.RemoveRepo(ctx, "acme/absent"), "removing an absent entry is a no-op")

	repos, err = s.ListRepos(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"acme/widgets"}, repos)
}

func TestAddRepoRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	for _, repo := range []string{"", "widgets", "acme/", "/widgets", "a/b/c"} {
		require.Error(t, s.AddRepo(ctx, repo), "repo %q", repo)
	}
}

func TestPresetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	f := core.Filter{
		Labels:      []string{"good first issue"},
		Language:    "go",
		Window:      7 * 24 * time.Hour,
		NoAssignee:  true,
		MinStars:    100,
		MinComments: 2,
		Sort:        core.SortComments,
	}
	require.NoError(t, s.SavePreset(ctx, "weekly", f))

	got, err := s.GetPreset(ctx, "weekly")
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestSavePresetReplaces(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	require.NoError(t, s.SavePreset(ctx, "mine", core.Filter{Language: "go"}))
	require.NoError(t, s.SavePreset(ctx, "mine", core.Filter{Language: "rust"}))

	got, err := s.GetPreset(ctx, "mine")
	require.NoError(t, err)
	require.Equal(t, "rust", got.Language)

	names, err := s.ListPresets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"mine"}, names)
}

func TestGetPresetMissing(t *testing.T) {
	s := openMemoryStore(t)

	_, err := s.GetPreset(context.Background(), "absent")
	require.ErrorContains(t, err, "not found")
}

func TestDeletePreset(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	require.NoError(t, s.SavePreset(ctx, "mine", core.Filter{}))
	require.NoError(t, s.DeletePreset(ctx, "mine"))
	require.NoError(t, s.DeletePreset(ctx, "mine"), "deleting an absent preset is a no-op")

	names, err := s.ListPresets(ctx)
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestSavePresetRequiresName(t *testing.T) {
	s := openMemoryStore(t)
	require.Error(t, s.SavePreset(context.Background(), "  ", core.Filter{}))
}
