package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/issuescout/issuescout/internal/core"
)

func TestDedupeIssuesFirstWins(t *testing.T) {
	issues := []core.Issue{
		{ID: 1, RepoFullName: "acme/upstream"},
		{ID: 2, RepoFullName: "acme/upstream"},
		{ID: 1, RepoFullName: "acme/fork"},
		{ID: 3, RepoFullName: "acme/fork"},
	}

	deduped := dedupeIssues(issues)
	require.Len(t, deduped, 3)
	require.Equal(t, "acme/upstream", deduped[0].RepoFullName, "first occurrence wins")
	require.Equal(t, int64(2), deduped[1].ID)
	require.Equal(t, int64(3), deduped[2].ID)
}

func TestDedupeIssuesNoDuplicates(t *testing.T) {
	issues := []core.Issue{{ID: 1}, {ID: 2}}
	require.Equal(t, issues, dedupeIssues(issues))
	require.Empty(t, dedupeIssues(nil))
}

func TestSortIssuesByComments(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	issues := []core.Issue{
		{ID: 1, Comments: 2, Reactions: 1, CreatedAt: base},
		{ID: 2, Comments: 9, Reactions: 0, CreatedAt: base},
		{ID: 3, Comments: 2, Reactions: 5, CreatedAt: base},
		{ID: 4, Comments: 2, Reactions: 5, CreatedAt: base.Add(time.Hour)},
	}

	sortIssues(issues, core.SortComments)

	require.Equal(t, int64(2), issues[0].ID)
	// Ties break by reactions descending, then creation time descending.
	require.Equal(t, int64(4), issues[1].ID)
	require.Equal(t, int64(3), issues[2].ID)
	require.Equal(t, int64(1), issues[3].ID)

	for i := 1; i < len(issues); i++ {
		require.GreaterOrEqual(t, issues[i-1].Comments, issues[i].Comments)
	}
}

func TestSortIssuesByCreated(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	issues := []core.Issue{
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, CreatedAt: base.Add(time.Hour)},
	}

	sortIssues(issues, core.SortCreated)
	require.Equal(t, []int64{2, 3, 1}, issueIDs(issues))
}

func TestSortIssuesByUpdated(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	issues := []core.Issue{
		{ID: 1, UpdatedAt: base.Add(time.Hour)},
		{ID: 2, UpdatedAt: base},
		{ID: 3, UpdatedAt: base.Add(2 * time.Hour)},
	}

	sortIssues(issues, core.SortUpdated)
	require.Equal(t, []int64{3, 1, 2}, issueIDs(issues))
}

func TestSortIssuesBestMatchUsesTieBreak(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	issues := []core.Issue{
		{ID: 1, Reactions: 1, CreatedAt: base},
		{ID: 2, Reactions: 8, CreatedAt: base},
		{ID: 3, Reactions: 8, CreatedAt: base.Add(time.Hour)},
	}

	sortIssues(issues, core.SortBestMatch)
	require.Equal(t, []int64{3, 2, 1}, issueIDs(issues))
}

func issueIDs(issues []core.Issue) []int64 {
	ids := make([]int64, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.ID)
	}
	return ids
}
