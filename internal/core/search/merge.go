package search

import (
	"sort"

	"github.com/issuescout/issuescout/internal/core"
)

// dedupeIssues collapses duplicate issue IDs, first occurrence wins.
// Overlap happens when a fork and its upstream, or two watchlist
// entries pointing at the same repository, return the same issue.
func dedupeIssues(issues []core.Issue) []core.Issue {
	if len(issues) < 2 {
		return issues
	}

	seen := make(map[int64]struct{}, len(issues))
	deduped := issues[:0]
	for _, issue := range issues {
		if _, ok := seen[issue.ID]; ok {
			continue
		}
		seen[issue.ID] = struct{}{}
		deduped = append(deduped, issue)
	}
	return deduped
}

// sortIssues orders a merged set by the requested key, with a fixed
// tie-break applied regardless of which transport produced the items:
// reaction count descending, then creation time descending. Best-match
// has no local primary key, so the tie-break alone orders it.
func sortIssues(issues []core.Issue, key core.SortKey) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]

		switch key {
		case core.SortComments:
			if a.Comments != b.Comments {
				return a.Comments > b.Comments
			}
		case core.SortCreated:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case core.SortUpdated:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		}

		if a.Reactions != b.Reactions {
			return a.Reactions > b.Reactions
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
