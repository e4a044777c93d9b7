// Package query builds GitHub search-grammar strings from a Filter.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/issuescout/issuescout/internal/core"
)

// Build assembles the search query for a filter. Clauses appear in a
// fixed order and a field at its zero value emits no clause. The
// keyword is inserted verbatim; escaping is the caller's concern.
func Build(f core.Filter, now time.Time) string {
	clauses := []string{"is:issue", "is:open"}

	// A star floor is meaningless once the search is scoped to one
	// repository.
	if f.Repo == "" && f.MinStars > 0 {
		clauses = append(clauses, fmt.Sprintf("stars:>=%d", f.MinStars))
	}
	if f.MinComments > 0 {
		clauses = append(clauses, fmt.Sprintf("comments:>=%d", f.MinComments))
	}
	for _, label := range f.Labels {
		if label == "" {
			continue
		}
		// Quoted so labels with spaces survive the grammar.
		clauses = append(clauses, fmt.Sprintf("label:%q", label))
	}
	if f.Language != "" {
		clauses = append(clauses, "language:"+f.Language)
	}
	if f.Window > 0 {
		since := now.Add(-f.Window).UTC().Truncate(time.Second)
		clauses = append(clauses, "created:>="+since.Format(time.RFC3339))
	}
	if f.Keyword != "" {
		clauses = append(clauses, f.Keyword)
	}
	if f.Repo != "" {
		clauses = append(clauses, "repo:"+f.Repo)
	}
	if f.NoAssignee {
		clauses = append(clauses, "no:assignee")
	}

	return strings.Join(clauses, " ")
}

// SortQualifier returns the in-query sort clause used on the GraphQL
// path, where the search endpoint takes its ordering from the query
// string itself. Best-match ordering is the default and needs none.
func SortQualifier(key core.SortKey) string {
	switch key {
	case core.SortComments:
		return "sort:comments-desc"
	case core.SortCreated:
		return "sort:created-desc"
	case core.SortUpdated:
		return "sort:updated-desc"
	default:
		return ""
	}
}
