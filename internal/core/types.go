package core

import "time"

// SortKey selects the ordering requested from the search API.
type SortKey string

const (
	// SortBestMatch is the API's relevance ordering. Locally it falls
	// back to reaction count, which tracks relevance closely enough for
	// merged multi-repository sets.
	SortBestMatch SortKey = "best-match"
	SortComments  SortKey = "comments"
	SortCreated   SortKey = "created"
	SortUpdated   SortKey = "updated"
)

// Filter describes one issue search. The zero value of each field means
// "not constrained"; see Build in the query package for how fields map
// to search clauses. Callers own the Filter and it is never mutated.
type Filter struct {
	Labels      []string
	Language    string
	Window      time.Duration // 0 means any age
	Keyword     string
	Repo        string // "owner/name", empty for global search
	NoAssignee  bool
	MinStars    int
	MinComments int
	Sort        SortKey
}

// Label is an issue label with its display color.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Author identifies the user that opened an issue.
type Author struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Issue is the canonical issue record produced by normalization,
// identical regardless of which API shape it came from. Values are
// never mutated after creation.
type Issue struct {
	ID           int64     `json:"id"`
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	RepoFullName string    `json:"repo_full_name"`
	Labels       []Label   `json:"labels"`
	Author       Author    `json:"author"`
	Comments     int       `json:"comments"`
	Reactions    int       `json:"reactions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	BodyPreview  string    `json:"body_preview"`
	State        string    `json:"state"`
	Assignee     string    `json:"assignee,omitempty"`
}

// SourceError attributes a failure to one repository during
// multi-repository aggregation.
type SourceError struct {
	Repo string    `json:"repo"`
	Err  *APIError `json:"error"`
}

// Provenance records when and under which fetch ID a result was produced.
type Provenance struct {
	FetchID     string    `json:"fetch_id"`
	RequestedAt time.Time `json:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// FetchResult is what callers receive from a fetch operation.
//
// TotalCount is the sum of upstream-reported totals, not len(Issues):
// pagination and de-duplication both make the two diverge. A result
// with zero issues and zero source errors means "no matches".
type FetchResult struct {
	TotalCount     int           `json:"total_count"`
	Issues         []Issue       `json:"issues"`
	RemainingQuota int           `json:"remaining_quota"` // -1 when unknown
	QuotaResetAt   time.Time     `json:"quota_reset_at"`
	SourceErrors   []SourceError `json:"source_errors,omitempty"`
	Provenance     Provenance    `json:"provenance"`
}

// Failed reports total failure: nothing fetched and every source errored.
func (r *FetchResult) Failed() bool {
	if r == nil {
		return true
	}
	return len(r.Issues) == 0 && len(r.SourceErrors) > 0
}
