// Package transport speaks the two GitHub search surfaces, the REST
// search endpoint and the GraphQL endpoint, and normalizes both raw
// shapes into the canonical Issue record.
package transport

import (
	"strings"
	"time"

	"github.com/issuescout/issuescout/internal/core"
)

// bodyPreviewLimit caps the issue body carried in results.
const bodyPreviewLimit = 300

// ghostLogin stands in for a deleted account, matching what GitHub
// itself shows.
const ghostLogin = "ghost"

// restIssue is the REST search-result item, trimmed to the fields the
// normalizer consumes.
type restIssue struct {
	ID            int64       `json:"id"`
	Number        int         `json:"number"`
	Title         string      `json:"title"`
	HTMLURL       string      `json:"html_url"`
	RepositoryURL string      `json:"repository_url"`
	State         string      `json:"state"`
	Body          string      `json:"body"`
	Comments      int         `json:"comments"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	User          *restUser   `json:"user"`
	Labels        []restLabel `json:"labels"`
	Assignees     []restUser  `json:"assignees"`
	Reactions     struct {
		TotalCount int `json:"total_count"`
	} `json:"reactions"`
}

type restUser struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type restLabel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// issueNode is the GraphQL issue selection, mirroring issueFieldSet.
type issueNode struct {
	DatabaseID int64     `json:"databaseId"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Body       string    `json:"body"`
	State      string    `json:"state"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Repository struct {
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"repository"`
	Author *struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatarUrl"`
		URL       string `json:"url"`
	} `json:"author"`
	Labels struct {
		Nodes []struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"nodes"`
	} `json:"labels"`
	Assignees struct {
		Nodes []struct {
			Login string `json:"login"`
		} `json:"nodes"`
	} `json:"assignees"`
	Comments struct {
		TotalCount int `json:"totalCount"`
	} `json:"comments"`
	Reactions struct {
		TotalCount int `json:"totalCount"`
	} `json:"reactions"`
}

// normalizeRESTIssue maps a REST item to the canonical record. Total:
// every missing optional field has a documented default.
func normalizeRESTIssue(in restIssue) core.Issue {
	issue := core.Issue{
		ID:           in.ID,
		Number:       in.Number,
		Title:        in.Title,
		URL:          in.HTMLURL,
		RepoFullName: repoFromURL(in.RepositoryURL),
		Comments:     in.Comments,
		Reactions:    in.Reactions.TotalCount,
		CreatedAt:    in.CreatedAt,
		UpdatedAt:    in.UpdatedAt,
		BodyPreview:  truncateBody(in.Body),
		State:        strings.ToLower(in.State),
		Author:       core.Author{Login: ghostLogin},
	}

	if in.User != nil && in.User.Login != "" {
		issue.Author = core.Author{
			Login:     in.User.Login,
			AvatarURL: in.User.AvatarURL,
			HTMLURL:   in.User.HTMLURL,
		}
	}
	for _, label := range in.Labels {
		issue.Labels = append(issue.Labels, core.Label{Name: label.Name, Color: label.Color})
	}
	if len(in.Assignees) > 0 {
		issue.Assignee = in.Assignees[0].Login
	}

	return issue
}

// normalizeIssueNode maps a GraphQL node to the canonical record. A
// node and a REST item describing the same issue normalize to equal
// values.
func normalizeIssueNode(in issueNode) core.Issue {
	issue := core.Issue{
		ID:           in.DatabaseID,
		Number:       in.Number,
		Title:        in.Title,
		URL:          in.URL,
		RepoFullName: in.Repository.NameWithOwner,
		Comments:     in.Comments.TotalCount,
		Reactions:    in.Reactions.TotalCount,
		CreatedAt:    in.CreatedAt,
		UpdatedAt:    in.UpdatedAt,
		BodyPreview:  truncateBody(in.Body),
		State:        strings.ToLower(in.State),
		Author:       core.Author{Login: ghostLogin},
	}

	if in.Author != nil && in.Author.Login != "" {
		issue.Author = core.Author{
			Login:     in.Author.Login,
			AvatarURL: in.Author.AvatarURL,
			HTMLURL:   in.Author.URL,
		}
	}
	for _, label := range in.Labels.Nodes {
		issue.Labels = append(issue.Labels, core.Label{Name: label.Name, Color: label.Color})
	}
	if len(in.Assignees.Nodes) > 0 {
		issue.Assignee = in.Assignees.Nodes[0].Login
	}

	return issue
}

func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= bodyPreviewLimit {
		return body
	}
	return string(runes[:bodyPreviewLimit])
}

// repoFromURL extracts "owner/name" from a REST repository API URL.
func repoFromURL(apiURL string) string {
	const marker = "/repos/"
	idx := strings.Index(apiURL, marker)
	if idx < 0 {
		return ""
	}
	return apiURL[idx+len(marker):]
}
