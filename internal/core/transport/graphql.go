package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/issuescout/issuescout/internal/core"
	"github.com/issuescout/issuescout/internal/core/engine"
	"github.com/issuescout/issuescout/internal/core/query"
)

// BatchSize is how many aliased searches share one GraphQL document.
// Ten keeps the aggregate node cost comfortably under the per-request
// complexity ceiling.
const BatchSize = 10

// issueFieldSet is the selection requested for every issue node, on
// both the single-search and batched paths.
const issueFieldSet = `databaseId number title url body state createdAt updatedAt ` +
	`repository { nameWithOwner } author { login avatarUrl url } ` +
	`labels(first: 20) { nodes { name color } } assignees(first: 5) { nodes { login } } ` +
	`comments { totalCount } reactions { totalCount }`

const singleSearchDoc = `query($q: String!, $first: Int!, $after: String) {
  search(query: $q, type: ISSUE, first: $first, after: $after) {
    issueCount
    pageInfo { endCursor hasNextPage }
    nodes { ... on Issue { ` + issueFieldSet + ` } }
  }
  rateLimit { remaining resetAt }
}`

// GraphQLClient searches issues through the GraphQL endpoint. It only
// runs authenticated; callers without a token get the REST path
// instead. The single-search path is cursor-paginated and
// cache-fronted; the batched path bundles up to BatchSize repository
// searches into one aliased document and is throttled directly, since
// its fingerprint would vary with every repository-list composition.
type GraphQLClient struct {
	Endpoint string
	Token    string
	HTTP     *http.Client // base transport; when nil the default client is used
	Cache    *engine.Cache[*SearchPage]
	Throttle *engine.Throttle
	Cursors  *CursorMap
	Logger   *zap.Logger
}

// RepoPage is one repository's slice of a batched search.
type RepoPage struct {
	Repo   string
	Total  int
	Issues []core.Issue
}

type searchResult struct {
	IssueCount int `json:"issueCount"`
	PageInfo   struct {
		EndCursor   string `json:"endCursor"`
		HasNextPage bool   `json:"hasNextPage"`
	} `json:"pageInfo"`
	Nodes []issueNode `json:"nodes"`
}

type Quota struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

type graphResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *GraphQLClient) authErr() *core.APIError {
	return &core.APIError{
		Category:  core.CategoryAuth,
		Message:   "GraphQL requests require an access token",
		Hint:      "Add a GitHub personal access token to use the GraphQL API.",
		Remaining: -1,
	}
}

// Search fetches one cursor-addressed page for an already-built query
// string. The continuation token comes from the cursor map; after a
// successful fetch the returned end cursor is recorded for the next
// page.
func (c *GraphQLClient) Search(ctx context.Context, q string, sort core.SortKey, page, perPage int) (*SearchPage, error) {
	if c.Token == "" {
		return nil, c.authErr()
	}

	effective := q
	if qualifier := query.SortQualifier(sort); qualifier != "" {
		effective = q + " " + qualifier
	}

	prefix := fmt.Sprintf("graphql|%s|%s|%d", q, sort, perPage)
	fingerprint := fmt.Sprintf("%s|%d", prefix, page)

	return c.Cache.Get(ctx, fingerprint, func(ctx context.Context, _ string) (engine.LoadResult[*SearchPage], error) {
		var zero engine.LoadResult[*SearchPage]

		variables := map[string]any{
			"q":     effective,
			"first": perPage,
		}
		if after := c.Cursors.After(prefix, page); after != "" {
			variables["after"] = after
		}

		data, quota, err := c.post(ctx, singleSearchDoc, variables)
		if err != nil {
			return zero, err
		}

		var result searchResult
		if err := json.Unmarshal(data["search"], &result); err != nil {
			return zero, core.ClassifyGraphQLError("", "malformed search payload: "+err.Error())
		}

		c.Cursors.Record(prefix, page, result.PageInfo.EndCursor)

		fetched := &SearchPage{
			Total:     result.IssueCount,
			Issues:    make([]core.Issue, 0, len(result.Nodes)),
			Remaining: quota.Remaining,
			ResetAt:   quota.ResetAt,
		}
		for _, node := range result.Nodes {
			fetched.Issues = append(fetched.Issues, normalizeIssueNode(node))
		}

		// GraphQL responses carry no revalidation token; the entry is
		// TTL-only.
		return engine.LoadResult[*SearchPage]{Payload: fetched}, nil
	})
}

// ChunkRepos partitions a repository list into batch-sized chunks.
func ChunkRepos(repos []string) [][]string {
	var chunks [][]string
	for len(repos) > 0 {
		size := BatchSize
		if len(repos) < size {
			size = len(repos)
		}
		chunks = append(chunks, repos[:size])
		repos = repos[size:]
	}
	return chunks
}

// SearchRepoChunk issues exactly one request for up to BatchSize
// repositories, one aliased sub-query each. The returned pages map
// repository name to its results; a failure is chunk-wide and the
// caller attributes it to every repository in the chunk.
func (c *GraphQLClient) SearchRepoChunk(ctx context.Context, repos []string, f core.Filter, perPage int, now time.Time) ([]RepoPage, Quota, error) {
	if c.Token == "" {
		return nil, Quota{Remaining: -1}, c.authErr()
	}

	doc := c.buildBatchDoc(repos, f, perPage, now)

	var (
		data  map[string]json.RawMessage
		quota Quota
	)
	err := c.Throttle.Dispatch(ctx, func(ctx context.Context) error {
		var postErr error
		data, quota, postErr = c.post(ctx, doc, nil)
		return postErr
	})
	if err != nil {
		return nil, quota, err
	}

	pages := make([]RepoPage, 0, len(repos))
	for i, repo := range repos {
		var result searchResult
		raw, ok := data[alias(i)]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			continue
		}

		page := RepoPage{Repo: repo, Total: result.IssueCount}
		for _, node := range result.Nodes {
			page.Issues = append(page.Issues, normalizeIssueNode(node))
		}
		pages = append(pages, page)
	}

	return pages, quota, nil
}

// buildBatchDoc assembles one aliased query document for a chunk. Each
// alias is an independent search scoped to one repository, all
// requesting the same field set.
func (c *GraphQLClient) buildBatchDoc(repos []string, f core.Filter, perPage int, now time.Time) string {
	var b strings.Builder
	b.WriteString("query {\n")
	for i, repo := range repos {
		scoped := f
		scoped.Repo = repo
		q := query.Build(scoped, now)
		if qualifier := query.SortQualifier(f.Sort); qualifier != "" {
			q += " " + qualifier
		}
		fmt.Fprintf(&b, "  %s: search(query: %s, type: ISSUE, first: %d) { issueCount nodes { ... on Issue { %s } } }\n",
			alias(i), strconv.Quote(q), perPage, issueFieldSet)
	}
	b.WriteString("  rateLimit { remaining resetAt }\n}")
	return b.String()
}

func alias(i int) string {
	return "repo" + strconv.Itoa(i)
}

// post sends one GraphQL document and returns the decoded data map and
// quota. A 200 response carrying an error array classifies by its
// first entry.
func (c *GraphQLClient) post(ctx context.Context, doc string, variables map[string]any) (map[string]json.RawMessage, Quota, error) {
	quota := Quota{Remaining: -1}

	payload := map[string]any{"query": doc}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, quota, core.ClassifyNetwork(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, quota, core.ClassifyNetwork(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return nil, quota, core.ClassifyNetwork(err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, quota, core.ClassifyNetwork(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, quota, core.ClassifyResponse(resp.StatusCode, raw, resp.Header)
	}

	var decoded graphResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, quota, core.ClassifyGraphQLError("", "malformed response: "+err.Error())
	}
	if len(decoded.Errors) > 0 {
		first := decoded.Errors[0]
		apiErr := core.ClassifyGraphQLError(first.Type, first.Message)
		if c.Logger != nil {
			c.Logger.Warn("graphql error response",
				zap.String("type", first.Type),
				zap.String("category", string(apiErr.Category)))
		}
		return nil, quota, apiErr
	}

	if rawLimit, ok := decoded.Data["rateLimit"]; ok {
		_ = json.Unmarshal(rawLimit, &quota)
	}

	return decoded.Data, quota, nil
}

// httpClient wraps the base transport with the oauth2 token source, so
// every GraphQL call goes out with the bearer credential attached.
func (c *GraphQLClient) httpClient(ctx context.Context) *http.Client {
	if c.HTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTP)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token}))
}
