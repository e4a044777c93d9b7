package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/issuescout/issuescout/internal/core"
	"github.com/issuescout/issuescout/internal/core/engine"
)

// SearchPage is one fetched page of search results together with the
// quota headers captured alongside it. It is the payload both caches
// store.
type SearchPage struct {
	Total     int
	Issues    []core.Issue
	Remaining int
	ResetAt   time.Time
}

// RESTClient searches issues through the REST search endpoint, one
// HTTP call per page. Every call is cache-fronted: the cache serves
// fresh pages outright and revalidates stale ones with the stored ETag.
// Works with or without a token; a token raises the quota.
type RESTClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Cache   *engine.Cache[*SearchPage]
	Logger  *zap.Logger
}

// Search fetches one page for an already-built query string.
func (c *RESTClient) Search(ctx context.Context, q string, sort core.SortKey, page, perPage int) (*SearchPage, error) {
	fingerprint := fmt.Sprintf("rest|%s|%s|%d|%d", q, sort, page, perPage)

	return c.Cache.Get(ctx, fingerprint, func(ctx context.Context, token string) (engine.LoadResult[*SearchPage], error) {
		return c.fetchPage(ctx, q, sort, page, perPage, token)
	})
}

func (c *RESTClient) fetchPage(ctx context.Context, q string, sort core.SortKey, page, perPage int, etag string) (engine.LoadResult[*SearchPage], error) {
	var zero engine.LoadResult[*SearchPage]

	params := url.Values{}
	params.Set("q", q)
	if apiSort := restSortParam(sort); apiSort != "" {
		params.Set("sort", apiSort)
		params.Set("order", "desc")
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/search/issues?"+params.Encode(), nil)
	if err != nil {
		return zero, core.ClassifyNetwork(err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return zero, core.ClassifyNetwork(err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode == http.StatusNotModified {
		if c.Logger != nil {
			c.Logger.Debug("search page unchanged", zap.String("query", q), zap.Int("page", page))
		}
		return engine.LoadResult[*SearchPage]{NotModified: true}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, core.ClassifyNetwork(err)
	}

	if resp.StatusCode != http.StatusOK {
		return zero, core.ClassifyResponse(resp.StatusCode, body, resp.Header)
	}

	var payload struct {
		TotalCount int         `json:"total_count"`
		Items      []restIssue `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return zero, core.ClassifyResponse(resp.StatusCode, body, resp.Header)
	}

	result := &SearchPage{
		Total:  payload.TotalCount,
		Issues: make([]core.Issue, 0, len(payload.Items)),
	}
	result.Remaining, result.ResetAt = quotaFromResponse(resp.Header)
	for _, item := range payload.Items {
		result.Issues = append(result.Issues, normalizeRESTIssue(item))
	}

	return engine.LoadResult[*SearchPage]{
		Payload: result,
		Token:   resp.Header.Get("ETag"),
	}, nil
}

func (c *RESTClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func restSortParam(key core.SortKey) string {
	switch key {
	case core.SortComments:
		return "comments"
	case core.SortCreated:
		return "created"
	case core.SortUpdated:
		return "updated"
	default:
		return "" // best match is the endpoint default
	}
}

func quotaFromResponse(header http.Header) (remaining int, resetAt time.Time) {
	remaining = -1
	if value := header.Get("X-RateLimit-Remaining"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			remaining = parsed
		}
	}
	if value := header.Get("X-RateLimit-Reset"); value != "" {
		if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
			resetAt = time.Unix(epoch, 0).UTC()
		}
	}
	return remaining, resetAt
}
