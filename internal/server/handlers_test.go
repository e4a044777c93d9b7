package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/issuescout/issuescout/internal/config"
	"github.com/issuescout/issuescout/internal/core/search"
)

const upstreamPageBody = `{
	"total_count": 3,
	"items": [{
		"id": 101,
		"number": 42,
		"title": "Fix flaky watcher",
		"html_url": "https://github.com/acme/widgets/issues/42",
		"repository_url": "https://api.github.com/repos/acme/widgets",
		"state": "open",
		"comments": 7,
		"created_at": "2026-08-01T09:00:00Z",
		"updated_at": "2026-08-30T09:00:00Z",
		"user": {"login": "octocat"},
		"reactions": {"total_count": 3}
	}]
}`

func newTestServer(t *testing.T, upstream http.HandlerFunc, token string) (*Server, *httptest.Server) {
	t.Helper()
	github := httptest.NewServer(upstream)
	t.Cleanup(github.Close)

	svc := search.New(search.Options{
		APIBaseURL:      github.URL,
		GraphQLEndpoint: github.URL + "/graphql",
		Spacing:         time.Millisecond,
	})
	return New(config.ServerConfig{}, svc, token, nil), github
}

func doRequest(t *testing.T, s *Server, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for key, values := range header {
		req.Header[key] = values
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, func(http.ResponseWriter, *http.Request) {}, "")

	rec := doRequest(t, s, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, body["timestamp"])
}

func TestVersion(t *testing.T) {
	s, _ := newTestServer(t, func(http.ResponseWriter, *http.Request) {}, "")

	rec := doRequest(t, s, "/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["version"])
}

func TestFetchIssues(t *testing.T) {
	var gotQuery string
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(upstreamPageBody))
	}, "")

	rec := doRequest(t, s, "/api/v0/issues?labels=good+first+issue,bug&language=go&no_assignee=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Contains(t, gotQuery, `label:"good first issue"`)
	require.Contains(t, gotQuery, `label:"bug"`)
	require.Contains(t, gotQuery, "language:go")
	require.Contains(t, gotQuery, "no:assignee")

	var body struct {
		TotalCount int `json:"total_count"`
		Issues     []struct {
			Title string `json:"title"`
		} `json:"issues"`
		Provenance struct {
			FetchID string `json:"fetch_id"`
		} `json:"provenance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.TotalCount)
	require.Len(t, body.Issues, 1)
	require.Equal(t, "Fix flaky watcher", body.Issues[0].Title)
	require.NotEmpty(t, body.Provenance.FetchID)
}

func TestFetchIssuesUpstreamFailure(t *testing.T) {
	s, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}, "")

	rec := doRequest(t, s, "/api/v0/issues", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Error struct {
			Category  string `json:"category"`
			Message   string `json:"message"`
			Hint      string `json:"hint"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "authentication", body.Error.Category)
	require.Equal(t, "Bad credentials", body.Error.Message)
	require.NotEmpty(t, body.Error.Hint)
	require.NotEmpty(t, body.Error.RequestID)
}

func TestFetchIssuesRateLimitedStatus(t *testing.T) {
	s, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}, "")

	rec := doRequest(t, s, "/api/v0/issues", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestFetchIssuesBearerTokenSelectsGraphQL(t *testing.T) {
	var gotPath, gotAuth string
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data": {
			"search": {"issueCount": 0, "pageInfo": {"endCursor": "", "hasNextPage": false}, "nodes": []},
			"rateLimit": {"remaining": 4999, "resetAt": "2026-08-31T13:00:00Z"}
		}}`))
	}, "")

	rec := doRequest(t, s, "/api/v0/issues", http.Header{"Authorization": {"Bearer caller-token"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/graphql", gotPath)
	require.Equal(t, "Bearer caller-token", gotAuth)
}

func TestFetchMultiRequiresRepos(t *testing.T) {
	s, _ := newTestServer(t, func(http.ResponseWriter, *http.Request) {}, "")

	rec := doRequest(t, s, "/api/v0/issues/multi", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Category string `json:"category"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "bad-query", body.Error.Category)
}

func TestFetchMulti(t *testing.T) {
	var queries []string
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(upstreamPageBody))
	}, "")

	rec := doRequest(t, s, "/api/v0/issues/multi?repos=acme/alpha,acme/beta", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, queries, 2)
	require.Contains(t, queries[0], "repo:acme/alpha")
	require.Contains(t, queries[1], "repo:acme/beta")

	var body struct {
		TotalCount int `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 6, body.TotalCount)
}

func TestBackoffEndpoint(t *testing.T) {
	s, _ := newTestServer(t, func(http.ResponseWriter, *http.Request) {}, "")

	rec := doRequest(t, s, "/api/v0/backoff", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["active"])
}
