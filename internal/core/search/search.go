// Package search is the inbound surface of the fetch layer. A Service
// owns the process-wide throttle, the caches, and the cursor map, fans
// searches out across repositories, and merges partial results into
// one FetchResult.
package search

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/issuescout/issuescout/internal/core"
	"github.com/issuescout/issuescout/internal/core/engine"
	"github.com/issuescout/issuescout/internal/core/query"
	"github.com/issuescout/issuescout/internal/core/transport"
)

// DefaultPageSize matches the REST search endpoint's default.
const DefaultPageSize = 30

// Options tunes a Service. Zero values mean defaults.
type Options struct {
	APIBaseURL      string // REST base, default https://api.github.com
	GraphQLEndpoint string // default https://api.github.com/graphql
	Spacing         time.Duration
	CacheTTL        time.Duration
	HTTPTimeout     time.Duration
	Logger          *zap.Logger
}

// Service coordinates both transports behind the two fetch operations.
// Construct one per process; all shared state (throttle deadline,
// caches, cursors) lives here and is safe for concurrent callers.
type Service struct {
	opts      Options
	throttle  *engine.Throttle
	restCache *engine.Cache[*transport.SearchPage]
	gqlCache  *engine.Cache[*transport.SearchPage]
	cursors   *transport.CursorMap
	httpc     *http.Client
	logger    *zap.Logger
	clock     func() time.Time
}

// New constructs a Service.
func New(opts Options) *Service {
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://api.github.com"
	}
	if opts.GraphQLEndpoint == "" {
		opts.GraphQLEndpoint = "https://api.github.com/graphql"
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	throttle := engine.NewThrottle(opts.Spacing)
	return &Service{
		opts:      opts,
		throttle:  throttle,
		restCache: engine.NewCache[*transport.SearchPage](throttle, opts.CacheTTL),
		gqlCache:  engine.NewCache[*transport.SearchPage](throttle, opts.CacheTTL),
		cursors:   transport.NewCursorMap(),
		httpc:     &http.Client{Timeout: opts.HTTPTimeout},
		logger:    opts.Logger,
	}
}

// BackoffUntil exposes the throttle's deadline so polling callers can
// compute a countdown instead of layering their own recovery timer on
// top of it.
func (s *Service) BackoffUntil() time.Time {
	return s.throttle.BackoffUntil()
}

// FetchIssues runs one search, global or scoped to filter.Repo, and
// returns one page. With a token the GraphQL transport is used,
// otherwise REST.
func (s *Service) FetchIssues(ctx context.Context, f core.Filter, token string, page, perPage int) (*core.FetchResult, error) {
	perPage = normalizePageSize(perPage)
	if page < 1 {
		page = 1
	}

	requestedAt := s.now()
	q := query.Build(f, requestedAt)

	var (
		fetched *transport.SearchPage
		err     error
	)
	if token != "" {
		fetched, err = s.graphqlClient(token).Search(ctx, q, f.Sort, page, perPage)
	} else {
		fetched, err = s.restClient(token).Search(ctx, q, f.Sort, page, perPage)
	}
	if err != nil {
		return nil, err
	}

	result := &core.FetchResult{
		TotalCount:     fetched.Total,
		Issues:         append([]core.Issue(nil), fetched.Issues...),
		RemainingQuota: fetched.Remaining,
		QuotaResetAt:   fetched.ResetAt,
	}
	// The local ordering applies on every path, so a page is ordered the
	// same way whichever transport produced it.
	sortIssues(result.Issues, f.Sort)
	s.stamp(result, requestedAt)
	return result, nil
}

// FetchIssuesForRepositories fans one filter out across repositories
// and aggregates the partial results. GitHub has no native
// multi-repository search, so the fan-out itself is what makes the
// result coherent: failures are collected per repository, duplicates
// collapse by issue ID, and the merged set is re-sorted locally.
//
// The REST path runs strictly sequentially, since a burst of parallel
// calls is the surest way to trip the secondary limit, and a rate-limit
// failure aborts the repositories not yet fetched. The GraphQL path
// batches repositories into aliased chunks and aborts remaining chunks
// on a rate-limit failure the same way.
//
// page positions only the sequential REST path. The batched documents
// have no cursor positioning across repositories, so with a token each
// repository contributes its first perPage results regardless of page.
func (s *Service) FetchIssuesForRepositories(ctx context.Context, repos []string, f core.Filter, token string, page, perPage int) (*core.FetchResult, error) {
	perPage = normalizePageSize(perPage)
	if page < 1 {
		page = 1
	}

	requestedAt := s.now()
	result := &core.FetchResult{RemainingQuota: -1}

	if token != "" {
		s.fetchReposGraphQL(ctx, repos, f, token, perPage, requestedAt, result)
	} else {
		s.fetchReposREST(ctx, repos, f, token, page, perPage, requestedAt, result)
	}

	result.Issues = dedupeIssues(result.Issues)
	sortIssues(result.Issues, f.Sort)
	s.stamp(result, requestedAt)
	return result, nil
}

func (s *Service) fetchReposREST(ctx context.Context, repos []string, f core.Filter, token string, page, perPage int, now time.Time, result *core.FetchResult) {
	client := s.restClient(token)

	for i, repo := range repos {
		scoped := f
		scoped.Repo = repo
		q := query.Build(scoped, now)

		fetched, err := client.Search(ctx, q, f.Sort, page, perPage)
		if err != nil {
			apiErr, ok := core.AsAPIError(err)
			if !ok {
				apiErr = core.ClassifyNetwork(err)
			}
			result.SourceErrors = append(result.SourceErrors, core.SourceError{Repo: repo, Err: apiErr})
			if apiErr.Category.RateLimited() {
				// Keep what we have; hammering on remaining repositories
				// only deepens the throttling.
				s.logger.Warn("aborting repository fan-out",
					zap.String("category", string(apiErr.Category)),
					zap.Int("repos_skipped", len(repos)-i-1))
				return
			}
			continue
		}

		result.TotalCount += fetched.Total
		result.Issues = append(result.Issues, fetched.Issues...)
		if fetched.Remaining >= 0 {
			result.RemainingQuota = fetched.Remaining
			result.QuotaResetAt = fetched.ResetAt
		}
	}
}

func (s *Service) fetchReposGraphQL(ctx context.Context, repos []string, f core.Filter, token string, perPage int, now time.Time, result *core.FetchResult) {
	client := s.graphqlClient(token)
	chunks := transport.ChunkRepos(repos)

	for i, chunk := range chunks {
		pages, quota, err := client.SearchRepoChunk(ctx, chunk, f, perPage, now)
		if err != nil {
			apiErr, ok := core.AsAPIError(err)
			if !ok {
				apiErr = core.ClassifyNetwork(err)
			}
			// One failed request, but callers need per-repository
			// attribution: every repository in the chunk gets the error.
			for _, repo := range chunk {
				result.SourceErrors = append(result.SourceErrors, core.SourceError{Repo: repo, Err: apiErr})
			}
			if apiErr.Category.RateLimited() {
				s.logger.Warn("aborting batched fan-out",
					zap.String("category", string(apiErr.Category)),
					zap.Int("chunks_skipped", len(chunks)-i-1))
				return
			}
			continue
		}

		for _, page := range pages {
			result.TotalCount += page.Total
			result.Issues = append(result.Issues, page.Issues...)
		}
		if quota.Remaining >= 0 {
			result.RemainingQuota = quota.Remaining
			result.QuotaResetAt = quota.ResetAt
		}
	}
}

func (s *Service) restClient(token string) *transport.RESTClient {
	return &transport.RESTClient{
		BaseURL: s.opts.APIBaseURL,
		Token:   token,
		HTTP:    s.httpc,
		Cache:   s.restCache,
		Logger:  s.logger,
	}
}

func (s *Service) graphqlClient(token string) *transport.GraphQLClient {
	return &transport.GraphQLClient{
		Endpoint: s.opts.GraphQLEndpoint,
		Token:    token,
		HTTP:     s.httpc,
		Cache:    s.gqlCache,
		Throttle: s.throttle,
		Cursors:  s.cursors,
		Logger:   s.logger,
	}
}

func (s *Service) stamp(result *core.FetchResult, requestedAt time.Time) {
	result.Provenance = core.Provenance{
		FetchID:     uuid.New().String(),
		RequestedAt: requestedAt,
		ResolvedAt:  s.now(),
	}
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}

func normalizePageSize(perPage int) int {
	if perPage <= 0 {
		return DefaultPageSize
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}
