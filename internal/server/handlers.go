package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/issuescout/issuescout/internal/core"
	servermw "github.com/issuescout/issuescout/internal/server/middleware"
)

// Version information, set by the serve command.
var versionInfo = "dev"

// SetVersion records the build version reported by /version.
func SetVersion(version string) {
	if version != "" {
		versionInfo = version
	}
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Hint      string    `json:"hint,omitempty"`
	ResetAt   time.Time `json:"reset_at,omitzero"`
	RequestID string    `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": versionInfo})
}

// handleBackoff reports the throttle deadline so pollers can schedule
// around it.
func (s *Server) handleBackoff(w http.ResponseWriter, r *http.Request) {
	until := s.service.BackoffUntil()
	payload := map[string]any{"active": !until.IsZero()}
	if !until.IsZero() {
		payload["until"] = until.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleFetchIssues(w http.ResponseWriter, r *http.Request) {
	filter, page, perPage := filterFromQuery(r)

	result, err := s.service.FetchIssues(r.Context(), filter, s.requestToken(r), page, perPage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFetchMulti(w http.ResponseWriter, r *http.Request) {
	repos := splitParam(r.URL.Query().Get("repos"))
	if len(repos) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorDetail{
			Category:  string(core.CategoryBadQuery),
			Message:   "repos parameter is required",
			RequestID: servermw.GetRequestID(r.Context()),
		}})
		return
	}

	filter, page, perPage := filterFromQuery(r)

	result, err := s.service.FetchIssuesForRepositories(r.Context(), repos, filter, s.requestToken(r), page, perPage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// requestToken prefers a bearer credential supplied on the request and
// falls back to the configured one.
func (s *Server) requestToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
		return token
	}
	return s.token
}

func filterFromQuery(r *http.Request) (core.Filter, int, int) {
	q := r.URL.Query()

	filter := core.Filter{
		Labels:      splitParam(q.Get("labels")),
		Language:    q.Get("language"),
		Keyword:     q.Get("keyword"),
		Repo:        q.Get("repo"),
		NoAssignee:  q.Get("no_assignee") == "true" || q.Get("no_assignee") == "1",
		MinStars:    atoiParam(q.Get("min_stars")),
		MinComments: atoiParam(q.Get("min_comments")),
		Sort:        core.SortKey(q.Get("sort")),
	}
	if window := q.Get("window"); window != "" {
		if d, err := time.ParseDuration(window); err == nil && d > 0 {
			filter.Window = d
		}
	}

	page := atoiParam(q.Get("page"))
	perPage := atoiParam(q.Get("per_page"))
	return filter, page, perPage
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := core.AsAPIError(err)
	if !ok {
		apiErr = core.ClassifyNetwork(err)
	}

	s.logger.Warn("fetch failed",
		zap.String("category", string(apiErr.Category)),
		zap.String("request_id", servermw.GetRequestID(r.Context())))

	writeJSON(w, statusForCategory(apiErr.Category), errorResponse{Error: errorDetail{
		Category:  string(apiErr.Category),
		Message:   apiErr.Message,
		Hint:      apiErr.Hint,
		ResetAt:   apiErr.ResetAt,
		RequestID: servermw.GetRequestID(r.Context()),
	}})
}

func statusForCategory(category core.ErrorCategory) int {
	switch category {
	case core.CategoryAuth:
		return http.StatusUnauthorized
	case core.CategoryRateLimitPrimary, core.CategoryRateLimitSecondary:
		return http.StatusTooManyRequests
	case core.CategoryNotFound:
		return http.StatusNotFound
	case core.CategoryBadQuery:
		return http.StatusBadRequest
	case core.CategoryUnavailable, core.CategoryNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func splitParam(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func atoiParam(value string) int {
	n, _ := strconv.Atoi(value)
	return n
}
