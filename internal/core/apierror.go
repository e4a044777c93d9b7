package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorCategory classifies an API failure into an actionable bucket.
type ErrorCategory string

const (
	CategoryNetwork            ErrorCategory = "network"
	CategoryAuth               ErrorCategory = "authentication"
	CategoryRateLimitPrimary   ErrorCategory = "rate-limit-primary"
	CategoryRateLimitSecondary ErrorCategory = "rate-limit-secondary"
	CategoryNotFound           ErrorCategory = "not-found"
	CategoryBadQuery           ErrorCategory = "bad-query"
	CategoryUnavailable        ErrorCategory = "service-unavailable"
	CategoryUnknown            ErrorCategory = "unknown"
)

// RateLimited reports whether the category is either rate limit bucket.
func (c ErrorCategory) RateLimited() bool {
	return c == CategoryRateLimitPrimary || c == CategoryRateLimitSecondary
}

// APIError is the single error type the fetch layer surfaces. Every
// upstream failure is classified into one before it reaches a caller.
type APIError struct {
	Category   ErrorCategory `json:"category"`
	Message    string        `json:"message"`
	Hint       string        `json:"hint,omitempty"`        // user-facing remediation
	StatusCode int           `json:"status_code,omitempty"` // 0 for network failures
	Remaining  int           `json:"remaining"`             // remaining quota, -1 when unknown
	ResetAt    time.Time     `json:"reset_at,omitzero"`
	DocURL     string        `json:"doc_url,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"` // effective wait, from Retry-After or the secondary default
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("github: %s (HTTP %d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github: %s: %s", e.Category, e.Message)
}

// AsAPIError unwraps err into an *APIError if one is in its chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

const (
	secondaryLimitMarker = "secondary rate limit"
	abuseMarker          = "abuse"
)

// defaultSecondaryRetryAfter fills RetryAfter when a secondary limit
// arrives without a Retry-After header, so a rate-limit error always
// carries enough to compute a countdown.
const defaultSecondaryRetryAfter = 60 * time.Second

// ClassifyNetwork wraps a transport failure that produced no response.
func ClassifyNetwork(err error) *APIError {
	msg := "request failed before a response arrived"
	if err != nil {
		msg = err.Error()
	}
	return &APIError{
		Category:  CategoryNetwork,
		Message:   msg,
		Hint:      "Could not reach the GitHub API. Check your network connection and try again.",
		Remaining: -1,
	}
}

// ClassifyResponse turns a non-success HTTP response into an APIError.
// The body may be empty or unparseable; classification degrades to the
// status code alone.
func ClassifyResponse(statusCode int, body []byte, header http.Header) *APIError {
	message, docURL := parseErrorBody(body)
	remaining, resetAt := quotaFromHeaders(header)
	retryAfter := retryAfterHeader(header)

	apiErr := &APIError{
		Category:   CategoryUnknown,
		Message:    message,
		StatusCode: statusCode,
		Remaining:  remaining,
		ResetAt:    resetAt,
		DocURL:     docURL,
		RetryAfter: retryAfter,
	}

	lowerMsg := strings.ToLower(message)
	lowerDoc := strings.ToLower(docURL)

	switch statusCode {
	case http.StatusUnauthorized:
		apiErr.Category = CategoryAuth
		apiErr.Hint = "GitHub rejected the access token. Generate a new personal access token and update your configuration."
	case http.StatusForbidden:
		switch {
		case strings.Contains(lowerMsg, secondaryLimitMarker) || strings.Contains(lowerDoc, "secondary-rate-limit"):
			apiErr.Category = CategoryRateLimitSecondary
			apiErr.Hint = "GitHub's secondary rate limit was triggered by a burst of requests. Requests pause automatically; retry after the backoff elapses."
		case remaining == 0 || strings.Contains(lowerMsg, "rate limit"):
			apiErr.Category = CategoryRateLimitPrimary
			apiErr.Hint = "The hourly API quota is exhausted. Wait for the quota window to reset, or add an access token for a higher limit."
		case strings.Contains(lowerMsg, abuseMarker):
			apiErr.Category = CategoryRateLimitSecondary
			apiErr.Hint = "GitHub's abuse detection slowed things down. Pausing briefly before the next request."
		default:
			apiErr.Hint = "GitHub refused the request. The token may lack the required scopes."
		}
	case http.StatusNotFound:
		apiErr.Category = CategoryNotFound
		apiErr.Hint = "The repository does not exist or is not visible with the current credentials."
	case http.StatusUnprocessableEntity:
		apiErr.Category = CategoryBadQuery
		apiErr.Hint = "GitHub rejected the search query. Check label names and filter syntax."
	case http.StatusServiceUnavailable:
		apiErr.Category = CategoryUnavailable
		apiErr.Hint = "GitHub is temporarily unavailable. Retry in a moment."
	default:
		apiErr.Hint = "Unexpected response from GitHub."
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	if apiErr.Category == CategoryRateLimitSecondary && apiErr.RetryAfter == 0 {
		apiErr.RetryAfter = defaultSecondaryRetryAfter
	}

	return apiErr
}

// ClassifyGraphQLError classifies one entry of a GraphQL 200-response
// error array by its type and message.
func ClassifyGraphQLError(errType, message string) *APIError {
	lowerType := strings.ToLower(errType)
	lowerMsg := strings.ToLower(message)

	if strings.Contains(lowerType, "rate_limited") || strings.Contains(lowerMsg, "rate limit") {
		return &APIError{
			Category:   CategoryRateLimitSecondary,
			Message:    message,
			Hint:       "GraphQL requests are being throttled. Requests pause automatically; retry after the backoff elapses.",
			StatusCode: http.StatusOK,
			Remaining:  -1,
			RetryAfter: defaultSecondaryRetryAfter,
		}
	}

	return &APIError{
		Category:   CategoryBadQuery,
		Message:    message,
		Hint:       "GitHub rejected the GraphQL query. Check label names and filter syntax.",
		StatusCode: http.StatusOK,
		Remaining:  -1,
	}
}

func parseErrorBody(body []byte) (message, docURL string) {
	if len(body) == 0 {
		return "", ""
	}

	var payload struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body)), ""
	}
	return payload.Message, payload.DocumentationURL
}

func quotaFromHeaders(header http.Header) (remaining int, resetAt time.Time) {
	remaining = -1
	if header == nil {
		return remaining, resetAt
	}

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

func retryAfterHeader(header http.Header) time.Duration {
	if header == nil {
		return 0
	}

	retry := header.Get("Retry-After")
	if retry == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(retry)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		if wait := time.Until(parsed); wait > 0 {
			return wait
		}
	}
	return 0
}
