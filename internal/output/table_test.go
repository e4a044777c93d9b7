package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/issuescout/issuescout/internal/core"
)

func sampleResult() *core.FetchResult {
	return &core.FetchResult{
		TotalCount: 57,
		Issues: []core.Issue{
			{
				ID:           101,
				Number:       42,
				Title:        "Fix flaky watcher",
				RepoFullName: "acme/widgets",
				Labels:       []core.Label{{Name: "good first issue"}, {Name: "bug"}},
				Comments:     7,
				Reactions:    3,
				UpdatedAt:    time.Now().Add(-2 * time.Hour),
			},
			{
				ID:           102,
				Number:       7,
				Title:        "Docs typo",
				RepoFullName: "acme/widgets",
				UpdatedAt:    time.Now().Add(-3 * 24 * time.Hour),
			},
		},
		RemainingQuota: 9,
		QuotaResetAt:   time.Now().Add(30 * time.Minute),
	}
}

func TestTableFormat(t *testing.T) {
	f := &TableFormatter{}
	out := f.Format(sampleResult())

	require.Contains(t, out, "acme/widgets")
	require.Contains(t, out, "Fix flaky watcher")
	require.Contains(t, out, "good first issue, bug")
	require.Contains(t, out, "2 shown of 57 matched")
	require.Contains(t, out, "API quota: 9 remaining")
	require.Contains(t, out, "2h")
	require.Contains(t, out, "3d")
}

func TestTableFormatSourceErrors(t *testing.T) {
	result := sampleResult()
	result.SourceErrors = []core.SourceError{
		{Repo: "acme/missing", Err: &core.APIError{
			Category: core.CategoryNotFound,
			Hint:     "The repository does not exist or is not visible with the current credentials.",
		}},
	}

	f := &TableFormatter{}
	out := f.Format(result)

	require.Contains(t, out, "acme/missing: The repository does not exist")
}

func TestTableFormatNoQuotaLineWhenUnknown(t *testing.T) {
	result := sampleResult()
	result.RemainingQuota = -1

	f := &TableFormatter{}
	require.NotContains(t, f.Format(result), "API quota")
}

func TestTableFormatNil(t *testing.T) {
	f := &TableFormatter{}
	require.Empty(t, f.Format(nil))
}

func TestJSONFormat(t *testing.T) {
	f := &JSONFormatter{}
	out, err := f.Format(sampleResult())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.EqualValues(t, 57, decoded["total_count"])
}

func TestRelativeAge(t *testing.T) {
	require.Equal(t, "-", relativeAge(time.Time{}))
	require.Equal(t, "just now", relativeAge(time.Now().Add(-10*time.Second)))
	require.Equal(t, "5m", relativeAge(time.Now().Add(-5*time.Minute)))
	require.Equal(t, "3h", relativeAge(time.Now().Add(-3*time.Hour)))
	require.Equal(t, "2d", relativeAge(time.Now().Add(-49*time.Hour)))
}
