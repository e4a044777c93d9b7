// Package output renders fetch results for the CLI.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/issuescout/issuescout/internal/core"
)

const titleWidth = 60

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// Format renders a fetch result as a table, with per-source errors and
// quota state appended below it.
func (f *TableFormatter) Format(result *core.FetchResult) string {
	if result == nil {
		return ""
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	// The footer is a sentence, not a heading; keep its casing.
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Repository", "#", "Title", "Labels", "💬", "👍", "Updated"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: titleWidth, WidthMaxEnforcer: text.Trim},
	})

	for _, issue := range result.Issues {
		t.AppendRow(table.Row{
			issue.RepoFullName,
			issue.Number,
			issue.Title,
			labelNames(issue.Labels),
			issue.Comments,
			issue.Reactions,
			relativeAge(issue.UpdatedAt),
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d shown of %d matched", len(result.Issues), result.TotalCount), "", "", "", ""})

	rendered := t.Render()
	if len(result.SourceErrors) > 0 {
		var b strings.Builder
		b.WriteString(rendered)
		for _, srcErr := range result.SourceErrors {
			fmt.Fprintf(&b, "\n%s: %s", srcErr.Repo, srcErr.Err.Hint)
		}
		rendered = b.String()
	}
	if result.RemainingQuota >= 0 {
		rendered += fmt.Sprintf("\nAPI quota: %d remaining, resets %s", result.RemainingQuota, relativeAge(result.QuotaResetAt))
	}
	return rendered
}

func labelNames(labels []core.Label) string {
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.Name)
	}
	return strings.Join(names, ", ")
}

func relativeAge(at time.Time) string {
	if at.IsZero() {
		return "-"
	}

	d := time.Since(at)
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
