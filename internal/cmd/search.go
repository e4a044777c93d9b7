package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/issuescout/issuescout/internal/core"
	"github.com/issuescout/issuescout/internal/observability"
	"github.com/issuescout/issuescout/internal/output"
	"github.com/issuescout/issuescout/internal/store"
)

type searchOptions struct {
	labels      []string
	language    string
	window      time.Duration
	keyword     string
	repo        string
	repos       []string
	watchlist   bool
	preset      string
	noAssignee  bool
	minStars    int
	minComments int
	sort        string
	page        int
	perPage     int
	format      string
}

var searchFlags searchOptions

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for open issues matching a filter",
	Example: `  issuescout search --label "good first issue" --language go --window 24h
  issuescout search --repo golang/go --no-assignee
  issuescout search --repos golang/go,kubernetes/kubernetes --sort comments
  issuescout search --watchlist --preset weekend`,
	RunE: runSearch,
}

func init() {
	registerSearchFlags()
	rootCmd.AddCommand(searchCmd)
}

func registerSearchFlags() {
	flags := searchCmd.Flags()
	flags.StringSliceVar(&searchFlags.labels, "label", nil, "label to require (repeatable)")
	flags.StringVar(&searchFlags.language, "language", "", "primary repository language")
	flags.DurationVar(&searchFlags.window, "window", 0, "only issues created within this window (e.g. 24h, 0 for any)")
	flags.StringVar(&searchFlags.keyword, "keyword", "", "free-text keyword")
	flags.StringVar(&searchFlags.repo, "repo", "", "limit to one repository (owner/name)")
	flags.StringSliceVar(&searchFlags.repos, "repos", nil, "fan out across repositories (owner/name, comma separated)")
	flags.BoolVar(&searchFlags.watchlist, "watchlist", false, "fan out across the saved watchlist")
	flags.StringVar(&searchFlags.preset, "preset", "", "start from a saved filter preset")
	flags.BoolVar(&searchFlags.noAssignee, "no-assignee", false, "only unassigned issues")
	flags.IntVar(&searchFlags.minStars, "min-stars", 0, "minimum repository stars (global search only)")
	flags.IntVar(&searchFlags.minComments, "min-comments", 0, "minimum comment count")
	flags.StringVar(&searchFlags.sort, "sort", "", "sort key: best-match, comments, created, updated")
	flags.IntVar(&searchFlags.page, "page", 1, "result page")
	flags.IntVar(&searchFlags.perPage, "per-page", 0, "results per page")
	flags.StringVar(&searchFlags.format, "output", "table", "output format: table or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := observability.CLILogger

	filter, err := buildFilter(cmd)
	if err != nil {
		return err
	}

	repos := searchFlags.repos
	if searchFlags.watchlist {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup
		saved, err := st.ListRepos(ctx)
		if err != nil {
			return err
		}
		repos = append(repos, saved...)
	}

	service := newService()
	token := cfg.GitHub.Token

	var result *core.FetchResult
	if len(repos) > 0 {
		result, err = service.FetchIssuesForRepositories(ctx, repos, filter, token, searchFlags.page, effectivePageSize())
	} else {
		result, err = service.FetchIssues(ctx, filter, token, searchFlags.page, effectivePageSize())
	}
	if err != nil {
		if apiErr, ok := core.AsAPIError(err); ok {
			logger.Error("fetch failed",
				zap.String("category", string(apiErr.Category)),
				zap.String("hint", apiErr.Hint))
			return fmt.Errorf("%s", apiErr.Hint)
		}
		return err
	}

	switch searchFlags.format {
	case "json":
		formatter := &output.JSONFormatter{}
		rendered, err := formatter.Format(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
	case "table":
		formatter := &output.TableFormatter{}
		fmt.Fprintln(cmd.OutOrStdout(), formatter.Format(result))
	default:
		return fmt.Errorf("unknown output format %q", searchFlags.format)
	}
	return nil
}

// buildFilter merges, in increasing precedence: config defaults, the
// named preset, explicit flags.
func buildFilter(cmd *cobra.Command) (core.Filter, error) {
	filter := core.Filter{
		Labels:   cfg.Search.Labels,
		Language: cfg.Search.Language,
	}

	if searchFlags.preset != "" {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return filter, err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup
		filter, err = st.GetPreset(cmd.Context(), searchFlags.preset)
		if err != nil {
			return filter, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("label") {
		filter.Labels = searchFlags.labels
	}
	if flags.Changed("language") {
		filter.Language = searchFlags.language
	}
	if flags.Changed("window") {
		filter.Window = searchFlags.window
	}
	if flags.Changed("keyword") {
		filter.Keyword = searchFlags.keyword
	}
	if flags.Changed("repo") {
		filter.Repo = searchFlags.repo
	}
	if flags.Changed("no-assignee") {
		filter.NoAssignee = searchFlags.noAssignee
	}
	if flags.Changed("min-stars") {
		filter.MinStars = searchFlags.minStars
	}
	if flags.Changed("min-comments") {
		filter.MinComments = searchFlags.minComments
	}
	if flags.Changed("sort") {
		switch key := core.SortKey(searchFlags.sort); key {
		case core.SortBestMatch, core.SortComments, core.SortCreated, core.SortUpdated:
			filter.Sort = key
		default:
			return filter, errors.New("sort must be one of: best-match, comments, created, updated")
		}
	}

	if filter.Repo != "" && (len(searchFlags.repos) > 0 || searchFlags.watchlist) {
		return filter, errors.New("--repo cannot be combined with --repos or --watchlist")
	}
	return filter, nil
}

func effectivePageSize() int {
	if searchFlags.perPage > 0 {
		return searchFlags.perPage
	}
	return cfg.Search.PageSize
}
