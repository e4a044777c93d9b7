package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/issuescout/issuescout/internal/config"
	"github.com/issuescout/issuescout/internal/core/search"
	"github.com/issuescout/issuescout/internal/observability"
)

var (
	cfgFile string
	verbose bool

	cfg *config.Config

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "issuescout",
	Short: "Find approachable open issues across GitHub repositories",
	Long: `issuescout searches GitHub for open issues matching your filters
(labels, language, age, activity) across one repository, many, or all
of GitHub, while pacing requests to stay inside the API's rate limits.

Use the subcommands to perform specific operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/issuescout/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

func initConfig() {
	// Tokens commonly live in a local .env during development.
	_ = godotenv.Load()

	observability.InitCLILogger(verbose)

	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded
}

// newService builds the fetch service from the loaded configuration.
func newService() *search.Service {
	return search.New(search.Options{
		APIBaseURL:      cfg.GitHub.APIBaseURL,
		GraphQLEndpoint: cfg.GitHub.GraphQLEndpoint,
		Spacing:         cfg.Throttle.Spacing,
		CacheTTL:        cfg.Cache.TTL,
		HTTPTimeout:     cfg.GitHub.HTTPTimeout,
		Logger:          observability.CLILogger,
	})
}
