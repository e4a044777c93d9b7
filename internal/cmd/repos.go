package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/issuescout/issuescout/internal/store"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage the repository watchlist",
}

var reposAddCmd = &cobra.Command{
	Use:   "add owner/name...",
	Short: "Add repositories to the watchlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		for _, repo := range args {
			if err := st.AddRepo(cmd.Context(), repo); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", repo)
		}
		return nil
	},
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove owner/name...",
	Short: "Remove repositories from the watchlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		for _, repo := range args {
			if err := st.RemoveRepo(cmd.Context(), repo); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", repo)
		}
		return nil
	},
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the watchlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		repos, err := st.ListRepos(cmd.Context())
		if err != nil {
			return err
		}
		for _, repo := range repos {
			fmt.Fprintln(cmd.OutOrStdout(), repo)
		}
		return nil
	},
}

// watchlistFile is the import/export document shape.
type watchlistFile struct {
	Repositories []string `yaml:"repositories"`
}

var reposImportCmd = &cobra.Command{
	Use:   "import file.yaml",
	Short: "Import watchlist entries from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var doc watchlistFile
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse watchlist file: %w", err)
		}

		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		for _, repo := range doc.Repositories {
			if err := st.AddRepo(cmd.Context(), repo); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d repositories\n", len(doc.Repositories))
		return nil
	},
}

var reposExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the watchlist as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		repos, err := st.ListRepos(cmd.Context())
		if err != nil {
			return err
		}
		encoded, err := yaml.Marshal(watchlistFile{Repositories: repos})
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(encoded)
		return err
	},
}

func init() {
	reposCmd.AddCommand(reposAddCmd, reposRemoveCmd, reposListCmd, reposImportCmd, reposExportCmd)
	rootCmd.AddCommand(reposCmd)
}
