package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/issuescout/issuescout/internal/store"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved filter presets",
}

var presetSaveCmd = &cobra.Command{
	Use:     "save name",
	Short:   "Save the filter flags of this invocation under a name",
	Example: `  issuescout preset save weekend --label "good first issue" --language go --window 168h`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := buildFilter(cmd)
		if err != nil {
			return err
		}

		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		if err := st.SavePreset(cmd.Context(), args[0], filter); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved preset %s\n", args[0])
		return nil
	},
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		names, err := st.ListPresets(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete name",
	Short: "Delete a saved preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		if err := st.DeletePreset(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted preset %s\n", args[0])
		return nil
	},
}

func init() {
	// preset save reuses the search filter flags.
	presetSaveCmd.Flags().AddFlagSet(searchCmd.Flags())

	presetCmd.AddCommand(presetSaveCmd, presetListCmd, presetDeleteCmd)
	rootCmd.AddCommand(presetCmd)
}
