package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var relinkCmd = &cobra.Command{
	Use:   "relink",
	Short: "Link plugin directories into the core module directory",
	Long: `Create a relative symlink in the core module directory for every
directory under plugins/, and remove links left behind by plugins that
no longer exist. The manifest is not modified.`,
	Args: cobra.NoArgs,
	RunE: runRelink,
}

func init() {
	rootCmd.AddCommand(relinkCmd)
}

func runRelink(cmd *cobra.Command, args []string) error {
	ws := openWorkspace()
	r := ws.reconciler(ws.loadManifest())

	linked, err := r.RelinkPlugins()
	for _, name := range linked {
		fmt.Fprintf(cmd.OutOrStdout(), "  linked %s\n", name)
	}
	if err != nil {
		return fmt.Errorf("relinking plugins: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d plugins linked into %s\n", len(linked), ws.layout.CoreModuleDir)
	return nil
}
