package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/manifest"
	"github.com/lorea/bootstrap/internal/reconcile"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <category>/<name>",
	Short: "Remove a package from disk",
	Long: `Delete a package directory, its downloaded archive and, for plugins, its
link in the core module directory. The package stays registered with
state absent. Packages already recorded as absent are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	key, err := parseKey(args[0])
	if err != nil {
		return err
	}

	ws := openWorkspace()
	m := ws.loadManifest()
	res := ws.reconciler(m).Uninstall(key.Category, key.Name)
	if !res.OK() {
		return res.Err
	}
	if res.Action == reconcile.ActionNone {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not installed\n", key)
		return nil
	}
	if err := ws.saveManifest(m); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (state %s)\n", key, manifest.StateAbsent)
	return nil
}
