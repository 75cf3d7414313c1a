package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/manifest"
)

var stateCmd = &cobra.Command{
	Use:   "state <category>/<name> <state>",
	Short: "Set the recorded state of a package",
	Long: `Change what the next sync does with a package:

  installed  keep it updated
  skip       leave it alone
  remove     delete it
  absent     treat it as not installed`,
	Args: cobra.ExactArgs(2),
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	key, err := parseKey(args[0])
	if err != nil {
		return err
	}
	state, err := manifest.ParseState(args[1])
	if err != nil {
		return err
	}

	ws := openWorkspace()
	m := ws.loadManifest()
	if err := m.SetState(key.Category, key.Name, state); err != nil {
		return err
	}
	if err := ws.saveManifest(m); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", key, state)
	return nil
}
