package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/manifest"
)

var registerState string

var registerCmd = &cobra.Command{
	Use:   "register <category> <name> <kind> <location>",
	Short: "Add a package to the manifest",
	Long: `Add a package record to the manifest without fetching it.

Category is one of core, tools, plugins; kind is one of git, hg, zip.
Location may use the github:user/repo, github-dev:repo or
bitbucket:user/repo shorthands.

Registering an existing package is a no-op unless --state is given,
in which case the record is overwritten.`,
	Args: cobra.ExactArgs(4),
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerState, "state", "", "Initial state (installed, skip, remove)")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	category, err := manifest.ParseCategory(args[0])
	if err != nil {
		return err
	}
	name := args[1]
	if err := manifest.ValidateName(name); err != nil {
		return err
	}
	kind, err := manifest.ParseSourceKind(args[2])
	if err != nil {
		return err
	}
	state, err := manifest.ParseState(registerState)
	if err != nil {
		return err
	}

	ws := openWorkspace()
	resolver, err := ws.resolver(cmd.Context())
	if err != nil {
		return err
	}
	location, err := resolver.Expand(args[3])
	if err != nil {
		return err
	}
	if err := manifest.ValidateLocation(location); err != nil {
		return err
	}

	m := ws.loadManifest()
	key := manifest.Key{Category: category, Name: name}
	if !m.Register(category, name, kind, location, state) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already registered, pass --state to overwrite it.\n", key)
		return nil
	}
	if err := ws.saveManifest(m); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s %s)\n", key, kind, location)
	return nil
}
