package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/scaffold"
)

var (
	initCoreSource string
	initTOML       bool
)

func init() {
	initCmd.Flags().StringVar(&initCoreSource, "core-source", "", "Source of the core package (default github-dev:Elgg)")
	initCmd.Flags().BoolVar(&initTOML, "toml", false, "Write the declarations file as TOML")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a declarations file and an empty manifest",
	Long: `Initialize a workspace: write a starter declarations file naming the core
package and, if missing, an empty manifest. Edit the declarations file,
then run sync.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := openWorkspace()
		declPath := ws.settings.Declarations
		if initTOML {
			declPath = replaceExt(declPath, ".toml")
		}

		data := scaffold.NewData(ws.settings.Org)
		if initCoreSource != "" {
			data.CoreSource = initCoreSource
		}

		result, err := scaffold.Generate(data, declPath, ws.settings.Manifest)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, f := range result.Files {
			fmt.Fprintf(out, "Created %s\n", f)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "Warning: %s\n", w)
		}
		return nil
	},
}

func replaceExt(path, ext string) string {
	return path[:len(path)-len(filepath.Ext(path))] + ext
}
