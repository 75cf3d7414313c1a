package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/branding"
)

// buildInfo describes the running binary. Fields are stamped at link
// time and passed in through Execute.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:   buildVersion,
		Commit:    buildCommit,
		Date:      buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (b buildInfo) String() string {
	return fmt.Sprintf("%s %s\n  commit    %s\n  built     %s\n  go        %s\n  platform  %s",
		branding.CLIName(), b.Version, b.Commit, b.Date, b.GoVersion, b.Platform)
}

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuild()
		out := cmd.OutOrStdout()
		switch versionFormat {
		case "text":
			fmt.Fprintln(out, info)
		case "short":
			fmt.Fprintln(out, info.Version)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		default:
			return fmt.Errorf("unknown --format %q (want text, short or json)", versionFormat)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "text", "Output format: text, short or json")
	rootCmd.AddCommand(versionCmd)
}
