package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/scoring"
)

// Version is the release string, overridden by ldflags at build time.
var Version = "2.0.0"

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output as JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	commit := resolveCommit()

	if versionJSON {
		out := map[string]string{
			"version":        Version,
			"schema_version": scoring.SchemaVersion,
		}
		if commit != "" {
			out["commit"] = commit
		}
		return writeIndentedJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	if commit != "" {
		fmt.Fprintf(w, "ldsi version %s (%s)\n", Version, commit)
	} else {
		fmt.Fprintf(w, "ldsi version %s\n", Version)
	}
	fmt.Fprintf(w, "result schema %s\n", scoring.SchemaVersion)
	return nil
}

// resolveCommit reads the VCS revision stamped into the binary, if any.
func resolveCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
