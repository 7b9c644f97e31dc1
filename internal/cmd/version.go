package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/garminwrap/garminwrap/internal/server/handlers"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for Crucible, Gofulmen and Go versions, or -o json for the /version payload.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion(cmd.Context(), cmd.OutOrStdout(), outputFormat, extended)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}

func runVersion(ctx context.Context, w io.Writer, format string, extended bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	report := handlers.CurrentVersion(ctx)

	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Fprintf(w, "%s %s\n", report.App.Name, report.App.Version)
	if !extended {
		return nil
	}
	fmt.Fprintf(w, "Commit: %s\n", report.App.Commit)
	fmt.Fprintf(w, "Built: %s\n", report.App.BuildDate)
	fmt.Fprintf(w, "Go: %s\n\n", report.App.GoVersion)
	fmt.Fprintf(w, "Gofulmen: %s\n", report.Dependencies.Gofulmen)
	fmt.Fprintf(w, "Crucible: %s\n", report.Dependencies.Crucible)
	return nil
}
