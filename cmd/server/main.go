package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}

	rootCmd := &cobra.Command{
		Use:   "medreport",
		Short: "Medical Report Analyzer server",
		Long: "Serves the medical document upload widget and forwards accepted\n" +
			"documents to the analysis service.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	opts.bindFlags(rootCmd)

	serveCmd := &cobra.Command{
		Use:          "serve",
		Short:        "Start the HTTP server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	opts.bindFlags(serveCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "medreport %s (built %s)\n", Version, BuildTime)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	return rootCmd
}
