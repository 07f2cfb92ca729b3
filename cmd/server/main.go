// cmd/server/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "campaigns",
	Short:         "Audience segmentation and campaign delivery service",
	Long:          `Builds customer audiences from rule sets, creates campaigns against them and tracks per-recipient delivery.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, segmentCmd)
}
