package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, overridden via -ldflags at release time.
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("opentax %s (commit %s, built %s, %s %s/%s)\n",
				Version, Commit, BuildDate,
				runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	})
}
