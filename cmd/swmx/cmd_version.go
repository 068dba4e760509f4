package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netmigrate/swmx/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("swmx %s (%s)\n", version.Version, version.GitCommit)
	},
}
