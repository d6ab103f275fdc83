package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/bindery"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bindery",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bindery version %s\n", strings.TrimSpace(bindery.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
