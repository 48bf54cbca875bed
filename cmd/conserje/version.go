package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/conserje"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of conserje",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "conserje version %s\n", strings.TrimSpace(conserje.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
