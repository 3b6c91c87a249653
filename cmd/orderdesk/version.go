package main

import (
	"fmt"

	"github.com/aretw0/orderdesk"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of orderdesk",
	// The version needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "orderdesk version %s\n", orderdesk.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
