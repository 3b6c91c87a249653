package main

import (
	"fmt"

	"github.com/aretw0/orderdesk/internal/presentation/graph"
	"github.com/aretw0/orderdesk/internal/runtime"
	"github.com/aretw0/orderdesk/pkg/ports"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the conversation flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the conversation phases.
With --user, the phase of that stored session is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		var overlay *graph.Overlay
		if userID != "" {
			err := withStore(func(store ports.SessionStore) error {
				s, err := store.Load(cmd.Context(), userID)
				if err != nil {
					return fmt.Errorf("error loading session '%s': %w", userID, err)
				}
				overlay = &graph.Overlay{Current: s.Phase}
				return nil
			})
			if err != nil {
				return err
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(runtime.Edges(), overlay))
		return nil
	},
}

func init() {
	graphCmd.Flags().String("user", "", "Highlight the phase of this user's session")
	rootCmd.AddCommand(graphCmd)
}
