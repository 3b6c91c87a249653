package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/orderdesk/internal/config"
	"github.com/aretw0/orderdesk/pkg/ports"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long: `List, inspect, and remove sessions in the configured store.
Encrypted sessions are decrypted with encryption.keys.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store ports.SessionStore) error {
			ids, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				if cfg.Store.Backend == config.BackendMemory {
					fmt.Fprintln(out, "The memory store does not outlive the process; set store.backend to file or redis.")
				}
				return nil
			}
			fmt.Fprintln(out, "Sessions:")
			for _, id := range ids {
				fmt.Fprintln(out, "- "+id)
			}
			return nil
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <user-id>",
	Short: "Print a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store ports.SessionStore) error {
			s, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", args[0], err)
			}
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return fmt.Errorf("error marshaling session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:     "rm <user-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store ports.SessionStore) error {
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("error deleting session '%s': %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session '%s' deleted.\n", args[0])
			return nil
		})
	},
}

// withStore opens the configured store for fn. No model key is needed.
func withStore(fn func(ports.SessionStore) error) error {
	if err := cfg.Validate(false); err != nil {
		return err
	}
	b := newBuilder(cfg, logger)
	defer b.Close()

	store, _, err := b.sessionStore()
	if err != nil {
		return err
	}
	return fn(store)
}

func init() {
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
	rootCmd.AddCommand(sessionCmd)
}
