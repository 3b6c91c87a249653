package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/orderdesk/internal/config"
	"github.com/aretw0/orderdesk/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()

	// Set by loadConfig before any command runs.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "orderdesk",
	Short: "Orderdesk is a scripted customer-support assistant for an online shop",
	Long: `Orderdesk walks a customer through identifying themselves, picking one of
their orders and handling it (track, modify, return) with help from an LLM.

Settings come from orderdesk.yaml, ORDERDESK_* environment variables and flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is ./orderdesk.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func loadConfig() error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}

	// Stdout belongs to the chat REPL and the MCP stdio transport.
	logger = logging.NewWithWriter(os.Stderr, level, c.Log.Format)
	slog.SetDefault(logger)
	cfg = c
	return nil
}
