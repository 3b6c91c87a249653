package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/orderdesk"
	"github.com/aretw0/orderdesk/pkg/adapters/mcp"
	"github.com/aretw0/orderdesk/pkg/observability"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the order desk to MCP clients as the chat_turn and end_session tools
plus the order catalog resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		if transport != "stdio" && transport != "sse" {
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		desk, cleanup, err := buildDesk(ctx, cfg, logger, observability.NewMetrics(nil))
		if err != nil {
			return err
		}
		defer cleanup()

		srv := mcp.NewServer(desk, orderdesk.Version, logger)
		if transport == "stdio" {
			logger.Info("Starting order desk MCP server (stdio)")
			return srv.ServeStdio()
		}

		logger.Info("Starting order desk MCP server (SSE)", "port", port)
		if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("MCP server stopped gracefully")
		return nil
	},
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport to use: stdio or sse")
	mcpCmd.Flags().Int("port", 8080, "Port for the SSE transport")
	rootCmd.AddCommand(mcpCmd)
}
