// Package mcp exposes the chat engine as Model Context Protocol tools so that
// agents can drive scripted conversations.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogURI names the order catalog resource.
const CatalogURI = "orderdesk://catalog"

// Desk is the conversation core exposed by the server.
type Desk interface {
	HandleTurn(ctx context.Context, userID, message string) (domain.TurnResult, error)
	EndSession(ctx context.Context, userID string) (domain.EndSummary, error)
	Orders() []domain.Order
}

// Server wraps a Desk and exposes it as an MCP Server.
type Server struct {
	desk      Desk
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// EndSessionResponse is the structured result of end_session.
type EndSessionResponse struct {
	UserID         string           `json:"user_id"`
	ElapsedSeconds int              `json:"elapsed_seconds" jsonschema_description:"Time from session start to end, rounded to the second"`
	TaskFlags      domain.TaskFlags `json:"task_flags"`
	Summary        string           `json:"summary"`
}

type chatTurnArgs struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type endSessionArgs struct {
	UserID string `json:"user_id"`
}

// NewServer creates a new MCP Server instance.
func NewServer(desk Desk, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		desk:      desk,
		mcpServer: server.NewMCPServer("orderdesk-mcp", version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func chatTurnTool() mcp.Tool {
	return mcp.NewTool("chat_turn",
		mcp.WithDescription("Send one user message to the order-support assistant. "+
			"The first call for a user starts the session and returns the introduction."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Participant identifier")),
		mcp.WithString("message", mcp.Description("The user's message or the label of a clicked option")),
		mcp.WithOutputSchema[domain.TurnResult](),
	)
}

func endSessionTool() mcp.Tool {
	return mcp.NewTool("end_session",
		mcp.WithDescription("Log the end of a participant's session and report the time taken."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Participant identifier")),
		mcp.WithOutputSchema[EndSessionResponse](),
	)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(chatTurnTool(), mcp.NewStructuredToolHandler(s.handleChatTurn))
	s.mcpServer.AddTool(endSessionTool(), mcp.NewStructuredToolHandler(s.handleEndSession))
}

func (s *Server) handleChatTurn(ctx context.Context, request mcp.CallToolRequest, args chatTurnArgs) (domain.TurnResult, error) {
	if args.UserID == "" {
		return domain.TurnResult{}, errors.New("user_id is required")
	}
	result, err := s.desk.HandleTurn(ctx, args.UserID, args.Message)
	if err != nil {
		s.logger.Warn("MCP chat_turn failed", "user_id", args.UserID, "error", err)
		if errors.Is(err, domain.ErrModelCall) {
			return domain.TurnResult{}, fmt.Errorf("assistant unavailable, resend the same message: %w", err)
		}
		return domain.TurnResult{}, err
	}
	if result.Options == nil {
		result.Options = []string{}
	}
	return result, nil
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest, args endSessionArgs) (EndSessionResponse, error) {
	if args.UserID == "" {
		return EndSessionResponse{}, errors.New("user_id is required")
	}
	summary, err := s.desk.EndSession(ctx, args.UserID)
	if err != nil {
		return EndSessionResponse{}, err
	}
	return EndSessionResponse{
		UserID:         summary.UserID,
		ElapsedSeconds: int(summary.Elapsed.Round(time.Second) / time.Second),
		TaskFlags:      summary.TaskFlags,
		Summary:        summary.Message(),
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Order Catalog",
		mcp.WithResourceDescription("The orders the assistant knows about"),
		mcp.WithMIMEType("application/json"),
	), s.readCatalog)
}

func (s *Server) readCatalog(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.desk.Orders())
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
