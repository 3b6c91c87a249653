package mcp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/orderdesk/internal/logging"
	"github.com/aretw0/orderdesk/pkg/catalog"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDesk struct {
	turnErr error
	endErr  error
	calls   []string
}

func (d *stubDesk) HandleTurn(ctx context.Context, userID, message string) (domain.TurnResult, error) {
	d.calls = append(d.calls, userID+":"+message)
	if d.turnErr != nil {
		return domain.TurnResult{}, d.turnErr
	}
	return domain.TurnResult{Reply: "Understood?", Phase: domain.PhaseAwaitingIntroAck}, nil
}

func (d *stubDesk) EndSession(ctx context.Context, userID string) (domain.EndSummary, error) {
	if d.endErr != nil {
		return domain.EndSummary{}, d.endErr
	}
	return domain.EndSummary{UserID: userID, Elapsed: 125*time.Second + 400*time.Millisecond}, nil
}

func (d *stubDesk) Orders() []domain.Order {
	return catalog.Default().Orders()
}

func newTestServer(desk *stubDesk) *Server {
	return NewServer(desk, "test", logging.NewNop())
}

func TestTools_Schema(t *testing.T) {
	chat := chatTurnTool()
	assert.Equal(t, "chat_turn", chat.Name)
	assert.Equal(t, []string{"user_id"}, chat.InputSchema.Required)
	assert.Contains(t, chat.InputSchema.Properties, "message")

	end := endSessionTool()
	assert.Equal(t, "end_session", end.Name)
	assert.Equal(t, []string{"user_id"}, end.InputSchema.Required)
}

func TestHandleChatTurn(t *testing.T) {
	desk := &stubDesk{}
	s := newTestServer(desk)

	result, err := s.handleChatTurn(context.Background(), mcp.CallToolRequest{}, chatTurnArgs{UserID: "lily", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Understood?", result.Reply)
	assert.NotNil(t, result.Options)
	assert.Equal(t, []string{"lily:hi"}, desk.calls)

	_, err = s.handleChatTurn(context.Background(), mcp.CallToolRequest{}, chatTurnArgs{Message: "hi"})
	assert.Error(t, err)
}

func TestHandleChatTurn_ModelFailure(t *testing.T) {
	s := newTestServer(&stubDesk{turnErr: fmt.Errorf("%w: timeout", domain.ErrModelCall)})

	_, err := s.handleChatTurn(context.Background(), mcp.CallToolRequest{}, chatTurnArgs{UserID: "lily", Message: "Track"})
	assert.ErrorIs(t, err, domain.ErrModelCall)
	assert.Contains(t, err.Error(), "resend the same message")
}

func TestHandleEndSession(t *testing.T) {
	s := newTestServer(&stubDesk{})

	resp, err := s.handleEndSession(context.Background(), mcp.CallToolRequest{}, endSessionArgs{UserID: "lily"})
	require.NoError(t, err)
	assert.Equal(t, "lily", resp.UserID)
	assert.Equal(t, 125, resp.ElapsedSeconds)
	assert.Contains(t, resp.Summary, "Total time to complete tasks: 2 minutes and 5 seconds")

	s = newTestServer(&stubDesk{endErr: domain.ErrSessionNotFound})
	_, err = s.handleEndSession(context.Background(), mcp.CallToolRequest{}, endSessionArgs{UserID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestReadCatalog(t *testing.T) {
	s := newTestServer(&stubDesk{})

	contents, err := s.readCatalog(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, CatalogURI, text.URI)
	assert.Contains(t, text.Text, `"product":"Product X"`)
}
