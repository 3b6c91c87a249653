package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/orderdesk"
	"github.com/aretw0/orderdesk/pkg/adapters/file"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.Equal(t, "orderdesk version "+orderdesk.Version+"\n", out)
}

func TestGraphCommand(t *testing.T) {
	out := execute(t, "graph")
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "order_menu")
	assert.NotContains(t, out, "classDef")
}

func TestSessionCommands(t *testing.T) {
	dir := t.TempDir()
	sessions := filepath.Join(dir, "sessions")
	cfgPath := filepath.Join(dir, "orderdesk.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("store:\n  backend: file\n  dir: %s\n", sessions)), 0o644))

	// 1. Seed a session the way the server would
	s := domain.NewSession("lily", "experiment", time.Now())
	require.NoError(t, file.New(sessions).Save(context.Background(), "lily", s))

	// 2. List
	out := execute(t, "--config", cfgPath, "--log-level", "error", "session", "ls")
	assert.Contains(t, out, "- lily")

	// 3. Inspect
	out = execute(t, "--config", cfgPath, "session", "inspect", "lily")
	assert.Contains(t, out, `"user_id": "lily"`)

	// 4. Highlight the session's phase
	t.Cleanup(func() { _ = graphCmd.Flags().Set("user", "") })
	out = execute(t, "--config", cfgPath, "graph", "--user", "lily")
	assert.Contains(t, out, "class awaiting_intro_ack current;")

	// 5. Remove
	out = execute(t, "--config", cfgPath, "session", "rm", "lily")
	assert.Contains(t, out, "Session 'lily' deleted.")
	out = execute(t, "--config", cfgPath, "session", "ls")
	assert.Contains(t, out, "No sessions found.")
}
