package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)

	// A buffer is not a terminal, so no escape codes are written
	out := buf.String()
	assert.NotContains(t, out, "\x1b[")
	assert.Equal(t, len(bannerLines)+2, strings.Count(out, "\n"))
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer(80)

	out, err := render("Order **A** is in transit.")
	require.NoError(t, err)
	assert.Contains(t, out, "Order")
	assert.Contains(t, out, "in transit")
	assert.False(t, strings.HasSuffix(out, "\n"))
}
