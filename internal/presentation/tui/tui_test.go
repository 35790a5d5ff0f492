package tui_test

import (
	"bytes"
	"testing"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlain(t *testing.T) {
	out, err := tui.Plain("**Score: 2/3**")
	require.NoError(t, err)
	assert.Equal(t, "**Score: 2/3**\n", out)

	out, err = tui.Plain("done\n")
	require.NoError(t, err)
	assert.Equal(t, "done\n", out)
}

func TestNewRenderer(t *testing.T) {
	render := tui.NewRenderer()
	out, err := render("## Quiz\n\n1. Explain doc-a.")
	require.NoError(t, err)
	assert.Contains(t, out, "Quiz")
	assert.Contains(t, out, "Explain doc-a.")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "agent-service v1.2.3")
}
