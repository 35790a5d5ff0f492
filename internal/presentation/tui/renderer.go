package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns an answer into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer renders Markdown with glamour, picking a light or dark style
// from the terminal background. Without a usable style it returns the text
// unchanged.
func NewRenderer() Renderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns the answer as-is with a trailing newline.
func Plain(markdown string) (string, error) {
	if strings.HasSuffix(markdown, "\n") {
		return markdown, nil
	}
	return markdown + "\n", nil
}
