package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`    _                    _   `, "#38bdf8"},
	{`   / \   __ _  ___ _ __ | |_ `, "#22d3ee"},
	{`  / _ \ / _' |/ _ \ '_ \| __|`, "#2dd4bf"},
	{` / ___ \ (_| |  __/ | | | |_ `, "#34d399"},
	{`/_/   \_\__, |\___|_| |_|\__|`, "#4ade80"},
	{`        |___/                `, "#a3e635"},
}

// PrintBanner writes the agent-service banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w, termenv.String("  agent-service "+version).Faint())
	fmt.Fprintln(w)
}
