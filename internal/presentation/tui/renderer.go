// Package tui holds the terminal presentation helpers: markdown rendering
// for answers and the startup banner.
package tui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders an answer for a terminal using glamour, detecting
// light or dark backgrounds. On renderer failure the raw markdown comes back
// so an answer never gets lost to styling.
func RenderMarkdown(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
