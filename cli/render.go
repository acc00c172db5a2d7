package cli

import (
	"github.com/charmbracelet/glamour"
)

// markdownWidth is the wrap width for rendered replies.
const markdownWidth = 80

// newMarkdownRenderer returns a function rendering model replies as terminal
// markdown. It falls back to the raw text when rendering fails.
func newMarkdownRenderer() func(string) string {
	// Standard style avoids terminal queries leaking into stdin.
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return func(s string) string { return s }
	}

	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return out
	}
}
