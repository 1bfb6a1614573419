package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minDescriptionWidth is the narrowest wrap width handed to glamour.
const minDescriptionWidth = 24

// descriptionRenderer renders task descriptions for the edit overlay.
// Output is cached per task and width because View runs on every update.
type descriptionRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newDescriptionRenderer(style string) *descriptionRenderer {
	if strings.TrimSpace(style) == "" {
		style = "dark"
	}
	return &descriptionRenderer{style: style}
}

// render converts one task description to styled terminal text.
// It falls back to the raw text when glamour fails.
func (r *descriptionRenderer) render(taskID, markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	width = max(width, minDescriptionWidth)

	if r.renderer == nil || r.width != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = width
		r.cache = map[string]string{}
	}

	key := taskID + "\x00" + markdown
	if out, ok := r.cache[key]; ok {
		return out
	}
	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	out := strings.TrimRight(rendered, "\n")
	r.cache[key] = out
	return out
}
