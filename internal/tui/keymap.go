package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig overrides selected key bindings. Empty fields keep the defaults.
type KeyConfig struct {
	MoveTaskLeft  string
	MoveTaskRight string
	ReorderUp     string
	ReorderDown   string
	EditTask      string
	CopyTask      string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	closeOverlay  key.Binding
	moveLeft      key.Binding
	moveRight     key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	moveTaskLeft  key.Binding
	moveTaskRight key.Binding
	moveTaskUp    key.Binding
	moveTaskDown  key.Binding
	editTask      key.Binding
	copyTask      key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		closeOverlay:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		moveLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		moveTaskLeft:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move task left")),
		moveTaskRight: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move task right")),
		moveTaskUp:    key.NewBinding(key.WithKeys("K", "shift+k"), key.WithHelp("K", "reorder up")),
		moveTaskDown:  key.NewBinding(key.WithKeys("J", "shift+j"), key.WithHelp("J", "reorder down")),
		editTask:      key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e/enter", "edit task")),
		copyTask:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy task id")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.moveTaskLeft, k.moveTaskRight, k.editTask, k.copyTask, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.editTask, k.copyTask, k.toggleHelp, k.reload, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.moveTaskLeft, k.moveTaskRight, k.moveTaskUp, k.moveTaskDown},
	}
}

// applyConfig applies configured key overrides.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	overrides := []struct {
		binding  *key.Binding
		raw      string
		fallback string
		desc     string
	}{
		{&k.moveTaskLeft, cfg.MoveTaskLeft, "[", "move task left"},
		{&k.moveTaskRight, cfg.MoveTaskRight, "]", "move task right"},
		{&k.moveTaskUp, cfg.ReorderUp, "K", "reorder up"},
		{&k.moveTaskDown, cfg.ReorderDown, "J", "reorder down"},
		{&k.editTask, cfg.EditTask, "e", "edit task"},
		{&k.copyTask, cfg.CopyTask, "y", "copy task id"},
	}
	for _, o := range overrides {
		if o.raw == "" || strings.TrimSpace(o.raw) == o.fallback {
			continue
		}
		configureBinding(o.binding, o.raw, o.fallback, o.desc)
	}
}

// configureBinding replaces the keys and help of one binding.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys returns key matchers and help text for one configured key.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := raw
	if strings.TrimSpace(value) == "" && value != " " {
		value = fallback
	}
	if value == " " || strings.EqualFold(strings.TrimSpace(value), "space") {
		return []string{" ", "space"}, "space"
	}
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + strings.ToLower(value)}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}
