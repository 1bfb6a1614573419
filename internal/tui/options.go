package tui

import "time"

type Option func(*Model)

// WithNotifyDismiss sets how long a notification stays visible. Zero keeps it until replaced.
func WithNotifyDismiss(d time.Duration) Option {
	return func(m *Model) {
		if d >= 0 {
			m.notifyDismiss = d
		}
	}
}

// WithClipboard replaces the clipboard writer used by the copy binding.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithTitle sets the header title.
func WithTitle(title string) Option {
	return func(m *Model) {
		if title != "" {
			m.title = title
		}
	}
}

// WithMarkdownStyle selects the glamour standard style for task descriptions.
func WithMarkdownStyle(style string) Option {
	return func(m *Model) {
		m.markdown = newDescriptionRenderer(style)
	}
}
