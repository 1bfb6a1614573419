package domain

import "strings"

// Status is the lane key a card is filed under.
type Status string

// Built-in board statuses.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// DefaultStatuses returns the canonical lane order.
func DefaultStatuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// defaultStatusLabels stores the tag text shown on cards for built-in statuses.
var defaultStatusLabels = map[Status]string{
	StatusTodo:       "To do",
	StatusInProgress: "In progress",
	StatusDone:       "Completed",
}

// ParseStatus normalizes raw status input.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if status == "" || strings.ContainsAny(string(status), " /\t\n") {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// StatusLabels maps statuses to card tag text. Unknown statuses render as their key.
type StatusLabels map[Status]string

// DefaultStatusLabels returns a copy of the built-in label table.
func DefaultStatusLabels() StatusLabels {
	out := make(StatusLabels, len(defaultStatusLabels))
	for status, label := range defaultStatusLabels {
		out[status] = label
	}
	return out
}

// Label returns the display label for one status.
func (l StatusLabels) Label(status Status) string {
	if label := strings.TrimSpace(l[status]); label != "" {
		return label
	}
	if label, ok := defaultStatusLabels[status]; ok {
		return label
	}
	return string(status)
}
