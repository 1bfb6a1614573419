package app

import (
	"context"

	"github.com/white6md/taskboard/internal/domain"
)

// MovePersister is the persistence boundary for status changes.
type MovePersister interface {
	MoveTask(ctx context.Context, projectID, taskID string, status domain.Status) error
}

// StatsRenderer receives every recomputed board snapshot.
type StatsRenderer interface {
	RenderStats(domain.BoardSnapshot)
}

// Notifier is the transient notification surface.
type Notifier interface {
	Notify(category domain.NotificationCategory, message string)
}

// TaskEditor opens the task-edit modal pre-populated with a card's cached fields.
type TaskEditor interface {
	OpenTaskEditor(domain.EditDataset)
}

// Bounds is the vertical extent of one rendered card.
type Bounds struct {
	Top    float64
	Height float64
}

// Midpoint returns the vertical center of the bounds.
func (b Bounds) Midpoint() float64 {
	return b.Top + b.Height/2
}

// Geometry resolves rendered card bounds. Cards without bounds are not drop references.
type Geometry interface {
	CardBounds(taskID string) (Bounds, bool)
}

// GeometryFunc adapts a function to Geometry.
type GeometryFunc func(taskID string) (Bounds, bool)

// CardBounds implements Geometry.
func (f GeometryFunc) CardBounds(taskID string) (Bounds, bool) {
	return f(taskID)
}

// discard implementations used when optional collaborators are not wired.
type discardRenderer struct{}

func (discardRenderer) RenderStats(domain.BoardSnapshot) {}

type discardNotifier struct{}

func (discardNotifier) Notify(domain.NotificationCategory, string) {}

type discardEditor struct{}

func (discardEditor) OpenTaskEditor(domain.EditDataset) {}

// BoardStore caches settled layouts and the move journal.
type BoardStore interface {
	SaveLayout(ctx context.Context, layout domain.BoardLayout) error
	LoadLayout(ctx context.Context, projectID string) (domain.BoardLayout, error)
	AppendMoveEvent(ctx context.Context, event domain.MoveEvent) error
	ListMoveEvents(ctx context.Context, projectID string, limit int) ([]domain.MoveEvent, error)
}
