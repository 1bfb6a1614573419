package app

import (
	"math"

	"github.com/white6md/taskboard/internal/domain"
)

// DragEngine tracks the card being dragged and reorders it live during drag-over.
type DragEngine struct {
	registry  *Registry
	pending   func(taskID string) bool
	dragging  *domain.Card
	dropped   bool
	dropReady map[domain.Status]bool
}

// NewDragEngine constructs a drag engine over one registry.
// pending reports whether a card has an unresolved move; its origin is kept while true.
func NewDragEngine(registry *Registry, pending func(taskID string) bool) *DragEngine {
	if pending == nil {
		pending = func(string) bool { return false }
	}
	return &DragEngine{
		registry:  registry,
		pending:   pending,
		dropReady: map[domain.Status]bool{},
	}
}

// Start marks one card as dragging and records its origin placement.
// Restarting the card already being dragged keeps the origin it was picked up from.
func (d *DragEngine) Start(taskID string) error {
	card, col, idx, ok := d.registry.Locate(taskID)
	if !ok {
		return ErrNotFound
	}
	if d.dragging != card && !d.pending(taskID) {
		origin := card.Status
		if origin == "" {
			origin = col.Status
		}
		card.RecordOrigin(origin, idx)
	}
	d.dragging = card
	d.dropped = false
	return nil
}

// Dragging returns the card currently being dragged.
func (d *DragEngine) Dragging() (*domain.Card, bool) {
	return d.dragging, d.dragging != nil
}

// DropReady reports whether a lane is currently marked as a drop target.
func (d *DragEngine) DropReady(status domain.Status) bool {
	return d.dropReady[status]
}

// Over marks a lane drop-ready and moves the dragging card to the insertion point under pointerY.
// It returns the card's new index, or -1 when nothing is being dragged.
func (d *DragEngine) Over(status domain.Status, pointerY float64, geo Geometry) (int, error) {
	col, ok := d.registry.Column(status)
	if !ok {
		return -1, domain.ErrUnknownColumn
	}
	d.dropReady[status] = true
	if d.dragging == nil {
		return -1, nil
	}
	index := InsertionIndex(col.Cards(), d.dragging.TaskID, pointerY, geo)
	return d.registry.Place(d.dragging, status, index)
}

// Leave clears one lane's drop-ready marker.
func (d *DragEngine) Leave(status domain.Status) {
	delete(d.dropReady, status)
}

// markDropped clears the lane marker for a drop and flags the active drag as delivered.
func (d *DragEngine) markDropped(status domain.Status) {
	delete(d.dropReady, status)
	if d.dragging != nil {
		d.dropped = true
	}
}

// End clears the dragging marker. It returns the card when the drag ended without a drop.
func (d *DragEngine) End() (*domain.Card, bool) {
	card := d.dragging
	abandoned := card != nil && !d.dropped
	d.dragging = nil
	d.dropped = false
	for status := range d.dropReady {
		delete(d.dropReady, status)
	}
	return card, abandoned
}

// InsertionIndex returns the index, after removing skipID, before which a dragged card lands.
// The reference card is the first whose midpoint lies below pointerY; none means append (-1).
func InsertionIndex(cards []*domain.Card, skipID string, pointerY float64, geo Geometry) int {
	closest := math.Inf(-1)
	index := -1
	pos := 0
	for _, card := range cards {
		if card.TaskID == skipID {
			continue
		}
		if geo != nil {
			if bounds, ok := geo.CardBounds(card.TaskID); ok {
				offset := pointerY - bounds.Midpoint()
				if offset < 0 && offset > closest {
					closest = offset
					index = pos
				}
			}
		}
		pos++
	}
	return index
}
