package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/white6md/taskboard/internal/domain"
)

// IDGenerator returns unique identifiers for new move attempts.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ControllerConfig holds configuration for one board controller.
type ControllerConfig struct {
	ProjectID       string
	DoneStatus      domain.Status
	Labels          domain.StatusLabels
	NotifyOnSuccess bool
	SuccessMessage  string
}

// Dependencies holds the collaborators a controller talks to.
type Dependencies struct {
	Persister MovePersister
	Stats     StatsRenderer
	Notifier  Notifier
	Editor    TaskEditor
	NewID     IDGenerator
	Clock     Clock
}

// Controller wires the registry, drag engine, sync protocol, and aggregator for one board.
type Controller struct {
	cfg      ControllerConfig
	registry *Registry
	drag     *DragEngine
	sync     *SyncProtocol
	stats    StatsRenderer
	notifier Notifier
	editor   TaskEditor
	snapshot domain.BoardSnapshot
}

// NewController builds a board from layout and runs the initial aggregator pass.
func NewController(cfg ControllerConfig, layout domain.BoardLayout, deps Dependencies) (*Controller, error) {
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	if cfg.ProjectID == "" {
		cfg.ProjectID = strings.TrimSpace(layout.ProjectID)
	}
	if cfg.ProjectID == "" {
		return nil, ErrMissingProject
	}
	if layout.ProjectID == "" {
		layout.ProjectID = cfg.ProjectID
	}
	if cfg.DoneStatus == "" {
		cfg.DoneStatus = domain.StatusDone
	}
	if cfg.Labels == nil {
		cfg.Labels = domain.DefaultStatusLabels()
	}
	if strings.TrimSpace(cfg.SuccessMessage) == "" {
		cfg.SuccessMessage = "Task moved."
	}
	registry, err := NewRegistry(layout, cfg.Labels)
	if err != nil {
		return nil, err
	}
	if deps.Stats == nil {
		deps.Stats = discardRenderer{}
	}
	if deps.Notifier == nil {
		deps.Notifier = discardNotifier{}
	}
	if deps.Editor == nil {
		deps.Editor = discardEditor{}
	}

	c := &Controller{
		cfg:      cfg,
		registry: registry,
		stats:    deps.Stats,
		notifier: deps.Notifier,
		editor:   deps.Editor,
	}
	c.sync = NewSyncProtocol(registry, deps.Persister, cfg.ProjectID, cfg.Labels, deps.NewID, deps.Clock)
	c.drag = NewDragEngine(registry, c.sync.IsPending)
	c.aggregate()
	return c, nil
}

// ProjectID returns the project the board belongs to.
func (c *Controller) ProjectID() string {
	return c.cfg.ProjectID
}

// Columns returns lanes in display order.
func (c *Controller) Columns() []*domain.Column {
	return c.registry.Columns()
}

// Locate returns a card, the lane containing it, and its index there.
func (c *Controller) Locate(taskID string) (*domain.Card, *domain.Column, int, bool) {
	return c.registry.Locate(taskID)
}

// Snapshot returns the most recent aggregate.
func (c *Controller) Snapshot() domain.BoardSnapshot {
	return c.snapshot
}

// Layout returns the current placement as a serializable layout.
func (c *Controller) Layout() domain.BoardLayout {
	return domain.LayoutFromColumns(c.cfg.ProjectID, c.registry.Columns())
}

// CardState returns the sync state of one card.
func (c *Controller) CardState(taskID string) CardState {
	return c.sync.State(taskID)
}

// Dragging returns the card being dragged, if any.
func (c *Controller) Dragging() (*domain.Card, bool) {
	return c.drag.Dragging()
}

// DropReady reports whether a lane is marked as a drop target.
func (c *Controller) DropReady(status domain.Status) bool {
	return c.drag.DropReady(status)
}

// DragStart begins dragging one card. A drag of another card that never
// ended is cancelled first, as if it had been released outside any lane.
func (c *Controller) DragStart(taskID string) error {
	if prev, ok := c.drag.Dragging(); ok && prev.TaskID != taskID {
		if _, _, _, found := c.registry.Locate(taskID); !found {
			return ErrNotFound
		}
		c.DragEnd()
	}
	return c.drag.Start(taskID)
}

// DragOver reorders the dragging card within the lane under the pointer.
func (c *Controller) DragOver(status domain.Status, pointerY float64, geo Geometry) (int, error) {
	return c.drag.Over(status, pointerY, geo)
}

// DragLeave clears one lane's drop-ready marker.
func (c *Controller) DragLeave(status domain.Status) {
	c.drag.Leave(status)
}

// DragEnd finishes a drag. A drag that ended outside a drop returns the card to its lane.
// It reports whether placement changed.
func (c *Controller) DragEnd() bool {
	card, abandoned := c.drag.End()
	if !abandoned {
		return false
	}
	_, col, _, ok := c.registry.Locate(card.TaskID)
	if !ok || col.Status == card.Status {
		return false
	}
	index := -1
	if card.Status == card.OriginStatus {
		index = card.OriginIndex
	}
	if _, err := c.registry.Place(card, card.Status, index); err != nil {
		return false
	}
	c.aggregate()
	return true
}

// Drop delivers the dragging card to a lane. It reports whether a status change must be persisted.
func (c *Controller) Drop(status domain.Status) (MoveAttempt, bool, error) {
	card, ok := c.drag.Dragging()
	if !ok {
		return MoveAttempt{}, false, ErrNoActiveDrag
	}
	col, ok := c.registry.Column(status)
	if !ok {
		return MoveAttempt{}, false, fmt.Errorf("%w: %s", domain.ErrUnknownColumn, status)
	}
	c.drag.markDropped(status)
	index := col.IndexOf(card.TaskID)
	if index < 0 {
		placed, err := c.registry.Place(card, status, -1)
		if err != nil {
			return MoveAttempt{}, false, err
		}
		index = placed
	}
	if card.Status == status {
		if !c.sync.IsPending(card.TaskID) {
			card.RecordOrigin(status, index)
		}
		c.aggregate()
		return MoveAttempt{}, false, nil
	}
	attempt, err := c.sync.Begin(card.TaskID, status)
	if err != nil {
		return MoveAttempt{}, false, err
	}
	c.aggregate()
	return attempt, true, nil
}

// Persist issues the persistence call for an attempt. It is safe to run off the control loop.
func (c *Controller) Persist(ctx context.Context, attempt MoveAttempt) MoveResult {
	return c.sync.Persist(ctx, attempt)
}

// Resolve applies a persistence outcome, re-aggregates, and notifies the user.
func (c *Controller) Resolve(result MoveResult) (Resolution, error) {
	res, err := c.sync.Resolve(result)
	if err != nil {
		return res, err
	}
	c.aggregate()
	switch res.Outcome {
	case domain.MoveOutcomeRolledBack:
		c.notifier.Notify(domain.NotificationFailure, moveFailedMessage)
	case domain.MoveOutcomeSettled, domain.MoveOutcomeReconciled:
		if c.cfg.NotifyOnSuccess {
			c.notifier.Notify(domain.NotificationSuccess, c.cfg.SuccessMessage)
		}
	}
	return res, nil
}

// DropOn drags one card to the end of another lane and drops it there in a single step.
func (c *Controller) DropOn(taskID string, status domain.Status) (MoveAttempt, bool, error) {
	if err := c.DragStart(taskID); err != nil {
		return MoveAttempt{}, false, err
	}
	attempt, changed, err := c.Drop(status)
	c.DragEnd()
	return attempt, changed, err
}

// Move drops one card on another lane and persists the change synchronously.
func (c *Controller) Move(ctx context.Context, taskID string, status domain.Status) (Resolution, bool, error) {
	attempt, changed, err := c.DropOn(taskID, status)
	if err != nil || !changed {
		return Resolution{}, false, err
	}
	res, err := c.Resolve(c.Persist(ctx, attempt))
	return res, true, err
}

// HasPending reports whether any card still awaits a persistence outcome.
func (c *Controller) HasPending() bool {
	return c.sync.PendingCount() > 0
}

// OpenEditor hands one card's cached edit dataset to the task editor.
func (c *Controller) OpenEditor(taskID string) error {
	card, _, _, ok := c.registry.Locate(taskID)
	if !ok {
		return ErrNotFound
	}
	c.editor.OpenTaskEditor(card.Edit)
	return nil
}

// aggregate recomputes statistics and writes badges and the stats display.
func (c *Controller) aggregate() {
	c.snapshot = domain.Aggregate(c.registry.Columns(), c.cfg.DoneStatus, c.cfg.Labels)
	for _, col := range c.registry.Columns() {
		col.Count = c.snapshot.CountFor(col.Status)
	}
	c.stats.RenderStats(c.snapshot)
}
