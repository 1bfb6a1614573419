package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/white6md/taskboard/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	ProjectID       string
	DoneStatus      domain.Status
	Labels          domain.StatusLabels
	NotifyOnSuccess bool
	// EmptyLayout is the board shown when nothing is cached for the project.
	EmptyLayout domain.BoardLayout
}

// Service loads boards from the local cache, builds controllers, and journals resolved moves.
type Service struct {
	store     BoardStore
	persister MovePersister
	idGen     IDGenerator
	clock     Clock
	cfg       ServiceConfig
}

// NewService constructs a new value for this package.
func NewService(store BoardStore, persister MovePersister, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = time.Now
	}
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	if cfg.ProjectID == "" {
		cfg.ProjectID = strings.TrimSpace(cfg.EmptyLayout.ProjectID)
	}
	if cfg.DoneStatus == "" {
		cfg.DoneStatus = domain.StatusDone
	}
	if cfg.Labels == nil {
		cfg.Labels = domain.DefaultStatusLabels()
	}
	return &Service{
		store:     store,
		persister: persister,
		idGen:     idGen,
		clock:     clock,
		cfg:       cfg,
	}
}

// ProjectID returns the configured project.
func (s *Service) ProjectID() string {
	return s.cfg.ProjectID
}

// LoadBoard returns the cached layout for the project, or the configured empty board.
func (s *Service) LoadBoard(ctx context.Context) (domain.BoardLayout, error) {
	if s.cfg.ProjectID == "" {
		return domain.BoardLayout{}, ErrMissingProject
	}
	if s.store != nil {
		layout, err := s.store.LoadLayout(ctx, s.cfg.ProjectID)
		switch {
		case err == nil:
			return layout, nil
		case !errors.Is(err, ErrNotFound):
			return domain.BoardLayout{}, fmt.Errorf("load cached board: %w", err)
		}
	}
	layout := s.cfg.EmptyLayout
	layout.ProjectID = s.cfg.ProjectID
	return layout, nil
}

// NewController builds a controller for layout. Persister, ids, and clock come from the service.
func (s *Service) NewController(layout domain.BoardLayout, deps Dependencies) (*Controller, error) {
	deps.Persister = s.persister
	deps.NewID = s.idGen
	deps.Clock = s.clock
	return NewController(ControllerConfig{
		ProjectID:       s.cfg.ProjectID,
		DoneStatus:      s.cfg.DoneStatus,
		Labels:          s.cfg.Labels,
		NotifyOnSuccess: s.cfg.NotifyOnSuccess,
	}, layout, deps)
}

// RecordResolution journals one resolved attempt. A non-nil settled layout replaces the cached board.
func (s *Service) RecordResolution(ctx context.Context, res Resolution, settled *domain.BoardLayout) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.AppendMoveEvent(ctx, res.Event(s.clock().UTC())); err != nil {
		return fmt.Errorf("append move event: %w", err)
	}
	if settled == nil {
		return nil
	}
	if err := s.store.SaveLayout(ctx, *settled); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}

// SaveBoard replaces the cached board.
func (s *Service) SaveBoard(ctx context.Context, layout domain.BoardLayout) error {
	if s.store == nil {
		return nil
	}
	return s.store.SaveLayout(ctx, layout)
}

// ImportBoard validates a layout for the configured project and caches it.
func (s *Service) ImportBoard(ctx context.Context, layout domain.BoardLayout) error {
	if strings.TrimSpace(layout.ProjectID) == "" {
		layout.ProjectID = s.cfg.ProjectID
	}
	if layout.ProjectID != s.cfg.ProjectID {
		return fmt.Errorf("import project %q does not match configured project %q", layout.ProjectID, s.cfg.ProjectID)
	}
	if _, err := NewRegistry(layout, s.cfg.Labels); err != nil {
		return err
	}
	return s.SaveBoard(ctx, layout)
}

// Stats loads the board and returns its aggregate.
func (s *Service) Stats(ctx context.Context) (domain.BoardSnapshot, error) {
	layout, err := s.LoadBoard(ctx)
	if err != nil {
		return domain.BoardSnapshot{}, err
	}
	ctrl, err := s.NewController(layout, Dependencies{})
	if err != nil {
		return domain.BoardSnapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// MoveTask moves one card headlessly, persists it, journals the outcome, and caches the result.
// It reports whether a status change was attempted.
func (s *Service) MoveTask(ctx context.Context, taskID string, status domain.Status) (Resolution, bool, error) {
	layout, err := s.LoadBoard(ctx)
	if err != nil {
		return Resolution{}, false, err
	}
	ctrl, err := s.NewController(layout, Dependencies{})
	if err != nil {
		return Resolution{}, false, err
	}
	res, changed, err := ctrl.Move(ctx, taskID, status)
	if err != nil || !changed {
		return res, changed, err
	}
	settled := ctrl.Layout()
	if err := s.RecordResolution(ctx, res, &settled); err != nil {
		return res, true, err
	}
	return res, true, nil
}

// ListMoveEvents returns the newest journal entries for the project.
func (s *Service) ListMoveEvents(ctx context.Context, limit int) ([]domain.MoveEvent, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListMoveEvents(ctx, s.cfg.ProjectID, limit)
}
