package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/white6md/taskboard/internal/domain"
)

// CardState is the sync state of one card.
type CardState string

// CardState values.
const (
	CardSettled CardState = "settled"
	CardPending CardState = "pending"
)

// MoveAttempt is one optimistic status change awaiting persistence.
type MoveAttempt struct {
	ID          string
	Seq         uint64
	ProjectID   string
	TaskID      string
	From        domain.Status
	To          domain.Status
	OriginIndex int
	StartedAt   time.Time
}

// MoveResult carries the persistence outcome of one attempt back to the control loop.
type MoveResult struct {
	Attempt MoveAttempt
	Err     error
}

// Resolution describes what Resolve did to the board.
type Resolution struct {
	Attempt MoveAttempt
	Outcome domain.MoveOutcome
	Err     error
	// Status and Index are the card's placement after resolution.
	Status domain.Status
	Index  int
}

// Event converts a resolution into a move journal entry.
func (r Resolution) Event(occurredAt time.Time) domain.MoveEvent {
	detail := ""
	if r.Err != nil {
		detail = r.Err.Error()
	}
	return domain.MoveEvent{
		ProjectID:  r.Attempt.ProjectID,
		TaskID:     r.Attempt.TaskID,
		AttemptID:  r.Attempt.ID,
		FromStatus: r.Attempt.From,
		ToStatus:   r.Attempt.To,
		Outcome:    r.Outcome,
		Detail:     detail,
		OccurredAt: occurredAt.UTC(),
	}
}

// attemptRecord tracks outstanding attempts for one card.
type attemptRecord struct {
	latest  uint64
	settled uint64
	pending map[uint64]struct{}
}

// pendingAfter reports whether an attempt newer than seq is outstanding.
func (r *attemptRecord) pendingAfter(seq uint64) bool {
	for other := range r.pending {
		if other > seq {
			return true
		}
	}
	return false
}

// SyncProtocol runs the optimistic status-change state machine for every card on one board.
type SyncProtocol struct {
	registry  *Registry
	persister MovePersister
	labels    domain.StatusLabels
	projectID string
	newID     IDGenerator
	now       Clock

	seq     uint64
	records map[string]*attemptRecord
}

// NewSyncProtocol constructs a sync protocol over one registry.
func NewSyncProtocol(registry *Registry, persister MovePersister, projectID string, labels domain.StatusLabels, newID IDGenerator, now Clock) *SyncProtocol {
	if now == nil {
		now = time.Now
	}
	return &SyncProtocol{
		registry:  registry,
		persister: persister,
		labels:    labels,
		projectID: projectID,
		newID:     newID,
		now:       now,
		records:   map[string]*attemptRecord{},
	}
}

// IsPending reports whether a card has an unresolved attempt.
func (s *SyncProtocol) IsPending(taskID string) bool {
	rec, ok := s.records[taskID]
	return ok && len(rec.pending) > 0
}

// PendingCount returns the number of cards with unresolved attempts.
func (s *SyncProtocol) PendingCount() int {
	count := 0
	for _, rec := range s.records {
		if len(rec.pending) > 0 {
			count++
		}
	}
	return count
}

// State returns the sync state for one card.
func (s *SyncProtocol) State(taskID string) CardState {
	if s.IsPending(taskID) {
		return CardPending
	}
	return CardSettled
}

// Begin commits a status change optimistically and returns the attempt to persist.
func (s *SyncProtocol) Begin(taskID string, to domain.Status) (MoveAttempt, error) {
	card, _, _, ok := s.registry.Locate(taskID)
	if !ok {
		return MoveAttempt{}, ErrNotFound
	}
	if _, ok := s.registry.Column(to); !ok {
		return MoveAttempt{}, fmt.Errorf("%w: %s", domain.ErrUnknownColumn, to)
	}
	s.seq++
	attempt := MoveAttempt{
		ID:          s.nextID(),
		Seq:         s.seq,
		ProjectID:   s.projectID,
		TaskID:      card.TaskID,
		From:        card.Status,
		To:          to,
		OriginIndex: card.OriginIndex,
		StartedAt:   s.now().UTC(),
	}
	card.Status = to

	rec, ok := s.records[card.TaskID]
	if !ok {
		rec = &attemptRecord{pending: map[uint64]struct{}{}}
		s.records[card.TaskID] = rec
	}
	rec.latest = attempt.Seq
	rec.pending[attempt.Seq] = struct{}{}
	return attempt, nil
}

// Persist issues the single persistence call for an attempt. It touches no board state.
func (s *SyncProtocol) Persist(ctx context.Context, attempt MoveAttempt) MoveResult {
	if s.persister == nil {
		return MoveResult{Attempt: attempt, Err: ErrTransportFailure}
	}
	err := s.persister.MoveTask(ctx, attempt.ProjectID, attempt.TaskID, attempt.To)
	if err != nil && !errors.Is(err, ErrMoveFailed) {
		err = fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	return MoveResult{Attempt: attempt, Err: err}
}

// Resolve applies a persistence outcome. Only the latest attempt for a card may roll placement back.
func (s *SyncProtocol) Resolve(result MoveResult) (Resolution, error) {
	attempt := result.Attempt
	res := Resolution{Attempt: attempt, Err: result.Err}
	card, col, idx, ok := s.registry.Locate(attempt.TaskID)
	if !ok {
		return res, ErrNotFound
	}
	rec, ok := s.records[attempt.TaskID]
	if !ok {
		rec = &attemptRecord{latest: attempt.Seq, pending: map[uint64]struct{}{}}
	}
	delete(rec.pending, attempt.Seq)
	defer func() {
		if len(rec.pending) == 0 {
			delete(s.records, attempt.TaskID)
		}
	}()

	switch {
	case result.Err == nil && attempt.Seq <= rec.settled:
		res.Outcome = domain.MoveOutcomeSuperseded
	case result.Err == nil && attempt.Seq == rec.latest:
		rec.settled = attempt.Seq
		if col.Status != attempt.To {
			idx = -1
		}
		card.Settle(attempt.To, idx, s.labels)
		res.Outcome = domain.MoveOutcomeSettled
	case result.Err == nil:
		rec.settled = attempt.Seq
		if rec.pendingAfter(attempt.Seq) {
			card.RecordOrigin(attempt.To, -1)
			res.Outcome = domain.MoveOutcomeSuperseded
			break
		}
		if card.Status != attempt.To {
			var err error
			idx, err = s.registry.Place(card, attempt.To, -1)
			if err != nil {
				return res, err
			}
		}
		card.Settle(attempt.To, idx, s.labels)
		res.Outcome = domain.MoveOutcomeReconciled
	case attempt.Seq == rec.latest:
		card.Status = card.OriginStatus
		placed, err := s.registry.Place(card, card.OriginStatus, card.OriginIndex)
		if err != nil {
			return res, err
		}
		card.OriginIndex = placed
		res.Outcome = domain.MoveOutcomeRolledBack
	default:
		res.Outcome = domain.MoveOutcomeSuperseded
	}

	if _, col, idx, ok := s.registry.Locate(attempt.TaskID); ok {
		res.Status = col.Status
		res.Index = idx
	}
	return res, nil
}

func (s *SyncProtocol) nextID() string {
	if s.newID != nil {
		if id := strings.TrimSpace(s.newID()); id != "" {
			return id
		}
	}
	return fmt.Sprintf("attempt-%d", s.seq)
}
