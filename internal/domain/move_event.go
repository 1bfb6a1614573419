package domain

import "time"

// MoveOutcome describes how one persisted status change resolved.
type MoveOutcome string

// MoveOutcome values recorded in the local move journal.
const (
	MoveOutcomeSettled    MoveOutcome = "settled"
	MoveOutcomeRolledBack MoveOutcome = "rolled_back"
	MoveOutcomeSuperseded MoveOutcome = "superseded"
	MoveOutcomeReconciled MoveOutcome = "reconciled"
)

// MoveEvent represents one journal entry for a resolved move attempt.
type MoveEvent struct {
	ID         int64
	ProjectID  string
	TaskID     string
	AttemptID  string
	FromStatus Status
	ToStatus   Status
	Outcome    MoveOutcome
	Detail     string
	OccurredAt time.Time
}

// NotificationCategory selects how the notification surface presents a message.
type NotificationCategory string

// NotificationCategory values.
const (
	NotificationSuccess NotificationCategory = "success"
	NotificationFailure NotificationCategory = "danger"
)
