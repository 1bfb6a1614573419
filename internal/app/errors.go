package app

import (
	"errors"
	"fmt"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoActiveDrag   = errors.New("no active drag")
	ErrMissingProject = errors.New("project id is required")

	// ErrMoveFailed is the single recoverable outcome of a failed status change.
	ErrMoveFailed = errors.New("move failed")
	// ErrTransportFailure marks network-level failures of the move call.
	ErrTransportFailure = fmt.Errorf("transport failure: %w", ErrMoveFailed)
	// ErrServerRejection marks non-2xx or unreadable move responses.
	ErrServerRejection = fmt.Errorf("server rejection: %w", ErrMoveFailed)
)

// moveFailedMessage is the only failure text shown to the user.
const moveFailedMessage = "Unable to move task. Please try again."
