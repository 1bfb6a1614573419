package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrDuplicateStatus = errors.New("duplicate column status")
	ErrDuplicateCard   = errors.New("duplicate card")
	ErrUnknownColumn   = errors.New("unknown column")
)
