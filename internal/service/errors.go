package service

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is(err, service.ErrNotFound) and friends.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrLimitExceeded     = errors.New("trade limit exceeded")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrConflict          = errors.New("conflict")
)

// Error carries a kind plus a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error   { return newError(ErrNotFound, format, args...) }
func invalid(format string, args ...any) error    { return newError(ErrValidation, format, args...) }
func conflict(format string, args ...any) error   { return newError(ErrConflict, format, args...) }
func transition(format string, args ...any) error { return newError(ErrInvalidTransition, format, args...) }

func limitExceeded(teamID uint64, status LimitStatus) error {
	return newError(ErrLimitExceeded,
		"team %d has used %d of %d trades for seasons %d-%d",
		teamID, status.Used, status.Limit, status.WindowStart, status.WindowEnd)
}
