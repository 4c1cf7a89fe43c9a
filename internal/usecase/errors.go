package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrBlocked      = errors.New("user is not accepting requests from this user")
	ErrSelfRating   = errors.New("cannot rate yourself")
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError reports malformed caller input. It matches ErrInvalidInput
// under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
