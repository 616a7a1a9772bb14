package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuantity is returned when an operation requiring quantity >= 1 gets less.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrBusy is returned when a cart mutation is already in flight for the session.
	ErrBusy = errors.New("cart update already in progress")
	// ErrService is the kind matched by every ServiceError.
	ErrService = errors.New("remote service error")
	// ErrUnauthorized indicates a missing or unknown session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the session role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyExists indicates a unique key collision.
	ErrAlreadyExists = errors.New("already exists")
)

// ServiceError reports a failed call to an external service: network failure,
// non-2xx status, malformed body or an explicit success=false reply.
type ServiceError struct {
	Service string
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Service, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is makes every ServiceError match ErrService.
func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}
