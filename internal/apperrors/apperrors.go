// Package apperrors defines the error kinds surfaced by reviewbot operations.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap them with fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrPersistence     = errors.New("persistence failure")
)

// Kind is a coarse classification of an error for boundary rendering.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindNotAuthorized   Kind = "not_authorized"
	KindInvalidArgument Kind = "invalid_argument"
	KindPersistence     Kind = "persistence"
	KindInternal        Kind = "internal"
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotAuthorized):
		return KindNotAuthorized
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	}
	return KindInternal
}

// NotFound returns an ErrNotFound naming the missing resource.
func NotFound(resource, id string) error {
	return fmt.Errorf("%s %s: %w", resource, id, ErrNotFound)
}

// InvalidArgument returns an ErrInvalidArgument with a formatted reason.
func InvalidArgument(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrInvalidArgument)
}

// Persistence marks err as a store failure unless it already carries a
// domain kind.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
