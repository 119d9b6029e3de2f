package selector

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown info or selector, or a row lacking key columns.
	ErrNotFound = errors.New("not found")
	// ErrInvalidContext reports a context whose single infos are not a subset of its infos.
	ErrInvalidContext = errors.New("invalid context")
)

// NotFoundError names the missing thing.
type NotFoundError struct {
	Kind string // "info", "selector", "key column"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
