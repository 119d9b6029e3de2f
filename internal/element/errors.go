package element

import (
	"errors"
	"fmt"

	"github.com/zjrosen/pagetypes/internal/selector"
)

var (
	// ErrNotFound reports an unknown type, instance key or a name no
	// instance visible to the user carries.
	ErrNotFound = selector.ErrNotFound
	// ErrUnauthorized reports a failed permission check.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict reports a duplicate name within one owner's namespace.
	ErrConflict = errors.New("conflict")
	// ErrMissingContext reports a context-aware page lacking a single info.
	ErrMissingContext = errors.New("missing context")
	// ErrConfigCorrupt reports a persisted user collection that cannot be parsed.
	ErrConfigCorrupt = errors.New("config corrupt")
	// ErrIndex reports a container index out of range.
	ErrIndex = errors.New("index out of range")
	// ErrInvalid reports a form value failing validation.
	ErrInvalid = errors.New("invalid value")
)

// NotFoundError names the missing type or instance.
type NotFoundError struct {
	Type  string
	Owner string
	Name  string
}

func (e *NotFoundError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("%s %q of %s not found", e.Type, e.Name, e.Owner)
	}
	return fmt.Sprintf("%s %q not found", e.Type, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// UnauthorizedError names the operation that was refused.
type UnauthorizedError struct {
	Op   string
	Type string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("permission denied: operation %s on %s", e.Op, e.Type)
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// ConflictError reports that Owner already has an instance named Name.
type ConflictError struct {
	Type  string
	Owner string
	Name  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already has a %s with the ID %q", e.Owner, e.Type, e.Name)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// MissingContextError names the single info a page could not be pinned to.
type MissingContextError struct {
	Type      string
	Info      string
	InfoTitle string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("this %s cannot be rendered: it is missing the specification of %q", e.Type, e.InfoTitle)
}

func (e *MissingContextError) Unwrap() error { return ErrMissingContext }

// ConfigCorruptError reports an unparsable persisted collection.
type ConfigCorruptError struct {
	User string
	Type string
	Path string
	Err  error
}

func (e *ConfigCorruptError) Error() string {
	return fmt.Sprintf("cannot load %ss of user %s from %s: %v", e.Type, e.User, e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the underlying parse error.
func (e *ConfigCorruptError) Unwrap() []error { return []error{ErrConfigCorrupt, e.Err} }

// ValidationError reports one invalid form field.
type ValidationError struct {
	Field   string
	Message string
	// Err is the underlying cause, e.g. a *ConflictError.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalid, e.Err}
	}
	return []error{ErrInvalid}
}
