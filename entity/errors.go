package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for matching with errors.Is. Use errors.As with the typed errors
// below for details.
var (
	ErrMissingField = errors.New("missing required field")
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrShape        = errors.New("malformed document")
	ErrNoBackend    = errors.New("no backend registered")
)

// MissingFieldError is returned when a required field is absent from a document.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// AuthorizationError is returned by an Authorizer that denies an action.
type AuthorizationError struct {
	Action string
	User   string
	Reason string
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("user %q is not authorized to %s", e.User, e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NotFoundError is returned by readers and writers when an entity does not exist.
type NotFoundError struct {
	Kind Kind
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError carries per-field messages produced by a writer.
type ValidationError struct {
	Kind   Kind
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ShapeError reports a document whose structure does not match what the merge expects,
// for example a sub-record list entry that is not a document.
type ShapeError struct {
	Field string
	Index int
	Value any
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("field %q: expected a list, got %T", e.Field, e.Value)
	}
	return fmt.Sprintf("field %q index %d: expected a document, got %T", e.Field, e.Index, e.Value)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}
