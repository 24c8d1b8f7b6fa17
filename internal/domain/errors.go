package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	// Workspace taxonomy
	ErrNotFound            = errors.New("not found")
	ErrInvalidParent       = errors.New("invalid parent")
	ErrCycleDetected       = errors.New("cycle detected")
	ErrWrongType           = errors.New("wrong node type")
	ErrInvalidName         = errors.New("invalid name")
	ErrInvalidBackupFormat = errors.New("invalid backup format")

	// General
	ErrValidation   = errors.New("validation failed")
	ErrCancelled    = errors.New("cancelled by user")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// NodeError records the operation and node an error occurred on.
// Unwraps to one of the sentinels above.
type NodeError struct {
	Op  string // create, delete, rename, move, ...
	ID  string // node the operation targeted (may be a parent id)
	Err error
}

// NewNodeError wraps a sentinel with operation context.
func NewNodeError(op, id string, err error) *NodeError {
	return &NodeError{Op: op, ID: id, Err: err}
}

func (e *NodeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// StatusCode implements HTTPError
func (e *NodeError) StatusCode() int { return StatusCode(e.Err) }

// StatusCode maps a (possibly wrapped) domain error to an HTTP status.
func StatusCode(err error) int {
	var httpErr HTTPError
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCycleDetected):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidParent),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrWrongType),
		errors.Is(err, ErrInvalidBackupFormat),
		errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrCancelled):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &httpErr):
		return httpErr.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}
