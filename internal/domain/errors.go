package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument indicates a document that cannot enter the pipeline:
// unreadable, encrypted, or empty after extraction.
var ErrInvalidDocument = errors.New("invalid document")

// ErrDimensionMismatch indicates vectors of incompatible width or provenance.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrCorruptIndex indicates persisted index artifacts that disagree with
// each other or with their manifest.
var ErrCorruptIndex = errors.New("corrupt index")

// ErrIndexNotFound indicates no persisted index exists at the given location.
var ErrIndexNotFound = errors.New("index not found")

// ErrNoContext indicates a query against an index with nothing to retrieve.
var ErrNoContext = errors.New("no context available")

// ErrTimeout indicates a capability call exceeded its deadline or was canceled.
var ErrTimeout = errors.New("operation timed out")

// ErrIO indicates a filesystem failure outside the index artifacts themselves.
var ErrIO = errors.New("io failure")

// ErrSessionNotFound indicates an unknown or destroyed session id.
var ErrSessionNotFound = errors.New("session not found")

// Error attaches correlation fields to a failure so logs and API payloads
// can identify the session, workflow and document involved.
type Error struct {
	Op       string
	Session  string
	Workflow Workflow
	Checksum string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Session != "" {
		msg += " session=" + e.Session
	}
	if e.Workflow != "" {
		msg += " workflow=" + string(e.Workflow)
	}
	if e.Checksum != "" {
		msg += " doc=" + shortSum(e.Checksum)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
