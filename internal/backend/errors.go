package backend

import (
	"errors"
	"fmt"
)

// Error is returned by Client implementations.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Kind classifies backend failures.
type Kind int

// Error kinds.
const (
	KindNotFound Kind = iota + 1
	KindAlreadyExists
	KindInvalidInput
	KindUnknownProcedure
	KindConflict
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithMessage returns a copy of e with msg.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Err: e.Err}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "row not found"}
	ErrAlreadyExists    = &Error{Kind: KindAlreadyExists, Message: "row already exists"}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUnknownProcedure = &Error{Kind: KindUnknownProcedure, Message: "unknown procedure"}
	ErrConflict         = &Error{Kind: KindConflict, Message: "conflicting write"}
)
