// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package apperr classifies service errors so transports can map them
// without inspecting messages.
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Error classes
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
)

// Error is a user-facing error belonging to one class
type Error struct {
	class error
	msg   string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.class }

func NotFound(msg string) *Error { return &Error{class: ErrNotFound, msg: msg} }

func Validation(msg string) *Error { return &Error{class: ErrValidation, msg: msg} }

func Conflict(msg string) *Error { return &Error{class: ErrConflict, msg: msg} }

// Validationf builds a one-off validation error
func Validationf(format string, args ...any) error {
	return &Error{class: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps an infrastructure failure. The driver error stays in the
// chain for logging but Message never exposes it.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Message returns the text safe to show a caller
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return "Internal error"
}
