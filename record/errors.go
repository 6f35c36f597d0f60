// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package record

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindServerError
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindServerError:
		return "server error"
	case KindNetwork:
		return "network error"
	}
	return "unknown"
}

// StoreError wraps any record-store failure with its taxonomy kind and the
// collection the operation targeted.
type StoreError struct {
	Kind       Kind
	Collection string
	Message    string
	Err        error
}

func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Collection == "" {
		return fmt.Sprintf("record store: %s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("record store: %s: %s: %s", e.Collection, e.Kind, msg)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewError builds a StoreError for the given kind.
func NewError(kind Kind, collection, message string, err error) *StoreError {
	return &StoreError{Kind: kind, Collection: collection, Message: message, Err: err}
}

// KindOf returns the taxonomy kind of err, or 0 if err is not a StoreError.
func KindOf(err error) Kind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// IsNotFound reports whether err is a not-found store failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsForbidden reports whether err is a forbidden store failure. Callers use
// this to decide whether to fall back to local-only behavior.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }
