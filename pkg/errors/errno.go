// Package errors provides the structured error codes used by catalog-chat.
//
// A code has seven digits, AABBCCC: AA is the service (00 common, 30 chat),
// BB the category (see code.go) and CCC a sequence number. Every code maps
// to one HTTP status, which the handlers return together with MessageEN.
//
//	return errors.ErrRetrieval.WithCause(err)
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/grpc/codes"
)

// Errno is a registered error code. Registered values are shared and never
// mutated; WithCause and WithMessage return copies.
type Errno struct {
	Code      int        `json:"code"`
	HTTP      int        `json:"-"`
	GRPCCode  codes.Code `json:"-"`
	MessageEN string     `json:"message"`
	MessageZH string     `json:"message_zh,omitempty"`

	cause error
}

// New creates an unregistered Errno.
func New(code int, httpStatus int, grpcCode codes.Code, messageEN, messageZH string) *Errno {
	return &Errno{Code: code, HTTP: httpStatus, GRPCCode: grpcCode, MessageEN: messageEN, MessageZH: messageZH}
}

func (e *Errno) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("errno %d: %s", e.Code, e.MessageEN)
	}
	return fmt.Sprintf("errno %d: %s: %v", e.Code, e.MessageEN, e.cause)
}

func (e *Errno) Unwrap() error { return e.cause }

// Cause returns the wrapped error, nil for a bare code.
func (e *Errno) Cause() error { return e.cause }

// Is matches any Errno carrying the same code, so errors.Is works on
// copies made by WithCause.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of e wrapping cause.
func (e *Errno) WithCause(cause error) *Errno {
	c := *e
	c.cause = cause
	return &c
}

// WithMessage returns a copy of e with msg as its English message.
func (e *Errno) WithMessage(msg string) *Errno {
	c := *e
	c.MessageEN = msg
	return &c
}

// WithMessagef is WithMessage with fmt.Sprintf formatting.
func (e *Errno) WithMessagef(format string, args ...any) *Errno {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// HTTPStatus returns the status to answer with, 500 when unset.
func (e *Errno) HTTPStatus() int {
	if e.HTTP == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTP
}

var registry sync.Map // int -> *Errno

// Register records e and returns it. Codes are assigned by hand, so a
// duplicate is a programming error and panics at init.
func Register(e *Errno) *Errno {
	if prev, loaded := registry.LoadOrStore(e.Code, e); loaded {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, prev.(*Errno).MessageEN))
	}
	return e
}

// Lookup returns the registered Errno for code.
func Lookup(code int) (*Errno, bool) {
	v, ok := registry.Load(code)
	if !ok {
		return nil, false
	}
	return v.(*Errno), true
}

// FromError returns the first Errno in err's chain, or err wrapped in
// ErrInternal when there is none.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}

// GetCode returns the code of the first Errno in err's chain, or -1.
func GetCode(err error) int {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code
	}
	return -1
}
