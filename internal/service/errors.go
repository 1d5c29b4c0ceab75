package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. The set is closed; handlers switch
// over it exhaustively.
type Kind int

const (
	KindInternal Kind = iota
	KindMalformedInput
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is returned by every Greetings method. Msg is safe to show to
// clients; Err holds the underlying cause and is never rendered.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Malformed(err error) *Error {
	return &Error{Kind: KindMalformedInput, Msg: err.Error(), Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf reports the kind of err. Errors that did not come from this
// package are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Message returns the client-facing text of err.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return msgInternal
}
