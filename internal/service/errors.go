package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so transports can choose a response code.
type Kind int

const (
	KindOperational Kind = iota
	KindInvalidArgument
	KindNotFound
	KindConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindNotFound:
		return "not found"
	case KindConstraintViolation:
		return "constraint violation"
	default:
		return "operational failure"
	}
}

// Error is returned by every VariableService operation that fails.
type Error struct {
	Op   string // operation, e.g. "CreateVariable"
	Kind Kind
	Msg  string // safe to show to API callers
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, kind Kind, msg string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: cause}
}

// KindOf returns the Kind of err, or KindOperational when err is not a
// service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindOperational
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return "internal error"
}

func IsNotFound(err error) bool        { return err != nil && KindOf(err) == KindNotFound }
func IsInvalidArgument(err error) bool { return err != nil && KindOf(err) == KindInvalidArgument }
func IsConstraintViolation(err error) bool {
	return err != nil && KindOf(err) == KindConstraintViolation
}
