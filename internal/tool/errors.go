package tool

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrSealed      = errors.New("registry sealed")
)

type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindUnavailable     Kind = "unavailable"
	KindTransport       Kind = "transport"
	KindInternal        Kind = "internal"
)

// Error is a tool failure. Say is spoken to the user, Reason is reported
// back to the model.
type Error struct {
	Kind   Kind
	Say    string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.reason(), e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.reason())
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) reason() string {
	if e.Reason != "" {
		return e.Reason
	}
	return e.Say
}

// Message is the text reported back to the model.
func (e *Error) Message() string {
	if e.Err != nil {
		return fmt.Sprintf("Failure: %s Error: %v", e.reason(), e.Err)
	}
	return "Failure: " + e.reason()
}

func Fail(kind Kind, say, reason string, err error) *Error {
	return &Error{Kind: kind, Say: say, Reason: reason, Err: err}
}

func InvalidArgument(say, reason string) *Error {
	return Fail(KindInvalidArgument, say, reason, nil)
}

func NotFound(say, reason string) *Error {
	return Fail(KindNotFound, say, reason, nil)
}

func Internal(say, reason string, err error) *Error {
	return Fail(KindInternal, say, reason, err)
}

// AsError extracts a tool failure from an error chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
