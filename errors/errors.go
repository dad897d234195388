package errors

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

const (
	UnknownCode = 500

	separator = ", "
)

// Status is the serializable part of an Error.
type Status struct {
	Code     int               `json:"code,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Message  string            `json:"message,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Error is a structured error carrying an HTTP-like code, a stable machine
// readable reason, a human message and an optional cause.
type Error struct {
	Status
	cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("code=")
	b.WriteString(strconv.Itoa(e.Code))
	if e.Reason != "" {
		b.WriteString(separator)
		b.WriteString("reason=")
		b.WriteString(e.Reason)
	}
	b.WriteString(separator)
	b.WriteString("message=")
	b.WriteString(e.Message)

	if len(e.Metadata) > 0 {
		b.WriteString(separator)
		b.WriteString("metadata={")
		first := true
		for k, v := range e.Metadata {
			if !first {
				b.WriteString(separator)
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
			first = false
		}
		b.WriteByte('}')
	}

	if e.cause != nil {
		b.WriteString(separator)
		b.WriteString("cause=")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error with the same code and reason. Errors without a
// reason fall back to comparing messages.
func (e *Error) Is(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	if e.Code != ge.Code {
		return false
	}
	if e.Reason != "" || ge.Reason != "" {
		return e.Reason == ge.Reason
	}
	return e.Message == ge.Message
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	if cause == nil {
		return e
	}
	err := e.clone()
	err.cause = cause
	return err
}

// WithMetadata returns a copy of e with m merged into its metadata.
func (e *Error) WithMetadata(m map[string]string) *Error {
	if len(m) == 0 {
		return e
	}
	err := e.clone()
	if err.Metadata == nil {
		err.Metadata = make(map[string]string, len(m))
	}
	maps.Copy(err.Metadata, m)
	return err
}

func (e *Error) clone() *Error {
	var md map[string]string
	if len(e.Metadata) > 0 {
		md = maps.Clone(e.Metadata)
	}
	return &Error{
		Status: Status{
			Code:     e.Code,
			Reason:   e.Reason,
			Message:  e.Message,
			Metadata: md,
		},
		cause: e.cause,
	}
}

func (e *Error) GetCode() int { return e.Code }

func (e *Error) GetReason() string { return e.Reason }

func (e *Error) GetMessage() string { return e.Message }

func (e *Error) GetCause() error { return e.cause }

// New creates an Error with a formatted message and no reason.
func New(code int, format string, args ...any) *Error {
	return &Error{Status: Status{Code: code, Message: sprintf(format, args...)}}
}

// Newr creates an Error identified by reason.
func Newr(code int, reason, format string, args ...any) *Error {
	return &Error{Status: Status{Code: code, Reason: reason, Message: sprintf(format, args...)}}
}

// Wrap returns nil when err is nil, otherwise a new Error caused by err.
func Wrap(err error, code int, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return New(code, format, args...).WithCause(err)
}

// FromError converts err into an *Error, preserving one found in the chain.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return New(UnknownCode, "%v", err).WithCause(err)
}

// Code reports the code of the first *Error in err's chain, or UnknownCode.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return UnknownCode
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
