package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a transport failure. The engine records the kind on
// the device result and never propagates it further.
type ErrorKind string

const (
	AuthFailure    ErrorKind = "auth_failure"
	Unreachable    ErrorKind = "unreachable"
	Timeout        ErrorKind = "timeout"
	ProtocolError  ErrorKind = "protocol_error"
	DeviceRejected ErrorKind = "device_rejected"
)

// Error is the structured failure a driver returns.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf maps any error a driver call produced onto the taxonomy. Context
// expiry counts as a timeout; anything unclassified is a protocol error.
func KindOf(err error) ErrorKind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Timeout
	}
	return ProtocolError
}
