package errors

import (
	"errors"
	"fmt"
)

// Failure kinds of a session or a request. Callers classify with Is.
var (
	ErrAuthentication = fmt.Errorf("authentication failed")
	ErrAuthorization  = fmt.Errorf("permission denied")
	ErrNotFound       = fmt.Errorf("not found")
	ErrAlreadyExists  = fmt.Errorf("already exists")
	ErrMalformedInput = fmt.Errorf("malformed input")
	ErrPersistence    = fmt.Errorf("persistence failure")
	ErrDisconnected   = fmt.Errorf("transport disconnected")
	ErrValidation     = fmt.Errorf("validation failed")
)

// Peer send failures, isolated to the failing connection.
var (
	ErrSendBufferFull   = fmt.Errorf("send buffer full")
	ErrConnectionClosed = fmt.Errorf("connection closed")
)

var (
	ErrInvalidCredentials = fmt.Errorf("incorrect username or password")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
