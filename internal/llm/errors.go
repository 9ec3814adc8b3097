package llm

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindTransient   ErrorKind = "transient_service_error"
	KindMalformed   ErrorKind = "malformed_response"
	KindCanceled    ErrorKind = "canceled"
)

type ServiceError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retriable reports whether another attempt may succeed.
func (e *ServiceError) Retriable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTransient
}

func RateLimited(status int, msg string) *ServiceError {
	return &ServiceError{Kind: KindRateLimited, Status: status, Message: msg}
}

func Transient(status int, err error) *ServiceError {
	return &ServiceError{Kind: KindTransient, Status: status, Err: err}
}

func Malformed(format string, args ...any) *ServiceError {
	return &ServiceError{Kind: KindMalformed, Message: fmt.Sprintf(format, args...)}
}

// Classify maps any error to a kind. Unknown errors are treated as
// transient so the retry budget decides their fate.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// IsRetriable reports whether err is worth another attempt.
func IsRetriable(err error) bool {
	k := Classify(err)
	return k == KindRateLimited || k == KindTransient
}
