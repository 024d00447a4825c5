package jobclient

import (
	"errors"
	"fmt"
)

// Kind classifies a remote failure.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindFailed      Kind = "failed"
	KindUnreachable Kind = "unreachable"
)

var (
	ErrTimeout     = errors.New("remote job timed out")
	ErrFailed      = errors.New("remote job failed")
	ErrUnreachable = errors.New("remote endpoint unreachable")
)

// RemoteError is returned by Client.Call for every failure.
type RemoteError struct {
	Kind     Kind
	Endpoint string
	Method   string
	Message  string
	Err      error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is matches the Kind sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrFailed:
		return e.Kind == KindFailed
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	}
	return false
}

// Failed builds a KindFailed error. In-process callers use it to keep the remote contract.
func Failed(endpoint, method, message string) *RemoteError {
	return &RemoteError{Kind: KindFailed, Endpoint: endpoint, Method: method, Message: message}
}
