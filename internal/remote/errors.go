package remote

import (
	"errors"
	"fmt"
)

// ErrRemoteCall is the single failure kind of the calendar endpoint.
var ErrRemoteCall = errors.New("something went wrong")

// RemoteCallError reports a non-success response or a failed transport.
// It intentionally carries no body; Status is 0 when no response arrived.
type RemoteCallError struct {
	Method string
	Status int
	Err    error
}

func (e *RemoteCallError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s: %v", ErrRemoteCall, e.Method, e.Err)
	}
	return fmt.Sprintf("%v: %s returned status %d", ErrRemoteCall, e.Method, e.Status)
}

func (e *RemoteCallError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemoteCall}
	}
	return []error{ErrRemoteCall, e.Err}
}

// IsRemoteCallError reports whether err is a RemoteCallError.
func IsRemoteCallError(err error) bool {
	var rce *RemoteCallError
	return errors.As(err, &rce)
}
