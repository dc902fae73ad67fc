package downstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// TransportKind classifies why a call never produced an HTTP response
type TransportKind int

const (
	// Timeout means the call exceeded its deadline
	Timeout TransportKind = iota + 1
	// Unreachable covers refused connections, DNS failures, resets and
	// cancellation by the inbound caller
	Unreachable
)

func (k TransportKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// ErrBodyTooLarge is returned when a downstream body exceeds MaxBodyBytes
var ErrBodyTooLarge = errors.New("downstream response body too large")

// TransportError reports a call that did not complete at the HTTP level
type TransportError struct {
	Kind    TransportKind
	Service ServiceID
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s service %s: %v", e.Service, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a *TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsTimeout reports whether err is a transport timeout
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == Timeout
}

func newTransportError(service ServiceID, err error) *TransportError {
	return &TransportError{Kind: transportKindOf(err), Service: service, Err: err}
}

func transportKindOf(err error) TransportKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	return Unreachable
}
