// Package forward turns downstream responses into classified results and
// maps those results onto the outward HTTP status and body.
package forward

import "fmt"

// Kind tags a Result
type Kind int

const (
	KindSuccess Kind = iota
	KindUnavailable
	KindDownstreamError
	KindLogicalFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindUnavailable:
		return "unavailable"
	case KindDownstreamError:
		return "downstream_error"
	case KindLogicalFailure:
		return "logical_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of one forwarded call. Only the fields relevant to
// Kind are set.
type Result struct {
	Kind Kind

	// Body is the downstream payload for Success and LogicalFailure
	Body []byte

	// Status is the downstream HTTP status for DownstreamError, zero when the
	// failure was not an HTTP status (decode errors, client misconfiguration)
	Status int

	// Code and Message describe a LogicalFailure
	Code    string
	Message string

	// Err carries the internal cause for logging. It is never written to
	// the caller.
	Err error
}

// Success wraps a body that is passed through unmodified
func Success(body []byte) Result {
	return Result{Kind: KindSuccess, Body: body}
}

// Unavailable reports a call that never completed
func Unavailable(err error) Result {
	return Result{Kind: KindUnavailable, Err: err}
}

// DownstreamError reports a completed call that cannot be relayed
func DownstreamError(status int, err error) Result {
	return Result{Kind: KindDownstreamError, Status: status, Err: err}
}

// LogicalFailure reports a business error embedded in a successful response
func LogicalFailure(code, message string, body []byte) Result {
	return Result{Kind: KindLogicalFailure, Code: code, Message: message, Body: body}
}

// OK reports whether the result is a Success
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}
