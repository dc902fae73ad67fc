package forward

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"scsb/internal/downstream"
)

// ErrMalformedBody marks a 2xx body that does not match the expected shape
var ErrMalformedBody = errors.New("malformed downstream body")

// Shape is the document a route expects from its downstream service
type Shape int

const (
	// ShapeText accepts any body and passes it through as a string
	ShapeText Shape = iota
	// ShapeObject expects a JSON object
	ShapeObject
	// ShapeList expects a JSON array
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeText:
		return "text"
	case ShapeObject:
		return "object"
	case ShapeList:
		return "list"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Failure is what an Inspector reports for a business-level error
type Failure struct {
	Code    string
	Message string
}

// Inspector looks at a decoded 2xx document and may reclassify it. The
// document is a string for ShapeText, map[string]any for ShapeObject,
// []any for ShapeList, and nil when the body was empty or JSON null.
// Returning an error marks the document as malformed.
type Inspector func(doc any) (*Failure, error)

// Rule is the per-route translation configuration
type Rule struct {
	Shape Shape

	// NoContent replaces an empty 2xx body when set
	NoContent []byte

	// Inspect is optional
	Inspect Inspector
}

// Translate converts the outcome of Sender.Send into a Result
func Translate(resp *downstream.Response, err error, rule Rule) Result {
	if err != nil {
		if downstream.IsTransport(err) {
			return Unavailable(err)
		}
		return DownstreamError(0, err)
	}
	if resp == nil {
		return DownstreamError(0, errors.New("downstream returned no response"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DownstreamError(resp.StatusCode,
			fmt.Errorf("downstream status %d: %s", resp.StatusCode, truncate(resp.Body, 512)))
	}

	body := resp.Body
	empty := len(bytes.TrimSpace(body)) == 0
	if empty && rule.NoContent != nil {
		return Success(rule.NoContent)
	}

	var doc any
	if !empty {
		doc, err = decode(body, rule.Shape)
		if err != nil {
			return DownstreamError(resp.StatusCode, err)
		}
	}

	if rule.Inspect != nil {
		failure, err := rule.Inspect(doc)
		if err != nil {
			return DownstreamError(resp.StatusCode, fmt.Errorf("%w: %v", ErrMalformedBody, err))
		}
		if failure != nil {
			return LogicalFailure(failure.Code, failure.Message, body)
		}
	}

	return Success(body)
}

func decode(body []byte, shape Shape) (any, error) {
	if shape == ShapeText {
		return string(body), nil
	}

	var doc any
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if doc == nil {
		return nil, nil
	}

	switch shape {
	case ShapeObject:
		if _, ok := doc.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: expected JSON object", ErrMalformedBody)
		}
	case ShapeList:
		if _, ok := doc.([]any); !ok {
			return nil, fmt.Errorf("%w: expected JSON array", ErrMalformedBody)
		}
	}
	return doc, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
