package downstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a downstream call when neither the client nor the
	// service entry sets one
	DefaultTimeout = 30 * time.Second
	// MaxBodyBytes caps how much of a downstream body is buffered
	MaxBodyBytes = 32 << 20
)

// Outcome labels used in call logs and metrics
const (
	OutcomeOK             = "ok"
	OutcomeHTTPError      = "http_error"
	OutcomeTimeout        = "timeout"
	OutcomeUnreachable    = "unreachable"
	OutcomeUnknownService = "unknown_service"
	OutcomeFailed         = "failed"
)

// Request is one outbound call. It is owned by the inbound request that
// created it and discarded once Send returns.
type Request struct {
	Service ServiceID
	Path    string
	Method  string
	Body    []byte
	Header  http.Header
}

// Response is a fully buffered downstream response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Sender issues downstream calls
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Observer receives one notification per call
type Observer interface {
	ObserveDownstream(service ServiceID, outcome string, latency time.Duration)
}

// Client sends requests to registered services. Each call is attempted once.
type Client struct {
	registry *Registry
	http     *http.Client
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the default per-call timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithObserver attaches a call observer (metrics)
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a client bound to registry
func NewClient(registry *Registry, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		registry: registry,
		http: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send resolves the service, performs the call under the configured timeout
// and buffers the body. Transport failures come back as *TransportError.
// A log entry is written for every call, whatever the outcome.
func (c *Client) Send(ctx context.Context, req Request) (resp *Response, err error) {
	start := time.Now()
	outcome := OutcomeFailed

	defer func() {
		latency := time.Since(start)
		c.record(req, resp, err, outcome, latency)
	}()

	svc, err := c.registry.Lookup(req.Service)
	if err != nil {
		outcome = OutcomeUnknownService
		return nil, err
	}

	timeout := c.timeout
	if svc.Timeout > 0 {
		timeout = svc.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	target, err := c.registry.URLFor(req.Service, req.Path)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", req.Service, err)
	}
	for k, vv := range req.Header {
		for _, v := range vv {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		te := newTransportError(req.Service, err)
		outcome = outcomeFor(te)
		return nil, te
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxBodyBytes+1))
	if err != nil {
		te := newTransportError(req.Service, err)
		outcome = outcomeFor(te)
		return nil, te
	}
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("%w: service %s", ErrBodyTooLarge, req.Service)
	}

	resp = &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       body,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		outcome = OutcomeOK
	} else {
		outcome = OutcomeHTTPError
	}
	return resp, nil
}

func (c *Client) record(req Request, resp *Response, err error, outcome string, latency time.Duration) {
	if c.observer != nil {
		c.observer.ObserveDownstream(req.Service, outcome, latency)
	}
	if c.logger == nil {
		return
	}

	attrs := []any{
		"service", string(req.Service),
		"path", req.Path,
		"latency_ms", float64(latency.Microseconds()) / 1000,
		"outcome", outcome,
	}
	if resp != nil {
		attrs = append(attrs, "status", resp.StatusCode)
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}

	switch outcome {
	case OutcomeOK:
		c.logger.Info("Downstream call completed", attrs...)
	case OutcomeHTTPError:
		c.logger.Warn("Downstream call returned error status", attrs...)
	default:
		c.logger.Error("Downstream call failed", attrs...)
	}
}

func outcomeFor(te *TransportError) string {
	if te.Kind == Timeout {
		return OutcomeTimeout
	}
	return OutcomeUnreachable
}
