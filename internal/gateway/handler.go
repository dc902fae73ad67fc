package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"scsb/internal/downstream"
	"scsb/internal/forward"
)

var (
	// ErrMissingParameter is returned when a required parameter is absent
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrInvalidParameter is returned when a parameter cannot be parsed
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidBody is returned when the inbound body is missing or malformed
	ErrInvalidBody = errors.New("invalid request body")
)

// MaxRequestBytes caps an inbound body, matching the downstream body cap
const MaxRequestBytes = downstream.MaxBodyBytes

// ResultObserver is notified once per classified request
type ResultObserver interface {
	ObserveResult(route, kind string, status int)
}

// ErrorResponse is the body of requests rejected before dispatch
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Dispatcher runs the forward pipeline for every route:
// validate, send, translate, classify, respond.
type Dispatcher struct {
	sender   downstream.Sender
	logger   *slog.Logger
	observer ResultObserver
	maxBody  int64
}

// NewDispatcher creates a dispatcher. observer may be nil.
func NewDispatcher(sender downstream.Sender, logger *slog.Logger, observer ResultObserver) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender:   sender,
		logger:   logger,
		observer: observer,
		maxBody:  MaxRequestBytes,
	}
}

// Handle returns the handler bound to rt
func (d *Dispatcher) Handle(rt Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyUpstreamService, string(rt.Service))
		requestID := c.GetString(ctxKeyRequestID)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, d.maxBody)

		req, err := d.buildRequest(c, rt)
		if err != nil {
			d.reject(c, rt, err)
			return
		}

		resp, err := d.sender.Send(c.Request.Context(), req)
		result := forward.Translate(resp, err, rt.Rule)

		var (
			status int
			body   []byte
		)
		if rt.EmbedErrors {
			status, body = embedErrors(result)
		} else {
			status, body = forward.ToOutward(result, rt.Sentinels)
		}

		attrs := []any{
			"route", rt.Name,
			"service", string(rt.Service),
			"kind", result.Kind.String(),
			"status", status,
			"request_id", requestID,
		}
		if result.Err != nil {
			attrs = append(attrs, "error", result.Err.Error())
			_ = c.Error(result.Err)
		}
		if result.Kind == forward.KindLogicalFailure {
			attrs = append(attrs, "code", result.Code, "message", result.Message)
		}
		if result.OK() {
			d.logger.Debug("Forward succeeded", attrs...)
		} else {
			d.logger.Warn("Forward failed", attrs...)
		}

		d.observe(rt.Name, result.Kind.String(), status)
		writeResponse(c, status, body)
	}
}

// reject answers a request that failed validation. No downstream call is
// made.
func (d *Dispatcher) reject(c *gin.Context, rt Route, err error) {
	code := "INVALID_REQUEST"
	switch {
	case errors.Is(err, ErrMissingParameter):
		code = "MISSING_PARAMETER"
	case errors.Is(err, ErrInvalidParameter):
		code = "INVALID_PARAMETER"
	case errors.Is(err, ErrInvalidBody):
		code = "INVALID_BODY"
	}

	d.logger.Warn("Request rejected",
		"route", rt.Name,
		"error", err.Error(),
		"request_id", c.GetString(ctxKeyRequestID),
	)
	d.observe(rt.Name, "rejected", http.StatusBadRequest)

	body, mErr := sonic.Marshal(ErrorResponse{
		Error:   "Bad request",
		Code:    code,
		Details: err.Error(),
	})
	if mErr != nil {
		body = []byte(`{"error":"Bad request"}`)
	}
	writeResponse(c, http.StatusBadRequest, body)
}

func (d *Dispatcher) observe(route, kind string, status int) {
	if d.observer != nil {
		d.observer.ObserveResult(route, kind, status)
	}
}

// buildRequest validates the inbound request and derives the forward request
func (d *Dispatcher) buildRequest(c *gin.Context, rt Route) (downstream.Request, error) {
	req := downstream.Request{
		Service: rt.Service,
		Path:    rt.DownstreamPath,
		Method:  http.MethodPost,
		Header:  make(http.Header),
	}
	req.Header.Set("Accept", "application/json")
	if id := c.GetString(ctxKeyRequestID); id != "" {
		req.Header.Set(HeaderRequestID, id)
	}

	switch rt.Encoding {
	case EncodingMultipart:
		body, contentType, err := multipartBody(c, rt)
		if err != nil {
			return req, err
		}
		req.Body = body
		req.Header.Set("Content-Type", contentType)
	default:
		raw, err := c.GetRawData()
		if err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return req, fmt.Errorf("%w: body is required", ErrInvalidBody)
		}
		if !sonic.Valid(raw) {
			return req, fmt.Errorf("%w: body is not valid JSON", ErrInvalidBody)
		}
		req.Body = raw
		req.Header.Set("Content-Type", ContentTypeJSON)
	}

	return req, nil
}

// multipartBody collects the raw body and the required parameters into a
// multipart form. Form submissions carry the body in rt.BodyField; any other
// content type is taken verbatim.
func multipartBody(c *gin.Context, rt Route) ([]byte, string, error) {
	isForm := isFormContent(c.ContentType())

	var records string
	if isForm {
		if err := parseForm(c); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
	} else {
		raw, err := c.GetRawData()
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		records = string(raw)
	}

	values := make([]string, len(rt.Params))
	for i, p := range rt.Params {
		v, err := paramValue(c, p, isForm)
		if err != nil {
			return nil, "", err
		}
		values[i] = v
	}

	if isForm {
		records = c.PostForm(rt.BodyField)
	}
	if strings.TrimSpace(records) == "" {
		return nil, "", fmt.Errorf("%w: %s is required", ErrInvalidBody, rt.BodyField)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField(rt.BodyField, records); err != nil {
		return nil, "", err
	}
	for i, p := range rt.Params {
		if err := w.WriteField(p.Name, values[i]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func paramValue(c *gin.Context, p Param, isForm bool) (string, error) {
	v, ok := c.GetQuery(p.Name)
	if !ok && isForm {
		v, ok = c.GetPostForm(p.Name)
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, p.Name)
	}
	if !p.Bool {
		return v, nil
	}

	b, err := parseBool(v)
	if err != nil {
		return "", fmt.Errorf("%w: %s must be true or false", ErrInvalidParameter, p.Name)
	}
	if b {
		return "true", nil
	}
	return "false", nil
}

// parseBool accepts the spellings web clients commonly send
func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "on", "yes", "1":
		return true, nil
	case "false", "off", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", v)
}

// parseForm surfaces body errors that gin's form accessors swallow
func parseForm(c *gin.Context) error {
	if c.ContentType() == "multipart/form-data" {
		return c.Request.ParseMultipartForm(MaxRequestBytes)
	}
	return c.Request.ParseForm()
}

func isFormContent(contentType string) bool {
	return contentType == "multipart/form-data" || contentType == "application/x-www-form-urlencoded"
}
