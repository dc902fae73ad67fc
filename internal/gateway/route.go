package gateway

import (
	"errors"
	"fmt"

	"scsb/internal/downstream"
	"scsb/internal/forward"
)

// Encoding selects how the inbound payload is sent downstream
type Encoding int

const (
	// EncodingJSON forwards the inbound JSON body as is
	EncodingJSON Encoding = iota
	// EncodingMultipart sends the raw inbound body and the route parameters
	// as multipart/form-data fields
	EncodingMultipart
)

// Param is a required request parameter, read from the query string or
// from form fields
type Param struct {
	Name string
	Bool bool
}

// Route binds one inbound endpoint to one downstream call and its
// translation rules. Routes are immutable once the router is built.
type Route struct {
	Name   string
	Method string
	Path   string

	Service        downstream.ServiceID
	DownstreamPath string

	Encoding Encoding
	// BodyField names the multipart field that carries the raw inbound body
	BodyField string
	Params    []Param

	Rule      forward.Rule
	Sentinels forward.Sentinels

	// EmbedErrors reports every failure as 200 with the error text in the
	// body's message field instead of using the status table
	EmbedErrors bool
}

// ValidateRoutes checks the route table against the registry. An unknown
// service is a configuration error and must stop startup.
func ValidateRoutes(routes []Route, registry *downstream.Registry) error {
	var errs []error
	seen := make(map[string]string, len(routes))

	for _, rt := range routes {
		if rt.Name == "" || rt.Method == "" || rt.Path == "" || rt.DownstreamPath == "" {
			errs = append(errs, fmt.Errorf("route %q is incomplete", rt.Name))
			continue
		}

		key := rt.Method + " " + rt.Path
		if other, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("routes %q and %q both bind %s", other, rt.Name, key))
		}
		seen[key] = rt.Name

		if !registry.Has(rt.Service) {
			errs = append(errs, fmt.Errorf("route %q: %w: %s", rt.Name, downstream.ErrUnknownService, rt.Service))
		}
		if rt.Encoding == EncodingMultipart && rt.BodyField == "" {
			errs = append(errs, fmt.Errorf("route %q: multipart routes need a body field", rt.Name))
		}
		if !rt.EmbedErrors && rt.Sentinels.Unavailable == nil {
			errs = append(errs, fmt.Errorf("route %q has no unavailable sentinel", rt.Name))
		}
	}

	return errors.Join(errs...)
}
