package gateway

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Outward headers and context keys shared by every route
const (
	HeaderRequestID    = "X-Request-ID"
	HeaderResponseDate = "responseDate"
	ContentTypeJSON    = "application/json;charset=UTF-8"

	ctxKeyRequestID       = "request_id"
	ctxKeyUpstreamService = "upstream_service"

	responseDateLayout = "Mon Jan 02 15:04:05 MST 2006"
)

// writeResponse is the single place where a route body is written
func writeResponse(c *gin.Context, status int, body []byte) {
	c.Data(status, ContentTypeJSON, body)
}

// RequestIDMiddleware reuses the caller's request ID or generates one for
// correlation across downstream services
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}

		c.Set(ctxKeyRequestID, requestID)
		c.Next()
	}
}

// ResponseHeadersMiddleware sets the outward headers common to all routes
func ResponseHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set(HeaderRequestID, c.GetString(ctxKeyRequestID))
		h.Set(HeaderResponseDate, time.Now().Format(responseDateLayout))
		c.Next()
	}
}

// CORSMiddleware allows browser callers from origins. A single "*" allows
// any origin.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Content-Type", "Origin", HeaderRequestID},
		ExposeHeaders: []string{HeaderRequestID, HeaderResponseDate},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// LoggingMiddleware logs all requests passing through the gateway with structured JSON
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rw := newResponseWriter(c.Writer)
		c.Writer = rw

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			"request_id", c.GetString(ctxKeyRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(latency.Milliseconds()),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"response_size", rw.Size(),
		}

		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}
		if upstreamService, exists := c.Get(ctxKeyUpstreamService); exists {
			attrs = append(attrs, "upstream_service", upstreamService)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("Request failed - server error", attrs...)
		case status >= 400:
			logger.Warn("Request failed - client error", attrs...)
		default:
			logger.Info("Request completed", attrs...)
		}
	}
}
