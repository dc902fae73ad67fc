// Package gateway implements the SCSB forwarding gateway.
// Each inbound route is bound to one downstream call through a declarative
// route table and a single dispatcher that owns status mapping.
package gateway

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"scsb/internal/downstream"
)

// RouterConfig holds everything SetupRouter wires together
type RouterConfig struct {
	Routes      []Route
	Dispatcher  *Dispatcher
	Registry    *downstream.Registry
	Logger      *slog.Logger
	CORSOrigins []string
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
}

// SetupRouter configures and returns the gateway router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(logger))
	r.Use(ResponseHeadersMiddleware())
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORSMiddleware(cfg.CORSOrigins))
	}

	r.GET("/health", healthHandler(cfg.Registry))
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	for _, rt := range cfg.Routes {
		r.Handle(rt.Method, rt.Path, cfg.Dispatcher.Handle(rt))
	}

	return r
}

// healthHandler reports gateway health and the registered services
func healthHandler(registry *downstream.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		services := []string{}
		if registry != nil {
			for _, svc := range registry.Services() {
				services = append(services, string(svc.ID))
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"service":  "scsb-gateway",
			"services": services,
		})
	}
}
