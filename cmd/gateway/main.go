package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"scsb/internal/config"
	"scsb/internal/consul"
	"scsb/internal/downstream"
	"scsb/internal/gateway"
	"scsb/internal/logger"
	"scsb/internal/metrics"
)

func main() {
	log := logger.New(logger.OptionsFromEnv("scsb-gateway"))
	logger.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("Gateway stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("Starting SCSB gateway",
		"port", cfg.Port,
		"registry_source", cfg.RegistrySource,
		"downstream_timeout", cfg.DownstreamTimeout.String(),
	)

	var consulClient *consul.Client
	if cfg.RegistrySource == config.SourceConsul || cfg.ConsulRegister {
		consulClient, err = consul.NewClient(cfg.ConsulAddr, cfg.ConsulToken)
		if err != nil {
			return err
		}
		slog.Info("Connected to Consul", "consul_addr", cfg.ConsulAddr)
	}

	endpoints := cfg.StaticEndpoints()
	if cfg.RegistrySource == config.SourceConsul {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		endpoints, err = consul.ResolveEndpoints(ctx, consulClient, cfg.ConsulNames(), cfg.Timeouts())
		cancel()
		if err != nil {
			return err
		}
	}

	registry, err := downstream.NewRegistry(endpoints)
	if err != nil {
		return err
	}
	for _, svc := range registry.Services() {
		slog.Info("Registered downstream service", "service", string(svc.ID), "base_url", svc.BaseURL.String())
	}

	routes := gateway.SCSBRoutes()
	if err := gateway.ValidateRoutes(routes, registry); err != nil {
		return fmt.Errorf("route table does not match registry: %w", err)
	}

	m := metrics.New()
	client := downstream.NewClient(registry, log,
		downstream.WithTimeout(cfg.DownstreamTimeout),
		downstream.WithObserver(m),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gateway.SetupRouter(gateway.RouterConfig{
		Routes:      routes,
		Dispatcher:  gateway.NewDispatcher(client, log, m),
		Registry:    registry,
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     m.Handler(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("SCSB gateway listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var registration *consul.ServiceConfig
	if cfg.ConsulRegister {
		registration = consul.GatewayRegistration(cfg.AdvertiseAddr, cfg.Port)
		if err := consulClient.Register(registration); err != nil {
			slog.Warn("Failed to register gateway with Consul", "error", err)
			registration = nil
		} else {
			slog.Info("Registered gateway with Consul", "service_id", registration.ID)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-quit:
	}

	slog.Info("Shutting down SCSB gateway")

	if registration != nil {
		if err := consulClient.Deregister(registration.ID); err != nil {
			slog.Warn("Failed to deregister gateway", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("SCSB gateway stopped")
	return nil
}
