// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"genaikit/orchestrator/dashboard"
	"genaikit/shared/config"
	"genaikit/shared/logger"
)

const shutdownTimeout = 15 * time.Second

// NewRouter builds the HTTP handler: API routes, /metrics when enabled, the
// dashboard under /dashboard, request ids, logging, optional JWT auth and CORS.
// With a JWT secret the dashboard requires the same token, entered once on
// its login page.
func NewRouter(client *Client, cfg *config.Settings, log *logger.Logger) (http.Handler, error) {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware(log))
	if cfg.APIJWTSecret != "" {
		r.Use(jwtMiddleware([]byte(cfg.APIJWTSecret)))
	}

	NewAPIHandler(client, log).RegisterRoutes(r)
	if cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	var dashOpts []dashboard.Option
	if cfg.APIJWTSecret != "" {
		secret := []byte(cfg.APIJWTSecret)
		dashOpts = append(dashOpts, dashboard.WithAuthenticator(func(token string) error {
			return validateToken(secret, token)
		}))
	}
	dash, err := dashboard.New(client, log.Named("dashboard"), dashOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	dash.Register(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r), nil
}

// Run starts the API server and blocks until ctx is cancelled or the process
// receives SIGINT/SIGTERM, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Settings) error {
	log := logger.New("api").WithLevel(logger.ParseLevel(cfg.LogLevel))
	log.Info("", "Starting GenAI API server", map[string]interface{}{"version": Version})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := NewClient(ctx, cfg, WithLogger(log.Named("client")))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	handler, err := NewRouter(client, cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("", "GenAI API server listening", map[string]interface{}{
			"addr":      cfg.Addr(),
			"providers": client.AvailableProviders(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("", "Shutting down GenAI API server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
