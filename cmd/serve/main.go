// Command serve runs the Parmira forensic console over HTTP.
//
// Configuration is via environment variables (a .env file is loaded if present):
//
//	FORENSIC_PORT             - Server port (default: 8000)
//	FORENSIC_LOG_LEVEL        - debug, info, warn, or error (default: info)
//	FORENSIC_AUDIT_PROVIDER   - google, vertex, anthropic, or mcp (default: google)
//	FORENSIC_IMAGE_PROVIDER   - google, vertex, openai, or none (default: google)
//	FORENSIC_AUDIT_MODEL      - Audit model override (optional)
//	FORENSIC_IMAGE_MODEL      - Image model override (optional)
//	FORENSIC_MCP_COMMAND      - Forensic MCP server command line (mcp provider)
//	VERTEX_PROJECT            - Google Cloud project (vertex provider)
//	VERTEX_LOCATION           - Google Cloud region (vertex provider)
//	FORENSIC_THINKING_BUDGET  - Reasoning token budget (default: 24000)
//	FORENSIC_ASPECT_RATIO     - Evidence image aspect ratio (default: 16:9)
//	FORENSIC_MAX_ATTEMPTS     - Provider attempts per call, retrying transient failures (default: 1)
//	GOOGLE_API_KEY            - Google API key (API_KEY is accepted too)
//	ANTHROPIC_API_KEY         - Anthropic API key
//	OPENAI_API_KEY            - OpenAI API key
//
// Usage:
//
//	GOOGLE_API_KEY=... go run ./cmd/serve
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/parmira/forensic/client"
	"github.com/parmira/forensic/dashboard"
	"github.com/parmira/forensic/internal/config"
	"github.com/parmira/forensic/internal/metrics"
	"github.com/parmira/forensic/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clientEvents := make(chan client.Event, 64)
	gw, err := client.New(ctx, cfg.Client(clientEvents))
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	sess := session.New(gw, session.WithLogger(logger))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	sessionEvents, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	go m.Consume(ctx, clientEvents, sessionEvents)

	handler := dashboard.NewHandler(sess,
		dashboard.WithLogger(logger),
		dashboard.WithMetrics(metrics.Handler(reg)),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("forensic console starting",
		"addr", "http://localhost:"+cfg.Port,
		"audit_provider", cfg.AuditProvider,
		"image_provider", cfg.ImageProvider,
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	if err := gw.Close(); err != nil {
		logger.Error("failed to close providers", "error", err)
	}
	logger.Info("server stopped")
}
