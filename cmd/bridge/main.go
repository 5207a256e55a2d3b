// Package main is the entry point for the chatbridge HTTP service. It wires
// all dependencies together and starts the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/config"
	"github.com/muturi/chatbridge/internal/dispatch"
	"github.com/muturi/chatbridge/internal/engine"
	"github.com/muturi/chatbridge/internal/extractor"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/internal/progress"
	"github.com/muturi/chatbridge/internal/session"
	"github.com/muturi/chatbridge/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "chatbridge", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// The engine connection is shared and dialed lazily; the bridge starts
	// even when the engine is down and recovers when it comes back.
	provider := engine.NewProvider(cfg.Temporal, logger, metrics)
	defer provider.Close()

	var classifier extractor.Classifier
	if cfg.Classifier.Enabled {
		classifier = extractor.NewHTTPClassifier(cfg.Classifier)
	} else {
		logger.Warn("classifier disabled, all messages treated as non-events")
	}
	ext := extractor.New(classifier, logger)
	ext.Prescreen = cfg.Classifier.KeywordPrescreen

	dispatcher := dispatch.New(provider, logger)
	progressSvc := progress.NewService(provider, logger)
	inspector := progress.NewInspector(provider, logger)

	sessions := session.NewOrchestrator(provider, cfg.Session, logger, metrics)
	sessions.Start(ctx)
	defer sessions.Close()

	limiter := session.NewLimiter(sessions, cfg.Session.GuestDailyLimit, logger, metrics)

	auth := transport.NewAuthenticator(cfg.Auth, logger)

	router := transport.NewRouter(transport.Dependencies{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Auth:       auth,
		Progress:   progressSvc,
		Inspector:  inspector,
		Extractor:  ext,
		Dispatcher: dispatcher,
		Sessions:   sessions,
		Limiter:    limiter,
		Ready: observability.HandleReady(observability.ReadinessChecks{
			Engine: provider,
		}),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Flush queued session signals before the engine connection closes.
	sessions.Close()

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}
