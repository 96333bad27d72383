// Command server runs the optimization calculator API server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/d-led/iiwsit/internal/server"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 1 << 20 // 1MB
)

// Build variables - set by ldflags.
var (
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create root context
	ctx := context.Background()

	// Environment first, so flags can override it.
	cfg, err := loadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}

	// Parse flags
	var (
		port        = flag.String("port", cfg.Port, "Port to run the server on")
		version     = flag.Bool("version", false, "Print version and exit")
		corsOrigins = flag.String("cors-origins", cfg.CORSOrigins,
			"Comma-separated list of allowed CORS origins (supports *.domain.com wildcards)")
		allowAllCors     = flag.Bool("allow-all-cors", cfg.AllowAllCORS, "Allow all CORS origins (use only for development)")
		rateLimit        = flag.Int("rate-limit", cfg.RateLimit, "Requests per second rate limit")
		rateBurst        = flag.Int("rate-burst", cfg.RateBurst, "Rate limit burst size")
		batchConcurrency = flag.Int("batch-concurrency", cfg.BatchConcurrency, "Scenarios evaluated in parallel per batch request")
		logLevelName     = flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	level, err := logLevel(*logLevelName)
	if err != nil {
		slog.ErrorContext(ctx, "invalid log level", "error", err)
		os.Exit(1)
	}

	// Set up logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
	slog.SetDefault(logger)

	if *version {
		logger.InfoContext(ctx, "iiwsit-server version",
			"commit", GitCommit,
			"branch", GitBranch,
			"built", BuildTime,
			"go", runtime.Version())
		os.Exit(0)
	}

	// Log startup information
	logger.InfoContext(ctx, "starting server",
		"commit", GitCommit,
		"branch", GitBranch,
		"built", BuildTime,
		"go", runtime.Version(),
		"pid", os.Getpid())

	// Create server
	calcServer := server.New()
	calcServer.SetCommit(GitCommit)
	calcServer.SetCORSConfig(*corsOrigins, *allowAllCors)
	calcServer.SetRateLimit(*rateLimit, *rateBurst)
	calcServer.SetBatchConcurrency(*batchConcurrency)

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           calcServer,
		ReadTimeout:       readHeaderTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "server listening", "port", *port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "server error", "error", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.InfoContext(ctx, "received signal", "signal", sig)
		logger.InfoContext(ctx, "starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)

		calcServer.Shutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			cancel()
			logger.WarnContext(ctx, "graceful shutdown failed", "error", err)
			// Force close
			if err := srv.Close(); err != nil {
				logger.ErrorContext(ctx, "server close error", "error", err)
				os.Exit(1)
			}
		} else {
			cancel()
		}
	}

	logger.InfoContext(ctx, "server stopped")
}
