// Command millserver is the realtime image batch processing server. It
// accepts persistent websocket connections, runs batches of image
// transformations across a pool of workers, and streams progress, log, and
// resource-telemetry events to every connected client.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/morenoc/imagemill/internal/hub"
	"github.com/morenoc/imagemill/internal/imageproc"
	"github.com/morenoc/imagemill/internal/orchestrator"
	"github.com/morenoc/imagemill/internal/sysmon"
	"github.com/morenoc/imagemill/internal/tlsconfig"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(1)
	}
}

func runServer(cfg *serverConfig) error {
	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(
		os.Stderr,
		&slog.HandlerOptions{Level: level},
	))

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		os.Interrupt,
	)
	defer cancel()

	connections := hub.New(logger.With("component", "hub"))

	var processor imageproc.Processor = imageproc.Imaging{}
	if cfg.stub {
		processor = imageproc.Stub{Delay: 500 * time.Millisecond}
		logger.Warn("image processing disabled, using stub processor")
	}

	telemetry := sysmon.Available()

	orch := orchestrator.New(orchestrator.Config{
		InputDir:    cfg.inputDir,
		OutputDir:   cfg.outputDir,
		Processor:   processor,
		Broadcaster: connections,
		Logger:      logger.With("component", "orchestrator"),
		Imaging:     !cfg.stub,
		Telemetry:   telemetry,
	})

	if telemetry {
		sampler := sysmon.New(
			connections,
			logger.With("component", "sysmon"),
			cfg.interval,
		)
		go sampler.Run(ctx)
	} else {
		logger.Warn("system telemetry unavailable, cpu_stats events disabled")
	}

	srv := newServer(connections, orch, logger)

	addr := net.JoinHostPort(cfg.host, strconv.Itoa(int(cfg.port)))

	// Failing to bind the endpoint is the only fatal error in the system.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	httpServer := &http.Server{Handler: srv.handler()}

	secure := cfg.tlsCertPath != "" && cfg.tlsKeyPath != ""
	if secure {
		httpServer.TLSConfig, err = tlsconfig.Setup(&tlsconfig.Config{
			CertPath: cfg.tlsCertPath,
			KeyPath:  cfg.tlsKeyPath,
		})
		if err != nil {
			return fmt.Errorf("setup TLS: %w", err)
		}
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer shutdownCancel()

		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info(
		"listening",
		"addr", addr,
		"secure", secure,
		"input", cfg.inputDir,
		"output", cfg.outputDir,
	)

	if secure {
		err = httpServer.ServeTLS(listener, "", "")
	} else {
		err = httpServer.Serve(listener)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
