// Command enginesvc hosts the rhythm engine's HTTP API: the chart
// library (internal/storage, internal/scanner) and session control
// (internal/httpapi) for an external renderer/HUD process. Adapted from
// the teacher's cmd/engine/main.go: same config/logger/db bootstrap and
// signal-driven graceful shutdown, with the gRPC server replaced by the
// stdlib net/http server that was already the teacher's own secondary
// interface (see DESIGN.md for why the gRPC surface was dropped).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cartomix/rhythmengine/internal/config"
	"github.com/cartomix/rhythmengine/internal/httpapi"
	"github.com/cartomix/rhythmengine/internal/storage"
	"github.com/cartomix/rhythmengine/internal/worker"
)

func main() {
	cfg := config.Parse()

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	apiServer := httpapi.NewServer(cfg, logger, db)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpServer := &http.Server{Addr: addr, Handler: apiServer.Handler()}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go worker.Run(workerCtx, db, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		stopWorker()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("starting enginesvc", "http_port", cfg.HTTPPort, "data_dir", cfg.DataDir)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
