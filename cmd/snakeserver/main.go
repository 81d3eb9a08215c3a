// Command snakeserver serves the browser front-end, the JSON API and
// WebSocket play sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/logging"
	"github.com/brensch/gridsnake/store"
	"github.com/brensch/gridsnake/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, warnings, err := config.Load(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	logOut := os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	for _, w := range warnings {
		logger.Warn("config adjusted", "detail", w)
	}

	var kv store.KV
	if cfg.DBPath == "" {
		kv = store.NewMemory()
	} else {
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open store", "path", cfg.DBPath, "err", err)
			os.Exit(1)
		}
		keys, err := db.Keys()
		if err != nil {
			logger.Warn("store keys unreadable", "path", cfg.DBPath, "err", err)
		}
		logger.Info("store opened", "path", cfg.DBPath, "keys", keys)
		kv = db
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Warn("store close failed", "err", err)
		}
	}()

	srv := web.NewServer(web.Config{
		StaticDir:    cfg.StaticDir,
		CanvasWidth:  cfg.CanvasWidth,
		CanvasHeight: cfg.CanvasHeight,
		ReplayDir:    cfg.ReplayDir,
		Record:       cfg.Record,
		WriteTimeout: cfg.WriteTimeout,
		Seed:         cfg.Seed,
	}, kv, logger)

	// Hijacked WebSocket connections ignore Shutdown, so play sessions hang
	// off a base context that is cancelled first.
	baseCtx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	logger.Info("server running",
		"url", "http://"+cfg.Listen,
		"static", cfg.StaticDir,
		"db", cfg.DBPath,
		"replays", cfg.ReplayDir,
		"record", cfg.Record,
	)

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String(), "sessions", srv.ActiveSessions())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
		}
		return
	}

	cancelSessions()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown incomplete", "err", err)
	}
	logger.Info("server stopped")
}
