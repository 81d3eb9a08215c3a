// Command snake plays the game in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-multierror"

	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/logging"
	"github.com/brensch/gridsnake/replay"
	"github.com/brensch/gridsnake/store"
	"github.com/brensch/gridsnake/tui"
)

func main() {
	cfg, warnings, err := config.Load(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	// The terminal belongs to bubbletea, so logs always go to a file.
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = "snake.log"
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logFile, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	for _, w := range warnings {
		logger.Warn("config adjusted", "detail", w)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("snake exited with error", "err", err)
		fmt.Fprintf(os.Stderr, "snake: %v\n", err)
		logFile.Close()
		os.Exit(1)
	}
	logFile.Close()
}

func run(cfg config.Config, logger *slog.Logger) (err error) {
	kv, err := openKV(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := kv.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	settings := store.LoadSettings(kv, logger)
	best := store.NewBestScores(kv, logger)
	board := store.NewLeaderboard(kv, store.WithLeaderboardLogger(logger))

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	nextConfig := func() engine.Config {
		return config.EngineConfig(store.LoadSettings(kv, logger), cfg.CanvasWidth, cfg.CanvasHeight)
	}
	e := engine.New(config.EngineConfig(settings, cfg.CanvasWidth, cfg.CanvasHeight),
		engine.WithRand(rng),
		engine.WithLogger(logger),
		engine.WithBestScores(best),
	)

	var rec *replay.Recorder
	if cfg.Record {
		rec, err = replay.NewRecorder(cfg.ReplayDir, logger)
		if err != nil {
			logger.Warn("recording disabled", "dir", cfg.ReplayDir, "err", err)
			rec = nil
		}
	}

	updates := make(chan engine.Snapshot, 64)
	forward := engine.DropOldest(updates)
	loop := engine.NewLoop(e, func(snap engine.Snapshot) {
		if rec != nil {
			if err := rec.Observe(snap); err != nil {
				logger.Warn("record snapshot failed", "tick", snap.Tick, "err", err)
			}
		}
		forward(snap)
	}, engine.WithLoopLogger(logger), engine.WithNextConfig(nextConfig))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go loop.Run(ctx)

	logger.Info("snake starting",
		"grid", fmt.Sprintf("%dx%d", e.Snapshot().Columns, e.Snapshot().Rows),
		"difficulty", settings.Difficulty,
		"map", settings.Map,
		"db", cfg.DBPath,
		"record", rec != nil,
	)

	p := tea.NewProgram(tui.New(tui.Config{
		Loop:        loop,
		Updates:     updates,
		Leaderboard: board,
		Best:        best,
		Region:      cfg.Region,
		Theme:       settings.Theme,
		Logger:      logger,
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	_, runErr := p.Run()
	stop()
	<-loop.Done()

	var errs *multierror.Error
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		errs = multierror.Append(errs, runErr)
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	logger.Info("snake stopped", "best", best.BestScore())
	return errs.ErrorOrNil()
}

func openKV(path string) (store.KV, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return db, nil
}
