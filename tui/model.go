// Package tui is the terminal front-end: it renders engine snapshots with
// lipgloss and turns key presses into engine commands.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/store"
)

const flashDuration = 2 * time.Second

// SnapshotMsg carries a snapshot published by the engine loop.
type SnapshotMsg engine.Snapshot

type flashExpiredMsg struct{ seq int }

// Config wires the model to a running engine loop and the store.
type Config struct {
	Loop        *engine.Loop
	Updates     <-chan engine.Snapshot
	Leaderboard *store.Leaderboard
	Best        game.BestScoreStore
	Region      string
	Theme       string
	Logger      *slog.Logger
}

// Model is the bubbletea model. All game state lives in the engine; the
// model only keeps the latest snapshot and UI toggles.
type Model struct {
	loop    *engine.Loop
	updates <-chan engine.Snapshot
	board   *store.Leaderboard
	best    game.BestScoreStore
	logger  *slog.Logger

	snap      engine.Snapshot
	region    int
	showBoard bool
	entries   []store.Ranked
	flash     string
	flashSeq  int
	styles    styles
}

func New(cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := Model{
		loop:    cfg.Loop,
		updates: cfg.Updates,
		board:   cfg.Leaderboard,
		best:    cfg.Best,
		logger:  cfg.Logger.With("component", "tui"),
		styles:  newStyles(cfg.Theme),
	}
	if code, err := store.NormalizeRegion(cfg.Region); err == nil {
		m.region = regionIndex(code)
	}
	if cfg.Loop != nil {
		m.snap = cfg.Loop.Engine().Snapshot()
	}
	return m
}

func regionIndex(code string) int {
	for i, r := range store.Regions {
		if r == code {
			return i
		}
	}
	return 0
}

// Region is the currently selected leaderboard region.
func (m Model) Region() string {
	return store.Regions[m.region]
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(updates <-chan engine.Snapshot) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return SnapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		m.snap = engine.Snapshot(msg)
		return m, waitForUpdate(m.updates)

	case flashExpiredMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "w":
		m.send(engine.Turn(game.Up))
	case "down", "s":
		m.send(engine.Turn(game.Down))
	case "left", "a":
		m.send(engine.Turn(game.Left))
	case "right", "d":
		m.send(engine.Turn(game.Right))
	case " ", "space", "p":
		if m.snap.Status == engine.Idle {
			m.send(engine.Start())
		} else {
			m.send(engine.TogglePause())
		}
	case "r":
		m.send(engine.Restart())
	case "tab":
		m.region = (m.region + 1) % len(store.Regions)
	case "shift+tab":
		m.region = (m.region + len(store.Regions) - 1) % len(store.Regions)
	case "l":
		m.showBoard = !m.showBoard
		if m.showBoard {
			m.refreshBoard()
		}
	case "enter":
		return m.submit()
	}
	return m, nil
}

func (m *Model) send(cmd engine.Command) {
	if m.loop == nil {
		return
	}
	m.loop.Send(cmd)
}

func (m *Model) refreshBoard() {
	if m.board != nil {
		m.entries = m.board.List()
	}
}

// submit posts the stored best score for the selected region.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.board == nil || m.best == nil {
		return m.setFlash("leaderboard unavailable")
	}
	region := m.Region()
	score := m.best.BestScore()
	accepted, err := m.board.Submit(region, score)
	switch {
	case errors.Is(err, store.ErrInvalidRegion):
		return m.setFlash("invalid region " + region)
	case err != nil:
		m.logger.Warn("leaderboard submit failed", "region", region, "err", err)
		return m.setFlash("submit failed")
	}
	m.logger.Info("leaderboard submit", "region", region, "score", score, "accepted", accepted)
	if m.showBoard {
		m.refreshBoard()
	}
	if !accepted {
		entry, _ := m.board.Get(region)
		return m.setFlash(fmt.Sprintf("%s keeps %d", region, entry.Score))
	}
	return m.setFlash(fmt.Sprintf("submitted %d for %s", score, region))
}

func (m Model) setFlash(text string) (tea.Model, tea.Cmd) {
	m.flashSeq++
	m.flash = text
	seq := m.flashSeq
	return m, tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{seq: seq}
	})
}
