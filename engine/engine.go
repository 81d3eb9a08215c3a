// Package engine runs one snake game at a time: it owns the simulation
// state, applies commands and ticks, and hands out immutable snapshots.
package engine

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

// Status is the engine state machine position.
type Status int

const (
	Idle Status = iota
	Running
	Paused
	GameOver
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case GameOver:
		return "game_over"
	default:
		return "idle"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config is what a game is started with. It is captured at Start; changing
// it later only affects the next game.
type Config struct {
	Difficulty   game.Difficulty
	MapType      game.MapType
	CellSize     int
	BaseSpeed    int // milliseconds
	CanvasWidth  int
	CanvasHeight int
}

// Grid derives the board size.
func (c Config) Grid() game.Grid {
	return game.NewGrid(c.CanvasWidth, c.CanvasHeight, c.CellSize)
}

// Preview returns the board and walls a game with cfg would start on,
// without starting it.
func Preview(cfg Config) (game.Grid, game.Obstacles) {
	g := cfg.Grid()
	return g, game.BuildMap(cfg.Difficulty, cfg.MapType, g)
}

// TickResult describes one call to Tick.
type TickResult struct {
	Snapshot Snapshot
	// Advanced is false when the engine was not running.
	Advanced bool
	Outcome  rules.Outcome
	// Rearm is set when the tick interval changed and the ticker driving
	// the engine must be replaced before the next tick.
	Rearm bool
}

// Engine is safe for concurrent use; every method is one atomic transition.
type Engine struct {
	mu sync.Mutex

	next   Config
	active Config

	status   Status
	state    *game.State
	pending  game.Direction
	tracker  *game.Tracker
	spawner  *game.Spawner
	gameID   string
	cause    rules.Outcome
	degraded bool

	best       game.BestScoreStore
	storedBest int
	rng        *rand.Rand
	logger     *slog.Logger
	newID      func() string
}

type Option func(*Engine)

// WithRand makes food placement reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBestScores persists the best score across games. The store is read
// when the engine is built and at each Start, never per tick.
func WithBestScores(best game.BestScoreStore) Option {
	return func(e *Engine) { e.best = best }
}

// WithIDs overrides game id generation.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New returns an idle engine that will start its first game with cfg.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		next:   cfg,
		logger: slog.Default(),
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = e.logger.With("component", "engine")
	e.spawner = game.NewSpawner(e.rng, e.logger)
	if e.best != nil {
		e.storedBest = e.best.BestScore()
	}
	return e
}

// Configure sets the config used by the next Start.
func (e *Engine) Configure(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next = cfg
}

// Start begins a fresh game from any state.
func (e *Engine) Start() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.next
	g := cfg.Grid()
	e.active = cfg
	e.state = &game.State{
		Grid:      g,
		Snake:     rules.SpawnSnake(g),
		Direction: game.Right,
		Obstacles: game.BuildMap(cfg.Difficulty, cfg.MapType, g),
	}
	e.pending = game.Right
	e.tracker = game.NewTracker(cfg.BaseSpeed, cfg.Difficulty, e.best, e.logger)
	e.cause = rules.Moved
	e.gameID = e.newID()
	e.status = Running

	food, ok := e.spawner.Spawn(e.state.Snake, e.state.Obstacles, cfg.Difficulty, cfg.MapType, g)
	e.state.Food = food
	e.degraded = !ok

	e.logger.Info("game started",
		"game_id", e.gameID,
		"difficulty", cfg.Difficulty.String(),
		"map", cfg.MapType.String(),
		"columns", g.Columns,
		"rows", g.Rows,
		"interval_ms", e.tracker.Interval(),
	)
	return e.snapshotLocked()
}

// Turn buffers a direction for the next tick. It is checked against the
// direction applied on the last tick, so a burst of turns between two ticks
// can never add up to a reversal. The latest accepted turn wins.
func (e *Engine) Turn(d game.Direction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != Running && e.status != Paused {
		return false
	}
	if !rules.CanTurn(e.state.Direction, d) {
		return false
	}
	e.pending = d
	return true
}

// Pause stops tick processing. It reports whether the state changed.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Running {
		return false
	}
	e.status = Paused
	return true
}

// Resume continues a paused game. It reports whether the state changed.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Paused {
		return false
	}
	e.status = Running
	return true
}

// TogglePause flips between Running and Paused and returns the new status.
// Other states are left alone.
func (e *Engine) TogglePause() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.status {
	case Running:
		e.status = Paused
	case Paused:
		e.status = Running
	}
	return e.status
}

// Tick advances the game by one step when running.
func (e *Engine) Tick() TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != Running {
		return TickResult{Snapshot: e.snapshotLocked()}
	}

	next, out := rules.Step(e.state, e.pending)
	res := TickResult{Advanced: true, Outcome: out}

	if out.Fatal() {
		e.state = next
		e.status = GameOver
		e.cause = out
		e.logger.Info("game over",
			"game_id", e.gameID,
			"cause", out.String(),
			"score", e.tracker.Score(),
			"ticks", next.Tick,
			"length", len(next.Snake),
		)
		res.Snapshot = e.snapshotLocked()
		return res
	}

	if out == rules.Ate {
		res.Rearm = e.tracker.ApplyReward(e.state.Food.Tier)
		food, ok := e.spawner.Spawn(next.Snake, next.Obstacles, e.active.Difficulty, e.active.MapType, next.Grid)
		next.Food = food
		e.degraded = !ok
		if res.Rearm {
			e.logger.Debug("speed up", "game_id", e.gameID, "score", e.tracker.Score(), "interval_ms", e.tracker.Interval())
		}
	}
	e.state = next

	res.Snapshot = e.snapshotLocked()
	return res
}

// Snapshot returns the current view without changing anything.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Status returns the state machine position.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Interval is the current tick period. Before the first game it is the
// interval the next game would start with.
func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.intervalLocked()
}

func (e *Engine) intervalLocked() time.Duration {
	ms := game.StartInterval(e.next.BaseSpeed, e.next.Difficulty)
	if e.tracker != nil {
		ms = e.tracker.Interval()
	}
	return time.Duration(ms) * time.Millisecond
}
