package engine

import (
	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

// Snapshot is a read-only view of one moment of a game. Slices are copies;
// mutating them does not affect the engine.
type Snapshot struct {
	GameID     string       `json:"game_id"`
	Status     Status       `json:"status"`
	Tick       int          `json:"tick"`
	Columns    int          `json:"columns"`
	Rows       int          `json:"rows"`
	Snake      []game.Point `json:"snake"`
	Direction  string       `json:"direction"`
	Food       *game.Food   `json:"food,omitempty"`
	Obstacles  []game.Point `json:"obstacles"`
	Score      int          `json:"score"`
	Best       int          `json:"best"`
	IntervalMs int          `json:"interval_ms"`
	Difficulty string       `json:"difficulty"`
	Map        string       `json:"map"`
	// Cause is wall, obstacle or self once the game is over.
	Cause string `json:"cause,omitempty"`
	// Degraded marks food placed by the spawn fallback; it may overlap
	// the snake or a wall.
	Degraded bool `json:"degraded,omitempty"`
}

// Over reports whether the snapshot is the last one of its game.
func (s Snapshot) Over() bool {
	return s.Status == GameOver
}

func (e *Engine) snapshotLocked() Snapshot {
	cfg := e.active
	if e.state == nil {
		cfg = e.next
	}
	snap := Snapshot{
		GameID:     e.gameID,
		Status:     e.status,
		Difficulty: cfg.Difficulty.String(),
		Map:        cfg.MapType.String(),
		IntervalMs: int(e.intervalLocked().Milliseconds()),
		Best:       e.storedBest,
	}

	if e.state == nil {
		g := cfg.Grid()
		snap.Columns, snap.Rows = g.Columns, g.Rows
		return snap
	}

	s := e.state
	snap.Tick = s.Tick
	snap.Columns, snap.Rows = s.Grid.Columns, s.Grid.Rows
	snap.Snake = append([]game.Point(nil), s.Snake...)
	snap.Direction = s.Direction.String()
	snap.Obstacles = s.Obstacles.Cells()
	food := s.Food
	snap.Food = &food
	snap.Score = e.tracker.Score()
	snap.Best = e.tracker.Best()
	snap.Degraded = e.degraded
	if e.status == GameOver && e.cause != rules.Moved {
		snap.Cause = e.cause.String()
	}
	return snap
}
