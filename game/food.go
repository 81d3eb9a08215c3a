// food.go implements food placement and reward tiers.

package game

import (
	"log/slog"
	"math/rand"
	"time"
)

const (
	// MaxSpawnAttempts bounds the rejection sampling in Spawn.
	MaxSpawnAttempts = 10000
	// GoldChance is the probability of a gold item when gold is allowed.
	GoldChance = 0.2
)

// Spawner places food with uniform rejection sampling.
//
// The rng is owned by the spawner; callers that need reproducible games pass
// a seeded source. A Spawner is not safe for concurrent use.
type Spawner struct {
	rng    *rand.Rand
	logger *slog.Logger
}

// NewSpawner returns a spawner drawing from rng. A nil rng is seeded from the
// clock and a nil logger uses slog.Default.
func NewSpawner(rng *rand.Rand, logger *slog.Logger) *Spawner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{rng: rng, logger: logger}
}

// Spawn picks a cell inside SpawnRegion that is neither snake nor wall.
//
// After MaxSpawnAttempts misses it gives up and returns the last sampled cell
// with ok=false. That cell may overlap the snake or a wall; the game carries
// on with it rather than stalling on a saturated board.
func (s *Spawner) Spawn(snake []Point, obstacles Obstacles, d Difficulty, m MapType, g Grid) (food Food, ok bool) {
	region := SpawnRegion(d, m, g)
	if region.Empty() {
		s.logger.Warn("food spawn skipped: empty board", "columns", g.Columns, "rows", g.Rows)
		return Food{}, false
	}

	occupied := make(map[Point]struct{}, len(snake))
	for _, p := range snake {
		occupied[p] = struct{}{}
	}

	width := region.MaxX - region.MinX + 1
	height := region.MaxY - region.MinY + 1

	var cell Point
	for attempt := 0; attempt < MaxSpawnAttempts; attempt++ {
		cell = Point{
			X: region.MinX + s.rng.Intn(width),
			Y: region.MinY + s.rng.Intn(height),
		}
		if _, hit := occupied[cell]; hit {
			continue
		}
		if obstacles.Has(cell) {
			continue
		}
		return Food{Cell: cell, Tier: s.tier(d)}, true
	}

	s.logger.Warn("food spawn degraded: retry ceiling reached",
		"attempts", MaxSpawnAttempts,
		"cell", cell.String(),
		"snake_len", len(snake),
		"obstacles", obstacles.Len(),
	)
	return Food{Cell: cell, Tier: s.tier(d)}, false
}

func (s *Spawner) tier(d Difficulty) Tier {
	if d == Easy {
		return Normal
	}
	if s.rng.Float64() < GoldChance {
		return Gold
	}
	return Normal
}
