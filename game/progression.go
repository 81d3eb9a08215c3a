package game

import (
	"log/slog"
	"math"
)

// Interval bounds and the speed-up schedule, in milliseconds.
const (
	DefaultBaseInterval = 110
	MinInterval         = 50
	SpeedUpFloor        = 60
	SpeedUpStep         = 5
	SpeedUpEvery        = 5
)

// StartInterval applies the difficulty multiplier to a base interval. A
// non-positive base falls back to DefaultBaseInterval.
func StartInterval(base int, d Difficulty) int {
	if base <= 0 {
		base = DefaultBaseInterval
	}
	iv := int(math.Round(float64(base) * d.SpeedMultiplier()))
	if iv < MinInterval {
		iv = MinInterval
	}
	return iv
}

// BestScoreStore persists the all-time best score.
type BestScoreStore interface {
	BestScore() int
	SaveBestScore(score int) error
}

// Tracker keeps the running score of one game and the tick interval it
// implies. The best score lives in the store and only ever increases.
type Tracker struct {
	score    int
	interval int
	best     int
	store    BestScoreStore
	logger   *slog.Logger
}

// NewTracker starts a game at score 0. store may be nil.
func NewTracker(base int, d Difficulty, store BestScoreStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		interval: StartInterval(base, d),
		store:    store,
		logger:   logger,
	}
	if store != nil {
		t.best = store.BestScore()
	}
	return t
}

func (t *Tracker) Score() int    { return t.score }
func (t *Tracker) Interval() int { return t.interval }
func (t *Tracker) Best() int     { return t.best }

// ApplyReward adds the tier's points and returns true when the interval was
// shortened and the ticker must be re-armed.
//
// Every time the score lands on a multiple of SpeedUpEvery while the interval
// is still above SpeedUpFloor, the interval drops by SpeedUpStep. A gold item
// can jump over a multiple, in which case no speed-up happens.
func (t *Tracker) ApplyReward(tier Tier) bool {
	t.score += tier.Points()

	if t.score > t.best {
		t.best = t.score
		if t.store != nil {
			if err := t.store.SaveBestScore(t.score); err != nil {
				t.logger.Warn("best score not persisted", "score", t.score, "err", err)
			}
		}
	}

	if t.score%SpeedUpEvery == 0 && t.interval > SpeedUpFloor {
		t.interval -= SpeedUpStep
		return true
	}
	return false
}
