package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// BestScores persists the all-time best score as a single integer.
// It implements game.BestScoreStore.
type BestScores struct {
	kv     KV
	logger *slog.Logger
	mu     sync.Mutex
}

func NewBestScores(kv KV, logger *slog.Logger) *BestScores {
	if logger == nil {
		logger = slog.Default()
	}
	return &BestScores{kv: kv, logger: logger}
}

// BestScore returns the stored value, or 0 when it is missing or unreadable.
func (b *BestScores) BestScore() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

func (b *BestScores) load() int {
	raw, err := b.kv.Get(BestScoreKey)
	if errors.Is(err, ErrNotFound) {
		return 0
	}
	if err != nil {
		b.logger.Warn("best score unreadable", "err", err)
		return 0
	}

	// Older stores wrote the bare number as a string.
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		b.logger.Warn("best score corrupt", "raw", string(raw))
		return 0
	}
	return n
}

// SaveBestScore stores score if it beats the stored value. Lower scores are
// ignored without error.
func (b *BestScores) SaveBestScore(score int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if score <= b.load() {
		return nil
	}
	raw, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encode best score: %w", err)
	}
	if err := b.kv.Put(BestScoreKey, raw); err != nil {
		return fmt.Errorf("save best score: %w", err)
	}
	return nil
}
