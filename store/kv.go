// Package store persists settings, the best score and the per-region
// leaderboard in a local key-value store. Values are JSON text.
package store

import (
	"errors"
	"sync"
)

// Keys used by the game. They match what earlier releases wrote, so existing
// stores keep working.
const (
	SettingsKey    = "snake_settings_v1"
	BestScoreKey   = "snake_highscore"
	LeaderboardKey = "snake_lb_v1"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

// KV is a flat key-value store. Each Put replaces the whole value.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

// Memory is an in-process KV, used by tests and when no database is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error { return nil }
