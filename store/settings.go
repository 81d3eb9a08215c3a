package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brensch/gridsnake/game"
)

// Languages the front-ends ship strings for.
var Languages = []string{"vi", "en", "zh", "ru", "fr", "ja", "es", "de", "pt"}

// Themes the front-ends know how to draw.
var Themes = []string{"dark", "light", "gaming", "hacker"}

// Settings is the persisted player configuration. Field names match the
// stored JSON record.
type Settings struct {
	Lang       string `json:"lang"`
	Theme      string `json:"theme"`
	Difficulty string `json:"difficulty"`
	Map        string `json:"map"`
	GridSize   int    `json:"gridSize"`
	BaseSpeed  int    `json:"baseSpeed"`
}

// DefaultSettings is what a fresh install plays with.
func DefaultSettings() Settings {
	return Settings{
		Lang:       "en",
		Theme:      "dark",
		Difficulty: game.Easy.String(),
		Map:        game.Classic.String(),
		GridSize:   game.DefaultCellSize,
		BaseSpeed:  game.DefaultBaseInterval,
	}
}

// Normalize replaces every invalid field with its default and canonicalizes
// the difficulty and map names.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if !contains(Languages, s.Lang) {
		s.Lang = def.Lang
	}
	if !contains(Themes, s.Theme) {
		s.Theme = def.Theme
	}
	if d, ok := game.ParseDifficulty(s.Difficulty); ok {
		s.Difficulty = d.String()
	} else {
		s.Difficulty = def.Difficulty
	}
	if m, ok := game.ParseMapType(s.Map); ok {
		s.Map = m.String()
	} else {
		s.Map = def.Map
	}
	if s.GridSize <= 0 {
		s.GridSize = def.GridSize
	}
	if s.BaseSpeed <= 0 {
		s.BaseSpeed = def.BaseSpeed
	}
	return s
}

// GameDifficulty parses Difficulty, defaulting to Easy.
func (s Settings) GameDifficulty() game.Difficulty {
	d, _ := game.ParseDifficulty(s.Difficulty)
	return d
}

// GameMap parses Map, defaulting to Classic.
func (s Settings) GameMap() game.MapType {
	m, _ := game.ParseMapType(s.Map)
	return m
}

// LoadSettings reads the settings record. A missing, unreadable or corrupt
// record yields defaults; partially valid records keep their valid fields.
func LoadSettings(kv KV, logger *slog.Logger) Settings {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := kv.Get(SettingsKey)
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings()
	}
	if err != nil {
		logger.Warn("settings unreadable, using defaults", "err", err)
		return DefaultSettings()
	}

	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		logger.Warn("settings corrupt, using defaults", "err", err)
		return DefaultSettings()
	}
	return s.Normalize()
}

// SaveSettings normalizes and writes the record, returning what was stored.
func SaveSettings(kv KV, s Settings) (Settings, error) {
	s = s.Normalize()
	raw, err := json.Marshal(s)
	if err != nil {
		return s, fmt.Errorf("encode settings: %w", err)
	}
	if err := kv.Put(SettingsKey, raw); err != nil {
		return s, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}

func contains(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
