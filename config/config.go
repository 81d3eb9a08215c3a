// Package config holds process-level runtime options shared by the binaries.
// Player-facing game settings live in the store package instead.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/store"
)

// Config is read from flags, with environment variables as defaults.
type Config struct {
	DBPath       string
	ReplayDir    string
	Record       bool
	CanvasWidth  int
	CanvasHeight int
	LogLevel     string
	LogFormat    string
	LogFile      string
	Listen       string
	StaticDir    string
	Region       string
	Seed         int64
	WriteTimeout time.Duration
}

const (
	DefaultCanvasWidth  = 600
	DefaultCanvasHeight = 480
)

// Load parses args (without the program name). Out-of-range values are
// replaced by defaults and reported through the returned warnings.
func Load(name string, args []string, output io.Writer) (Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	var c Config
	fs.StringVar(&c.DBPath, "db", getEnvOrDefault("SNAKE_DB", "snake.db"), "SQLite file for settings, best score and leaderboard (empty = in-memory)")
	fs.StringVar(&c.ReplayDir, "replay-dir", getEnvOrDefault("SNAKE_REPLAY_DIR", "replays"), "Directory for recorded game parquet files")
	fs.BoolVar(&c.Record, "record", getEnvBoolOrDefault("SNAKE_RECORD", true), "Record every game to -replay-dir")
	fs.IntVar(&c.CanvasWidth, "canvas-width", getEnvIntOrDefault("SNAKE_CANVAS_WIDTH", DefaultCanvasWidth), "Canvas width the grid is derived from")
	fs.IntVar(&c.CanvasHeight, "canvas-height", getEnvIntOrDefault("SNAKE_CANVAS_HEIGHT", DefaultCanvasHeight), "Canvas height the grid is derived from")
	fs.StringVar(&c.LogLevel, "log-level", getEnvOrDefault("SNAKE_LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", getEnvOrDefault("SNAKE_LOG_FORMAT", "pretty"), "pretty, json or text")
	fs.StringVar(&c.LogFile, "log-file", getEnvOrDefault("SNAKE_LOG_FILE", ""), "Write logs to this file instead of stderr")
	fs.StringVar(&c.Listen, "listen", defaultListen(), "HTTP listen address")
	fs.StringVar(&c.StaticDir, "static-dir", getEnvOrDefault("SNAKE_STATIC_DIR", "public"), "Directory served as the web front-end")
	fs.StringVar(&c.Region, "region", getEnvOrDefault("SNAKE_REGION", "VN"), "Leaderboard region for score submission")
	fs.Int64Var(&c.Seed, "seed", int64(getEnvIntOrDefault("SNAKE_SEED", 0)), "Random seed for food placement (0 = time based)")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", getEnvDurationOrDefault("SNAKE_WRITE_TIMEOUT", 5*time.Second), "WebSocket write deadline")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	var warnings []string
	if c.CanvasWidth <= 0 {
		warnings = append(warnings, fmt.Sprintf("canvas-width %d is not positive, using %d", c.CanvasWidth, DefaultCanvasWidth))
		c.CanvasWidth = DefaultCanvasWidth
	}
	if c.CanvasHeight <= 0 {
		warnings = append(warnings, fmt.Sprintf("canvas-height %d is not positive, using %d", c.CanvasHeight, DefaultCanvasHeight))
		c.CanvasHeight = DefaultCanvasHeight
	}
	if c.WriteTimeout <= 0 {
		warnings = append(warnings, fmt.Sprintf("write-timeout %s is not positive, using 5s", c.WriteTimeout))
		c.WriteTimeout = 5 * time.Second
	}
	return c, warnings, nil
}

// EngineConfig maps the persisted settings onto the config a game starts
// with. The canvas comes from the runtime config.
func EngineConfig(s store.Settings, canvasWidth, canvasHeight int) engine.Config {
	s = s.Normalize()
	return engine.Config{
		Difficulty:   s.GameDifficulty(),
		MapType:      s.GameMap(),
		CellSize:     s.GridSize,
		BaseSpeed:    s.BaseSpeed,
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
	}
}

// defaultListen mirrors hosting platforms that hand the port in PORT.
func defaultListen() string {
	if port := os.Getenv("PORT"); port != "" {
		return "0.0.0.0:" + port
	}
	return getEnvOrDefault("SNAKE_LISTEN", "0.0.0.0:10000")
}

// Environment variable helpers
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
