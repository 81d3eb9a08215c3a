// Package web serves the browser front-end: static assets with SPA
// fallback, a small JSON API over the local store, and WebSocket play
// sessions that run the engine server-side.
package web

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/gridsnake/replay"
	"github.com/brensch/gridsnake/store"
)

// Config holds the server options that do not come from the store.
type Config struct {
	StaticDir    string
	CanvasWidth  int
	CanvasHeight int
	// ReplayDir enables /api/games. Record additionally archives every
	// WebSocket game into it.
	ReplayDir    string
	Record       bool
	WriteTimeout time.Duration
	// Seed makes food placement reproducible; 0 seeds from the clock.
	Seed int64
}

// Server owns the shared store handles. Each WebSocket session gets its own
// engine on top of them.
type Server struct {
	cfg    Config
	kv     store.KV
	best   *store.BestScores
	board  *store.Leaderboard
	index  *replay.Index
	logger *slog.Logger

	upgrader websocket.Upgrader
	sessions atomic.Int64
	mux      *http.ServeMux
}

// NewServer wires the routes. kv must stay open for the server's lifetime.
func NewServer(cfg Config, kv store.KV, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		kv:     kv,
		best:   store.NewBestScores(kv, logger),
		board:  store.NewLeaderboard(kv, store.WithLeaderboardLogger(logger)),
		logger: logger.With("component", "web"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if cfg.ReplayDir != "" {
		s.index = replay.NewIndex(cfg.ReplayDir)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/settings", api([]string{http.MethodGet, http.MethodPut}, s.handleSettings))
	mux.HandleFunc("/api/best", api([]string{http.MethodGet}, s.handleBest))
	mux.HandleFunc("/api/leaderboard", api([]string{http.MethodGet, http.MethodPost}, s.handleLeaderboard))
	mux.HandleFunc("/api/regions", api([]string{http.MethodGet}, s.handleRegions))
	mux.HandleFunc("/api/preview", api([]string{http.MethodGet}, s.handlePreview))
	mux.HandleFunc("/api/games", api([]string{http.MethodGet}, s.handleGames))
	mux.HandleFunc("/ws/play", s.handlePlay)
	mux.Handle("/", &staticHandler{
		root:     cfg.StaticDir,
		settings: func() store.Settings { return store.LoadSettings(s.kv, s.logger) },
		logger:   s.logger,
	})
	s.mux = mux
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ActiveSessions is the number of open play sockets.
func (s *Server) ActiveSessions() int64 {
	return s.sessions.Load()
}

func (s *Server) newRand() *rand.Rand {
	if s.cfg.Seed == 0 {
		return nil
	}
	return rand.New(rand.NewSource(s.cfg.Seed))
}
