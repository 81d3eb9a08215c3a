package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/replay"
	"github.com/brensch/gridsnake/store"
)

const maxBodyBytes = 1 << 16

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, store.LoadSettings(s.kv, s.logger))
		return
	}

	// Fields missing from the body keep their current value.
	cur := store.LoadSettings(s.kv, s.logger)
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cur); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings: "+err.Error())
		return
	}
	saved, err := store.SaveSettings(s.kv, cur)
	if err != nil {
		s.logger.Error("save settings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "settings not saved")
		return
	}
	s.logger.Info("settings saved", "difficulty", saved.Difficulty, "map", saved.Map, "grid_size", saved.GridSize, "base_speed", saved.BaseSpeed)
	writeJSON(w, saved)
}

type bestResponse struct {
	Best int `json:"best"`
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, bestResponse{Best: s.best.BestScore()})
}

type leaderboardResponse struct {
	Entries []store.Ranked `json:"entries"`
}

type submitRequest struct {
	Region string `json:"region"`
	// Score defaults to the stored best score.
	Score *int `json:"score,omitempty"`
}

type submitResponse struct {
	Accepted bool   `json:"accepted"`
	Region   string `json:"region"`
	Score    int    `json:"score"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, leaderboardResponse{Entries: s.board.List()})
		return
	}

	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	score := s.best.BestScore()
	if req.Score != nil {
		score = *req.Score
	}

	accepted, err := s.board.Submit(req.Region, score)
	switch {
	case errors.Is(err, store.ErrInvalidRegion), errors.Is(err, store.ErrInvalidScore):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("leaderboard submit failed", "region", req.Region, "err", err)
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}
	region, _ := store.NormalizeRegion(req.Region)
	s.logger.Info("leaderboard submit", "region", region, "score", score, "accepted", accepted)
	writeJSON(w, submitResponse{Accepted: accepted, Region: region, Score: score})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, store.Regions)
}

type previewResponse struct {
	Columns   int          `json:"columns"`
	Rows      int          `json:"rows"`
	Obstacles []game.Point `json:"obstacles"`
}

// handlePreview shows the board a set of settings would produce. Query
// parameters override the stored settings.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	set := store.LoadSettings(s.kv, s.logger)
	q := r.URL.Query()
	if v := q.Get("difficulty"); v != "" {
		set.Difficulty = v
	}
	if v := q.Get("map"); v != "" {
		set.Map = v
	}
	set.GridSize = parseIntQuery(r, "gridSize", set.GridSize)

	g, obs := engine.Preview(config.EngineConfig(set, s.cfg.CanvasWidth, s.cfg.CanvasHeight))
	writeJSON(w, previewResponse{Columns: g.Columns, Rows: g.Rows, Obstacles: obs.Cells()})
}

type gamesResponse struct {
	Games []replay.GameSummary `json:"games"`
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusNotFound, "replays are not configured")
		return
	}
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)
	games, err := s.index.Games(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list games failed", "err", err)
		writeError(w, http.StatusInternalServerError, "list games failed")
		return
	}
	writeJSON(w, gamesResponse{Games: games})
}
