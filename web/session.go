package web

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/replay"
	"github.com/brensch/gridsnake/store"
)

// clientMessage is what the browser sends over /ws/play.
type clientMessage struct {
	Type string `json:"type"`
	Dir  string `json:"dir,omitempty"`
}

// frame is what the server sends: one per published snapshot.
type frame struct {
	Type     string          `json:"type"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

const outboxSize = 32

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	binary := r.URL.Query().Get("enc") == "msgpack"

	sessionID := uuid.NewString()
	logger := s.logger.With("session", sessionID)
	s.sessions.Add(1)
	defer s.sessions.Add(-1)

	// Settings are re-read whenever a game begins, so a PUT /api/settings
	// applies from the next start or restart on this socket.
	nextConfig := func() engine.Config {
		return config.EngineConfig(store.LoadSettings(s.kv, logger), s.cfg.CanvasWidth, s.cfg.CanvasHeight)
	}
	e := engine.New(nextConfig(),
		engine.WithRand(s.newRand()),
		engine.WithLogger(logger),
		engine.WithBestScores(s.best),
	)

	var rec *replay.Recorder
	if s.cfg.Record && s.cfg.ReplayDir != "" {
		rec, err = replay.NewRecorder(s.cfg.ReplayDir, logger)
		if err != nil {
			logger.Warn("recording disabled for session", "err", err)
		}
	}

	// When the socket is slow the oldest frame is dropped so the newest
	// state always gets through.
	outbox := make(chan engine.Snapshot, outboxSize)
	forward := engine.DropOldest(outbox)
	publish := func(snap engine.Snapshot) {
		if rec != nil {
			if err := rec.Observe(snap); err != nil {
				logger.Warn("record snapshot failed", "tick", snap.Tick, "err", err)
			}
		}
		forward(snap)
	}

	ctx, cancel := context.WithCancel(r.Context())
	loop := engine.NewLoop(e, publish, engine.WithLoopLogger(logger), engine.WithNextConfig(nextConfig))

	outbox <- e.Snapshot()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = loop.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.writeFrames(ctx, conn, outbox, binary)
	}()

	logger.Info("play session opened", "remote", r.RemoteAddr, "msgpack", binary)
	s.readCommands(ctx, conn, loop, logger)

	cancel()
	wg.Wait()

	var errs *multierror.Error
	if rec != nil {
		if err := rec.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := conn.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		logger.Warn("play session closed with errors", "err", err)
	}
	logger.Info("play session closed")
}

// readCommands runs until the client goes away or ctx ends.
func (s *Server) readCommands(ctx context.Context, conn *websocket.Conn, loop *engine.Loop, logger *slog.Logger) {
	go func() {
		<-ctx.Done()
		// Unblock ReadMessage when the writer side gave up.
		_ = conn.SetReadDeadline(time.Now())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", "err", err)
			}
			return
		}
		cmd, ok := parseCommand(data)
		if !ok {
			logger.Debug("ignored client message", "raw", string(data))
			continue
		}
		loop.Send(cmd)
	}
}

func parseCommand(data []byte) (engine.Command, bool) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return engine.Command{}, false
	}
	switch msg.Type {
	case "start":
		return engine.Start(), true
	case "pause":
		return engine.TogglePause(), true
	case "restart":
		return engine.Restart(), true
	case "turn":
		d, ok := game.ParseDirection(msg.Dir)
		if !ok {
			return engine.Command{}, false
		}
		return engine.Turn(d), true
	}
	return engine.Command{}, false
}

func (s *Server) writeFrames(ctx context.Context, conn *websocket.Conn, outbox <-chan engine.Snapshot, binary bool) {
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case snap := <-outbox:
			msgType, payload, err := encodeFrame(frame{Type: "snapshot", Snapshot: snap}, binary)
			if err != nil {
				s.logger.Error("encode frame failed", "err", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(msgType, payload); err != nil {
				s.logger.Debug("websocket write failed", "err", err)
				return
			}
		}
	}
}

// encodeFrame produces a JSON text frame, or a msgpack binary frame using
// the same field names.
func encodeFrame(f frame, binary bool) (int, []byte, error) {
	if !binary {
		b, err := json.Marshal(f)
		return websocket.TextMessage, b, err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(f); err != nil {
		return 0, nil, err
	}
	return websocket.BinaryMessage, buf.Bytes(), nil
}
