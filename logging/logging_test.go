package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	return m
}

func TestPrettyJSONHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, nil)).
		With("game", "g1").
		WithGroup("tick").
		With("n", 3)

	logger.Info("moved", "head", "(1,2)", "err", errors.New("boom"))

	m := decode(t, &buf)
	if m["msg"] != "moved" || m["level"] != "INFO" || m["game"] != "g1" {
		t.Fatalf("top level fields: %v", m)
	}
	tick, ok := m["tick"].(map[string]any)
	if !ok {
		t.Fatalf("missing tick group: %v", m)
	}
	if tick["n"] != float64(3) || tick["head"] != "(1,2)" || tick["err"] != "boom" {
		t.Fatalf("tick group: %v", tick)
	}
}

func TestPrettyJSONHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %s", buf.String())
	}
	logger.Warn("shown")
	if decode(t, &buf)["msg"] != "shown" {
		t.Fatalf("warn record missing")
	}
}

func TestNew_Formats(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "json").Debug("x", "k", 1)
	if decode(t, &buf)["k"] != float64(1) {
		t.Fatalf("json handler output: %s", buf.String())
	}
	if ParseLevel("nonsense") != slog.LevelInfo || ParseLevel("ERROR") != slog.LevelError {
		t.Fatalf("ParseLevel mapping")
	}
}
