package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/brensch/gridsnake/store"
)

const testIndex = `<!DOCTYPE html>
<html lang="vi">
<head><title>Snake</title></head>
<body>
<select id="langSelect"><option value="vi" selected>VI</option><option value="en">EN</option></select>
<select id="themeSelect"><option value="dark" selected>Dark</option><option value="light">Light</option></select>
<canvas id="game"></canvas>
</body>
</html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	kv     *store.Memory
	srv    *Server
	http   *httptest.Server
	static string
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	static := t.TempDir()
	writeFile(t, filepath.Join(static, "index.html"), testIndex)
	writeFile(t, filepath.Join(static, "app.css"), "body{}")
	writeFile(t, filepath.Join(static, "docs", "index.html"), "<p>docs</p>")
	writeFile(t, filepath.Join(static, "blob.bin"), "xx")

	if cfg.StaticDir == "" {
		cfg.StaticDir = static
	}
	if cfg.CanvasWidth == 0 {
		cfg.CanvasWidth, cfg.CanvasHeight = 600, 480
	}
	kv := store.NewMemory()
	srv := NewServer(cfg, kv, quietLogger())
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	return &testEnv{kv: kv, srv: srv, http: hs, static: static}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestSettings_GetPut(t *testing.T) {
	env := newTestEnv(t, Config{})

	got := decode[store.Settings](t, env.do(t, http.MethodGet, "/api/settings", ""))
	if got != store.DefaultSettings() {
		t.Fatalf("defaults=%+v", got)
	}

	resp := env.do(t, http.MethodPut, "/api/settings", `{"difficulty":"hard","map":"cross","gridSize":20,"theme":"light"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	saved := decode[store.Settings](t, resp)
	if saved.Difficulty != "Hard" || saved.Map != "Cross" || saved.GridSize != 20 || saved.Theme != "light" || saved.BaseSpeed != 110 {
		t.Fatalf("saved=%+v", saved)
	}

	got = decode[store.Settings](t, env.do(t, http.MethodGet, "/api/settings", ""))
	if got != saved {
		t.Fatalf("reloaded=%+v want %+v", got, saved)
	}

	if resp := env.do(t, http.MethodPut, "/api/settings", `{`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad body status=%d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodDelete, "/api/settings", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("delete status=%d", resp.StatusCode)
	}
}

func TestLeaderboard_Submit(t *testing.T) {
	env := newTestEnv(t, Config{})

	post := func(body string) (int, submitResponse) {
		resp := env.do(t, http.MethodPost, "/api/leaderboard", body)
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, submitResponse{}
		}
		return resp.StatusCode, decode[submitResponse](t, resp)
	}

	if _, r := post(`{"region":"vn","score":42}`); !r.Accepted || r.Region != "VN" || r.Score != 42 {
		t.Fatalf("first submit=%+v", r)
	}
	if _, r := post(`{"region":"VN","score":10}`); r.Accepted {
		t.Fatalf("lower score accepted: %+v", r)
	}
	if code, _ := post(`{"region":"1x","score":5}`); code != http.StatusBadRequest {
		t.Fatalf("invalid region status=%d", code)
	}
	if code, _ := post(`{"region":"US","score":-1}`); code != http.StatusBadRequest {
		t.Fatalf("negative score status=%d", code)
	}

	// Without a score the stored best is submitted.
	if err := store.NewBestScores(env.kv, quietLogger()).SaveBestScore(17); err != nil {
		t.Fatalf("save best: %v", err)
	}
	if _, r := post(`{"region":"jp"}`); !r.Accepted || r.Score != 17 {
		t.Fatalf("best submit=%+v", r)
	}

	list := decode[leaderboardResponse](t, env.do(t, http.MethodGet, "/api/leaderboard", ""))
	if len(list.Entries) != 2 || list.Entries[0].Region != "VN" || list.Entries[1].Region != "JP" {
		t.Fatalf("entries=%+v", list.Entries)
	}

	best := decode[bestResponse](t, env.do(t, http.MethodGet, "/api/best", ""))
	if best.Best != 17 {
		t.Fatalf("best=%d", best.Best)
	}
}

func TestRegionsAndPreview(t *testing.T) {
	env := newTestEnv(t, Config{})

	regions := decode[[]string](t, env.do(t, http.MethodGet, "/api/regions", ""))
	if len(regions) != len(store.Regions) || regions[0] != "VN" {
		t.Fatalf("regions=%v", regions)
	}

	p := decode[previewResponse](t, env.do(t, http.MethodGet, "/api/preview?difficulty=Medium&map=Box&gridSize=60", ""))
	if p.Columns != 10 || p.Rows != 8 {
		t.Fatalf("preview board=%dx%d", p.Columns, p.Rows)
	}
	if len(p.Obstacles) == 0 {
		t.Fatalf("box preview has no walls")
	}

	p = decode[previewResponse](t, env.do(t, http.MethodGet, "/api/preview?map=Box", ""))
	if p.Columns != 25 || p.Rows != 20 || len(p.Obstacles) != 0 {
		t.Fatalf("easy preview=%dx%d obstacles=%d", p.Columns, p.Rows, len(p.Obstacles))
	}
}

func TestGames(t *testing.T) {
	env := newTestEnv(t, Config{})
	if resp := env.do(t, http.MethodGet, "/api/games", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unconfigured status=%d", resp.StatusCode)
	}

	env = newTestEnv(t, Config{ReplayDir: t.TempDir()})
	resp := env.do(t, http.MethodGet, "/api/games", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if got := decode[gamesResponse](t, resp); len(got.Games) != 0 {
		t.Fatalf("games=%+v", got.Games)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp := env.do(t, http.MethodOptions, "/api/leaderboard", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight status=%d headers=%v", resp.StatusCode, resp.Header)
	}
}

func TestStatic(t *testing.T) {
	env := newTestEnv(t, Config{})
	if _, err := store.SaveSettings(env.kv, store.Settings{Lang: "en", Theme: "light"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	body := func(resp *http.Response) string {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		return string(b)
	}

	resp := env.do(t, http.MethodGet, "/", "")
	html := body(resp)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("index status=%d type=%s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	for _, want := range []string{`lang="en"`, `data-theme="light"`, `<option value="light" selected="selected">`} {
		if !strings.Contains(html, want) {
			t.Fatalf("index missing %s:\n%s", want, html)
		}
	}
	if strings.Contains(html, `<option value="dark" selected`) {
		t.Fatalf("stale selection left in index:\n%s", html)
	}

	resp = env.do(t, http.MethodGet, "/app.css", "")
	if got := body(resp); got != "body{}" {
		t.Fatalf("css body=%q", got)
	}
	if resp.Header.Get("Content-Type") != "text/css; charset=utf-8" || resp.Header.Get("Cache-Control") != "public, max-age=3600" {
		t.Fatalf("css headers=%v", resp.Header)
	}

	resp = env.do(t, http.MethodGet, "/blob.bin", "")
	if resp.Header.Get("Content-Type") != "application/octet-stream" {
		t.Fatalf("unknown ext type=%s", resp.Header.Get("Content-Type"))
	}

	resp = env.do(t, http.MethodGet, "/docs", "")
	if got := body(resp); got != "<p>docs</p>" {
		t.Fatalf("directory index=%q", got)
	}

	resp = env.do(t, http.MethodGet, "/leaderboard/vn", "")
	if got := body(resp); resp.StatusCode != http.StatusOK || !strings.Contains(got, `id="game"`) {
		t.Fatalf("spa fallback status=%d body=%q", resp.StatusCode, got)
	}
}

func TestStatic_Traversal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public", "index.html"), testIndex)
	writeFile(t, filepath.Join(root, "secret.txt"), "nope")

	h := &staticHandler{
		root:     filepath.Join(root, "public"),
		settings: store.DefaultSettings,
		logger:   quietLogger(),
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret.txt"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func dialPlay(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws/play" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type jsonFrame struct {
	Type     string `json:"type"`
	Snapshot struct {
		Status     string `json:"status"`
		Columns    int    `json:"columns"`
		Rows       int    `json:"rows"`
		Difficulty string `json:"difficulty"`
		Map        string `json:"map"`
		Snake      []struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"snake"`
		Obstacles []struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"obstacles"`
	} `json:"snapshot"`
}

// readUntil reads frames until one has the wanted status.
func readUntil(t *testing.T, conn *websocket.Conn, status string) jsonFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f jsonFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read frame waiting for %s: %v", status, err)
		}
		if f.Snapshot.Status == status {
			return f
		}
	}
}

func TestPlay_JSON(t *testing.T) {
	env := newTestEnv(t, Config{Seed: 3})
	conn := dialPlay(t, env, "")

	f := readUntil(t, conn, "idle")
	if f.Type != "snapshot" || f.Snapshot.Columns != 25 || f.Snapshot.Rows != 20 {
		t.Fatalf("idle frame=%+v", f)
	}

	// Junk is ignored and does not close the socket.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(clientMessage{Type: "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	f = readUntil(t, conn, "running")
	if len(f.Snapshot.Snake) != 2 {
		t.Fatalf("snake=%+v", f.Snapshot.Snake)
	}

	if err := conn.WriteJSON(clientMessage{Type: "pause"}); err != nil {
		t.Fatalf("write pause: %v", err)
	}
	readUntil(t, conn, "paused")

	if got := env.srv.ActiveSessions(); got != 1 {
		t.Fatalf("sessions=%d", got)
	}
}

// readUntilMode reads frames until a running game with the wanted
// difficulty and map shows up.
func readUntilMode(t *testing.T, conn *websocket.Conn, difficulty, mapType string) jsonFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f jsonFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read frame waiting for %s/%s: %v", difficulty, mapType, err)
		}
		if f.Snapshot.Status == "running" && f.Snapshot.Difficulty == difficulty && f.Snapshot.Map == mapType {
			return f
		}
	}
}

func TestPlay_SettingsApplyOnNextGame(t *testing.T) {
	env := newTestEnv(t, Config{Seed: 5})
	conn := dialPlay(t, env, "")
	if f := readUntil(t, conn, "idle"); f.Snapshot.Difficulty != "Easy" || f.Snapshot.Map != "Classic" {
		t.Fatalf("idle frame=%+v", f.Snapshot)
	}

	if err := conn.WriteJSON(clientMessage{Type: "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	if f := readUntil(t, conn, "running"); f.Snapshot.Difficulty != "Easy" || len(f.Snapshot.Obstacles) != 0 {
		t.Fatalf("first game=%+v", f.Snapshot)
	}

	resp := env.do(t, http.MethodPut, "/api/settings", `{"difficulty":"Hard","map":"Box"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status=%d", resp.StatusCode)
	}
	if err := conn.WriteJSON(clientMessage{Type: "restart"}); err != nil {
		t.Fatalf("write restart: %v", err)
	}
	f := readUntilMode(t, conn, "Hard", "Box")
	if len(f.Snapshot.Obstacles) == 0 {
		t.Fatalf("hard box game has no walls: %+v", f.Snapshot)
	}
	if f.Snapshot.Columns != 25 || f.Snapshot.Rows != 20 {
		t.Fatalf("board=%dx%d", f.Snapshot.Columns, f.Snapshot.Rows)
	}
}

func TestPlay_Msgpack(t *testing.T) {
	env := newTestEnv(t, Config{})
	conn := dialPlay(t, env, "?enc=msgpack")

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("message type=%d", mt)
	}
	var f map[string]any
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		t.Fatalf("decode msgpack: %v", err)
	}
	if f["type"] != "snapshot" {
		t.Fatalf("frame=%v", f)
	}
	snap, ok := f["snapshot"].(map[string]any)
	if !ok {
		t.Fatalf("snapshot=%T", f["snapshot"])
	}
	if _, ok := snap["columns"]; !ok {
		t.Fatalf("snapshot keys=%v", snap)
	}
}

func TestParseCommand(t *testing.T) {
	cases := map[string]bool{
		`{"type":"start"}`:              true,
		`{"type":"pause"}`:              true,
		`{"type":"restart"}`:            true,
		`{"type":"turn","dir":"UP"}`:    true,
		`{"type":"turn","dir":"north"}`: false,
		`{"type":"jump"}`:               false,
		`[]`:                            false,
	}
	for raw, want := range cases {
		if _, ok := parseCommand([]byte(raw)); ok != want {
			t.Errorf("parseCommand(%s) ok=%v want %v", raw, ok, want)
		}
	}
}
