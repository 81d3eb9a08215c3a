package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boxEngine(id string) *engine.Engine {
	cfg := engine.Config{
		Difficulty:   game.Medium,
		MapType:      game.Box,
		CellSize:     24,
		BaseSpeed:    110,
		CanvasWidth:  240,
		CanvasHeight: 240,
	}
	return engine.New(cfg,
		engine.WithRand(rand.New(rand.NewSource(7))),
		engine.WithLogger(quietLogger()),
		engine.WithIDs(func() string { return id }),
	)
}

// playToWall runs a game heading right until it ends. On the 10x10 Box map
// the head starts at (5,5) and the ring sits at column 9.
func playToWall(t *testing.T, e *engine.Engine, rec *Recorder) engine.Snapshot {
	t.Helper()
	snap := e.Start()
	if err := rec.Observe(snap); err != nil {
		t.Fatalf("observe start: %v", err)
	}
	for i := 0; i < 20 && !snap.Over(); i++ {
		snap = e.Tick().Snapshot
		if err := rec.Observe(snap); err != nil {
			t.Fatalf("observe tick %d: %v", snap.Tick, err)
		}
	}
	if !snap.Over() {
		t.Fatalf("game did not end")
	}
	return snap
}

func TestRecorder_WritesArchiveOnGameOver(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, quietLogger())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	final := playToWall(t, boxEngine("g1"), rec)
	if final.Cause != "obstacle" {
		t.Fatalf("cause=%q", final.Cause)
	}

	path := filepath.Join(dir, ArchiveName("g1"))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tmp", ArchiveName("g1")+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	rows, err := ReadGame(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != final.Tick+1 {
		t.Fatalf("rows=%d want %d", len(rows), final.Tick+1)
	}
	for i, r := range rows {
		if int(r.Tick) != i {
			t.Fatalf("row %d has tick %d", i, r.Tick)
		}
		if r.GameID != "g1" || r.Columns != 10 || r.Rows != 10 {
			t.Fatalf("row %d: %+v", i, r)
		}
		if i > 0 && len(r.ObstacleX) != 0 {
			t.Fatalf("row %d repeats obstacles", i)
		}
	}
	if got := len(rows[0].Obstacles()); got != 28 {
		t.Fatalf("tick 0 obstacles=%d", got)
	}
	last := rows[len(rows)-1]
	if last.State != "game_over" || last.Cause != "obstacle" || int(last.Score) != final.Score {
		t.Fatalf("last row=%+v", last)
	}
	if head := last.Snake()[0]; head != final.Snake[0] {
		t.Fatalf("head=%v want %v", head, final.Snake[0])
	}
	if last.Food() != *final.Food {
		t.Fatalf("food=%v want %v", last.Food(), *final.Food)
	}
}

func TestRecorder_RestartFlushesPreviousGame(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, quietLogger())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	ids := []string{"first", "second"}
	e := engine.New(engine.Config{CellSize: 24, BaseSpeed: 110, CanvasWidth: 240, CanvasHeight: 240},
		engine.WithLogger(quietLogger()),
		engine.WithIDs(func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}),
	)
	if err := rec.Observe(e.Start()); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if err := rec.Observe(e.Tick().Snapshot); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if err := rec.Observe(e.Start()); err != nil {
		t.Fatalf("observe restart: %v", err)
	}

	rows, err := ReadGame(filepath.Join(dir, ArchiveName("first")))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if len(rows) != 2 || rows[1].State != "running" {
		t.Fatalf("first game rows=%+v", rows)
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ArchiveName("second"))); err != nil {
		t.Fatalf("second game not flushed on close: %v", err)
	}
}

func TestRecorder_PauseReplacesRow(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, quietLogger())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	e := boxEngine("paused")
	if err := rec.Observe(e.Start()); err != nil {
		t.Fatalf("observe: %v", err)
	}
	e.Pause()
	if err := rec.Observe(e.Snapshot()); err != nil {
		t.Fatalf("observe: %v", err)
	}
	path, err := rec.Flush()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	rows, err := ReadGame(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || rows[0].State != "paused" || len(rows[0].ObstacleX) != 28 {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestRecorder_EmptyFlush(t *testing.T) {
	rec, err := NewRecorder(t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if _, err := rec.Flush(); !errors.Is(err, ErrEmptyGame) {
		t.Fatalf("err=%v, want ErrEmptyGame", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close of empty recorder: %v", err)
	}
	if err := rec.Observe(engine.Snapshot{}); err != nil {
		t.Fatalf("snapshot without game id: %v", err)
	}
}

func TestIndex_GamesOrderedByScore(t *testing.T) {
	dir := t.TempDir()
	games := []struct {
		id    string
		score int32
		ticks int
	}{
		{"low", 3, 4},
		{"high", 12, 9},
		{"mid", 7, 6},
	}
	for _, g := range games {
		rows := make([]TickRow, g.ticks)
		for i := range rows {
			rows[i] = TickRow{
				GameID:     g.id,
				Tick:       int32(i),
				Columns:    25,
				Rows:       20,
				Difficulty: "Medium",
				MapType:    "Cross",
				State:      "running",
				Score:      g.score * int32(i) / int32(g.ticks-1),
				Interval:   99,
				SnakeX:     []int32{int32(i), int32(i) - 1},
				SnakeY:     []int32{5, 5},
			}
		}
		rows[len(rows)-1].State = "game_over"
		rows[len(rows)-1].Cause = "self"
		if err := writeParquetAtomic(filepath.Join(dir, ArchiveName(g.id)), rows); err != nil {
			t.Fatalf("write %s: %v", g.id, err)
		}
	}

	idx := NewIndex(dir)
	got, err := idx.Games(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("games=%+v", got)
	}
	wantOrder := []string{"high", "mid", "low"}
	for i, id := range wantOrder {
		if got[i].GameID != id {
			t.Fatalf("order=%+v", got)
		}
	}
	if got[0].FinalScore != 12 || got[0].Ticks != 9 || got[0].Cause != "self" || got[0].State != "game_over" {
		t.Fatalf("summary=%+v", got[0])
	}
	if got[0].File != ArchiveName("high") || got[0].MapType != "Cross" {
		t.Fatalf("summary=%+v", got[0])
	}

	page, err := idx.Games(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 1 || page[0].GameID != "mid" {
		t.Fatalf("page=%+v", page)
	}
}

func TestIndex_EmptyDir(t *testing.T) {
	got, err := NewIndex(filepath.Join(t.TempDir(), "missing")).Games(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("games=%+v", got)
	}
}

func TestRenderASCII(t *testing.T) {
	row := TickRow{
		Tick:     3,
		Columns:  4,
		Rows:     3,
		State:    "running",
		Score:    2,
		Interval: 105,
		SnakeX:   []int32{2, 1},
		SnakeY:   []int32{1, 1},
		FoodX:    3,
		FoodY:    0,
		FoodTier: "gold",
	}
	out := RenderASCII(row, []game.Point{{X: 0, Y: 2}})
	want := "=== Tick 3 | running | score 2 | 105ms ===\n" +
		". . . G \n" +
		". o O . \n" +
		"# . . . \n"
	if out != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out, want)
	}

	row.FoodTier = ""
	row.Cause = "wall"
	out = RenderASCII(row, nil)
	if strings.Contains(out, "G") || !strings.HasSuffix(out, "hit wall\n") {
		t.Fatalf("got:\n%s", out)
	}
}
