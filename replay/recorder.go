// Package replay archives played games as Parquet, one row per tick, and
// indexes the archives with DuckDB.
package replay

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
)

// SchemaVersion is stored in every archive's key/value metadata.
const SchemaVersion = "gridsnake_tick_v1"

// ErrEmptyGame is returned when flushing a recorder with nothing buffered.
var ErrEmptyGame = errors.New("replay: no ticks recorded")

// TickRow is one tick of one game. Obstacles never change within a game, so
// they are only stored on tick 0.
type TickRow struct {
	GameID     string `parquet:"game_id,dict"`
	Tick       int32  `parquet:"tick"`
	Columns    int32  `parquet:"columns"`
	Rows       int32  `parquet:"rows"`
	Difficulty string `parquet:"difficulty,dict"`
	MapType    string `parquet:"map_type,dict"`
	State      string `parquet:"state,dict"`
	Cause      string `parquet:"cause,dict"`
	Score      int32  `parquet:"score"`
	Interval   int32  `parquet:"interval"`

	SnakeX []int32 `parquet:"snake_x"`
	SnakeY []int32 `parquet:"snake_y"`

	FoodX    int32  `parquet:"food_x"`
	FoodY    int32  `parquet:"food_y"`
	FoodTier string `parquet:"food_tier,dict"`

	ObstacleX []int32 `parquet:"obstacle_x"`
	ObstacleY []int32 `parquet:"obstacle_y"`
}

// Snake returns the body, head first.
func (r TickRow) Snake() []game.Point {
	return zipPoints(r.SnakeX, r.SnakeY)
}

// Obstacles returns the wall cells; empty on rows after tick 0.
func (r TickRow) Obstacles() []game.Point {
	return zipPoints(r.ObstacleX, r.ObstacleY)
}

// Food returns the food item on the board at this tick.
func (r TickRow) Food() game.Food {
	var tier game.Tier
	_ = tier.UnmarshalText([]byte(r.FoodTier))
	return game.Food{Cell: game.Point{X: int(r.FoodX), Y: int(r.FoodY)}, Tier: tier}
}

// RowFromSnapshot flattens a snapshot into a row.
func RowFromSnapshot(s engine.Snapshot) TickRow {
	row := TickRow{
		GameID:     s.GameID,
		Tick:       int32(s.Tick),
		Columns:    int32(s.Columns),
		Rows:       int32(s.Rows),
		Difficulty: s.Difficulty,
		MapType:    s.Map,
		State:      s.Status.String(),
		Cause:      s.Cause,
		Score:      int32(s.Score),
		Interval:   int32(s.IntervalMs),
	}
	row.SnakeX, row.SnakeY = splitPoints(s.Snake)
	if s.Food != nil {
		row.FoodX = int32(s.Food.Cell.X)
		row.FoodY = int32(s.Food.Cell.Y)
		row.FoodTier = s.Food.Tier.String()
	}
	if s.Tick == 0 {
		row.ObstacleX, row.ObstacleY = splitPoints(s.Obstacles)
	}
	return row
}

// Recorder buffers the snapshots of the current game and writes them out
// as game_<id>.parquet when the game ends. Starting a new game before the
// old one ended writes the old one first.
type Recorder struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	gameID string
	rows   []TickRow
}

// NewRecorder writes archives into dir, creating it if needed.
func NewRecorder(dir string, logger *slog.Logger) (*Recorder, error) {
	if dir == "" {
		return nil, fmt.Errorf("replay dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create replay dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{dir: dir, logger: logger.With("component", "replay")}, nil
}

// Dir is where archives are written.
func (r *Recorder) Dir() string { return r.dir }

// Observe records s. Snapshots repeating the last recorded tick (pause,
// resume) replace that row rather than adding one.
func (r *Recorder) Observe(s engine.Snapshot) error {
	if s.GameID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var errs *multierror.Error
	if r.gameID != "" && r.gameID != s.GameID {
		if _, err := r.flushLocked(); err != nil && !errors.Is(err, ErrEmptyGame) {
			errs = multierror.Append(errs, err)
		}
	}
	r.gameID = s.GameID

	row := RowFromSnapshot(s)
	if n := len(r.rows); n > 0 && r.rows[n-1].Tick == row.Tick {
		if row.Tick == 0 {
			row.ObstacleX, row.ObstacleY = r.rows[n-1].ObstacleX, r.rows[n-1].ObstacleY
		}
		r.rows[n-1] = row
	} else {
		r.rows = append(r.rows, row)
	}

	if s.Over() {
		if _, err := r.flushLocked(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Flush writes the buffered game and returns the archive path.
func (r *Recorder) Flush() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

// Close writes any unfinished game.
func (r *Recorder) Close() error {
	_, err := r.Flush()
	if errors.Is(err, ErrEmptyGame) {
		return nil
	}
	return err
}

func (r *Recorder) flushLocked() (string, error) {
	rows := r.rows
	gameID := r.gameID
	r.rows = nil
	r.gameID = ""
	if len(rows) == 0 {
		return "", ErrEmptyGame
	}

	path := filepath.Join(r.dir, ArchiveName(gameID))
	if err := writeParquetAtomic(path, rows); err != nil {
		return "", err
	}
	last := rows[len(rows)-1]
	r.logger.Info("game archived",
		"game_id", gameID,
		"ticks", len(rows),
		"score", last.Score,
		"state", last.State,
		"path", path,
	)
	return path, nil
}

// ArchiveName is the file name a game is archived under.
func ArchiveName(gameID string) string {
	return "game_" + gameID + ".parquet"
}

// writeParquetAtomic writes into dir/tmp and renames into place so readers
// never observe a partial file.
func writeParquetAtomic(outPath string, rows []TickRow) error {
	tmpDir := filepath.Join(filepath.Dir(outPath), "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("create tmp dir: %w", err)
	}
	tmpPath := filepath.Join(tmpDir, filepath.Base(outPath)+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", SchemaVersion),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// ReadGame loads an archive, ordered by tick.
func ReadGame(path string) ([]TickRow, error) {
	rows, err := parquet.ReadFile[TickRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Tick < rows[j].Tick })
	return rows, nil
}

func splitPoints(ps []game.Point) (xs, ys []int32) {
	if len(ps) == 0 {
		return nil, nil
	}
	xs = make([]int32, len(ps))
	ys = make([]int32, len(ps))
	for i, p := range ps {
		xs[i] = int32(p.X)
		ys[i] = int32(p.Y)
	}
	return xs, ys
}

func zipPoints(xs, ys []int32) []game.Point {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	out := make([]game.Point, n)
	for i := 0; i < n; i++ {
		out[i] = game.Point{X: int(xs[i]), Y: int(ys[i])}
	}
	return out
}
