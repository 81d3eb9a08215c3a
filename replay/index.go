package replay

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// GameSummary describes one archived game.
type GameSummary struct {
	GameID     string `json:"game_id"`
	Ticks      int    `json:"ticks"`
	FinalScore int    `json:"final_score"`
	Difficulty string `json:"difficulty"`
	MapType    string `json:"map_type"`
	State      string `json:"state"`
	Cause      string `json:"cause"`
	File       string `json:"file"`
}

// Index queries every archive under a directory. Each call opens a fresh
// in-memory DuckDB so results reflect what is on disk right now.
type Index struct {
	root string
}

func NewIndex(root string) *Index {
	return &Index{root: root}
}

// Games lists archived games, best final score first. limit <= 0 means no
// limit. A missing or empty directory yields no games.
func (x *Index) Games(ctx context.Context, limit, offset int) ([]GameSummary, error) {
	files, err := findParquetFiles(x.root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []GameSummary{}, nil
	}

	db, err := openDuckDB(files)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `WITH last_ticks AS (
		SELECT game_id, score, state, cause
		FROM (
			SELECT game_id, score, state, cause,
				row_number() OVER (PARTITION BY game_id ORDER BY tick DESC) AS rn
			FROM ticks
		)
		WHERE rn = 1
	),
	game_stats AS (
		SELECT
			game_id,
			COUNT(*)::INTEGER AS ticks,
			MIN(difficulty)::VARCHAR AS difficulty,
			MIN(map_type)::VARCHAR AS map_type,
			MIN(filename)::VARCHAR AS file
		FROM ticks
		GROUP BY game_id
	)
	SELECT g.game_id, g.ticks, lt.score::INTEGER, g.difficulty, g.map_type, lt.state, lt.cause, g.file
	FROM game_stats g
	JOIN last_ticks lt ON g.game_id = lt.game_id
	ORDER BY lt.score DESC, g.game_id ASC`
	args := []any{}
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	out := make([]GameSummary, 0, 64)
	for rows.Next() {
		var g GameSummary
		var file string
		if err := rows.Scan(&g.GameID, &g.Ticks, &g.FinalScore, &g.Difficulty, &g.MapType, &g.State, &g.Cause, &file); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.File = relativeTo(file, x.root)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return out, nil
}

// Path returns the archive file for gameID.
func (x *Index) Path(gameID string) string {
	return filepath.Join(x.root, ArchiveName(gameID))
}

func openDuckDB(parquetFiles []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	// Ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")
	_, _ = db.Exec("PRAGMA enable_object_cache=false")

	arr := make([]string, 0, len(parquetFiles))
	for _, p := range parquetFiles {
		arr = append(arr, "'"+escapeSQLString(p)+"'")
	}
	sqlText := "CREATE OR REPLACE VIEW ticks AS SELECT * FROM read_parquet([" + strings.Join(arr, ",") + "], filename=true, union_by_name=true)"
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ticks view: %w", err)
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// findParquetFiles walks root, skipping tmp directories that hold archives
// still being written.
func findParquetFiles(root string) ([]string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if name == "tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(name), ".parquet") {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return nil, nil
		}
		return nil, walkErr
	}
	return files, nil
}

func relativeTo(filename, root string) string {
	rel, err := filepath.Rel(root, filename)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filename
	}
	return rel
}
