// Command replay lists archived games and prints them tick by tick.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/replay"
)

func main() {
	dir := flag.String("dir", getEnvOrDefault("SNAKE_REPLAY_DIR", "replays"), "Directory holding game parquet files")
	list := flag.Bool("list", false, "List archived games, best score first")
	limit := flag.Int("limit", 20, "Games to list (0 = all)")
	offset := flag.Int("offset", 0, "Games to skip when listing")
	gameID := flag.String("game", "", "Game ID to print")
	file := flag.String("file", "", "Parquet file to print (overrides -game)")
	delay := flag.Duration("delay", 0, "Pause between ticks, e.g. 150ms to animate")
	final := flag.Bool("final", false, "Print only the last tick")
	flag.Parse()

	switch {
	case *list:
		listGames(*dir, *limit, *offset)
	case *file != "" || *gameID != "":
		path := *file
		if path == "" {
			path = replay.NewIndex(*dir).Path(*gameID)
		}
		printGame(path, *delay, *final)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func listGames(dir string, limit, offset int) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	games, err := replay.NewIndex(dir).Games(ctx, limit, offset)
	if err != nil {
		log.Fatalf("Failed to index %s: %v", dir, err)
	}
	if len(games) == 0 {
		log.Printf("No games in %s", dir)
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tSCORE\tTICKS\tMODE\tEND\tFILE")
	for _, g := range games {
		end := g.State
		if g.Cause != "" {
			end += " (" + g.Cause + ")"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s/%s\t%s\t%s\n",
			g.GameID, g.FinalScore, g.Ticks, g.Difficulty, g.MapType, end, g.File)
	}
	tw.Flush()
}

func printGame(path string, delay time.Duration, final bool) {
	rows, err := replay.ReadGame(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	if len(rows) == 0 {
		log.Fatalf("%s has no ticks", path)
	}

	var obstacles []game.Point
	if rows[0].Tick == 0 {
		obstacles = rows[0].Obstacles()
	}
	if final {
		rows = rows[len(rows)-1:]
	}

	for i, row := range rows {
		if delay > 0 && i > 0 {
			time.Sleep(delay)
			fmt.Print("\033[H\033[2J")
		}
		fmt.Print(replay.RenderASCII(row, obstacles))
	}

	last := rows[len(rows)-1]
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  Game:   %s\n", last.GameID)
	fmt.Printf("  Mode:   %s / %s on %dx%d\n", last.Difficulty, last.MapType, last.Columns, last.Rows)
	fmt.Printf("  Score:  %d after %d ticks\n", last.Score, last.Tick)
	if last.Cause != "" {
		fmt.Printf("  Ended:  hit %s\n", last.Cause)
	}
	fmt.Printf("  File:   %s\n", filepath.Clean(path))
	fmt.Println("═══════════════════════════════════════════════════════════════")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
