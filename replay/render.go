package replay

import (
	"fmt"
	"strings"

	"github.com/brensch/gridsnake/game"
)

// RenderASCII draws one recorded tick. obstacles come from tick 0 of the
// same game since later rows do not carry them.
//
//	# wall   F food   G gold food   O head   o body   . empty
func RenderASCII(row TickRow, obstacles []game.Point) string {
	w, h := int(row.Columns), int(row.Rows)
	grid := make([][]byte, h)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", w))
	}
	put := func(p game.Point, c byte) {
		if p.X >= 0 && p.X < w && p.Y >= 0 && p.Y < h {
			grid[p.Y][p.X] = c
		}
	}

	for _, p := range obstacles {
		put(p, '#')
	}
	if row.FoodTier != "" {
		f := row.Food()
		if f.Tier == game.Gold {
			put(f.Cell, 'G')
		} else {
			put(f.Cell, 'F')
		}
	}
	snake := row.Snake()
	for i := len(snake) - 1; i >= 0; i-- {
		if i == 0 {
			put(snake[i], 'O')
		} else {
			put(snake[i], 'o')
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== Tick %d | %s | score %d | %dms ===\n", row.Tick, row.State, row.Score, row.Interval))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sb.WriteByte(grid[y][x])
			sb.WriteByte(' ')
		}
		sb.WriteString("\n")
	}
	if row.Cause != "" {
		sb.WriteString(fmt.Sprintf("hit %s\n", row.Cause))
	}
	return sb.String()
}
