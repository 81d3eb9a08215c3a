package game

import (
	"strings"
	"testing"
)

func dumpObstacles(g Grid, o Obstacles) string {
	var sb strings.Builder
	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Columns; x++ {
			if o.Has(Point{X: x, Y: y}) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestNewGrid(t *testing.T) {
	g := NewGrid(600, 480, 24)
	if g.Columns != 25 || g.Rows != 20 {
		t.Fatalf("grid=%+v want 25x20", g)
	}
	g = NewGrid(600, 480, 0)
	if g.Columns != 25 || g.Rows != 20 {
		t.Fatalf("non-positive cell size should fall back to %d, got %+v", DefaultCellSize, g)
	}
	g = NewGrid(100, 100, 30)
	if g.Columns != 3 || g.Rows != 3 {
		t.Fatalf("grid=%+v want 3x3 (floor division)", g)
	}
}

func TestBuildMap_EasyHasNoWalls(t *testing.T) {
	g := Grid{Columns: 20, Rows: 20}
	for _, m := range []MapType{Classic, Box, Cross} {
		if n := BuildMap(Easy, m, g).Len(); n != 0 {
			t.Errorf("Easy/%s: %d walls want 0", m, n)
		}
	}
	if n := BuildMap(Hard, Classic, g).Len(); n != 0 {
		t.Errorf("Hard/Classic: %d walls want 0", n)
	}
}

func TestBuildMap_Box(t *testing.T) {
	g := Grid{Columns: 10, Rows: 10}
	o := BuildMap(Medium, Box, g)
	t.Logf("box:\n%s", dumpObstacles(g, o))

	if o.Len() != 28 {
		t.Fatalf("walls=%d want=28", o.Len())
	}
	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Columns; x++ {
			p := Point{X: x, Y: y}
			onRing := (x == 1 || x == 8) && y >= 1 && y <= 8 || (y == 1 || y == 8) && x >= 1 && x <= 8
			if o.Has(p) != onRing {
				t.Fatalf("cell %v wall=%v want=%v", p, o.Has(p), onRing)
			}
		}
	}
}

func TestBuildMap_CrossLeavesSpawnOpen(t *testing.T) {
	g := Grid{Columns: 20, Rows: 16}
	o := BuildMap(Hard, Cross, g)
	t.Logf("cross:\n%s", dumpObstacles(g, o))

	if o.Len() != 21 {
		t.Fatalf("walls=%d want=21", o.Len())
	}
	c := g.Center()
	for x := c.X - 2; x <= c.X+3; x++ {
		if o.Has(Point{X: x, Y: c.Y}) {
			t.Fatalf("carved cell (%d,%d) is a wall", x, c.Y)
		}
	}
	if !o.Has(Point{X: c.X, Y: c.Y - 1}) || !o.Has(Point{X: c.X, Y: c.Y + 1}) {
		t.Fatalf("vertical arm should pass next to the center")
	}
	if !o.Has(Point{X: c.X + 4, Y: c.Y}) || !o.Has(Point{X: c.X - 3, Y: c.Y}) {
		t.Fatalf("horizontal arm should resume outside the gap")
	}
}

func TestBuildMap_TinyBoardsDegrade(t *testing.T) {
	for _, g := range []Grid{{0, 0}, {1, 1}, {2, 3}, {3, 2}, {4, 4}} {
		for _, m := range []MapType{Box, Cross} {
			o := BuildMap(Hard, m, g)
			for _, p := range o.Cells() {
				if !g.Contains(p) {
					t.Fatalf("%s on %+v: wall %v outside board", m, g, p)
				}
			}
		}
	}
}

func TestSpawnRegion(t *testing.T) {
	g := Grid{Columns: 10, Rows: 12}
	if r := SpawnRegion(Medium, Box, g); r != (Rect{MinX: 2, MinY: 2, MaxX: 7, MaxY: 9}) {
		t.Fatalf("box region=%+v", r)
	}
	if r := SpawnRegion(Easy, Box, g); r != g.Bounds() {
		t.Fatalf("easy box region=%+v want full board", r)
	}
	if r := SpawnRegion(Hard, Cross, g); r != g.Bounds() {
		t.Fatalf("cross region=%+v want full board", r)
	}
	small := Grid{Columns: 4, Rows: 4}
	if r := SpawnRegion(Hard, Box, small); r != small.Bounds() {
		t.Fatalf("tiny box region=%+v want full board", r)
	}
}

func TestObstaclesDedupAndCopy(t *testing.T) {
	o := NewObstacles([]Point{{1, 1}, {1, 1}, {2, 2}})
	if o.Len() != 2 {
		t.Fatalf("len=%d want=2", o.Len())
	}
	cells := o.Cells()
	cells[0] = Point{X: 9, Y: 9}
	if o.Has(Point{X: 9, Y: 9}) || !o.Has(Point{X: 1, Y: 1}) {
		t.Fatalf("Cells must return a copy")
	}
}

func TestParseNames(t *testing.T) {
	if d, ok := ParseDifficulty("hard"); !ok || d != Hard {
		t.Fatalf("ParseDifficulty(hard)=%v,%v", d, ok)
	}
	if _, ok := ParseDifficulty("nightmare"); ok {
		t.Fatalf("unknown difficulty accepted")
	}
	if m, ok := ParseMapType(" Cross "); !ok || m != Cross {
		t.Fatalf("ParseMapType(Cross)=%v,%v", m, ok)
	}
	if d, ok := ParseDirection("UP"); !ok || d != Up {
		t.Fatalf("ParseDirection(UP)=%v,%v", d, ok)
	}
}
