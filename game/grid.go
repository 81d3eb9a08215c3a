package game

// DefaultCellSize is used whenever a configured cell size is not positive.
const DefaultCellSize = 24

// Grid is the playable board extent in cells.
type Grid struct {
	Columns int
	Rows    int
}

// NewGrid derives the board from a canvas extent and a cell size by integer
// division. A non-positive cell size falls back to DefaultCellSize.
func NewGrid(canvasWidth, canvasHeight, cellSize int) Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	g := Grid{Columns: canvasWidth / cellSize, Rows: canvasHeight / cellSize}
	if g.Columns < 0 {
		g.Columns = 0
	}
	if g.Rows < 0 {
		g.Rows = 0
	}
	return g
}

// Contains reports whether p lies in [0, Columns) x [0, Rows).
func (g Grid) Contains(p Point) bool {
	return p.X >= 0 && p.X < g.Columns && p.Y >= 0 && p.Y < g.Rows
}

// Center is the spawn cell of the snake head.
func (g Grid) Center() Point {
	return Point{X: g.Columns / 2, Y: g.Rows / 2}
}

// Rect is an inclusive cell range.
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

// Empty reports whether the range holds no cells.
func (r Rect) Empty() bool {
	return r.MaxX < r.MinX || r.MaxY < r.MinY
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Bounds is the whole board as a Rect.
func (g Grid) Bounds() Rect {
	return Rect{MinX: 0, MinY: 0, MaxX: g.Columns - 1, MaxY: g.Rows - 1}
}

// SpawnRegion is where food may appear. On a Box map (above Easy) it is the
// interior of the wall ring, 2 .. extent-3 on both axes. A board too small to
// have an interior falls back to the whole board.
func SpawnRegion(d Difficulty, m MapType, g Grid) Rect {
	if d == Easy || m != Box {
		return g.Bounds()
	}
	inner := Rect{MinX: 2, MinY: 2, MaxX: g.Columns - 3, MaxY: g.Rows - 3}
	if inner.Empty() {
		return g.Bounds()
	}
	return inner
}

// Obstacles is an immutable set of wall cells.
type Obstacles struct {
	cells []Point
	index map[Point]struct{}
}

// NewObstacles builds a set from cells, dropping duplicates but keeping the
// first-seen order.
func NewObstacles(cells []Point) Obstacles {
	o := Obstacles{index: make(map[Point]struct{}, len(cells))}
	for _, c := range cells {
		if _, ok := o.index[c]; ok {
			continue
		}
		o.index[c] = struct{}{}
		o.cells = append(o.cells, c)
	}
	return o
}

// Has reports whether p is a wall.
func (o Obstacles) Has(p Point) bool {
	_, ok := o.index[p]
	return ok
}

// Len is the number of wall cells.
func (o Obstacles) Len() int {
	return len(o.cells)
}

// Cells returns a copy of the wall cells.
func (o Obstacles) Cells() []Point {
	if len(o.cells) == 0 {
		return nil
	}
	out := make([]Point, len(o.cells))
	copy(out, o.cells)
	return out
}

// BuildMap lays out the walls for a game. Easy and Classic have none.
//
// Box is a one-cell ring at offset 1 from every edge. Cross is a horizontal
// line on the middle row and a vertical line on the middle column, both from
// offset 2 to extent-2, with the row around the center carved out so the
// spawn position and the first few cells ahead of it are always open.
// Boards too small for the offsets simply yield fewer (or no) walls.
func BuildMap(d Difficulty, m MapType, g Grid) Obstacles {
	if d == Easy {
		return NewObstacles(nil)
	}

	var cells []Point
	switch m {
	case Box:
		for x := 1; x < g.Columns-1; x++ {
			cells = append(cells, Point{X: x, Y: 1}, Point{X: x, Y: g.Rows - 2})
		}
		for y := 1; y < g.Rows-1; y++ {
			cells = append(cells, Point{X: 1, Y: y}, Point{X: g.Columns - 2, Y: y})
		}
	case Cross:
		c := g.Center()
		for x := 2; x < g.Columns-2; x++ {
			cells = append(cells, Point{X: x, Y: c.Y})
		}
		for y := 2; y < g.Rows-2; y++ {
			cells = append(cells, Point{X: c.X, Y: y})
		}
		kept := cells[:0]
		for _, p := range cells {
			if p.Y == c.Y && p.X >= c.X-2 && p.X <= c.X+3 {
				continue
			}
			kept = append(kept, p)
		}
		cells = kept
	}
	return NewObstacles(cells)
}
