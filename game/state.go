// Package game defines the core value types for a single-player grid snake
// game: board coordinates, directions, difficulty and map selection, food,
// and the per-game State advanced by the rules package.
//
// Coordinates follow screen conventions: (0,0) is the top-left cell, X grows
// to the right and Y grows downward.
package game

import "fmt"

// Point is a board coordinate (column, row).
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Add returns p translated by one step in direction d.
func (p Point) Add(d Direction) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// State is everything the rules need to advance one tick.
// Obstacles are shared between clones since they never change mid-game.
type State struct {
	Grid      Grid
	Snake     []Point // head first
	Direction Direction
	Food      Food
	Obstacles Obstacles
	Tick      int
}

// Head returns the first snake segment.
func (s *State) Head() Point {
	return s.Snake[0]
}

// Occupied reports whether p is covered by the snake body.
func (s *State) Occupied(p Point) bool {
	for _, c := range s.Snake {
		if c == p {
			return true
		}
	}
	return false
}

// Clone performs a deep copy of the mutable parts of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	out := &State{
		Grid:      s.Grid,
		Direction: s.Direction,
		Food:      s.Food,
		Obstacles: s.Obstacles,
		Tick:      s.Tick,
	}

	if len(s.Snake) > 0 {
		out.Snake = make([]Point, len(s.Snake))
		copy(out.Snake, s.Snake)
	}

	return out
}
