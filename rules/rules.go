// Package rules implements the single-snake tick transition.
package rules

import (
	"github.com/brensch/gridsnake/game"
)

// Outcome is what happened on one tick.
type Outcome int

const (
	Moved Outcome = iota
	Ate
	HitWall
	HitObstacle
	HitSelf
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case Ate:
		return "ate"
	case HitWall:
		return "wall"
	case HitObstacle:
		return "obstacle"
	case HitSelf:
		return "self"
	default:
		return "unknown"
	}
}

// Fatal reports whether the outcome ends the game.
func (o Outcome) Fatal() bool {
	return o == HitWall || o == HitObstacle || o == HitSelf
}

// CanTurn reports whether requested may replace the direction applied on the
// last tick. Reversing straight into the neck is never allowed.
func CanTurn(active, requested game.Direction) bool {
	if !requested.Valid() {
		return false
	}
	return requested != active.Opposite()
}

// SpawnSnake returns the two-cell starting body: head on the board center,
// tail one cell to its left, facing right.
func SpawnSnake(g game.Grid) []game.Point {
	head := g.Center()
	return []game.Point{head, {X: head.X - 1, Y: head.Y}}
}

// Step applies dir and returns the next state with the outcome.
//
// Order matters: bounds and walls are checked before the body moves, food is
// checked after the new head is inserted, and self collision is checked after
// the tail has (or has not) been dropped. On a fatal outcome the returned
// state is the input state unchanged apart from the committed direction.
// Food replacement is the caller's job when the outcome is Ate.
func Step(state *game.State, dir game.Direction) (*game.State, Outcome) {
	next := state.Clone()
	next.Direction = dir

	newHead := state.Head().Add(dir)

	if !state.Grid.Contains(newHead) {
		return next, HitWall
	}
	if state.Obstacles.Has(newHead) {
		return next, HitObstacle
	}

	ate := newHead == state.Food.Cell

	body := make([]game.Point, 0, len(state.Snake)+1)
	body = append(body, newHead)
	body = append(body, state.Snake...)
	if !ate {
		body = body[:len(body)-1]
	}

	for _, p := range body[1:] {
		if p == newHead {
			return next, HitSelf
		}
	}

	next.Snake = body
	next.Tick++
	if ate {
		return next, Ate
	}
	return next, Moved
}
