package game

import (
	"fmt"
	"strings"
)

// Direction is a unit step on the board.
type Direction struct {
	X int
	Y int
}

var (
	Right = Direction{X: 1, Y: 0}
	Left  = Direction{X: -1, Y: 0}
	Down  = Direction{X: 0, Y: 1}
	Up    = Direction{X: 0, Y: -1}
)

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return Direction{X: -d.X, Y: -d.Y}
}

// Valid reports whether d is one of the four unit vectors.
func (d Direction) Valid() bool {
	switch d {
	case Right, Left, Down, Up:
		return true
	}
	return false
}

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Left:
		return "left"
	case Down:
		return "down"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("dir(%d,%d)", d.X, d.Y)
	}
}

// ParseDirection accepts "up", "down", "left" and "right" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "right":
		return Right, true
	case "left":
		return Left, true
	case "down":
		return Down, true
	case "up":
		return Up, true
	}
	return Direction{}, false
}

// Difficulty is an ordered tier. Obstacles and gold food are gated off at Easy.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

var difficultyNames = [...]string{"Easy", "Medium", "Hard"}

func (d Difficulty) String() string {
	if d < Easy || d > Hard {
		return fmt.Sprintf("Difficulty(%d)", int(d))
	}
	return difficultyNames[d]
}

// SpeedMultiplier scales the base tick interval at game start.
func (d Difficulty) SpeedMultiplier() float64 {
	switch d {
	case Medium:
		return 0.9
	case Hard:
		return 0.75
	default:
		return 1.0
	}
}

// ParseDifficulty is case-insensitive. Unknown names report false.
func ParseDifficulty(s string) (Difficulty, bool) {
	for i, name := range difficultyNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Difficulty(i), true
		}
	}
	return Easy, false
}

// MapType selects the obstacle layout.
type MapType int

const (
	Classic MapType = iota
	Box
	Cross
)

var mapTypeNames = [...]string{"Classic", "Box", "Cross"}

func (m MapType) String() string {
	if m < Classic || m > Cross {
		return fmt.Sprintf("MapType(%d)", int(m))
	}
	return mapTypeNames[m]
}

// ParseMapType is case-insensitive. Unknown names report false.
func ParseMapType(s string) (MapType, bool) {
	for i, name := range mapTypeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return MapType(i), true
		}
	}
	return Classic, false
}

// Tier is the reward category of a food item.
type Tier int

const (
	Normal Tier = iota
	Gold
)

func (t Tier) String() string {
	if t == Gold {
		return "gold"
	}
	return "normal"
}

// Points is the score awarded for eating food of this tier.
func (t Tier) Points() int {
	if t == Gold {
		return 2
	}
	return 1
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts "gold"; anything else decodes as Normal.
func (t *Tier) UnmarshalText(b []byte) error {
	if strings.EqualFold(string(b), "gold") {
		*t = Gold
	} else {
		*t = Normal
	}
	return nil
}

// Food is the single item on the board.
type Food struct {
	Cell Point `json:"cell"`
	Tier Tier  `json:"tier"`
}
