package game

import "fmt"

// Position is a grid coordinate. (0,0) is the top-left cell and y grows
// southward, matching the engine's screen-style coordinates.
type Position struct {
	X int
	Y int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Offset returns p moved one step in d. The result is not wrapped; use
// Map.Offset when the position must stay on the grid.
func (p Position) Offset(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Direction is a single-step move. Its value is the wire character.
type Direction byte

const (
	North Direction = 'n'
	South Direction = 's'
	East  Direction = 'e'
	West  Direction = 'w'
	Still Direction = 'o'
)

// Cardinals are the four moving directions, in the order the planner samples them.
var Cardinals = [4]Direction{North, South, East, West}

// AllDirections includes Still.
var AllDirections = [5]Direction{North, South, East, West, Still}

// ParseDirection maps a wire character back to a Direction.
func ParseDirection(c byte) (Direction, error) {
	d := Direction(c)
	if !d.Valid() {
		return 0, fmt.Errorf("invalid direction %q", c)
	}
	return d, nil
}

func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West, Still:
		return true
	}
	return false
}

// Delta is the unit (dx, dy) offset of d. North is y-1.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

// Invert returns the opposite direction. Still inverts to itself.
func (d Direction) Invert() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return d
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	case Still:
		return "still"
	}
	return fmt.Sprintf("direction(%d)", byte(d))
}
