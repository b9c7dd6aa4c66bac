package game

import "fmt"

// MapCell is one square of the grid. Unit is refreshed every turn; Structure
// persists once placed.
type MapCell struct {
	Pos       Position
	Yield     int
	Unit      *Entity
	Structure *Entity
}

// IsEmpty reports whether neither a unit nor a structure is present.
func (c *MapCell) IsEmpty() bool { return c.Unit == nil && c.Structure == nil }

func (c *MapCell) IsOccupied() bool { return c.Unit != nil }

func (c *MapCell) HasStructure() bool { return c.Structure != nil }

// MarkOccupied records u as the cell's occupant for the current turn.
func (c *MapCell) MarkOccupied(u *Entity) { c.Unit = u }

func (c *MapCell) String() string {
	return fmt.Sprintf("Cell{pos=%s,yield=%d}", c.Pos, c.Yield)
}

// MaxMapSide bounds either map dimension. Engine maps are at most 64 cells
// on a side.
const MaxMapSide = 256

// Map is the toroidal grid. Every lookup by position is normalized first, so
// callers can pass unwrapped coordinates freely.
type Map struct {
	Width  int
	Height int
	cells  []MapCell // row-major: cells[y*Width+x]
}

// NewMap builds a width x height grid. yields is indexed [y][x]; a nil yields
// slice produces an all-zero grid.
func NewMap(width, height int, yields [][]int) (*Map, error) {
	if width <= 0 || height <= 0 || width > MaxMapSide || height > MaxMapSide {
		return nil, fmt.Errorf("invalid map dimensions: %dx%d", width, height)
	}
	if yields != nil && len(yields) != height {
		return nil, fmt.Errorf("yield rows=%d want=%d", len(yields), height)
	}
	m := &Map{Width: width, Height: height, cells: make([]MapCell, width*height)}
	for y := 0; y < height; y++ {
		if yields != nil && len(yields[y]) != width {
			return nil, fmt.Errorf("yield row %d has %d cells, want %d", y, len(yields[y]), width)
		}
		for x := 0; x < width; x++ {
			c := &m.cells[y*width+x]
			c.Pos = Position{X: x, Y: y}
			if yields != nil {
				c.Yield = yields[y][x]
			}
		}
	}
	return m, nil
}

// Normalize wraps p into [0,Width) x [0,Height).
func (m *Map) Normalize(p Position) Position {
	return Position{
		X: ((p.X % m.Width) + m.Width) % m.Width,
		Y: ((p.Y % m.Height) + m.Height) % m.Height,
	}
}

// At returns the cell at p after normalization.
func (m *Map) At(p Position) *MapCell {
	p = m.Normalize(p)
	return &m.cells[p.Y*m.Width+p.X]
}

// Offset moves p one step in d and wraps the result.
func (m *Map) Offset(p Position, d Direction) Position {
	return m.Normalize(p.Offset(d))
}

// Neighbors returns the four wrapped cardinal neighbours of p, in Cardinals order.
func (m *Map) Neighbors(p Position) [4]Position {
	var out [4]Position
	for i, d := range Cardinals {
		out[i] = m.Offset(p, d)
	}
	return out
}

// Distance is the toroidal Manhattan distance between a and b.
func (m *Map) Distance(a, b Position) int {
	a, b = m.Normalize(a), m.Normalize(b)
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	return min(dx, m.Width-dx) + min(dy, m.Height-dy)
}

// Towards returns the directions that shorten the toroidal distance from src
// to dst: at most one per axis, x first. The result ignores occupancy; it is
// empty when src and dst are the same cell.
func (m *Map) Towards(src, dst Position) []Direction {
	src, dst = m.Normalize(src), m.Normalize(dst)
	dirs := make([]Direction, 0, 2)

	dx := abs(src.X - dst.X)
	wrappedDx := m.Width - dx
	switch {
	case src.X < dst.X:
		if dx > wrappedDx {
			dirs = append(dirs, West)
		} else {
			dirs = append(dirs, East)
		}
	case src.X > dst.X:
		if dx < wrappedDx {
			dirs = append(dirs, West)
		} else {
			dirs = append(dirs, East)
		}
	}

	dy := abs(src.Y - dst.Y)
	wrappedDy := m.Height - dy
	switch {
	case src.Y < dst.Y:
		if dy > wrappedDy {
			dirs = append(dirs, North)
		} else {
			dirs = append(dirs, South)
		}
	case src.Y > dst.Y:
		if dy < wrappedDy {
			dirs = append(dirs, North)
		} else {
			dirs = append(dirs, South)
		}
	}
	return dirs
}

// Yields copies the current yield grid, indexed [y][x].
func (m *Map) Yields() [][]int {
	out := make([][]int, m.Height)
	for y := range out {
		row := make([]int, m.Width)
		for x := range row {
			row[x] = m.cells[y*m.Width+x].Yield
		}
		out[y] = row
	}
	return out
}

func (m *Map) clearUnits() {
	for i := range m.cells {
		m.cells[i].Unit = nil
	}
}

func (m *Map) String() string {
	return fmt.Sprintf("Map{width=%d,height=%d}", m.Width, m.Height)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
