package grid

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
)

var (
	ErrInvalidLayout = errors.New("invalid layout")
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func sign(a int) float64 {
	if a > 0 {
		return 1
	}
	if a < 0 {
		return -1
	}
	return 0
}

// Position on the horizontal plane, x grows east and z grows south
type Position struct {
	X int
	Z int
}

func (p Position) Eq(other Position) bool {
	return p.X == other.X && p.Z == other.Z
}

func (p Position) Manhattan(other Position) int {
	return abs(p.X-other.X) + abs(p.Z-other.Z)
}

type Tile int

const (
	Floor Tile = iota
	Wall
	Hazard
)

// Terrain is a rectangular height map with walls and hazards
type Terrain struct {
	Width   int
	Depth   int
	heights []int
	tiles   []Tile
}

func NewTerrain(width, depth int) *Terrain {
	return &Terrain{
		Width:   width,
		Depth:   depth,
		heights: make([]int, width*depth),
		tiles:   make([]Tile, width*depth),
	}
}

// ParseLayout reads one row per z from north to south.
// '.' is floor at height 0, '0'-'9' floor at that height, '#' a wall and '~' a hazard.
func ParseLayout(rows []string) (*Terrain, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidLayout)
	}
	t := NewTerrain(len(rows[0]), len(rows))
	for z, row := range rows {
		if len(row) != t.Width {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrInvalidLayout, z, len(row), t.Width)
		}
		for x, c := range row {
			i := t.idx(x, z)
			switch {
			case c == '.':
			case c >= '0' && c <= '9':
				t.heights[i] = int(c - '0')
			case c == '#':
				t.tiles[i] = Wall
			case c == '~':
				t.tiles[i] = Hazard
			default:
				return nil, fmt.Errorf("%w: unknown tile %q at (%d, %d)", ErrInvalidLayout, c, x, z)
			}
		}
	}
	if len(t.WalkableTiles()) < 2 {
		return nil, fmt.Errorf("%w: fewer than two walkable tiles", ErrInvalidLayout)
	}
	return t, nil
}

// GenerateTerrain builds random heights in 0..2, smoothed twice, and
// scatters hazards with the given probability
func GenerateTerrain(width, depth int, hazardRate float64, r *rand.Rand) *Terrain {
	t := NewTerrain(width, depth)
	for i := range t.heights {
		t.heights[i] = r.Intn(3)
	}
	t.smooth()
	t.smooth()
	for i := range t.tiles {
		if r.Float64() < hazardRate {
			t.tiles[i] = Hazard
		}
	}
	return t
}

func (t *Terrain) smooth() {
	prev := make([]int, len(t.heights))
	copy(prev, t.heights)
	for x := 0; x < t.Width; x++ {
		for z := 0; z < t.Depth; z++ {
			sum := prev[t.idx(x, z)]
			count := 1
			for _, n := range []Position{{x - 1, z}, {x + 1, z}, {x, z - 1}, {x, z + 1}} {
				if t.InBounds(n) {
					sum += prev[t.idx(n.X, n.Z)]
					count++
				}
			}
			avg := int(float64(sum)/float64(count) + 0.5)
			t.heights[t.idx(x, z)] = clamp(avg, 0, 2)
		}
	}
}

func (t *Terrain) idx(x, z int) int {
	return z*t.Width + x
}

func (t *Terrain) InBounds(p Position) bool {
	return p.X >= 0 && p.X < t.Width && p.Z >= 0 && p.Z < t.Depth
}

func (t *Terrain) Height(p Position) int {
	return t.heights[t.idx(p.X, p.Z)]
}

func (t *Terrain) Tile(p Position) Tile {
	return t.tiles[t.idx(p.X, p.Z)]
}

// CanMove is false for out of bounds targets, walls and height steps above one
func (t *Terrain) CanMove(from, to Position) bool {
	if !t.InBounds(to) || t.Tile(to) == Wall {
		return false
	}
	return abs(t.Height(to)-t.Height(from)) <= 1
}

// WalkableTiles are the floor tiles an episode can start or end on
func (t *Terrain) WalkableTiles() []Position {
	out := make([]Position, 0)
	for z := 0; z < t.Depth; z++ {
		for x := 0; x < t.Width; x++ {
			if t.tiles[t.idx(x, z)] == Floor {
				out = append(out, Position{x, z})
			}
		}
	}
	return out
}
