package world

import (
	"math"

	"github.com/timeweave/engine/internal/tempo"
)

// Grid is a cell-based spatial index over the X/Z plane.
// Radius queries visit only the cells that overlap the query circle.
// Accessed only from the game loop goroutine, no locks.
type Grid struct {
	size  float64
	cells map[cellKey]map[string]struct{} // cellKey → set of body names
}

type cellKey struct {
	cx int64
	cz int64
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 10
	}
	return &Grid{size: cellSize, cells: make(map[cellKey]map[string]struct{})}
}

func (g *Grid) coord(v float64) int64 { return int64(math.Floor(v / g.size)) }

func (g *Grid) key(p tempo.Vec3) cellKey {
	return cellKey{cx: g.coord(p.X), cz: g.coord(p.Z)}
}

// Add places a body into the grid.
func (g *Grid) Add(name string, p tempo.Vec3) {
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[string]struct{})
		g.cells[k] = cell
	}
	cell[name] = struct{}{}
}

// Remove takes a body out of the grid.
func (g *Grid) Remove(name string, p tempo.Vec3) {
	k := g.key(p)
	if cell := g.cells[k]; cell != nil {
		delete(cell, name)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates a body's cell when its position changes.
func (g *Grid) Move(name string, from, to tempo.Vec3) {
	if g.key(from) == g.key(to) {
		return
	}
	g.Remove(name, from)
	g.Add(name, to)
}

// Candidates returns the names in every cell overlapping the square that
// bounds the circle. Caller does fine-grained distance filtering.
func (g *Grid) Candidates(center tempo.Vec3, radius float64) []string {
	x0, x1 := g.coord(center.X-radius), g.coord(center.X+radius)
	z0, z1 := g.coord(center.Z-radius), g.coord(center.Z+radius)
	var out []string
	for cx := x0; cx <= x1; cx++ {
		for cz := z0; cz <= z1; cz++ {
			for name := range g.cells[cellKey{cx: cx, cz: cz}] {
				out = append(out, name)
			}
		}
	}
	return out
}

// Cells reports the number of occupied cells.
func (g *Grid) Cells() int { return len(g.cells) }
