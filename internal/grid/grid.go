// Package grid implements the axial hex coordinate system shared by the
// room store, the terrain generator, and clients.
// The third cube coordinate s is derived: s = -q - r.
package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coord addresses a cell on the hex grid in axial coordinates.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (c Coord) S() int {
	return -c.Q - c.R
}

// ID returns the canonical cell identifier for the coordinate.
func (c Coord) ID() string {
	return FormatID(c.Q, c.R)
}

// FormatID renders the canonical "q,r" cell identifier: base-10 integers,
// comma separator, no whitespace.
func FormatID(q, r int) string {
	return strconv.Itoa(q) + "," + strconv.Itoa(r)
}

// ParseID parses a canonical cell identifier back into a coordinate.
// ParseID(FormatID(q, r)) always round-trips losslessly.
func ParseID(id string) (Coord, error) {
	qs, rs, ok := strings.Cut(id, ",")
	if !ok {
		return Coord{}, fmt.Errorf("parse cell id %q: missing separator", id)
	}
	q, err := strconv.Atoi(qs)
	if err != nil {
		return Coord{}, fmt.Errorf("parse cell id %q: %w", id, err)
	}
	r, err := strconv.Atoi(rs)
	if err != nil {
		return Coord{}, fmt.Errorf("parse cell id %q: %w", id, err)
	}
	return Coord{Q: q, R: r}, nil
}

// Point is a position on the 2D layout plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToCartesian maps a cell to its center on the layout plane for flat-top
// hexes of the given size.
//
// Renderers place meshes at (x, -z): positive r maps to negative world z.
// The sign flip is the fixed orientation convention of the grid, not an
// error, and it is the caller's to apply.
func ToCartesian(q, r int, hexSize float64) (x, z float64) {
	x = hexSize * 1.5 * float64(q)
	z = hexSize * (math.Sqrt(3)/2*float64(q) + math.Sqrt(3)*float64(r))
	return x, z
}

// Corners returns the six corner points of a cell, counter-clockwise
// starting at angle 0. The ordering is fixed so adjacent cells share edge
// vertices exactly.
func Corners(q, r int, hexSize float64) [6]Point {
	cx, cz := ToCartesian(q, r, hexSize)
	var corners [6]Point
	for i := 0; i < 6; i++ {
		angle := math.Pi / 3 * float64(i)
		corners[i] = Point{
			X: cx + hexSize*math.Cos(angle),
			Y: cz + hexSize*math.Sin(angle),
		}
	}
	return corners
}

// Round snaps fractional axial coordinates to the nearest cell using cube
// rounding: round q, r, and s independently, then recompute the component
// with the largest rounding error so q+r+s = 0 holds again. The q check
// runs before the r check; keeping that order stable avoids boundary
// flicker when a pointer hovers an edge.
func Round(q, r float64) Coord {
	s := -q - r

	rq := math.Round(q)
	rr := math.Round(r)
	rs := math.Round(s)

	dq := math.Abs(rq - q)
	dr := math.Abs(rr - r)
	ds := math.Abs(rs - s)

	if dq > dr && dq > ds {
		rq = -rr - rs
	} else if dr > ds {
		rr = -rq - rs
	}

	return Coord{Q: int(rq), R: int(rr)}
}

// CellsWithinRadius enumerates the hexagonal region of cells at most radius
// steps from center. The result holds exactly 3r²+3r+1 cells.
func CellsWithinRadius(center Coord, radius int) []Coord {
	if radius < 0 {
		return nil
	}
	cells := make([]Coord, 0, 3*radius*radius+3*radius+1)
	for q := -radius; q <= radius; q++ {
		lo := max(-radius, -q-radius)
		hi := min(radius, -q+radius)
		for r := lo; r <= hi; r++ {
			cells = append(cells, Coord{Q: center.Q + q, R: center.R + r})
		}
	}
	return cells
}

// neighborDirections lists the six adjacent offsets in axial coordinates.
var neighborDirections = [6]Coord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent coordinates.
func (c Coord) Neighbors() [6]Coord {
	var result [6]Coord
	for i, dir := range neighborDirections {
		result[i] = Coord{Q: c.Q + dir.Q, R: c.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two cells: the max of the three
// absolute cube-coordinate differences.
func Distance(a, b Coord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return max(dq, max(dr, ds))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
