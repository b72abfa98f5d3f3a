// Package coord provides axial hex coordinates for the tile grid,
// pointy-top orientation. See https://www.redblobgames.com/grids/hexagons/
// for the coordinate conventions.
package coord

import (
	"fmt"
	"math"
)

// TileCoord is an axial hex coordinate. The third cube coordinate s is
// derived: s = -q - r.
type TileCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

func New(q, r int) TileCoord { return TileCoord{Q: q, R: r} }

var Zero = TileCoord{}

// The six unit directions, pointy-top orientation. The order is the
// clockwise edge order starting at the top-right edge; Rotate walks it.
var (
	TopRight    = TileCoord{Q: 1, R: -1}
	Right       = TileCoord{Q: 1, R: 0}
	BottomRight = TileCoord{Q: 0, R: 1}
	BottomLeft  = TileCoord{Q: -1, R: 1}
	Left        = TileCoord{Q: -1, R: 0}
	TopLeft     = TileCoord{Q: 0, R: -1}
)

// Directions lists the six unit directions in clockwise order.
var Directions = [6]TileCoord{TopRight, Right, BottomRight, BottomLeft, Left, TopLeft}

func (c TileCoord) S() int { return -c.Q - c.R }

func (c TileCoord) Add(o TileCoord) TileCoord { return TileCoord{Q: c.Q + o.Q, R: c.R + o.R} }
func (c TileCoord) Sub(o TileCoord) TileCoord { return TileCoord{Q: c.Q - o.Q, R: c.R - o.R} }
func (c TileCoord) Neg() TileCoord            { return TileCoord{Q: -c.Q, R: -c.R} }
func (c TileCoord) Mul(k int) TileCoord       { return TileCoord{Q: c.Q * k, R: c.R * k} }

// Neighbors returns the six adjacent coordinates in direction order.
func (c TileCoord) Neighbors() [6]TileCoord {
	var out [6]TileCoord
	for i, d := range Directions {
		out[i] = c.Add(d)
	}
	return out
}

// CW rotates c one step clockwise around the origin.
func (c TileCoord) CW() TileCoord { return TileCoord{Q: -c.R, R: -c.S()} }

// CCW rotates c one step counter-clockwise around the origin.
func (c TileCoord) CCW() TileCoord { return TileCoord{Q: -c.S(), R: -c.Q} }

// RotateCW rotates c clockwise by m sixth-turns around the origin.
func (c TileCoord) RotateCW(m int) TileCoord {
	switch ((m % 6) + 6) % 6 {
	case 1:
		return c.CW()
	case 2:
		return c.CW().CW()
	case 3:
		return c.Neg()
	case 4:
		return c.CCW().CCW()
	case 5:
		return c.CCW()
	default:
		return c
	}
}

// RotateCCW rotates c counter-clockwise by m sixth-turns around the origin.
func (c TileCoord) RotateCCW(m int) TileCoord { return c.RotateCW(-m) }

// CWAround rotates c one step clockwise around center.
func (c TileCoord) CWAround(center TileCoord) TileCoord {
	return c.Sub(center).CW().Add(center)
}

// CCWAround rotates c one step counter-clockwise around center.
func (c TileCoord) CCWAround(center TileCoord) TileCoord {
	return c.Sub(center).CCW().Add(center)
}

// Length returns the hex distance from the origin.
func (c TileCoord) Length() int {
	q, r, s := abs(c.Q), abs(c.R), abs(c.S())
	return max(q, max(r, s))
}

// Distance returns the hex distance between a and b.
func Distance(a, b TileCoord) int { return a.Sub(b).Length() }

const sqrt3 = 1.7320508075688772

// WorldPos converts c to a world position, pointy-top layout with tile
// size 1.
func (c TileCoord) WorldPos() (x, y float64) {
	x = sqrt3*float64(c.Q) + sqrt3/2*float64(c.R)
	y = 1.5 * float64(c.R)
	return x, y
}

// AsDegrees returns the angle in degrees of the coordinate's world
// position vector. The origin maps to 0.
func (c TileCoord) AsDegrees() float64 {
	x, y := c.WorldPos()
	if x == 0 && y == 0 {
		return 0
	}
	return math.Atan2(y, x) * 180 / math.Pi
}

// Round converts a fractional hex coordinate to the nearest TileCoord.
func Round(q, r float64) TileCoord {
	qr, rr := math.Round(q), math.Round(r)
	dq, dr := q-qr, r-rr
	if math.Abs(dq) >= math.Abs(dr) {
		qr += math.Round(dq + 0.5*dr)
	} else {
		rr += math.Round(dr + 0.5*dq)
	}
	return TileCoord{Q: int(qr), R: int(rr)}
}

// FromWorldPos converts a world position back to the containing tile.
func FromWorldPos(x, y float64) TileCoord {
	q := sqrt3/3*x - 1.0/3*y
	r := 2.0 / 3 * y
	return Round(q, r)
}

// Less orders coordinates by q then r. The scheduler uses this order for
// its tick broadcast so that contested transactions resolve the same way
// on every run.
func (c TileCoord) Less(o TileCoord) bool {
	if c.Q != o.Q {
		return c.Q < o.Q
	}
	return c.R < o.R
}

func (c TileCoord) String() string { return fmt.Sprintf("(%d, %d)", c.Q, c.R) }

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
