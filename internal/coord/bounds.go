package coord

// TileBounds is a hex-convex region: the intersection of closed ranges on
// the three cube axes. Both the radial bound and the tight hull of a coord
// set are representable this way.
type TileBounds struct {
	QMin, QMax int
	RMin, RMax int
	SMin, SMax int

	empty bool
}

// EmptyBounds contains no coordinates.
func EmptyBounds() TileBounds { return TileBounds{empty: true} }

// Radial returns the bound of all coordinates within radius of the origin.
func Radial(radius int) TileBounds {
	if radius < 0 {
		return EmptyBounds()
	}
	return TileBounds{
		QMin: -radius, QMax: radius,
		RMin: -radius, RMax: radius,
		SMin: -radius, SMax: radius,
	}
}

// Hull returns the tight convex bound of the given coordinates.
func Hull(coords []TileCoord) TileBounds {
	if len(coords) == 0 {
		return EmptyBounds()
	}
	b := TileBounds{
		QMin: coords[0].Q, QMax: coords[0].Q,
		RMin: coords[0].R, RMax: coords[0].R,
		SMin: coords[0].S(), SMax: coords[0].S(),
	}
	for _, c := range coords[1:] {
		b.QMin = min(b.QMin, c.Q)
		b.QMax = max(b.QMax, c.Q)
		b.RMin = min(b.RMin, c.R)
		b.RMax = max(b.RMax, c.R)
		b.SMin = min(b.SMin, c.S())
		b.SMax = max(b.SMax, c.S())
	}
	return b
}

// Contains reports whether c lies inside the bound.
func (b TileBounds) Contains(c TileCoord) bool {
	if b.empty {
		return false
	}
	return c.Q >= b.QMin && c.Q <= b.QMax &&
		c.R >= b.RMin && c.R <= b.RMax &&
		c.S() >= b.SMin && c.S() <= b.SMax
}

// Coords returns every coordinate in the bound, in q-then-r order.
func (b TileBounds) Coords() []TileCoord {
	if b.empty {
		return nil
	}
	var out []TileCoord
	for q := b.QMin; q <= b.QMax; q++ {
		// s = -q-r, so the s range bounds r from both sides.
		rLo := max(b.RMin, -q-b.SMax)
		rHi := min(b.RMax, -q-b.SMin)
		for r := rLo; r <= rHi; r++ {
			out = append(out, TileCoord{Q: q, R: r})
		}
	}
	return out
}

// Translate shifts the bound by offset.
func (b TileBounds) Translate(offset TileCoord) TileBounds {
	if b.empty {
		return b
	}
	s := offset.S()
	return TileBounds{
		QMin: b.QMin + offset.Q, QMax: b.QMax + offset.Q,
		RMin: b.RMin + offset.R, RMax: b.RMax + offset.R,
		SMin: b.SMin + s, SMax: b.SMax + s,
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
