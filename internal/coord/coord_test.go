package coord

import (
	"math"
	"testing"
)

func TestDirectionsAreUnitRing(t *testing.T) {
	sum := Zero
	for _, d := range Directions {
		if d.Length() != 1 {
			t.Fatalf("direction %v has length %d", d, d.Length())
		}
		sum = sum.Add(d)
	}
	if sum != Zero {
		t.Fatalf("directions do not cancel: %v", sum)
	}
}

func TestDirectionsClockwiseOrder(t *testing.T) {
	for i, d := range Directions {
		next := Directions[(i+1)%6]
		if d.CW() != next {
			t.Fatalf("CW of %v: want %v, got %v", d, next, d.CW())
		}
	}
}

func TestNeighbors(t *testing.T) {
	c := New(2, -1)
	for i, n := range c.Neighbors() {
		if want := c.Add(Directions[i]); n != want {
			t.Fatalf("neighbor %d: want %v, got %v", i, want, n)
		}
		if Distance(c, n) != 1 {
			t.Fatalf("neighbor %v not adjacent to %v", n, c)
		}
	}
}

func TestRotationInverses(t *testing.T) {
	cases := []TileCoord{Zero, New(1, 0), New(3, -2), New(-4, 1), New(0, 5)}
	for _, c := range cases {
		if c.CW().CCW() != c {
			t.Fatalf("CW then CCW of %v: got %v", c, c.CW().CCW())
		}
		if c.RotateCW(6) != c {
			t.Fatalf("full turn of %v: got %v", c, c.RotateCW(6))
		}
		if c.RotateCW(3) != c.Neg() {
			t.Fatalf("half turn of %v: got %v", c, c.RotateCW(3))
		}
		if c.RotateCW(-1) != c.CCW() {
			t.Fatalf("RotateCW(-1) of %v: got %v", c, c.RotateCW(-1))
		}
		if c.RotateCCW(2) != c.CCW().CCW() {
			t.Fatalf("RotateCCW(2) of %v: got %v", c, c.RotateCCW(2))
		}
	}
}

func TestRotateCWStepwise(t *testing.T) {
	c := New(3, -2)
	step := c
	for m := 0; m < 12; m++ {
		if got := c.RotateCW(m); got != step {
			t.Fatalf("RotateCW(%d): want %v, got %v", m, step, got)
		}
		step = step.CW()
	}
}

func TestRotateAroundCenter(t *testing.T) {
	center := New(2, 2)
	c := center.Add(Right)
	got := c.CWAround(center)
	if want := center.Add(Right.CW()); got != want {
		t.Fatalf("CWAround: want %v, got %v", want, got)
	}
	if got.CCWAround(center) != c {
		t.Fatalf("CCWAround does not invert CWAround")
	}
	if center.CWAround(center) != center {
		t.Fatalf("center must be a fixed point")
	}
}

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b TileCoord
		want int
	}{
		{Zero, Zero, 0},
		{Zero, Right, 1},
		{Zero, New(2, -1), 2},
		{New(-1, 3), New(-1, 3), 0},
		{New(0, 0), New(3, -2), 3},
		{New(1, 1), New(-2, 1), 3},
	}
	for _, tc := range cases {
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Fatalf("Distance(%v, %v): want %d, got %d", tc.a, tc.b, tc.want, got)
		}
		if got := Distance(tc.b, tc.a); got != tc.want {
			t.Fatalf("Distance(%v, %v): want %d, got %d", tc.b, tc.a, tc.want, got)
		}
	}
}

func TestWorldPosRoundTrip(t *testing.T) {
	for q := -5; q <= 5; q++ {
		for r := -5; r <= 5; r++ {
			c := New(q, r)
			x, y := c.WorldPos()
			if got := FromWorldPos(x, y); got != c {
				t.Fatalf("round trip of %v via (%f, %f): got %v", c, x, y, got)
			}
		}
	}
}

func TestFromWorldPosNearCenter(t *testing.T) {
	c := New(2, -3)
	x, y := c.WorldPos()
	// Offsets well inside the hex must land on the same tile.
	for _, d := range [][2]float64{{0.3, 0}, {-0.3, 0}, {0, 0.4}, {0, -0.4}, {0.2, 0.2}} {
		if got := FromWorldPos(x+d[0], y+d[1]); got != c {
			t.Fatalf("offset %v from %v: got %v", d, c, got)
		}
	}
}

func TestAsDegrees(t *testing.T) {
	if got := Zero.AsDegrees(); got != 0 {
		t.Fatalf("origin: got %f", got)
	}
	if got := Right.AsDegrees(); math.Abs(got) > 1e-9 {
		t.Fatalf("right: got %f", got)
	}
	// BottomRight points into the +y half plane.
	if got := BottomRight.AsDegrees(); got <= 0 || got >= 90 {
		t.Fatalf("bottom right: got %f", got)
	}
	if got := Left.AsDegrees(); math.Abs(got-180) > 1e-9 && math.Abs(got+180) > 1e-9 {
		t.Fatalf("left: got %f", got)
	}
}

func TestLessOrdering(t *testing.T) {
	cases := []struct {
		a, b TileCoord
		want bool
	}{
		{New(0, 0), New(1, 0), true},
		{New(1, 0), New(0, 0), false},
		{New(0, 0), New(0, 1), true},
		{New(0, 1), New(0, 0), false},
		{New(0, 0), New(0, 0), false},
		{New(-1, 5), New(0, -5), true},
	}
	for _, tc := range cases {
		if got := tc.a.Less(tc.b); got != tc.want {
			t.Fatalf("%v < %v: want %v, got %v", tc.a, tc.b, tc.want, got)
		}
	}
}
