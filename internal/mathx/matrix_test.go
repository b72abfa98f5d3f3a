package mathx

import (
	"math"
	"testing"
)

func approxEqual(a, b Matrix4) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}

func TestIdentityIsNeutral(t *testing.T) {
	m := Translation(1, 2, 3).Mul(RotationZ(0.7))
	if got := Identity().Mul(m); !approxEqual(got, m) {
		t.Fatalf("I*m != m: %v", got)
	}
	if got := m.Mul(Identity()); !approxEqual(got, m) {
		t.Fatalf("m*I != m: %v", got)
	}
}

func TestTranslationComposes(t *testing.T) {
	got := Translation(1, 2, 0).Mul(Translation(3, -1, 5))
	if want := Translation(4, 1, 5); !approxEqual(got, want) {
		t.Fatalf("translation compose: %v", got)
	}
}

func TestRotationZFullTurn(t *testing.T) {
	quarter := RotationZ(math.Pi / 2)
	full := quarter.Mul(quarter).Mul(quarter).Mul(quarter)
	if !approxEqual(full, Identity()) {
		t.Fatalf("four quarter turns: %v", full)
	}
}

func TestRotationZRotatesX(t *testing.T) {
	m := RotationZ(math.Pi / 2)
	// The first column is the image of the x axis: (0, 1, 0).
	if math.Abs(float64(m[0])) > 1e-6 || math.Abs(float64(m[1]-1)) > 1e-6 {
		t.Fatalf("x axis image: (%f, %f)", m[0], m[1])
	}
}

func TestScale(t *testing.T) {
	got := Scale(2, 3, 4).Mul(Scale(0.5, 1, 0.25))
	if want := Scale(1, 3, 1); !approxEqual(got, want) {
		t.Fatalf("scale compose: %v", got)
	}
}
