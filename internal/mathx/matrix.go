// Package mathx provides the small fixed-size matrix type the render
// boundary and scripts use. Column-major, like the GPU side expects.
package mathx

import "math"

// Matrix4 is a 4x4 float32 matrix, column-major.
type Matrix4 [16]float32

func Identity() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func Translation(x, y, z float32) Matrix4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// RotationZ rotates around the Z axis by rad radians.
func RotationZ(rad float32) Matrix4 {
	s, c := float32(math.Sin(float64(rad))), float32(math.Cos(float64(rad)))
	m := Identity()
	m[0], m[1] = c, s
	m[4], m[5] = -s, c
	return m
}

func Scale(x, y, z float32) Matrix4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// Mul returns a*b (apply b first, then a).
func (a Matrix4) Mul(b Matrix4) Matrix4 {
	var out Matrix4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}
