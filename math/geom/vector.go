// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package geom

import "math"

// V2 is a 2 element vector, used for (s,t) texture coordinates and
// raster-space offsets.
type V2 struct {
	X, Y float64
}

// V3 is a 3 element vector. Depending on context it is used as a Point,
// a Vector (direction, transforms without translation), or a Normal
// (transforms by the inverse-transpose). The storage is the same; the
// distinction is carried by the caller, exactly as the RenderMan
// interface distinguishes the three at the type-declaration level.
type V3 struct {
	X, Y, Z float64
}

// HPoint is a homogeneous point: a V3 plus the W component produced by
// projective transforms.
type HPoint struct {
	X, Y, Z, W float64
}

// SetS sets v's elements from scalars and returns v.
func (v *V3) SetS(x, y, z float64) *V3 { v.X, v.Y, v.Z = x, y, z; return v }

// Set copies a's elements into v and returns v.
func (v *V3) Set(a *V3) *V3 { v.X, v.Y, v.Z = a.X, a.Y, a.Z; return v }

// Eq reports exact equality.
func (v *V3) Eq(a *V3) bool { return v.X == a.X && v.Y == a.Y && v.Z == a.Z }

// Aeq reports almost-equality within Epsilon per component.
func (v *V3) Aeq(a *V3) bool { return Aeq(v.X, a.X) && Aeq(v.Y, a.Y) && Aeq(v.Z, a.Z) }

// Add sets v = a + b and returns v.
func (v *V3) Add(a, b *V3) *V3 { v.X, v.Y, v.Z = a.X+b.X, a.Y+b.Y, a.Z+b.Z; return v }

// Sub sets v = a - b and returns v.
func (v *V3) Sub(a, b *V3) *V3 { v.X, v.Y, v.Z = a.X-b.X, a.Y-b.Y, a.Z-b.Z; return v }

// Scale sets v = a * s and returns v.
func (v *V3) Scale(a *V3, s float64) *V3 { v.X, v.Y, v.Z = a.X*s, a.Y*s, a.Z*s; return v }

// Dot returns the dot product of v and a.
func (v *V3) Dot(a *V3) float64 { return v.X*a.X + v.Y*a.Y + v.Z*a.Z }

// Cross sets v = a x b and returns v. v must not alias a or b.
func (v *V3) Cross(a, b *V3) *V3 {
	v.X = a.Y*b.Z - a.Z*b.Y
	v.Y = a.Z*b.X - a.X*b.Z
	v.Z = a.X*b.Y - a.Y*b.X
	return v
}

// Len returns the Euclidean length of v.
func (v *V3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Unit normalizes v in place and returns v. A zero vector is left unchanged.
func (v *V3) Unit() *V3 {
	l := v.Len()
	if l <= Epsilon {
		return v
	}
	inv := 1 / l
	v.X, v.Y, v.Z = v.X*inv, v.Y*inv, v.Z*inv
	return v
}

// Lerp sets v = a + (b-a)*t and returns v.
func (v *V3) Lerp(a, b *V3, t float64) *V3 {
	v.X = Lerp(a.X, b.X, t)
	v.Y = Lerp(a.Y, b.Y, t)
	v.Z = Lerp(a.Z, b.Z, t)
	return v
}
