// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package geom

// Matrix functions deal with 4x4 matrices used to carry camera, screen,
// NDC, raster, world, object, and shader space transforms through the
// renderer.
//
// Conforming to the RenderMan convention (row vectors, row-major storage,
// post-multiply by the transform: p' = p * M), this implementation uses
// explicitly indexed, row-major matrix members as follows:
//
//	     4x4 M4
//	[Xx, Xy, Xz, Xw]  X-axis
//	[Yx, Yy, Yz, Yw]  Y-axis
//	[Zx, Zy, Zz, Zw]  Z-axis
//	[Wx, Wy, Wz, Ww]  translation, Ww == 1 for an affine transform.
//
// See the RenderMan Interface specification §2.2 for the same convention.

import "math"

// M4 is a 4x4 matrix with individually addressable elements.
type M4 struct {
	Xx, Xy, Xz, Xw float64
	Yx, Yy, Yz, Yw float64
	Zx, Zy, Zz, Zw float64
	Wx, Wy, Wz, Ww float64
}

// M4I is a reference identity matrix. It should never be mutated.
var M4I = &M4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// Set copies a's elements into m and returns m.
func (m *M4) Set(a *M4) *M4 { *m = *a; return m }

// Identity sets m to the identity matrix and returns m.
func (m *M4) Identity() *M4 { return m.Set(M4I) }

// Mult sets m = a * b (row-vector convention: a applied first) and
// returns m. m must not alias a or b.
func (m *M4) Mult(a, b *M4) *M4 {
	m.Xx = a.Xx*b.Xx + a.Xy*b.Yx + a.Xz*b.Zx + a.Xw*b.Wx
	m.Xy = a.Xx*b.Xy + a.Xy*b.Yy + a.Xz*b.Zy + a.Xw*b.Wy
	m.Xz = a.Xx*b.Xz + a.Xy*b.Yz + a.Xz*b.Zz + a.Xw*b.Wz
	m.Xw = a.Xx*b.Xw + a.Xy*b.Yw + a.Xz*b.Zw + a.Xw*b.Ww

	m.Yx = a.Yx*b.Xx + a.Yy*b.Yx + a.Yz*b.Zx + a.Yw*b.Wx
	m.Yy = a.Yx*b.Xy + a.Yy*b.Yy + a.Yz*b.Zy + a.Yw*b.Wy
	m.Yz = a.Yx*b.Xz + a.Yy*b.Yz + a.Yz*b.Zz + a.Yw*b.Wz
	m.Yw = a.Yx*b.Xw + a.Yy*b.Yw + a.Yz*b.Zw + a.Yw*b.Ww

	m.Zx = a.Zx*b.Xx + a.Zy*b.Yx + a.Zz*b.Zx + a.Zw*b.Wx
	m.Zy = a.Zx*b.Xy + a.Zy*b.Yy + a.Zz*b.Zy + a.Zw*b.Wy
	m.Zz = a.Zx*b.Xz + a.Zy*b.Yz + a.Zz*b.Zz + a.Zw*b.Wz
	m.Zw = a.Zx*b.Xw + a.Zy*b.Yw + a.Zz*b.Zw + a.Zw*b.Ww

	m.Wx = a.Wx*b.Xx + a.Wy*b.Yx + a.Wz*b.Zx + a.Ww*b.Wx
	m.Wy = a.Wx*b.Xy + a.Wy*b.Yy + a.Wz*b.Zy + a.Ww*b.Wy
	m.Wz = a.Wx*b.Xz + a.Wy*b.Yz + a.Wz*b.Zz + a.Ww*b.Wz
	m.Ww = a.Wx*b.Xw + a.Wy*b.Yw + a.Wz*b.Zw + a.Ww*b.Ww
	return m
}

// TranslateTM sets m to a translation by (x, y, z) and returns m.
func (m *M4) TranslateTM(x, y, z float64) *M4 {
	m.Identity()
	m.Wx, m.Wy, m.Wz = x, y, z
	return m
}

// ScaleSM sets m to a scale by (x, y, z) and returns m.
func (m *M4) ScaleSM(x, y, z float64) *M4 {
	m.Identity()
	m.Xx, m.Yy, m.Zz = x, y, z
	return m
}

// RotateAa sets m to a rotation of deg degrees about the unit axis
// (x, y, z) and returns m.
func (m *M4) RotateAa(x, y, z, deg float64) *M4 {
	r := Rad(deg)
	s, c := math.Sin(r), math.Cos(r)
	t := 1 - c
	m.Xx, m.Xy, m.Xz, m.Xw = t*x*x+c, t*x*y+s*z, t*x*z-s*y, 0
	m.Yx, m.Yy, m.Yz, m.Yw = t*x*y-s*z, t*y*y+c, t*y*z+s*x, 0
	m.Zx, m.Zy, m.Zz, m.Zw = t*x*z+s*y, t*y*z-s*x, t*z*z+c, 0
	m.Wx, m.Wy, m.Wz, m.Ww = 0, 0, 0, 1
	return m
}

// SkewM sets m to a skew of the given angle (degrees), between axis1 and
// axis2 (each a unit vector), implementing the RI Skew call.
func (m *M4) SkewM(angle float64, dx1, dy1, dz1, dx2, dy2, dz2 float64) *M4 {
	m.Identity()
	t := math.Tan(Rad(angle))
	m.Xx += dx2 * dx1 * t
	m.Xy += dx2 * dy1 * t
	m.Xz += dx2 * dz1 * t
	m.Yx += dy2 * dx1 * t
	m.Yy += dy2 * dy1 * t
	m.Yz += dy2 * dz1 * t
	m.Zx += dz2 * dx1 * t
	m.Zy += dz2 * dy1 * t
	m.Zz += dz2 * dz1 * t
	return m
}

// Transpose sets m to the transpose of a and returns m. m must not alias a.
func (m *M4) Transpose(a *M4) *M4 {
	m.Xx, m.Xy, m.Xz, m.Xw = a.Xx, a.Yx, a.Zx, a.Wx
	m.Yx, m.Yy, m.Yz, m.Yw = a.Xy, a.Yy, a.Zy, a.Wy
	m.Zx, m.Zy, m.Zz, m.Zw = a.Xz, a.Yz, a.Zz, a.Wz
	m.Wx, m.Wy, m.Wz, m.Ww = a.Xw, a.Yw, a.Zw, a.Ww
	return m
}

// Invert sets m to the inverse of a and returns (m, true). If a is
// singular, m is left unchanged and false is returned; callers (the
// transform stack, normal-transform derivation) must handle this rather
// than divide by zero.
func (m *M4) Invert(a *M4) (*M4, bool) {
	// Cofactor expansion; 4x4 general inverse, not specialized for affine
	// matrices since ConcatTransform/Perspective can both appear.
	e := [16]float64{
		a.Xx, a.Xy, a.Xz, a.Xw,
		a.Yx, a.Yy, a.Yz, a.Yw,
		a.Zx, a.Zy, a.Zz, a.Zw,
		a.Wx, a.Wy, a.Wz, a.Ww,
	}
	var inv [16]float64
	inv[0] = e[5]*e[10]*e[15] - e[5]*e[11]*e[14] - e[9]*e[6]*e[15] + e[9]*e[7]*e[14] + e[13]*e[6]*e[11] - e[13]*e[7]*e[10]
	inv[4] = -e[4]*e[10]*e[15] + e[4]*e[11]*e[14] + e[8]*e[6]*e[15] - e[8]*e[7]*e[14] - e[12]*e[6]*e[11] + e[12]*e[7]*e[10]
	inv[8] = e[4]*e[9]*e[15] - e[4]*e[11]*e[13] - e[8]*e[5]*e[15] + e[8]*e[7]*e[13] + e[12]*e[5]*e[11] - e[12]*e[7]*e[9]
	inv[12] = -e[4]*e[9]*e[14] + e[4]*e[10]*e[13] + e[8]*e[5]*e[14] - e[8]*e[6]*e[13] - e[12]*e[5]*e[10] + e[12]*e[6]*e[9]
	inv[1] = -e[1]*e[10]*e[15] + e[1]*e[11]*e[14] + e[9]*e[2]*e[15] - e[9]*e[3]*e[14] - e[13]*e[2]*e[11] + e[13]*e[3]*e[10]
	inv[5] = e[0]*e[10]*e[15] - e[0]*e[11]*e[14] - e[8]*e[2]*e[15] + e[8]*e[3]*e[14] + e[12]*e[2]*e[11] - e[12]*e[3]*e[10]
	inv[9] = -e[0]*e[9]*e[15] + e[0]*e[11]*e[13] + e[8]*e[1]*e[15] - e[8]*e[3]*e[13] - e[12]*e[1]*e[11] + e[12]*e[3]*e[9]
	inv[13] = e[0]*e[9]*e[14] - e[0]*e[10]*e[13] - e[8]*e[1]*e[14] + e[8]*e[2]*e[13] + e[12]*e[1]*e[10] - e[12]*e[2]*e[9]
	inv[2] = e[1]*e[6]*e[15] - e[1]*e[7]*e[14] - e[5]*e[2]*e[15] + e[5]*e[3]*e[14] + e[13]*e[2]*e[7] - e[13]*e[3]*e[6]
	inv[6] = -e[0]*e[6]*e[15] + e[0]*e[7]*e[14] + e[4]*e[2]*e[15] - e[4]*e[3]*e[14] - e[12]*e[2]*e[7] + e[12]*e[3]*e[6]
	inv[10] = e[0]*e[5]*e[15] - e[0]*e[7]*e[13] - e[4]*e[1]*e[15] + e[4]*e[3]*e[13] + e[12]*e[1]*e[7] - e[12]*e[3]*e[5]
	inv[14] = -e[0]*e[5]*e[14] + e[0]*e[6]*e[13] + e[4]*e[1]*e[14] - e[4]*e[2]*e[13] - e[12]*e[1]*e[6] + e[12]*e[2]*e[5]
	inv[3] = -e[1]*e[6]*e[11] + e[1]*e[7]*e[10] + e[5]*e[2]*e[11] - e[5]*e[3]*e[10] - e[9]*e[2]*e[7] + e[9]*e[3]*e[6]
	inv[7] = e[0]*e[6]*e[11] - e[0]*e[7]*e[10] - e[4]*e[2]*e[11] + e[4]*e[3]*e[10] + e[8]*e[2]*e[7] - e[8]*e[3]*e[6]
	inv[11] = -e[0]*e[5]*e[11] + e[0]*e[7]*e[9] + e[4]*e[1]*e[11] - e[4]*e[3]*e[9] - e[8]*e[1]*e[7] + e[8]*e[3]*e[5]
	inv[15] = e[0]*e[5]*e[10] - e[0]*e[6]*e[9] - e[4]*e[1]*e[10] + e[4]*e[2]*e[9] + e[8]*e[1]*e[6] - e[8]*e[2]*e[5]

	det := e[0]*inv[0] + e[1]*inv[4] + e[2]*inv[8] + e[3]*inv[12]
	if det == 0 {
		return m, false
	}
	invDet := 1 / det
	m.Xx, m.Xy, m.Xz, m.Xw = inv[0]*invDet, inv[1]*invDet, inv[2]*invDet, inv[3]*invDet
	m.Yx, m.Yy, m.Yz, m.Yw = inv[4]*invDet, inv[5]*invDet, inv[6]*invDet, inv[7]*invDet
	m.Zx, m.Zy, m.Zz, m.Zw = inv[8]*invDet, inv[9]*invDet, inv[10]*invDet, inv[11]*invDet
	m.Wx, m.Wy, m.Wz, m.Ww = inv[12]*invDet, inv[13]*invDet, inv[14]*invDet, inv[15]*invDet
	return m, true
}

// NormalMatrix derives the matrix used to transform normals (the
// inverse-transpose of the upper 3x3 of the object-to-world transform,
// parameter passed to Primitive.transform).
func NormalMatrix(objectToWorld *M4) *M4 {
	inv, ok := (&M4{}).Invert(objectToWorld)
	if !ok {
		// Degenerate transform: fall back to the identity rather than
		// propagate NaNs through every shaded normal.
		return (&M4{}).Set(M4I)
	}
	return (&M4{}).Transpose(inv)
}

// Persp sets m to a RenderMan-style perspective projection with the given
// field of view (degrees, in the narrower of width/height), aspect ratio,
// and near/far clip planes, then returns m.
func (m *M4) Persp(fov, aspect, near, far float64) *M4 {
	f := 1 / math.Tan(Rad(fov)/2)
	*m = M4{}
	m.Xx = f / aspect
	m.Yy = f
	m.Zz = (far + near) / (near - far)
	m.Zw = -1
	m.Wz = (2 * far * near) / (near - far)
	return m
}

// Ortho sets m to an orthographic projection for the given screen window
// and near/far clip planes, then returns m.
func (m *M4) Ortho(left, right, bottom, top, near, far float64) *M4 {
	*m = M4{}
	m.Xx = 2 / (right - left)
	m.Yy = 2 / (top - bottom)
	m.Zz = -2 / (far - near)
	m.Wx = -(right + left) / (right - left)
	m.Wy = -(top + bottom) / (top - bottom)
	m.Wz = -(far + near) / (far - near)
	m.Ww = 1
	return m
}

// MultPoint transforms the point p by m (row-vector, p*m) and returns the
// resulting homogeneous point.
func MultPoint(p *V3, m *M4) HPoint {
	return HPoint{
		X: p.X*m.Xx + p.Y*m.Yx + p.Z*m.Zx + m.Wx,
		Y: p.X*m.Xy + p.Y*m.Yy + p.Z*m.Zy + m.Wy,
		Z: p.X*m.Xz + p.Y*m.Yz + p.Z*m.Zz + m.Wz,
		W: p.X*m.Xw + p.Y*m.Yw + p.Z*m.Zw + m.Ww,
	}
}

// MultVector transforms the direction v by m, ignoring translation, and
// returns the result. Used for Vector/Normal storage-class parameters.
func MultVector(v *V3, m *M4) V3 {
	return V3{
		X: v.X*m.Xx + v.Y*m.Yx + v.Z*m.Zx,
		Y: v.X*m.Xy + v.Y*m.Yy + v.Z*m.Zy,
		Z: v.X*m.Xz + v.Y*m.Yz + v.Z*m.Zz,
	}
}

// Project divides a homogeneous point by its W component, returning the
// 3D point. A degenerate W (|W| <= Epsilon) returns the point unprojected
// so that callers can detect and cull it rather than divide by zero.
func Project(h HPoint) (V3, bool) {
	if Aeq(h.W, 0) {
		return V3{h.X, h.Y, h.Z}, false
	}
	inv := 1 / h.W
	return V3{h.X * inv, h.Y * inv, h.Z * inv}, true
}
