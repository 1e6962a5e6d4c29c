// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package geom

// Named cubic spline bases used by bicubic Patch/PatchMesh
// evaluation. Each basis is a fixed 4x4 matrix plus the step value
// RiBasis/PatchMesh use to advance across shared control points.

// Basis is a named cubic basis matrix plus its default step.
type Basis struct {
	Name string
	M    M4
	Step int
}

// Bezier is the Bezier basis; step 3 (each new patch shares its last
// control point with the next).
var Bezier = Basis{"bezier", M4{
	-1, 3, -3, 1,
	3, -6, 3, 0,
	-3, 3, 0, 0,
	1, 0, 0, 0,
}, 3}

// BSpline is the uniform B-spline basis; step 1.
var BSpline = Basis{"b-spline", M4{
	-1.0 / 6, 3.0 / 6, -3.0 / 6, 1.0 / 6,
	3.0 / 6, -6.0 / 6, 3.0 / 6, 0,
	-3.0 / 6, 0, 3.0 / 6, 0,
	1.0 / 6, 4.0 / 6, 1.0 / 6, 0,
}, 1}

// CatmullRom is the Catmull-Rom interpolating basis; step 1.
var CatmullRom = Basis{"catmull-rom", M4{
	-0.5, 1.5, -1.5, 0.5,
	1.0, -2.5, 2.0, -0.5,
	-0.5, 0, 0.5, 0,
	0, 1.0, 0, 0,
}, 1}

// Hermite is the Hermite basis; step 2.
var Hermite = Basis{"hermite", M4{
	2, -2, 1, 1,
	-3, 3, -2, -1,
	0, 0, 1, 0,
	1, 0, 0, 0,
}, 2}

// Power is the power basis; step 4 (each patch is independent).
var Power = Basis{"power", M4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}, 4}

// namedBases indexes the built-in bases by the name External RI callers
// pass to RiBasis
var namedBases = map[string]*Basis{
	Bezier.Name:     &Bezier,
	BSpline.Name:    &BSpline,
	CatmullRom.Name: &CatmullRom,
	Hermite.Name:    &Hermite,
	Power.Name:      &Power,
}

// NamedBasis resolves a basis by its RI name, returning ok=false for an
// unrecognized name (the ri package turns that into an UnknownSymbol
// error rather than silently defaulting).
func NamedBasis(name string) (Basis, bool) {
	b, ok := namedBases[name]
	if !ok {
		return Basis{}, false
	}
	return *b, true
}

// EvalCubic evaluates a 1D cubic curve with the given basis and four
// control values at parameter u in [0, 1].
func EvalCubic(basis *M4, p0, p1, p2, p3, u float64) float64 {
	u2 := u * u
	u3 := u2 * u
	// row vector [u^3 u^2 u 1] * basis * column [p0 p1 p2 p3]^T
	c0 := basis.Xx*u3 + basis.Yx*u2 + basis.Zx*u + basis.Wx
	c1 := basis.Xy*u3 + basis.Yy*u2 + basis.Zy*u + basis.Wy
	c2 := basis.Xz*u3 + basis.Yz*u2 + basis.Zz*u + basis.Wz
	c3 := basis.Xw*u3 + basis.Yw*u2 + basis.Zw*u + basis.Ww
	return c0*p0 + c1*p1 + c2*p2 + c3*p3
}

// EvalCubicV3 is EvalCubic for V3 control points, used by bicubic patch
// dicing.
func EvalCubicV3(basis *M4, p0, p1, p2, p3 *V3, u float64) V3 {
	return V3{
		X: EvalCubic(basis, p0.X, p1.X, p2.X, p3.X, u),
		Y: EvalCubic(basis, p0.Y, p1.Y, p2.Y, p3.Y, u),
		Z: EvalCubic(basis, p0.Z, p1.Z, p2.Z, p3.Z, u),
	}
}
