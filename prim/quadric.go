// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package prim

import (
	"math"

	"github.com/aqsisrender/core/grid"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/state"
)

// QuadricKind selects which parametric surface a Quadric evaluates.
type QuadricKind int

const (
	Sphere QuadricKind = iota
	Cone
	Cylinder
	Hyperboloid
	Paraboloid
	Disk
	Torus
)

// Quadric is a parametric quadric surface. Each kind's
// (u,v) -> object-space-point evaluator matches the RenderMan Interface
// specification's own parametric forms.
type Quadric struct {
	Base
	Kind QuadricKind

	// Shared radius/height parameters; not every field is meaningful for
	// every Kind (documented per constructor).
	Radius, Height              float64
	ThetaMax                    float64 // sweep angle, degrees.
	ZMin, ZMax                  float64
	Point1, Point2              geom.V3 // Hyperboloid's two defining points.
	MajorRadius, MinorRadius    float64 // Torus.
	PhiMin, PhiMax              float64 // Torus minor-circle sweep, degrees.

	Params *param.List
}

// NewSphere constructs a Sphere quadric.
func NewSphere(attrs *state.Attributes, radius, zmin, zmax, thetaMax float64, params *param.List) *Quadric {
	return &Quadric{Base: Base{Attrs: attrs}, Kind: Sphere, Radius: radius, ZMin: zmin, ZMax: zmax, ThetaMax: thetaMax, Params: params}
}

// NewCone constructs a Cone quadric.
func NewCone(attrs *state.Attributes, height, radius, thetaMax float64, params *param.List) *Quadric {
	return &Quadric{Base: Base{Attrs: attrs}, Kind: Cone, Height: height, Radius: radius, ThetaMax: thetaMax, Params: params}
}

// NewCylinder constructs a Cylinder quadric.
func NewCylinder(attrs *state.Attributes, radius, zmin, zmax, thetaMax float64, params *param.List) *Quadric {
	return &Quadric{Base: Base{Attrs: attrs}, Kind: Cylinder, Radius: radius, ZMin: zmin, ZMax: zmax, ThetaMax: thetaMax, Params: params}
}

// NewHyperboloid constructs a Hyperboloid quadric swept between point1 and point2.
func NewHyperboloid(attrs *state.Attributes, p1, p2 geom.V3, thetaMax float64, params *param.List) *Quadric {
	return &Quadric{Base: Base{Attrs: attrs}, Kind: Hyperboloid, Point1: p1, Point2: p2, ThetaMax: thetaMax, Params: params}
}

// NewParaboloid constructs a Paraboloid quadric.
func NewParaboloid(attrs *state.Attributes, rmax, zmin, zmax, thetaMax float64, params *param.List) *Quadric {
	return &Quadric{Base: Base{Attrs: attrs}, Kind: Paraboloid, Radius: rmax, ZMin: zmin, ZMax: zmax, ThetaMax: thetaMax, Params: params}
}

// NewDisk constructs a Disk quadric.
func NewDisk(attrs *state.Attributes, height, radius, thetaMax float64, params *param.List) *Quadric {
	return &Quadric{Base: Base{Attrs: attrs}, Kind: Disk, Height: height, Radius: radius, ThetaMax: thetaMax, Params: params}
}

// NewTorus constructs a Torus quadric.
func NewTorus(attrs *state.Attributes, majorR, minorR, phiMin, phiMax, thetaMax float64, params *param.List) *Quadric {
	return &Quadric{Base: Base{Attrs: attrs}, Kind: Torus, MajorRadius: majorR, MinorRadius: minorR, PhiMin: phiMin, PhiMax: phiMax, ThetaMax: thetaMax, Params: params}
}

// eval returns the object-space point at parametric (u, v) in [0,1]^2 for
// q's Kind.
func (q *Quadric) eval(u, v float64) geom.V3 {
	theta := geom.Rad(q.ThetaMax) * u
	st, ct := math.Sin(theta), math.Cos(theta)
	switch q.Kind {
	case Sphere:
		z := geom.Lerp(q.ZMin, q.ZMax, v)
		z = geom.Clamp(z, -q.Radius, q.Radius)
		r := math.Sqrt(math.Max(0, q.Radius*q.Radius-z*z))
		return geom.V3{X: r * ct, Y: r * st, Z: z}
	case Cone:
		z := q.Height * v
		r := q.Radius * (1 - v)
		return geom.V3{X: r * ct, Y: r * st, Z: z}
	case Cylinder:
		z := geom.Lerp(q.ZMin, q.ZMax, v)
		return geom.V3{X: q.Radius * ct, Y: q.Radius * st, Z: z}
	case Hyperboloid:
		p := geom.V3{}
		p.Lerp(&q.Point1, &q.Point2, v)
		r := math.Hypot(p.X, p.Y)
		ang := math.Atan2(p.Y, p.X)
		// Sweep the (r at z) circle by theta relative to the start point's
		// own azimuth so theta=0 reproduces the defining point exactly.
		a := ang + theta
		return geom.V3{X: r * math.Cos(a), Y: r * math.Sin(a), Z: p.Z}
	case Paraboloid:
		z := geom.Lerp(q.ZMin, q.ZMax, v)
		r := q.Radius * math.Sqrt(math.Max(0, z/q.ZMax))
		return geom.V3{X: r * ct, Y: r * st, Z: z}
	case Disk:
		r := q.Radius * (1 - v)
		return geom.V3{X: r * ct, Y: r * st, Z: q.Height}
	case Torus:
		phi := geom.Rad(geom.Lerp(q.PhiMin, q.PhiMax, v))
		r := q.MajorRadius + q.MinorRadius*math.Cos(phi)
		z := q.MinorRadius * math.Sin(phi)
		return geom.V3{X: r * ct, Y: r * st, Z: z}
	default:
		return geom.V3{}
	}
}

// Bound implements Primitive: sampled from a coarse parametric grid
// (exact analytic bounds exist per kind, but a sampled bound is uniform
// across all seven kinds and cheap relative to dicing).
func (q *Quadric) Bound(time float64) geom.Bound {
	b := geom.EmptyBound()
	const n = 8
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			b = b.Extend(q.eval(float64(i)/n, float64(j)/n))
		}
	}
	if q.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(q.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive.
func (q *Quadric) Diceable(shadingRate float64, rasterExtent func(geom.Bound) (float64, float64)) bool {
	_, _, ok := DiceableByExtent(q.Bound(0), shadingRate, rasterExtent, DefaultMaxGridDim)
	return ok
}

// Dice implements Primitive.
func (q *Quadric) Dice() *grid.MicroGrid {
	uDim, vDim, _ := DiceableByExtent(q.Bound(0), q.Attrs.Shading.ShadingRate, defaultRasterExtent, DefaultMaxGridDim)
	if uDim < 2 {
		uDim = 2
	}
	if vDim < 2 {
		vDim = 2
	}
	g := grid.NewMicroGrid(uDim, vDim)
	const eps = 1e-3
	for v := 0; v < vDim; v++ {
		fv := float64(v) / float64(vDim-1)
		for u := 0; u < uDim; u++ {
			fu := float64(u) / float64(uDim-1)
			pos := q.eval(fu, fv)
			posU := q.eval(geom.Clamp(fu+eps, 0, 1), fv)
			posV := q.eval(fu, geom.Clamp(fv+eps, 0, 1))
			du := geom.V3{X: posU.X - pos.X, Y: posU.Y - pos.Y, Z: posU.Z - pos.Z}
			dv := geom.V3{X: posV.X - pos.X, Y: posV.Y - pos.Y, Z: posV.Z - pos.Z}
			var n geom.V3
			n.Cross(&du, &dv)
			n.Unit()
			i := g.Index(u, v)
			g.P[i] = pos
			g.N[i] = n
			g.Ng[i] = n
			g.S[i], g.T[i] = fu, fv
			g.Color[i] = q.Attrs.Shading.Color
			g.Opacity[i] = q.Attrs.Shading.Opacity
		}
	}
	return g
}

// Split implements Primitive: quarters the (u,v) domain the same way
// NuPatch does, by wrapping 4 sub-range Quadric clones.
func (q *Quadric) Split() ([]Primitive, error) {
	return []Primitive{&quadricRange{Quadric: q, u0: 0, u1: 0.5, v0: 0, v1: 0.5},
		&quadricRange{Quadric: q, u0: 0.5, u1: 1, v0: 0, v1: 0.5},
		&quadricRange{Quadric: q, u0: 0, u1: 0.5, v0: 0.5, v1: 1},
		&quadricRange{Quadric: q, u0: 0.5, u1: 1, v0: 0.5, v1: 1}}, nil
}

// quadricRange restricts a Quadric's (u,v) domain for one split child,
// delegating evaluation to the parent's eval with remapped parameters.
type quadricRange struct {
	*Quadric
	u0, u1, v0, v1 float64
}

func (r *quadricRange) remap(u, v float64) (float64, float64) {
	return geom.Lerp(r.u0, r.u1, u), geom.Lerp(r.v0, r.v1, v)
}

func (r *quadricRange) Bound(time float64) geom.Bound {
	b := geom.EmptyBound()
	const n = 6
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			u, v := r.remap(float64(i)/n, float64(j)/n)
			b = b.Extend(r.Quadric.eval(u, v))
		}
	}
	return b
}

func (r *quadricRange) Diceable(shadingRate float64, rasterExtent func(geom.Bound) (float64, float64)) bool {
	_, _, ok := DiceableByExtent(r.Bound(0), shadingRate, rasterExtent, DefaultMaxGridDim)
	return ok
}

func (r *quadricRange) Dice() *grid.MicroGrid {
	uDim, vDim, _ := DiceableByExtent(r.Bound(0), r.Attrs.Shading.ShadingRate, defaultRasterExtent, DefaultMaxGridDim)
	if uDim < 2 {
		uDim = 2
	}
	if vDim < 2 {
		vDim = 2
	}
	g := grid.NewMicroGrid(uDim, vDim)
	const eps = 1e-3
	for v := 0; v < vDim; v++ {
		fv := float64(v) / float64(vDim-1)
		for u := 0; u < uDim; u++ {
			fu := float64(u) / float64(uDim-1)
			ru, rv := r.remap(fu, fv)
			pos := r.Quadric.eval(ru, rv)
			ru2, rv2 := r.remap(geom.Clamp(fu+eps, 0, 1), fv)
			posU := r.Quadric.eval(ru2, rv2)
			ru3, rv3 := r.remap(fu, geom.Clamp(fv+eps, 0, 1))
			posV := r.Quadric.eval(ru3, rv3)
			du := geom.V3{X: posU.X - pos.X, Y: posU.Y - pos.Y, Z: posU.Z - pos.Z}
			dv := geom.V3{X: posV.X - pos.X, Y: posV.Y - pos.Y, Z: posV.Z - pos.Z}
			var n geom.V3
			n.Cross(&du, &dv)
			n.Unit()
			i := g.Index(u, v)
			g.P[i] = pos
			g.N[i] = n
			g.Ng[i] = n
			g.S[i], g.T[i] = fu, fv
			g.Color[i] = r.Attrs.Shading.Color
			g.Opacity[i] = r.Attrs.Shading.Opacity
		}
	}
	return g
}

func (r *quadricRange) Split() ([]Primitive, error) {
	mu, mv := (r.u0+r.u1)/2, (r.v0+r.v1)/2
	return []Primitive{
		&quadricRange{Quadric: r.Quadric, u0: r.u0, u1: mu, v0: r.v0, v1: mv},
		&quadricRange{Quadric: r.Quadric, u0: mu, u1: r.u1, v0: r.v0, v1: mv},
		&quadricRange{Quadric: r.Quadric, u0: r.u0, u1: mu, v0: mv, v1: r.v1},
		&quadricRange{Quadric: r.Quadric, u0: mu, u1: r.u1, v0: mv, v1: r.v1},
	}, nil
}

// Transform implements Primitive. Hyperboloid is the only kind whose
// control data is explicit points, so only its Point1/Point2 are
// pre-transformed; all other quadrics are evaluated directly from
// scalar parameters in object space, and the bucket package always
// carries the owning Transform alongside.
func (q *Quadric) Transform(m, mInvT *geom.M4, time float64) {
	if q.Kind == Hyperboloid {
		h1 := geom.MultPoint(&q.Point1, m)
		h2 := geom.MultPoint(&q.Point2, m)
		q.Point1, _ = geom.Project(h1)
		q.Point2, _ = geom.Project(h2)
	}
}
