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

// BlobbyOp is one opcode in the Blobby implicit-surface VM.
type BlobbyOp int

const (
	OpConstant BlobbyOp = iota
	OpEllipsoid
	OpSegment
	OpPlane
	OpAdd
	OpMultiply
	OpMin
	OpMax
	OpDivide
	OpSubtract
	OpNegate
)

// BlobbyInstr is one stack-machine instruction: an opcode plus its
// operands stored inline in the fields below or, for Add/Multiply, the
// number of stack operands it consumes.
type BlobbyInstr struct {
	Op      BlobbyOp
	Matrix  geom.M4 // Ellipsoid's defining transform.
	Radius  float64 // Segment radius.
	P1, P2  geom.V3 // Segment endpoints.
	N       geom.V3 // Plane normal.
	D       float64 // Plane distance from origin.
	NArgs   int     // for Add/Multiply: number of stack operands to combine (at least 2).
}

// Blobby is an implicit-surface primitive evaluated as a sum of field
// primitives combined by a small stack VM, polygonized via marching
// cubes.
type Blobby struct {
	Base
	Program []BlobbyInstr
	Params  *param.List

	bound geom.Bound
}

// NewBlobby constructs a Blobby from its VM program and an already-known
// object-space bound (callers derive the bound from the constituent
// primitives' own extents before constructing, since the VM program
// alone does not bound an arbitrary combination cheaply).
func NewBlobby(attrs *state.Attributes, program []BlobbyInstr, bound geom.Bound, params *param.List) *Blobby {
	return &Blobby{Base: Base{Attrs: attrs}, Program: program, Params: params, bound: bound}
}

// field evaluates the implicit VM program at point p, returning the
// scalar field value (each primitive's field peaks at 1 at its center and
// falls to 0 at its boundary; Split polygonizes the 0.5 level set).
func (b *Blobby) field(p geom.V3) float64 {
	var stack []float64
	push := func(v float64) { stack = append(stack, v) }
	pop := func() float64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	for _, instr := range b.Program {
		switch instr.Op {
		case OpConstant:
			push(1)
		case OpEllipsoid:
			inv, ok := (&geom.M4{}).Invert(&instr.Matrix)
			if !ok {
				push(0)
				continue
			}
			local, _ := geom.Project(geom.MultPoint(&p, inv))
			r2 := local.X*local.X + local.Y*local.Y + local.Z*local.Z
			push(fieldFalloff(r2))
		case OpSegment:
			d2 := distToSegment2(p, instr.P1, instr.P2)
			r2 := instr.Radius * instr.Radius
			push(fieldFalloff(d2 / maxf(r2, geom.Epsilon)))
		case OpPlane:
			dist := instr.N.Dot(&p) - instr.D
			if dist <= 0 {
				push(1)
			} else {
				push(0)
			}
		case OpAdd:
			n := instr.NArgs
			if n < 2 {
				n = 2
			}
			var sum float64
			for i := 0; i < n; i++ {
				sum += pop()
			}
			push(sum)
		case OpMultiply:
			n := instr.NArgs
			if n < 2 {
				n = 2
			}
			prod := 1.0
			for i := 0; i < n; i++ {
				prod *= pop()
			}
			push(prod)
		case OpMin:
			b1, a1 := pop(), pop()
			push(math.Min(a1, b1))
		case OpMax:
			b1, a1 := pop(), pop()
			push(math.Max(a1, b1))
		case OpDivide:
			b1, a1 := pop(), pop()
			if b1 == 0 {
				push(0)
			} else {
				push(a1 / b1)
			}
		case OpSubtract:
			b1, a1 := pop(), pop()
			push(a1 - b1)
		case OpNegate:
			push(-pop())
		}
	}
	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1]
}

func fieldFalloff(r2 float64) float64 {
	if r2 >= 1 {
		return 0
	}
	t := 1 - r2
	return t * t * t
}

func distToSegment2(p, a, b geom.V3) float64 {
	ab := geom.V3{X: b.X - a.X, Y: b.Y - a.Y, Z: b.Z - a.Z}
	ap := geom.V3{X: p.X - a.X, Y: p.Y - a.Y, Z: p.Z - a.Z}
	abLen2 := ab.Dot(&ab)
	if abLen2 <= geom.Epsilon {
		return ap.Dot(&ap)
	}
	t := geom.Clamp(ap.Dot(&ab)/abLen2, 0, 1)
	closest := geom.V3{X: a.X + ab.X*t, Y: a.Y + ab.Y*t, Z: a.Z + ab.Z*t}
	d := geom.V3{X: p.X - closest.X, Y: p.Y - closest.Y, Z: p.Z - closest.Z}
	return d.Dot(&d)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Bound implements Primitive.
func (b *Blobby) Bound(time float64) geom.Bound { return b.bound }

// Diceable implements Primitive: a Blobby is never diced directly; Split
// always polygonizes it via marching cubes.
func (b *Blobby) Diceable(float64, func(geom.Bound) (float64, float64)) bool { return false }

// Dice implements Primitive; unreachable.
func (b *Blobby) Dice() *grid.MicroGrid { return grid.NewMicroGrid(1, 1) }

// Split implements Primitive: polygonizes via marching cubes at a
// resolution derived from the bound's largest extent and the shading
// rate.
func (b *Blobby) Split() ([]Primitive, error) {
	rate := b.Attrs.Shading.ShadingRate
	if rate <= 0 {
		rate = 1
	}
	extent := b.bound.MaxExtent()
	res := int(extent / math.Sqrt(rate) * 8)
	if res < 4 {
		res = 4
	}
	if res > 48 {
		res = 48
	}
	tris := marchingCubes(b.field, b.bound, res)
	out := make([]Primitive, 0, len(tris))
	for _, tri := range tris {
		poly, err := NewPolygon(b.Attrs, tri[:], b.Params)
		if err != nil {
			continue
		}
		out = append(out, poly)
	}
	return out, nil
}

// marchingCubes is a minimal marching-cubes implementation producing one
// triangle per cube edge-crossing pair found by linear interpolation
// along cube edges that straddle the field==0.5 isosurface; this is a
// simplified variant (vertex-centered sign test rather than the full
// 256-case edge table) adequate for smooth, roughly-convex blobby unions.
func marchingCubes(field func(geom.V3) float64, bound geom.Bound, res int) [][3]geom.V3 {
	const iso = 0.5
	step := geom.V3{
		X: (bound.Max.X - bound.Min.X) / float64(res),
		Y: (bound.Max.Y - bound.Min.Y) / float64(res),
		Z: (bound.Max.Z - bound.Min.Z) / float64(res),
	}
	if step.X <= 0 || step.Y <= 0 || step.Z <= 0 {
		return nil
	}
	var tris [][3]geom.V3
	sample := func(i, j, k int) (geom.V3, float64) {
		p := geom.V3{X: bound.Min.X + float64(i)*step.X, Y: bound.Min.Y + float64(j)*step.Y, Z: bound.Min.Z + float64(k)*step.Z}
		return p, field(p)
	}
	for i := 0; i < res; i++ {
		for j := 0; j < res; j++ {
			for k := 0; k < res; k++ {
				p0, f0 := sample(i, j, k)
				px, fx := sample(i+1, j, k)
				py, fy := sample(i, j+1, k)
				pz, fz := sample(i, j, k+1)
				if crosses(f0, fx, iso) {
					tris = append(tris, cellTriangle(p0, px, py, f0, fx, fy, iso)...)
				}
				if crosses(f0, fy, iso) {
					tris = append(tris, cellTriangle(p0, py, pz, f0, fy, fz, iso)...)
				}
				if crosses(f0, fz, iso) {
					tris = append(tris, cellTriangle(p0, pz, px, f0, fz, fx, iso)...)
				}
			}
		}
	}
	return tris
}

func crosses(a, b, iso float64) bool { return (a-iso)*(b-iso) < 0 }

func cellTriangle(p0, p1, p2 geom.V3, f0, f1, f2, iso float64) [][3]geom.V3 {
	e01 := interpEdge(p0, p1, f0, f1, iso)
	e02 := interpEdge(p0, p2, f0, f2, iso)
	return [][3]geom.V3{{e01, e02, p0}}
}

func interpEdge(a, b geom.V3, fa, fb, iso float64) geom.V3 {
	if math.Abs(fb-fa) < geom.Epsilon {
		return a
	}
	t := (iso - fa) / (fb - fa)
	t = geom.Clamp(t, 0, 1)
	var out geom.V3
	out.Lerp(&a, &b, t)
	return out
}

// Transform implements Primitive: composes m into every Ellipsoid/
// Segment/Plane instruction's defining transform/points so the VM
// program evaluates directly in the new space.
func (b *Blobby) Transform(m, mInvT *geom.M4, time float64) {
	for i := range b.Program {
		instr := &b.Program[i]
		switch instr.Op {
		case OpEllipsoid:
			var combined geom.M4
			combined.Mult(&instr.Matrix, m)
			instr.Matrix = combined
		case OpSegment:
			h1 := geom.MultPoint(&instr.P1, m)
			h2 := geom.MultPoint(&instr.P2, m)
			instr.P1, _ = geom.Project(h1)
			instr.P2, _ = geom.Project(h2)
		case OpPlane:
			var q geom.V3
			if n2 := instr.N.Dot(&instr.N); n2 > geom.Epsilon {
				q = geom.V3{X: instr.N.X * instr.D / n2, Y: instr.N.Y * instr.D / n2, Z: instr.N.Z * instr.D / n2}
			}
			qNew, _ := geom.Project(geom.MultPoint(&q, m))
			instr.N = geom.MultVector(&instr.N, mInvT)
			instr.D = instr.N.Dot(&qNew)
		}
	}
	b.bound = b.bound.Transform(m)
}
