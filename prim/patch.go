// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package prim

import (
	"fmt"

	"github.com/aqsisrender/core/grid"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// Patch is a single bilinear (4-vertex) or bicubic (16-vertex) patch.
// Bicubic evaluation uses the current attribute's u/v basis and step.
type Patch struct {
	Base
	Bicubic bool
	P       []geom.V3 // len 4 (bilinear) or 16 (bicubic).
	Params  *param.List

	bound geom.Bound
}

// NewPatch validates the control-point count for kind (4 for bilinear, 16
// for bicubic) before constructing.
func NewPatch(attrs *state.Attributes, bicubic bool, p []geom.V3, params *param.List) (*Patch, error) {
	want := 4
	if bicubic {
		want = 16
	}
	if len(p) != want {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: fmt.Sprintf("patch needs %d control points, got %d", want, len(p))}
	}
	pt := &Patch{Base: Base{Attrs: attrs}, Bicubic: bicubic, P: p, Params: params}
	pt.bound = computeBound(p)
	return pt, nil
}

// Bound implements Primitive.
func (p *Patch) Bound(time float64) geom.Bound {
	b := p.bound
	if p.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(p.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive.
func (p *Patch) Diceable(shadingRate float64, rasterExtent func(geom.Bound) (float64, float64)) bool {
	_, _, ok := DiceableByExtent(p.bound, shadingRate, rasterExtent, DefaultMaxGridDim)
	return ok
}

// eval returns the patch surface point and derivative-based normal at
// parametric (u, v) in [0,1]^2.
func (p *Patch) eval(u, v float64) (geom.V3, geom.V3) {
	if !p.Bicubic {
		// Bilinear: corners ordered (0,0) (1,0) (0,1) (1,1).
		p00, p10, p01, p11 := p.P[0], p.P[1], p.P[2], p.P[3]
		top := geom.V3{}
		top.Lerp(&p00, &p10, u)
		bot := geom.V3{}
		bot.Lerp(&p01, &p11, u)
		pos := geom.V3{}
		pos.Lerp(&top, &bot, v)

		du := geom.V3{X: p10.X - p00.X, Y: p10.Y - p00.Y, Z: p10.Z - p00.Z}
		dv := geom.V3{X: p01.X - p00.X, Y: p01.Y - p00.Y, Z: p01.Z - p00.Z}
		n := geom.V3{}
		n.Cross(&du, &dv)
		n.Unit()
		return pos, n
	}
	basis := p.Attrs.Geometric.UBasis.M
	vbasis := p.Attrs.Geometric.VBasis.M
	// Evaluate 4 u-curves (one per row of the 4x4 control grid), then
	// interpolate those across v with the v-basis.
	var rows [4]geom.V3
	for r := 0; r < 4; r++ {
		c0, c1, c2, c3 := p.P[r*4+0], p.P[r*4+1], p.P[r*4+2], p.P[r*4+3]
		rows[r] = geom.EvalCubicV3(&basis, &c0, &c1, &c2, &c3, u)
	}
	pos := geom.EvalCubicV3(&vbasis, &rows[0], &rows[1], &rows[2], &rows[3], v)

	// Approximate the normal from finite-difference tangents; exact
	// analytic derivatives of the cubic basis are unnecessary at REYES
	// dicing resolution.
	const eps = 1e-3
	var rowsU [4]geom.V3
	for r := 0; r < 4; r++ {
		c0, c1, c2, c3 := p.P[r*4+0], p.P[r*4+1], p.P[r*4+2], p.P[r*4+3]
		rowsU[r] = geom.EvalCubicV3(&basis, &c0, &c1, &c2, &c3, geom.Clamp(u+eps, 0, 1))
	}
	posU := geom.EvalCubicV3(&vbasis, &rowsU[0], &rowsU[1], &rowsU[2], &rowsU[3], v)
	posV := geom.EvalCubicV3(&vbasis, &rows[0], &rows[1], &rows[2], &rows[3], geom.Clamp(v+eps, 0, 1))
	du := geom.V3{X: posU.X - pos.X, Y: posU.Y - pos.Y, Z: posU.Z - pos.Z}
	dv := geom.V3{X: posV.X - pos.X, Y: posV.Y - pos.Y, Z: posV.Z - pos.Z}
	n := geom.V3{}
	n.Cross(&du, &dv)
	n.Unit()
	return pos, n
}

// Dice implements Primitive.
func (p *Patch) Dice() *grid.MicroGrid {
	uDim, vDim, _ := DiceableByExtent(p.bound, p.Attrs.Shading.ShadingRate, defaultRasterExtent, DefaultMaxGridDim)
	if uDim < 2 {
		uDim = 2
	}
	if vDim < 2 {
		vDim = 2
	}
	g := grid.NewMicroGrid(uDim, vDim)
	for v := 0; v < vDim; v++ {
		fv := float64(v) / float64(vDim-1)
		for u := 0; u < uDim; u++ {
			fu := float64(u) / float64(uDim-1)
			pos, n := p.eval(fu, fv)
			i := g.Index(u, v)
			g.P[i] = pos
			g.N[i] = n
			g.Ng[i] = n
			g.S[i], g.T[i] = fu, fv
			g.Color[i] = p.Attrs.Shading.Color
			g.Opacity[i] = p.Attrs.Shading.Opacity
		}
	}
	return g
}

// defaultRasterExtent is a fallback used only when a primitive's own
// Dice is exercised outside the bucket pipeline (e.g. unit tests); the
// bucket package always supplies its own raster-projecting closure.
func defaultRasterExtent(b geom.Bound) (float64, float64) {
	return b.Max.X - b.Min.X, b.Max.Y - b.Min.Y
}

// Split implements Primitive: a patch that fails the raster-extent test
// is quartered in (u, v) into 4 child patches.
func (p *Patch) Split() ([]Primitive, error) {
	if !p.Bicubic {
		return splitBilinear(p)
	}
	return splitBicubic(p)
}

func splitBilinear(p *Patch) ([]Primitive, error) {
	p00, p10, p01, p11 := p.P[0], p.P[1], p.P[2], p.P[3]
	mid := func(a, b geom.V3) geom.V3 { var m geom.V3; m.Lerp(&a, &b, 0.5); return m }
	top := mid(p00, p10)
	bot := mid(p01, p11)
	left := mid(p00, p01)
	right := mid(p10, p11)
	center := mid(top, bot)

	quads := [4][4]geom.V3{
		{p00, top, left, center},
		{top, p10, center, right},
		{left, center, p01, bot},
		{center, right, bot, p11},
	}
	out := make([]Primitive, 0, 4)
	for _, q := range quads {
		child, err := NewPatch(p.Attrs, false, q[:], p.Params)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func splitBicubic(p *Patch) ([]Primitive, error) {
	// Subdivide by re-evaluating the cubic surface on a 4x4 sub-grid for
	// each quadrant and refitting (approximation: re-sample corners at
	// quarter/half/three-quarter parametric positions, which is exact
	// for the control-point positions since the basis is cubic and these
	// are themselves on the same surface).
	quadrants := [4][2][2]float64{
		{{0, 0.5}, {0, 0.5}},
		{{0.5, 1}, {0, 0.5}},
		{{0, 0.5}, {0.5, 1}},
		{{0.5, 1}, {0.5, 1}},
	}
	out := make([]Primitive, 0, 4)
	for _, q := range quadrants {
		us := [4]float64{q[0][0], lerpRange(q[0][0], q[0][1], 1.0/3), lerpRange(q[0][0], q[0][1], 2.0/3), q[0][1]}
		vs := [4]float64{q[1][0], lerpRange(q[1][0], q[1][1], 1.0/3), lerpRange(q[1][0], q[1][1], 2.0/3), q[1][1]}
		cps := make([]geom.V3, 16)
		for vi, v := range vs {
			for ui, u := range us {
				pos, _ := p.eval(u, v)
				cps[vi*4+ui] = pos
			}
		}
		child, err := NewPatch(p.Attrs, true, cps, p.Params)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func lerpRange(a, b, t float64) float64 { return a + (b-a)*t }

// Transform implements Primitive.
func (p *Patch) Transform(m, mInvT *geom.M4, time float64) {
	for i := range p.P {
		h := geom.MultPoint(&p.P[i], m)
		proj, _ := geom.Project(h)
		p.P[i] = proj
	}
	p.bound = computeBound(p.P)
}

// PatchMesh is a grid of bilinear or bicubic patches sharing control
// points, periodic or non-periodic in u and/or v. NU*NV control points; the number of patches is derived
// from the basis step.
type PatchMesh struct {
	Base
	Bicubic            bool
	NU, NV             int
	PeriodicU, PeriodicV bool
	P                  []geom.V3
	Params             *param.List
}

// NewPatchMesh validates NU*NV == len(p).
func NewPatchMesh(attrs *state.Attributes, bicubic bool, nu, nv int, periodicU, periodicV bool, p []geom.V3, params *param.List) (*PatchMesh, error) {
	if nu*nv != len(p) {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: fmt.Sprintf("patchmesh nu*nv (%d) != vertex count (%d)", nu*nv, len(p))}
	}
	return &PatchMesh{Base: Base{Attrs: attrs}, Bicubic: bicubic, NU: nu, NV: nv, PeriodicU: periodicU, PeriodicV: periodicV, P: p, Params: params}, nil
}

// Bound implements Primitive.
func (pm *PatchMesh) Bound(time float64) geom.Bound { return computeBound(pm.P) }

// Diceable implements Primitive: always false; Split always breaks the
// mesh into per-patch Patch primitives.
func (pm *PatchMesh) Diceable(float64, func(geom.Bound) (float64, float64)) bool { return false }

// Dice implements Primitive; unreachable.
func (pm *PatchMesh) Dice() *grid.MicroGrid { return grid.NewMicroGrid(1, 1) }

// Split implements Primitive: emits one Patch per (u,v) patch span,
// stepping by the attribute's UStep/VStep (bicubic) or 1 (bilinear).
func (pm *PatchMesh) Split() ([]Primitive, error) {
	uStep, vStep := 1, 1
	if pm.Bicubic {
		uStep, vStep = pm.Attrs.Geometric.UStep, pm.Attrs.Geometric.VStep
		if uStep < 1 {
			uStep = 1
		}
		if vStep < 1 {
			vStep = 1
		}
	}
	patchSpan := 4
	if !pm.Bicubic {
		patchSpan = 2
	}
	nuPatches := patchCount(pm.NU, patchSpan, uStep, pm.PeriodicU)
	nvPatches := patchCount(pm.NV, patchSpan, vStep, pm.PeriodicV)

	out := make([]Primitive, 0, nuPatches*nvPatches)
	for pv := 0; pv < nvPatches; pv++ {
		for pu := 0; pu < nuPatches; pu++ {
			cps := make([]geom.V3, 0, patchSpan*patchSpan)
			for dv := 0; dv < patchSpan; dv++ {
				vi := (pv*vStep + dv) % pm.NV
				for du := 0; du < patchSpan; du++ {
					ui := (pu*uStep + du) % pm.NU
					cps = append(cps, pm.P[vi*pm.NU+ui])
				}
			}
			patch, err := NewPatch(pm.Attrs, pm.Bicubic, cps, pm.Params)
			if err != nil {
				return nil, err
			}
			out = append(out, patch)
		}
	}
	return out, nil
}

func patchCount(n, span, step int, periodic bool) int {
	if periodic {
		return n / step
	}
	if n < span {
		return 0
	}
	return (n-span)/step + 1
}

// Transform implements Primitive.
func (pm *PatchMesh) Transform(m, mInvT *geom.M4, time float64) {
	for i := range pm.P {
		h := geom.MultPoint(&pm.P[i], m)
		proj, _ := geom.Project(h)
		pm.P[i] = proj
	}
}
