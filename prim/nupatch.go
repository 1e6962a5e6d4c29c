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

// NuPatch is a non-uniform rational B-spline surface patch. Control points carry a homogeneous weight (P.W); the knot
// vectors' lengths must equal n+order for each axis.
type NuPatch struct {
	Base
	NU, UOrder int
	UKnot      []float64
	UMin, UMax float64
	NV, VOrder int
	VKnot      []float64
	VMin, VMax float64
	P          []geom.HPoint // len NU*NV, W carries the rational weight.
	Params     *param.List
}

// NewNuPatch validates knot-vector lengths and the control-point count.
func NewNuPatch(attrs *state.Attributes, nu, uOrder int, uKnot []float64, uMin, uMax float64,
	nv, vOrder int, vKnot []float64, vMin, vMax float64, p []geom.HPoint, params *param.List) (*NuPatch, error) {
	if len(uKnot) != nu+uOrder {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: fmt.Sprintf("nupatch u knot length %d != nu+uorder (%d)", len(uKnot), nu+uOrder)}
	}
	if len(vKnot) != nv+vOrder {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: fmt.Sprintf("nupatch v knot length %d != nv+vorder (%d)", len(vKnot), nv+vOrder)}
	}
	if len(p) != nu*nv {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: fmt.Sprintf("nupatch control point count %d != nu*nv (%d)", len(p), nu*nv)}
	}
	return &NuPatch{Base: Base{Attrs: attrs}, NU: nu, UOrder: uOrder, UKnot: uKnot, UMin: uMin, UMax: uMax,
		NV: nv, VOrder: vOrder, VKnot: vKnot, VMin: vMin, VMax: vMax, P: p, Params: params}, nil
}

// basisFuncs evaluates the Cox-de Boor recurrence for every control
// point's weight at parameter u given order k and knot vector.
func basisFuncs(u float64, n, k int, knot []float64) []float64 {
	n0 := make([]float64, n+k-1)
	for i := range n0 {
		if u >= knot[i] && u < knot[i+1] {
			n0[i] = 1
		}
	}
	// Handle u at the exact upper bound: the last non-decreasing knot
	// span should still evaluate to 1 there.
	if u >= knot[len(knot)-1] {
		n0[len(n0)-1] = 1
	}
	cur := n0
	for deg := 2; deg <= k; deg++ {
		next := make([]float64, len(cur)-1)
		for i := range next {
			var a, b float64
			d1 := knot[i+deg-1] - knot[i]
			if d1 > geom.Epsilon {
				a = (u - knot[i]) / d1 * cur[i]
			}
			d2 := knot[i+deg] - knot[i+1]
			if d2 > geom.Epsilon && i+1 < len(cur) {
				b = (knot[i+deg] - u) / d2 * cur[i+1]
			}
			next[i] = a + b
		}
		cur = next
	}
	return cur
}

// bound samples the surface over the patch's current (u,v) domain; a
// split child's domain is a quarter of its parent's, so the bound
// shrinks as splitting refines and the raster-extent test can converge.
func (np *NuPatch) bound() geom.Bound {
	b := geom.EmptyBound()
	const n = 6
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			u := geom.Lerp(np.UMin, np.UMax, float64(i)/n)
			v := geom.Lerp(np.VMin, np.VMax, float64(j)/n)
			b = b.Extend(np.eval(u, v))
		}
	}
	return b
}

// Bound implements Primitive.
func (np *NuPatch) Bound(time float64) geom.Bound {
	b := np.bound()
	if np.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(np.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive.
func (np *NuPatch) Diceable(shadingRate float64, rasterExtent func(geom.Bound) (float64, float64)) bool {
	_, _, ok := DiceableByExtent(np.bound(), shadingRate, rasterExtent, DefaultMaxGridDim)
	return ok
}

func (np *NuPatch) eval(u, v float64) geom.V3 {
	bu := basisFuncs(u, np.NU, np.UOrder, np.UKnot)
	bv := basisFuncs(v, np.NV, np.VOrder, np.VKnot)
	var x, y, z, w float64
	for j := 0; j < np.NV && j < len(bv); j++ {
		for i := 0; i < np.NU && i < len(bu); i++ {
			cp := np.P[j*np.NU+i]
			weight := bu[i] * bv[j] * cp.W
			x += cp.X * weight
			y += cp.Y * weight
			z += cp.Z * weight
			w += cp.W * bu[i] * bv[j]
		}
	}
	if w == 0 {
		w = 1
	}
	return geom.V3{X: x / w, Y: y / w, Z: z / w}
}

// Dice implements Primitive.
func (np *NuPatch) Dice() *grid.MicroGrid {
	uDim, vDim, _ := DiceableByExtent(np.bound(), np.Attrs.Shading.ShadingRate, defaultRasterExtent, DefaultMaxGridDim)
	if uDim < 2 {
		uDim = 2
	}
	if vDim < 2 {
		vDim = 2
	}
	g := grid.NewMicroGrid(uDim, vDim)
	const eps = 1e-3
	for v := 0; v < vDim; v++ {
		fv := geom.Lerp(np.VMin, np.VMax, float64(v)/float64(vDim-1))
		for u := 0; u < uDim; u++ {
			fu := geom.Lerp(np.UMin, np.UMax, float64(u)/float64(uDim-1))
			pos := np.eval(fu, fv)
			posU := np.eval(geom.Clamp(fu+eps, np.UMin, np.UMax), fv)
			posV := np.eval(fu, geom.Clamp(fv+eps, np.VMin, np.VMax))
			du := geom.V3{X: posU.X - pos.X, Y: posU.Y - pos.Y, Z: posU.Z - pos.Z}
			dv := geom.V3{X: posV.X - pos.X, Y: posV.Y - pos.Y, Z: posV.Z - pos.Z}
			var n geom.V3
			n.Cross(&du, &dv)
			n.Unit()
			i := g.Index(u, v)
			g.P[i] = pos
			g.N[i] = n
			g.Ng[i] = n
			g.S[i], g.T[i] = float64(u)/float64(uDim-1), float64(v)/float64(vDim-1)
			g.Color[i] = np.Attrs.Shading.Color
			g.Opacity[i] = np.Attrs.Shading.Opacity
		}
	}
	return g
}

// Split implements Primitive: quarters the (u,v) parameter domain.
func (np *NuPatch) Split() ([]Primitive, error) {
	umid := (np.UMin + np.UMax) / 2
	vmid := (np.VMin + np.VMax) / 2
	ranges := [4][4]float64{
		{np.UMin, umid, np.VMin, vmid},
		{umid, np.UMax, np.VMin, vmid},
		{np.UMin, umid, vmid, np.VMax},
		{umid, np.UMax, vmid, np.VMax},
	}
	out := make([]Primitive, 0, 4)
	for _, r := range ranges {
		child := *np
		child.UMin, child.UMax, child.VMin, child.VMax = r[0], r[1], r[2], r[3]
		out = append(out, &child)
	}
	return out, nil
}

// Transform implements Primitive.
func (np *NuPatch) Transform(m, mInvT *geom.M4, time float64) {
	for i := range np.P {
		p3 := geom.V3{X: np.P[i].X, Y: np.P[i].Y, Z: np.P[i].Z}
		h := geom.MultPoint(&p3, m)
		np.P[i].X, np.P[i].Y, np.P[i].Z = h.X, h.Y, h.Z
	}
}
