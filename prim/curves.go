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

// CurveBasis selects the per-segment evaluation
// names: a linear curve's vertices are straight segment endpoints; a
// cubic curve's vertices feed the attribute's UBasis/VStep the same way
// a bicubic Patch does.
type CurveBasis int

const (
	LinearCurve CurveBasis = iota
	CubicCurve
)

// Curves is a set of independent curve segments, each diced as a thin
// ribbon facing the camera. Width may be supplied per-vertex (Width) or as a single
// ConstantWidth for every curve.
type Curves struct {
	Base
	Basis         CurveBasis
	NVerts        []int // per-curve vertex count.
	Periodic      bool
	P             []geom.V3
	Width         []float64 // per-vertex, parallel to P; nil uses ConstantWidth.
	ConstantWidth float64
	Params        *param.List

	bound geom.Bound
}

// NewCurves validates the per-curve vertex counts (linear needs >= 2,
// cubic needs >= 4). A cubic count is not checked against the
// attribute's VStep; vertices past the last whole segment are ignored.
func NewCurves(attrs *state.Attributes, basis CurveBasis, nverts []int, periodic bool, p []geom.V3, width []float64, constantWidth float64, params *param.List) (*Curves, error) {
	sum := 0
	minVerts := 2
	if basis == CubicCurve {
		minVerts = 4
	}
	for _, nv := range nverts {
		if nv < minVerts {
			return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
				Message: fmt.Sprintf("curves segment needs >= %d vertices, got %d", minVerts, nv)}
		}
		sum += nv
	}
	if sum != len(p) {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: "curves nvertices does not sum to len(P)"}
	}
	if len(width) != 0 && len(width) != len(p) {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: "curves width count does not match vertex count"}
	}
	c := &Curves{Base: Base{Attrs: attrs}, Basis: basis, NVerts: nverts, Periodic: periodic, P: p, Width: width, ConstantWidth: constantWidth, Params: params}
	c.bound = c.computeBound()
	return c, nil
}

func (c *Curves) computeBound() geom.Bound {
	b := computeBound(c.P)
	margin := c.ConstantWidth
	for _, w := range c.Width {
		if w > margin {
			margin = w
		}
	}
	if margin > 0 {
		b = b.Expand(margin / 2)
	}
	return b
}

func (c *Curves) widthAt(i int) float64 {
	if len(c.Width) > i {
		return c.Width[i]
	}
	if c.ConstantWidth > 0 {
		return c.ConstantWidth
	}
	return 0.01
}

// Bound implements Primitive.
func (c *Curves) Bound(time float64) geom.Bound {
	b := c.bound
	if c.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(c.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive.
func (c *Curves) Diceable(shadingRate float64, rasterExtent func(geom.Bound) (float64, float64)) bool {
	if len(c.NVerts) <= 1 {
		// A single curve has nothing left to partition; dice it whatever
		// its extent.
		return true
	}
	_, _, ok := DiceableByExtent(c.bound, shadingRate, rasterExtent, DefaultMaxGridDim)
	return ok
}

// Dice implements Primitive: dices every curve segment into a ribbon of
// quads facing the +Z camera axis (a cheap billboard normal, since true
// screen-facing orientation needs the camera basis the bucket stage
// supplies via Attrs).
func (c *Curves) Dice() *grid.MicroGrid {
	uSegs := 8
	off := 0
	var allP, allN [][]geom.V3
	for _, nv := range c.NVerts {
		pts := c.P[off : off+nv]
		ws := make([]float64, nv)
		for i := range pts {
			ws[i] = c.widthAt(off + i)
		}
		off += nv
		rowL := make([]geom.V3, uSegs)
		rowR := make([]geom.V3, uSegs)
		for s := 0; s < uSegs; s++ {
			t := float64(s) / float64(uSegs-1)
			pos, tangent := c.evalSpine(pts, t)
			w := lerpWidth(ws, t)
			side := geom.V3{X: -tangent.Y, Y: tangent.X, Z: 0}
			side.Unit()
			rowL[s] = geom.V3{X: pos.X - side.X*w/2, Y: pos.Y - side.Y*w/2, Z: pos.Z - side.Z*w/2}
			rowR[s] = geom.V3{X: pos.X + side.X*w/2, Y: pos.Y + side.Y*w/2, Z: pos.Z + side.Z*w/2}
		}
		allP = append(allP, rowL, rowR)
		allN = append(allN, make([]geom.V3, uSegs), make([]geom.V3, uSegs))
	}
	nRows := len(allP)
	g := grid.NewMicroGrid(uSegs, nRows)
	for row := 0; row < nRows; row++ {
		for col := 0; col < uSegs; col++ {
			i := g.Index(col, row)
			g.P[i] = allP[row][col]
			g.N[i] = geom.V3{X: 0, Y: 0, Z: 1}
			g.Ng[i] = g.N[i]
			g.S[i] = float64(col) / float64(uSegs-1)
			g.T[i] = float64(row) / float64(nRows-1)
			g.Color[i] = c.Attrs.Shading.Color
			g.Opacity[i] = c.Attrs.Shading.Opacity
		}
	}
	return g
}

// evalSpine samples the curve's centerline and tangent at parameter t in
// [0,1] along one segment's vertices: linear interpolation between
// consecutive control points for a LinearCurve, or the attribute's cubic
// basis for a CubicCurve.
func (c *Curves) evalSpine(pts []geom.V3, t float64) (geom.V3, geom.V3) {
	if c.Basis == LinearCurve {
		n := len(pts) - 1
		ft := t * float64(n)
		i := int(ft)
		if i >= n {
			i = n - 1
		}
		local := ft - float64(i)
		var pos geom.V3
		pos.Lerp(&pts[i], &pts[i+1], local)
		tangent := geom.V3{X: pts[i+1].X - pts[i].X, Y: pts[i+1].Y - pts[i].Y, Z: pts[i+1].Z - pts[i].Z}
		tangent.Unit()
		return pos, tangent
	}
	step := c.Attrs.Geometric.VStep
	if step < 1 {
		step = 1
	}
	segCount := (len(pts)-4)/step + 1
	if segCount < 1 {
		segCount = 1
	}
	ft := t * float64(segCount)
	seg := int(ft)
	if seg >= segCount {
		seg = segCount - 1
	}
	local := ft - float64(seg)
	cps := pts[seg*step : seg*step+4]
	basis := c.Attrs.Geometric.UBasis.M
	pos := geom.EvalCubicV3(&basis, &cps[0], &cps[1], &cps[2], &cps[3], local)
	posAhead := geom.EvalCubicV3(&basis, &cps[0], &cps[1], &cps[2], &cps[3], geom.Clamp(local+1e-3, 0, 1))
	tangent := geom.V3{X: posAhead.X - pos.X, Y: posAhead.Y - pos.Y, Z: posAhead.Z - pos.Z}
	tangent.Unit()
	return pos, tangent
}

func lerpWidth(ws []float64, t float64) float64 {
	if len(ws) == 0 {
		return 0.01
	}
	n := len(ws) - 1
	ft := t * float64(n)
	i := int(ft)
	if i >= n {
		return ws[n]
	}
	local := ft - float64(i)
	return geom.Lerp(ws[i], ws[i+1], local)
}

// Split implements Primitive: a Curves primitive dices directly once its
// screen extent is small enough; Split only fires for an oversized
// curve set, and simply partitions the curve list in half.
func (c *Curves) Split() ([]Primitive, error) {
	if len(c.NVerts) <= 1 {
		return []Primitive{c}, nil
	}
	mid := len(c.NVerts) / 2
	left, err := c.subset(0, mid)
	if err != nil {
		return nil, err
	}
	right, err := c.subset(mid, len(c.NVerts))
	if err != nil {
		return nil, err
	}
	return []Primitive{left, right}, nil
}

func (c *Curves) subset(lo, hi int) (*Curves, error) {
	off := 0
	for i := 0; i < lo; i++ {
		off += c.NVerts[i]
	}
	start := off
	for i := lo; i < hi; i++ {
		off += c.NVerts[i]
	}
	var w []float64
	if len(c.Width) > 0 {
		w = c.Width[start:off]
	}
	return NewCurves(c.Attrs, c.Basis, append([]int(nil), c.NVerts[lo:hi]...), c.Periodic, c.P[start:off], w, c.ConstantWidth, c.Params)
}

// Transform implements Primitive.
func (c *Curves) Transform(m, mInvT *geom.M4, time float64) {
	for i := range c.P {
		h := geom.MultPoint(&c.P[i], m)
		c.P[i], _ = geom.Project(h)
	}
	c.bound = c.computeBound()
}
