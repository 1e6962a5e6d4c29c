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

// Points is a particle cloud rendered as screen-oriented disks, one per
// point, with per-point width.
type Points struct {
	Base
	P             []geom.V3
	Width         []float64 // parallel to P; nil uses ConstantWidth.
	ConstantWidth float64
	Params        *param.List

	bound geom.Bound
}

// NewPoints validates the per-point width count against the point count.
func NewPoints(attrs *state.Attributes, p []geom.V3, width []float64, constantWidth float64, params *param.List) (*Points, error) {
	if len(width) != 0 && len(width) != len(p) {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: fmt.Sprintf("points width count %d != point count %d", len(width), len(p))}
	}
	pts := &Points{Base: Base{Attrs: attrs}, P: p, Width: width, ConstantWidth: constantWidth, Params: params}
	pts.bound = pts.computeBound()
	return pts, nil
}

func (pts *Points) widthAt(i int) float64 {
	if len(pts.Width) > i {
		return pts.Width[i]
	}
	if pts.ConstantWidth > 0 {
		return pts.ConstantWidth
	}
	return 0.01
}

func (pts *Points) computeBound() geom.Bound {
	b := computeBound(pts.P)
	margin := pts.ConstantWidth
	for _, w := range pts.Width {
		if w > margin {
			margin = w
		}
	}
	if margin > 0 {
		b = b.Expand(margin / 2)
	}
	return b
}

// Bound implements Primitive.
func (pts *Points) Bound(time float64) geom.Bound {
	b := pts.bound
	if pts.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(pts.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive: a point cloud dices directly whenever it
// has at most DefaultMaxGridDim^2 points, regardless of raster extent — a
// particle system's point count, not its screen footprint, bounds the
// per-dice cost. Larger clouds are split.
func (pts *Points) Diceable(shadingRate float64, rasterExtent func(geom.Bound) (float64, float64)) bool {
	return len(pts.P) <= DefaultMaxGridDim*DefaultMaxGridDim
}

// Dice implements Primitive: lays every point out as a 1-row grid of
// quads, each quad a screen-facing disk approximation (the bucket stage
// resolves the true circular footprint via its per-sample containment
// test against the point's width, using Ng as the disk's facing normal).
func (pts *Points) Dice() *grid.MicroGrid {
	n := len(pts.P)
	if n == 0 {
		n = 1
	}
	g := grid.NewMicroGrid(n, 1)
	for i := 0; i < len(pts.P); i++ {
		g.P[i] = pts.P[i]
		g.N[i] = geom.V3{X: 0, Y: 0, Z: 1}
		g.Ng[i] = g.N[i]
		g.S[i] = float64(i) / maxf(float64(n-1), 1)
		g.T[i] = 0
		g.Color[i] = pts.Attrs.Shading.Color
		g.Opacity[i] = pts.Attrs.Shading.Opacity
	}
	return g
}

// Split implements Primitive: partitions an oversized point cloud into
// two halves so each half dices within DefaultMaxGridDim^2.
func (pts *Points) Split() ([]Primitive, error) {
	if len(pts.P) <= 1 {
		return []Primitive{pts}, nil
	}
	mid := len(pts.P) / 2
	left, err := pts.subset(0, mid)
	if err != nil {
		return nil, err
	}
	right, err := pts.subset(mid, len(pts.P))
	if err != nil {
		return nil, err
	}
	return []Primitive{left, right}, nil
}

func (pts *Points) subset(lo, hi int) (*Points, error) {
	var w []float64
	if len(pts.Width) > 0 {
		w = pts.Width[lo:hi]
	}
	return NewPoints(pts.Attrs, pts.P[lo:hi], w, pts.ConstantWidth, pts.Params)
}

// Transform implements Primitive.
func (pts *Points) Transform(m, mInvT *geom.M4, time float64) {
	for i := range pts.P {
		h := geom.MultPoint(&pts.P[i], m)
		pts.P[i], _ = geom.Project(h)
	}
	pts.bound = pts.computeBound()
}
