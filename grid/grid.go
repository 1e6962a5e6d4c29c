// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package grid holds the diced shading representation the engine samples
// against: a 2D MicroGrid of shaded vertices, and the Micropolygon quads
// split from it. Vertex data lives in one flat slice per attribute,
// indexed by a shared vertex index, rather than an array-of-structs:
// hot-path shading touches one attribute across many vertices at a time.
package grid

import "github.com/aqsisrender/core/math/geom"

// MicroGrid is a u_dim x v_dim array of shaded vertices produced by
// dicing a Primitive. Vertex attributes are stored as flat
// per-vertex slices indexed by v*UDim+u.
type MicroGrid struct {
	UDim, VDim int

	// P holds the object-space (pre-shade) position; P is overwritten by
	// the displacement shader if one is bound.
	P []geom.V3
	N, Ng []geom.V3
	S, T  []float64

	// Time holds the per-vertex motion-sample time (identical across a
	// non-motion-blurred grid).
	Time []float64

	// Color/Opacity hold the shaded result micropolygon
	// invariant refers to: "micropolygons inherit their owning grid's
	// shaded color/opacity; the engine never re-shades them".
	Color, Opacity []geom.Color

	// Raster holds the post-shade, post-projection raster-space position
	// (x, y in pixels, z camera-space depth retained in .Z).
	Raster []geom.V3

	// MotionP holds, for a motion-blurred grid, one extra position array
	// per additional motion key (len(MotionP)+1 == number of keys); P
	// always holds the first (or only) key.
	MotionP [][]geom.V3

	// MotionRaster parallels MotionP: the projected raster-space position
	// for each additional motion key, filled in during projection
	// alongside Raster.
	MotionRaster [][]geom.V3

	// Outputs carries any additional named output variables (AOVs) a
	// surface shader wrote, keyed by variable name, one float per vertex
	// (vector-valued AOVs are not modeled; out of scope
	// shader-VM boundary).
	Outputs map[string][]float64
}

// NewMicroGrid allocates a grid of the given dimensions.
func NewMicroGrid(uDim, vDim int) *MicroGrid {
	n := uDim * vDim
	return &MicroGrid{
		UDim: uDim, VDim: vDim,
		P: make([]geom.V3, n), N: make([]geom.V3, n), Ng: make([]geom.V3, n),
		S: make([]float64, n), T: make([]float64, n),
		Time:    make([]float64, n),
		Color:   make([]geom.Color, n),
		Opacity: make([]geom.Color, n),
		Raster:  make([]geom.V3, n),
		Outputs: map[string][]float64{},
	}
}

// Index returns the flat slice index for grid coordinate (u, v).
func (g *MicroGrid) Index(u, v int) int { return v*g.UDim + u }

// IsMotion reports whether this grid carries extra motion-blur keys.
func (g *MicroGrid) IsMotion() bool { return len(g.MotionP) > 0 }

// NKeys returns the total number of motion keyframes (1 for a static grid).
func (g *MicroGrid) NKeys() int { return len(g.MotionP) + 1 }

// KeyPositions returns the position slice for motion key k (0 == P).
func (g *MicroGrid) KeyPositions(k int) []geom.V3 {
	if k <= 0 {
		return g.P
	}
	return g.MotionP[k-1]
}

// Split converts the grid into its constituent micropolygons: one per
// (u, v) quad, (UDim-1)*(VDim-1) of them.
func (g *MicroGrid) Split() []Micropolygon {
	if g.UDim < 2 || g.VDim < 2 {
		return nil
	}
	out := make([]Micropolygon, 0, (g.UDim-1)*(g.VDim-1))
	keys := g.NKeys()
	for v := 0; v < g.VDim-1; v++ {
		for u := 0; u < g.UDim-1; u++ {
			i00 := g.Index(u, v)
			i10 := g.Index(u+1, v)
			i01 := g.Index(u, v+1)
			i11 := g.Index(u+1, v+1)
			mp := Micropolygon{
				Color:   avgColor(g.Color[i00], g.Color[i10], g.Color[i01], g.Color[i11]),
				Opacity: avgColor(g.Opacity[i00], g.Opacity[i10], g.Opacity[i01], g.Opacity[i11]),
			}
			mp.Keys = make([]Corners, keys)
			for k := 0; k < keys; k++ {
				kp := g.keyRaster(k)
				mp.Keys[k] = Corners{kp[i00], kp[i10], kp[i11], kp[i01]}
			}
			out = append(out, mp)
		}
	}
	return out
}

// keyRaster returns the raster-space corners for motion key k; for a
// static grid (k==0) this is g.Raster, for additional keys the caller is
// expected to have projected MotionP into a parallel Raster-shaped slice
// before calling Split (the bucket package does this during dicing).
func (g *MicroGrid) keyRaster(k int) []geom.V3 {
	if k == 0 || k-1 >= len(g.MotionRaster) {
		return g.Raster
	}
	return g.MotionRaster[k-1]
}

func avgColor(a, b, c, d geom.Color) geom.Color {
	return geom.Color{
		R: (a.R + b.R + c.R + d.R) / 4,
		G: (a.G + b.G + c.G + d.G) / 4,
		B: (a.B + b.B + c.B + d.B) / 4,
	}
}
