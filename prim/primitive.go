// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package prim implements the geometric primitive capability set:
// every surface variant the RI primitive-emitter calls construct, each
// supporting Bound/Diceable/Dice/Split/Transform.
package prim

import (
	"github.com/aqsisrender/core/grid"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

// Primitive is the polymorphic capability every geometric surface variant
// implements. The engine holds unique
// ownership of each instance; Split transfers ownership of the results.
type Primitive interface {
	// Bound returns the primitive's axis-aligned bound in camera space at
	// the given time, expanded by any bound displacement shader declares.
	Bound(time float64) geom.Bound

	// Diceable reports whether the primitive's raster-space extent is
	// below the dicing threshold and its parameterization simple enough
	// to dice directly.
	Diceable(shadingRate float64, rasterExtent func(geom.Bound) (float64, float64)) bool

	// Dice converts the primitive into a shaded micropolygon grid sized
	// so that the maximum screen-space extent of any micropolygon is
	// bounded by the effective shading rate.
	Dice() *grid.MicroGrid

	// Split returns zero or more replacement primitives.
	Split() ([]Primitive, error)

	// Transform applies the combined object-to-world transform (and its
	// derived inverse-transpose normal matrix) to the primitive's control
	// data at the given motion time.
	Transform(m, mInvTranspose *geom.M4, time float64)

	// Attributes returns the shading+geometric attribute snapshot the
	// primitive was constructed under.
	Attributes() *state.Attributes
}

// Base holds the fields every concrete primitive shares: the attribute
// snapshot it was emitted under and a cached bound. Concrete primitives
// embed Base and implement the primitive-specific Dice/Split logic.
type Base struct {
	Attrs *state.Attributes
	// EyeSplitCount tracks how many times this primitive (or an ancestor
	// it was split from) has been forced undiceable by the epsilon-span
	// test.
	EyeSplitCount int
}

// Attributes implements Primitive.Attributes for embedders of Base.
func (b *Base) Attributes() *state.Attributes { return b.Attrs }

// DiceableByExtent is the shared raster-extent-below-threshold test:
// dice when each raster-space dimension of bound, divided by
// shadingRate, would produce at most maxGridDim micropolygons per
// axis.
func DiceableByExtent(bound geom.Bound, shadingRate float64, rasterExtent func(geom.Bound) (float64, float64), maxGridDim int) (uDim, vDim int, ok bool) {
	w, h := rasterExtent(bound)
	if shadingRate <= 0 {
		shadingRate = 1
	}
	step := geom.Clamp(shadingRate, 1e-3, 1e6)
	// ok compares the raw dims, before clamping: a primitive whose grid
	// would exceed maxGridDim on either axis must split, not dice coarse.
	rawU := int(w/step) + 1
	rawV := int(h/step) + 1
	uDim = clampDim(rawU, maxGridDim)
	vDim = clampDim(rawV, maxGridDim)
	return uDim, vDim, rawU <= maxGridDim && rawV <= maxGridDim
}

func clampDim(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// DefaultMaxGridDim bounds a single dice's grid resolution; above this a
// primitive is split instead (limits:gridsize in, applied
// here as sqrt(gridsize) per axis for a roughly square grid budget).
const DefaultMaxGridDim = 16
