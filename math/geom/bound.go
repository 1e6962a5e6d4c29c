// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package geom

import "math"

// Bound is an axis-aligned bounding box over camera-space or
// raster-space primitive extents.
type Bound struct {
	Min, Max V3
}

// EmptyBound returns a bound that contains no points; the first Union
// collapses it to the unioned value's own extent.
func EmptyBound() Bound {
	inf := math.Inf(1)
	return Bound{V3{inf, inf, inf}, V3{-inf, -inf, -inf}}
}

// Valid reports whether the bound actually contains at least one point.
func (b Bound) Valid() bool { return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z }

// Extend grows b (in place conceptually — Bound is small and passed by
// value) to include point p, returning the new bound.
func (b Bound) Extend(p V3) Bound {
	return Bound{
		Min: V3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)},
		Max: V3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)},
	}
}

// Union returns the smallest bound containing both b and o.
func (b Bound) Union(o Bound) Bound {
	return Bound{
		Min: V3{math.Min(b.Min.X, o.Min.X), math.Min(b.Min.Y, o.Min.Y), math.Min(b.Min.Z, o.Min.Z)},
		Max: V3{math.Max(b.Max.X, o.Max.X), math.Max(b.Max.Y, o.Max.Y), math.Max(b.Max.Z, o.Max.Z)},
	}
}

// Expand grows b by margin on every axis and returns the result; used
// for displacement-bound inflation.
func (b Bound) Expand(margin float64) Bound {
	return Bound{
		Min: V3{b.Min.X - margin, b.Min.Y - margin, b.Min.Z - margin},
		Max: V3{b.Max.X + margin, b.Max.Y + margin, b.Max.Z + margin},
	}
}

// Overlaps reports whether b and o share any volume, touching included.
func (b Bound) Overlaps(o Bound) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Transform applies m to all 8 corners of b and returns the new
// axis-aligned bound containing the transformed box. Used when moving a
// bound between coordinate systems (object -> camera -> raster).
func (b Bound) Transform(m *M4) Bound {
	corners := [8]V3{
		{b.Min.X, b.Min.Y, b.Min.Z}, {b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z}, {b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z}, {b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z}, {b.Max.X, b.Max.Y, b.Max.Z},
	}
	out := EmptyBound()
	for _, c := range corners {
		h := MultPoint(&c, m)
		p, _ := Project(h)
		out = out.Extend(p)
	}
	return out
}

// Center returns the midpoint of the bound.
func (b Bound) Center() V3 {
	return V3{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2, (b.Min.Z + b.Max.Z) / 2}
}

// MaxExtent returns the largest of the bound's three axis extents, used by
// Blobby's marching-cubes resolution derivation.
func (b Bound) MaxExtent() float64 {
	dx, dy, dz := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y, b.Max.Z-b.Min.Z
	return math.Max(dx, math.Max(dy, dz))
}
