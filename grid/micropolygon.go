// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package grid

import "github.com/aqsisrender/core/math/geom"

// Corners is one motion key's raster-space quad corners, in (u,v),
// (u+1,v), (u+1,v+1), (u,v+1) winding order. Z carries camera-space
// depth for the sample test's z interpolation.
type Corners [4]geom.V3

// Micropolygon is a single shaded quad split from a MicroGrid. Static primitives carry one key in Keys; a
// motion-blurred grid's micropolygons carry one per motion sample,
// interpolated at sample time by the bucket sampler.
//
// Invariant: a micropolygon's Color/Opacity are fixed at dice time from
// its owning grid's shaded vertices; the sample test reads them directly
// and never re-shades.
type Micropolygon struct {
	Keys    []Corners
	Color   geom.Color
	Opacity geom.Color
}

// IsMotion reports whether mp carries more than one keyframe.
func (mp *Micropolygon) IsMotion() bool { return len(mp.Keys) > 1 }

// Bound returns the camera-space-depth-retaining raster bound across all
// of mp's motion keys, used for bucket-queue placement and the occlusion
// hierarchy's minZ tracking.
func (mp *Micropolygon) Bound() geom.Bound {
	b := geom.EmptyBound()
	for _, k := range mp.Keys {
		for _, c := range k {
			b = b.Extend(c)
		}
	}
	return b
}

// AtTime linearly interpolates mp's 4 corners to time t in [0,1] across
// its motion keys. t is the normalized
// position within [shutterOpen, shutterClose]; times is the parallel
// slice of each key's normalized time (len(times) == len(mp.Keys)).
func (mp *Micropolygon) AtTime(times []float64, t float64) Corners {
	if len(mp.Keys) == 1 {
		return mp.Keys[0]
	}
	if t <= times[0] {
		return mp.Keys[0]
	}
	last := len(times) - 1
	if t >= times[last] {
		return mp.Keys[last]
	}
	for i := 0; i < last; i++ {
		if t >= times[i] && t <= times[i+1] {
			span := times[i+1] - times[i]
			if span <= geom.Epsilon {
				return mp.Keys[i]
			}
			f := (t - times[i]) / span
			var out Corners
			for c := 0; c < 4; c++ {
				out[c].X = geom.Lerp(mp.Keys[i][c].X, mp.Keys[i+1][c].X, f)
				out[c].Y = geom.Lerp(mp.Keys[i][c].Y, mp.Keys[i+1][c].Y, f)
				out[c].Z = geom.Lerp(mp.Keys[i][c].Z, mp.Keys[i+1][c].Z, f)
			}
			return out
		}
	}
	return mp.Keys[last]
}

// Contains performs the 2D point-in-quadrilateral test for sample point
// (sx, sy) against corners c, returning the interpolated camera-space z if inside.
func (c Corners) Contains(sx, sy float64) (z float64, inside bool) {
	// Split the quad into two triangles (0,1,2) and (0,2,3) and test each
	// with barycentric coordinates; this handles the common
	// near-planar-but-not-exactly-planar micropolygon correctly.
	if z, ok := triContains(c[0], c[1], c[2], sx, sy); ok {
		return z, true
	}
	if z, ok := triContains(c[0], c[2], c[3], sx, sy); ok {
		return z, true
	}
	return 0, false
}

func triContains(a, b, cc geom.V3, px, py float64) (float64, bool) {
	v0x, v0y := cc.X-a.X, cc.Y-a.Y
	v1x, v1y := b.X-a.X, b.Y-a.Y
	v2x, v2y := px-a.X, py-a.Y

	den := v1x*v0y - v0x*v1y
	if den == 0 {
		return 0, false
	}
	invDen := 1 / den
	u := (v2x*v0y - v0x*v2y) * invDen
	v := (v1x*v2y - v2x*v1y) * invDen
	if u < 0 || v < 0 || u+v > 1 {
		return 0, false
	}
	w := 1 - u - v
	z := w*a.Z + v*b.Z + u*cc.Z
	return z, true
}
