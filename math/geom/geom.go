// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package geom provides the value model the rest of the renderer builds on:
// colors, 2/3/4 element vectors used as points/vectors/normals, a 4x4
// matrix, an axis-aligned bound, and the named cubic spline bases.
//
// Values are plain structs with exported, individually
// addressable fields, pointer-receiver mutators that return the receiver so
// calls can be chained, and a distinction between "Set" (copy another value
// in) and "SetS" (set from scalars) to avoid needless heap escapes in the
// per-micropolygon hot path.
package geom

import "math"

// Epsilon is the tolerance used by the Aeq (almost-equal) family of
// comparisons throughout the package.
const Epsilon = 1e-9

// Aeq reports whether a and b are equal to within Epsilon.
func Aeq(a, b float64) bool { return math.Abs(a-b) <= Epsilon }

// Rad converts degrees to radians.
func Rad(degrees float64) float64 { return degrees * math.Pi / 180 }

// Clamp restricts v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b by t in [0, 1].
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }
