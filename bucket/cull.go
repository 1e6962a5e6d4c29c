// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import "github.com/aqsisrender/core/math/geom"

// CullResult reports the outcome of testing a primitive's bound against
// the camera frustum and raster frame.
type CullResult int

const (
	// Keep means the primitive passed every cull test unmodified.
	Keep CullResult = iota
	// Discard means the primitive is entirely outside the renderable
	// volume and should be dropped.
	Discard
	// ForceSplit means the bound straddles the near clip plane closely
	// enough that the primitive must be
	// split rather than diced, regardless of its own Diceable answer.
	ForceSplit
)

// HitherYonCull implements: discard a primitive whose
// camera-space bound lies entirely behind the near clip or beyond the
// far clip.
func HitherYonCull(b geom.Bound, near, far float64) bool {
	return b.Max.Z < near || b.Min.Z > far
}

// EpsilonSpan implements: a bound straddling the near
// clip plane within epsilon must be force-split rather than diced
// (dicing a primitive crossing the eye plane would produce degenerate
// raster-space micropolygons).
func EpsilonSpan(b geom.Bound, near float64) bool {
	const epsilon = 1e-4
	return b.Min.Z <= near+epsilon && near+epsilon <= b.Max.Z
}

// RasterCull implements: given a bound already
// projected to raster space and the half pixel-filter width margin,
// reports whether the expanded bound still intersects the cropped frame.
func RasterCull(raster geom.Bound, marginX, marginY float64, frameX0, frameY0, frameX1, frameY1 float64) bool {
	x0 := raster.Min.X - marginX
	x1 := raster.Max.X + marginX
	y0 := raster.Min.Y - marginY
	y1 := raster.Max.Y + marginY
	if x1 < frameX0 || x0 > frameX1 {
		return true
	}
	if y1 < frameY0 || y0 > frameY1 {
		return true
	}
	return false
}

// Cull runs the hither/yon and epsilon-span tests against a
// primitive's camera-space bound; the raster-space test needs a
// projection matrix, so the bucket scheduler applies it separately.
func Cull(cameraBound geom.Bound, near, far float64) CullResult {
	if HitherYonCull(cameraBound, near, far) {
		return Discard
	}
	if EpsilonSpan(cameraBound, near) {
		return ForceSplit
	}
	return Keep
}
