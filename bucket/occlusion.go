// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

// Occlusion is a flat per-bucket grid over a frame's buckets tracking the maximum
// guaranteed-opaque z (the max over surviving samples' minZ) of each
// region: a primitive whose near-plane z exceeds a bucket's current
// occluder depth can be culled outright.
type Occlusion struct {
	bucketsX, bucketsY int
	maxZ               []float64 // per-bucket max guaranteed occluder depth; +Inf until set.
}

// NewOcclusion allocates an occlusion grid matching a bucket Grid's
// layout, with every cell starting unoccluded.
func NewOcclusion(bucketsX, bucketsY int) *Occlusion {
	n := bucketsX * bucketsY
	z := make([]float64, n)
	for i := range z {
		z[i] = posInf
	}
	return &Occlusion{bucketsX: bucketsX, bucketsY: bucketsY, maxZ: z}
}

const posInf = 1e38

// Update records that bucket (bx, by) now guarantees full occlusion at
// depth z or nearer — called whenever a pixel's SampleData.PromoteOpaque
// fires. The stored value only ever decreases (the
// nearest guaranteed occluder wins).
func (o *Occlusion) Update(bx, by int, z float64) {
	i := by*o.bucketsX + bx
	if i < 0 || i >= len(o.maxZ) {
		return
	}
	if z < o.maxZ[i] {
		o.maxZ[i] = z
	}
}

// MaxZ returns the current guaranteed-occluder depth for bucket (bx, by);
// +Inf (posInf) means no occluder has been recorded yet.
func (o *Occlusion) MaxZ(bx, by int) float64 {
	i := by*o.bucketsX + bx
	if i < 0 || i >= len(o.maxZ) {
		return posInf
	}
	return o.maxZ[i]
}

// Culls reports whether a primitive whose camera-space near depth is
// zmin can be skipped entirely against bucket (bx, by): true when the
// bucket already has a nearer guaranteed occluder than the primitive's
// closest point.
func (o *Occlusion) Culls(bx, by int, zmin float64) bool {
	return zmin > o.MaxZ(bx, by)
}
