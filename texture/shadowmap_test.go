// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package texture

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aqsisrender/core/math/geom"
)

// flatMap returns a 16x16 shadow map whose every texel stores depth d,
// with identity light matrices so world space is light space: a point's
// (x, y) in [-1,1] lands in frame and its z compares against d directly.
func flatMap(d float32) *ShadowMap {
	depths := make([]float32, 16*16)
	for i := range depths {
		depths[i] = d
	}
	var ident geom.M4
	ident.Identity()
	return NewShadowMap(16, 16, ident, ident, depths)
}

// TestShadowMapFullyOccluded checks the occluder invariant: one fully
// opaque occluder at depth d shadows a receiver at d+bias+eps completely.
func TestShadowMapFullyOccluded(t *testing.T) {
	sm := flatMap(5)
	rng := rand.New(rand.NewSource(1))

	lit, avg := sm.Sample(geom.V3{X: 0, Y: 0, Z: 7}, 0, 0, 0, 0, 0.01, 0, 0, rng)
	if lit != 0 {
		t.Fatalf("receiver behind occluder: lit fraction = %v, want 0", lit)
	}
	if math.Abs(avg-5) > 1e-6 {
		t.Fatalf("average depth = %v, want 5", avg)
	}
}

func TestShadowMapReceiverInFront(t *testing.T) {
	sm := flatMap(5)
	rng := rand.New(rand.NewSource(1))

	lit, _ := sm.Sample(geom.V3{X: 0, Y: 0, Z: 4}, 0, 0, 0, 0, 0.01, 0, 0, rng)
	if lit != 1 {
		t.Fatalf("receiver in front of occluder: lit fraction = %v, want 1", lit)
	}
}

// TestShadowMapBiasWindow checks the receiver bias: a point just behind
// the stored depth but within bias is not self-shadowed, one past the
// bias is.
func TestShadowMapBiasWindow(t *testing.T) {
	sm := flatMap(5)

	lit, _ := sm.Sample(geom.V3{X: 0, Y: 0, Z: 5.2}, 0, 0, 0, 0, 0.5, 0, 0, rand.New(rand.NewSource(1)))
	if lit != 1 {
		t.Fatalf("receiver within bias: lit = %v, want 1", lit)
	}
	lit, _ = sm.Sample(geom.V3{X: 0, Y: 0, Z: 5.6}, 0, 0, 0, 0, 0.5, 0, 0, rand.New(rand.NewSource(1)))
	if lit != 0 {
		t.Fatalf("receiver past bias: lit = %v, want 0", lit)
	}
}

// TestShadowMapOutsideFrustumUnshadowed checks the miss recovery rule:
// a point whose taps all miss the stored map falls back to unshadowed.
func TestShadowMapOutsideFrustumUnshadowed(t *testing.T) {
	sm := flatMap(5)

	lit, _ := sm.Sample(geom.V3{X: 50, Y: 0, Z: 7}, 0, 0, 0, 0, 0.01, 0, 0, rand.New(rand.NewSource(1)))
	if lit != 1 {
		t.Fatalf("point outside the light frustum: lit = %v, want 1 (unshadowed)", lit)
	}
}
