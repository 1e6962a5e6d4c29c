// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"math"
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

func testOptions() *state.Options {
	o := state.NewOptions()
	o.XRes, o.YRes = 200, 100
	o.ScreenWindow = [4]float64{-1, 1, -1, 1}
	o.Projection = state.Orthographic
	return o
}

func TestNewCameraOrthoScreenCenterMapsToImageCenter(t *testing.T) {
	o := testOptions()
	cam := NewCamera(o)
	r, ok := cam.ProjectPoint(geom.V3{X: 0, Y: 0, Z: 5})
	if !ok {
		t.Fatalf("ProjectPoint failed for a point well inside the frustum")
	}
	wantX, wantY := float64(o.XRes)/2, float64(o.YRes)/2
	if math.Abs(r.X-wantX) > 1e-6 || math.Abs(r.Y-wantY) > 1e-6 {
		t.Fatalf("ProjectPoint((0,0)) = (%v,%v), want (%v,%v)", r.X, r.Y, wantX, wantY)
	}
}

func TestNewCameraOrthoScreenEdgesMapToImageEdges(t *testing.T) {
	o := testOptions()
	cam := NewCamera(o)
	left, ok := cam.ProjectPoint(geom.V3{X: -1, Y: 0, Z: 5})
	if !ok {
		t.Fatalf("ProjectPoint failed")
	}
	if math.Abs(left.X) > 1e-6 {
		t.Fatalf("left screen edge should map to raster x=0, got %v", left.X)
	}
	right, _ := cam.ProjectPoint(geom.V3{X: 1, Y: 0, Z: 5})
	if math.Abs(right.X-float64(o.XRes)) > 1e-6 {
		t.Fatalf("right screen edge should map to raster x=%d, got %v", o.XRes, right.X)
	}
	// Y is flipped: RenderMan raster space has +Y downward, screen space
	// has +Y upward, so screen top maps to raster y=0.
	top, _ := cam.ProjectPoint(geom.V3{X: 0, Y: 1, Z: 5})
	if math.Abs(top.Y) > 1e-6 {
		t.Fatalf("top screen edge should map to raster y=0, got %v", top.Y)
	}
}

func TestProjectPointRetainsCameraSpaceDepth(t *testing.T) {
	o := testOptions()
	cam := NewCamera(o)
	r, ok := cam.ProjectPoint(geom.V3{X: 0.2, Y: -0.3, Z: 7.5})
	if !ok {
		t.Fatalf("ProjectPoint failed")
	}
	if r.Z != 7.5 {
		t.Fatalf("ProjectPoint.Z = %v, want 7.5 (camera-space depth retained)", r.Z)
	}
}

func TestRasterBoundEnclosesProjectedCorners(t *testing.T) {
	o := testOptions()
	cam := NewCamera(o)
	b := geom.Bound{Min: geom.V3{X: -1, Y: -1, Z: 5}, Max: geom.V3{X: 1, Y: 1, Z: 5}}
	rb := cam.RasterBound(b)
	if rb.Min.X > 1e-6 || rb.Max.X < float64(o.XRes)-1e-6 {
		t.Fatalf("RasterBound X range = [%v,%v], want full [0,%d]", rb.Min.X, rb.Max.X, o.XRes)
	}
}
