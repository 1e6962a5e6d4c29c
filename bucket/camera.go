// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

// Camera holds the composed screen-to-raster and camera-to-screen
// matrices a frame's projection needs, built once per frame from
// Options. World-to-camera is carried separately per primitive via the
// Transform stack rather than folded in here: a primitive's own world
// transform composes with this Camera's matrices at project time.
type Camera struct {
	CameraToScreen geom.M4
	ScreenToRaster geom.M4
	CameraToRaster geom.M4
}

// NewCamera builds a Camera from the frame's Options: the projection
// matrix (orthographic or perspective projection
// field), then the screen-window-to-raster-pixel remap
// raster cull depends on.
func NewCamera(o *state.Options) *Camera {
	c := &Camera{}
	switch o.Projection {
	case state.Perspective:
		aspect := screenAspect(o)
		c.CameraToScreen.Persp(o.FOV, aspect, o.Near, o.Far)
	default:
		c.CameraToScreen.Ortho(o.ScreenWindow[0], o.ScreenWindow[1], o.ScreenWindow[2], o.ScreenWindow[3], o.Near, o.Far)
	}

	sw := o.ScreenWindow
	var screenToRaster geom.M4
	screenToRaster.Identity()
	sx := float64(o.XRes) / (sw[1] - sw[0])
	sy := -float64(o.YRes) / (sw[3] - sw[2])
	var scale, translate geom.M4
	scale.ScaleSM(sx, sy, 1)
	translate.TranslateTM(-sw[0]*sx, -sw[2]*sy+float64(o.YRes), 0)
	c.ScreenToRaster.Mult(&scale, &translate)

	c.CameraToRaster.Mult(&c.CameraToScreen, &c.ScreenToRaster)
	return c
}

func screenAspect(o *state.Options) float64 {
	w := o.ScreenWindow[1] - o.ScreenWindow[0]
	h := o.ScreenWindow[3] - o.ScreenWindow[2]
	if h == 0 {
		return 1
	}
	return w / h
}

// ProjectPoint maps a camera-space point to raster space (x, y in pixels),
// retaining the original camera-space depth in Z. ok is false for a point
// behind the camera's eye plane, whose projection is undefined.
func (c *Camera) ProjectPoint(p geom.V3) (geom.V3, bool) {
	h := geom.MultPoint(&p, &c.CameraToRaster)
	raster, ok := geom.Project(h)
	if !ok {
		return geom.V3{}, false
	}
	raster.Z = p.Z
	return raster, true
}

// RasterExtentFunc returns a function suitable for Primitive.Diceable's
// rasterExtent parameter: the width/height in pixels of bound's 8 corners
// once projected.
func (c *Camera) RasterExtentFunc() func(geom.Bound) (float64, float64) {
	return func(b geom.Bound) (float64, float64) {
		rb := c.RasterBound(b)
		return rb.Max.X - rb.Min.X, rb.Max.Y - rb.Min.Y
	}
}

// RasterBound projects every corner of a camera-space bound and returns
// the enclosing raster-space bound, reusing Bound.Transform's 8-corner projection.
func (c *Camera) RasterBound(b geom.Bound) geom.Bound {
	return b.Transform(&c.CameraToRaster)
}
