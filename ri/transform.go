// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package ri

import (
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// motionIndex returns the key index a transform-affecting call should
// write to: the current Motion scope's index if one is open, or the
// sole/last key otherwise.
func (c *Context) motionIndex() int {
	if e, ok := c.Stack.InMotion(); ok {
		return e.MotionIndex
	}
	return -1 // state.Transform.Current/ConcatAt/SetAt treat <0 as "last key".
}

// advanceMotion steps an open Motion scope to its next time key: each
// successive transform-affecting call inside the block writes the next
// declared time. A call beyond
// key N-1 stays pinned on the last key rather than falling off the end.
func (c *Context) advanceMotion() {
	if e, ok := c.Stack.InMotion(); ok && e.MotionIndex < len(e.MotionTimes)-1 {
		e.MotionIndex++
	}
}

// Identity resets the CTM to the identity matrix.
func (c *Context) Identity() {
	t := c.Stack.WriteTransform()
	t.SetAt(c.motionIndex(), geom.M4I)
	c.advanceMotion()
}

// Transform replaces the CTM with m.
func (c *Context) Transform(m geom.M4) {
	t := c.Stack.WriteTransform()
	t.SetAt(c.motionIndex(), &m)
	c.advanceMotion()
}

// ConcatTransform post-concatenates m onto the CTM.
func (c *Context) ConcatTransform(m geom.M4) {
	t := c.Stack.WriteTransform()
	t.ConcatAt(c.motionIndex(), &m)
	c.advanceMotion()
}

// Translate concatenates a translation onto the CTM.
func (c *Context) Translate(x, y, z float64) {
	var m geom.M4
	m.TranslateTM(x, y, z)
	c.ConcatTransform(m)
}

// Rotate concatenates a rotation of angle degrees about axis (dx,dy,dz)
// onto the CTM.
func (c *Context) Rotate(angle, dx, dy, dz float64) {
	var m geom.M4
	m.RotateAa(dx, dy, dz, angle)
	c.ConcatTransform(m)
}

// Scale concatenates a non-uniform scale onto the CTM.
func (c *Context) Scale(x, y, z float64) {
	var m geom.M4
	m.ScaleSM(x, y, z)
	c.ConcatTransform(m)
}

// Skew concatenates a skew of angle degrees between two axes onto the
// CTM.
func (c *Context) Skew(angle, dx1, dy1, dz1, dx2, dy2, dz2 float64) {
	var m geom.M4
	m.SkewM(angle, dx1, dy1, dz1, dx2, dy2, dz2)
	c.ConcatTransform(m)
}

// Perspective concatenates a perspective-foreshortening transform of the
// given field of view onto the CTM (the pre-WorldBegin camera-placement
// idiom, distinct from Options' own Projection("perspective")).
func (c *Context) Perspective(fov float64) {
	var m geom.M4
	m.Persp(fov, 1, 1e-3, 1e38)
	c.ConcatTransform(m)
}

// CoordinateSystem stores the current CTM under name in the coordinate-
// system registry.
func (c *Context) CoordinateSystem(name string) error {
	if isBuiltinSpaceName(name) {
		return c.reportf(stats.BadToken, stats.Error, "ri: CoordinateSystem: %q is a built-in name", name)
	}
	// The registry's Lookup just needs to hand CoordSysTransform back
	// whatever matrix CoordinateSystem stored under name, so the current
	// CTM itself is what gets installed.
	ctm := *c.currentTransform()
	c.CoordSys.Set(name, &ctm)
	return nil
}

// CoordSysTransform replaces the CTM with the transform registered under
// name.
func (c *Context) CoordSysTransform(name string) error {
	m, ok := c.CoordSys.Lookup(name)
	if !ok {
		return c.reportf(stats.UnknownSymbol, stats.Error, "ri: CoordSysTransform: unknown coordinate system %q", name)
	}
	t := c.Stack.WriteTransform()
	t.SetAt(c.motionIndex(), &m)
	c.advanceMotion()
	return nil
}

func isBuiltinSpaceName(name string) bool {
	switch name {
	case state.SpaceCamera, state.SpaceCurrent, state.SpaceWorld, state.SpaceScreen,
		state.SpaceNDC, state.SpaceRaster, state.SpaceObject, state.SpaceShader:
		return true
	default:
		return false
	}
}
