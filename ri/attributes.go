// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package ri

import (
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/shader"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// writeShading returns the current scope's Attributes, copy-on-write'd
// for mutation.
func (c *Context) writeShading() *state.Attributes { return c.Stack.WriteAttributes() }

// Color sets the current surface color (Cs).
func (c *Context) Color(col geom.Color) { c.writeShading().Shading.Color = col }

// Opacity sets the current surface opacity (Os).
func (c *Context) Opacity(col geom.Color) { c.writeShading().Shading.Opacity = col }

// TextureCoordinates remaps the 4 uv corners later parametric evaluation
// reads through, (s1,t1) ... (s4,t4) matching the RenderMan corner order
// (0,0),(1,0),(0,1),(1,1).
func (c *Context) TextureCoordinates(s1, t1, s2, t2, s3, t3, s4, t4 float64) {
	a := c.writeShading()
	a.Shading.TextureST = [4][2]float64{{s1, t1}, {s2, t2}, {s3, t3}, {s4, t4}}
}

// ShadingRate sets the upper bound, in raster-space pixels, on a diced
// micropolygon's extent.
func (c *Context) ShadingRate(size float64) { c.writeShading().Shading.ShadingRate = size }

// ShadingInterpolation selects "constant" or "smooth" shading
// interpolation across a grid.
func (c *Context) ShadingInterpolation(name string) {
	a := c.writeShading()
	if name == "smooth" {
		a.Shading.Interpolation = state.SmoothShading
	} else {
		a.Shading.Interpolation = state.ConstantShading
	}
}

// Matte toggles the matte flag.
func (c *Context) Matte(on bool) { c.writeShading().Shading.Matte = on }

// Sides sets the number of visible sides (1 or 2).
func (c *Context) Sides(n int) { c.writeShading().Geometric.Sides = n }

// Orientation sets the primitive's handedness ("lh" or "rh").
func (c *Context) Orientation(name string) {
	a := c.writeShading()
	if name == "rh" {
		a.Geometric.Orientation = state.RH
	} else {
		a.Geometric.Orientation = state.LH
	}
}

// ReverseOrientation flips the current orientation.
func (c *Context) ReverseOrientation() {
	a := c.writeShading()
	if a.Geometric.Orientation == state.LH {
		a.Geometric.Orientation = state.RH
	} else {
		a.Geometric.Orientation = state.LH
	}
}

// Basis sets the bicubic patch basis matrices and step values for u and
// v; ubasis/vbasis name one of bezier,
// b-spline, catmull-rom, hermite, power.
func (c *Context) Basis(ubasis string, ustep int, vbasis string, vstep int) error {
	ub, ok := geom.NamedBasis(ubasis)
	if !ok {
		return c.reportf(stats.UnknownSymbol, stats.Error, "ri: Basis: unknown u basis %q", ubasis)
	}
	vb, ok := geom.NamedBasis(vbasis)
	if !ok {
		return c.reportf(stats.UnknownSymbol, stats.Error, "ri: Basis: unknown v basis %q", vbasis)
	}
	a := c.writeShading()
	a.Geometric.UBasis, a.Geometric.VBasis = ub, vb
	a.Geometric.UStep, a.Geometric.VStep = ustep, vstep
	return nil
}

// DetailRange sets the four-value level-of-detail range (minvis, lowtran,
// uptran, maxvis).
func (c *Context) DetailRange(minVis, lowTran, upTran, maxVis float64) {
	c.writeShading().Geometric.DetailRange = [4]float64{minVis, lowTran, upTran, maxVis}
}

// GeometricBound sets the current attribute's declared object-space
// bound, used by primitives (e.g. Procedural, Blobby) whose own Bound
// cannot be derived from control data alone.
func (c *Context) GeometricBound(b geom.Bound) { c.writeShading().Geometric.Bound = b }

// Displacement-bound attribute ("displacementbound", "coordinatesystem")
// expands a primitive's camera-space bound to account for a bound
// displacement shader.
func (c *Context) DisplacementBound(sphere float64, coordSys string) {
	a := c.writeShading()
	a.Geometric.DisplacementBound = sphere
	a.Geometric.DisplacementCoordSys = coordSys
}

// Attribute stores params under the open-ended user-attribute map,
// keyed by category name.
func (c *Context) Attribute(name string, params *param.List) {
	c.writeShading().UserAttributes[name] = params
}

// bindShader loads name through the Context's shader Factory, reporting
// and returning nil on failure rather than aborting the call.
func (c *Context) bindShader(role shader.Role, name string, params *param.List) shader.Shader {
	if c.Factory == nil || name == "" {
		return nil
	}
	s, err := c.Factory.Load(role, name, params)
	if err != nil {
		c.reportf(stats.UnknownSymbol, stats.Error, "ri: %s %q: %v", role, name, err)
		return nil
	}
	return s
}

// Surface binds the surface shader.
func (c *Context) Surface(name string, params *param.List) {
	a := c.writeShading()
	a.Shading.Surface = name
	a.Shading.BoundSurface = c.bindShader(shader.Surface, name, params)
}

// Displacement binds the displacement shader.
func (c *Context) Displacement(name string, params *param.List) {
	a := c.writeShading()
	a.Shading.Displacement = name
	a.Shading.BoundDisplacement = c.bindShader(shader.Displacement, name, params)
}

// Atmosphere binds the atmosphere (volume) shader.
func (c *Context) Atmosphere(name string, params *param.List) {
	a := c.writeShading()
	a.Shading.Atmosphere = name
	a.Shading.BoundAtmosphere = c.bindShader(shader.Atmosphere, name, params)
}

// Interior binds the interior volume shader.
func (c *Context) Interior(name string, params *param.List) {
	a := c.writeShading()
	a.Shading.Interior = name
	c.bindShader(shader.Interior, name, params)
}

// Exterior binds the exterior volume shader.
func (c *Context) Exterior(name string, params *param.List) {
	a := c.writeShading()
	a.Shading.Exterior = name
	c.bindShader(shader.Exterior, name, params)
}

// AreaLightSource records an area-light shader name on the current
// attributes, binds the shader and returns its light handle, same as
// LightSource. Primitives emitted under it are not turned into emissive
// geometry.
func (c *Context) AreaLightSource(name string, params *param.List) int {
	a := c.writeShading()
	a.Shading.AreaLight = name
	s := c.bindShader(shader.AreaLightSource, name, params)
	return c.registerLight(s, a)
}

// LightSource binds a light shader and returns its handle, which
// Illuminate later toggles on/off in the active-lights set.
func (c *Context) LightSource(name string, params *param.List) int {
	s := c.bindShader(shader.LightSource, name, params)
	return c.registerLight(s, c.writeShading())
}

func (c *Context) registerLight(s shader.Shader, a *state.Attributes) int {
	c.lightHandle++
	handle := c.lightHandle
	c.lights[handle] = s
	a.Shading.ActiveLights[handle] = true
	return handle
}

// Illuminate toggles whether handle's light contributes to the current
// attributes' illuminance loop.
func (c *Context) Illuminate(handle int, on bool) error {
	if _, ok := c.lights[handle]; !ok {
		return c.reportf(stats.UnknownSymbol, stats.Error, "ri: Illuminate: unknown light handle %d", handle)
	}
	c.writeShading().Shading.ActiveLights[handle] = on
	return nil
}
