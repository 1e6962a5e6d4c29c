// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package state

import (
	"sync/atomic"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/shader"
)

// Orientation is a handedness flag.
type Orientation int

const (
	LH Orientation = iota
	RH
)

// ShadingInterpolation selects how a surface shader's output varies
// across a micropolygon grid.
type ShadingInterpolation int

const (
	ConstantShading ShadingInterpolation = iota
	SmoothShading
)

// Shading is the shading half of Attributes.
type Shading struct {
	Color, Opacity geom.Color
	// TextureST holds the 4 uv corners remapped by TextureCoordinates.
	TextureST     [4][2]float64
	ShadingRate   float64
	Interpolation ShadingInterpolation
	Matte         bool

	Surface, Displacement       string
	Atmosphere, Interior, Exterior string
	AreaLight                   string

	// BoundSurface/BoundDisplacement/BoundAtmosphere hold the resolved
	// shader.Shader the ri package's Surface/Displacement/Atmosphere
	// calls loaded via the active shader.Factory; nil until a call binds one.
	// The *string* name above remains the attribute RiAttribute/RiGet
	// queries read back; these hold the runnable handle the bucket
	// pipeline evaluates.
	BoundSurface      shader.Shader
	BoundDisplacement shader.Shader
	BoundAtmosphere   shader.Shader

	// ActiveLights is the set of light-shader handles currently
	// illuminating, toggled by RiIlluminate.
	ActiveLights map[int]bool
}

// Geometric is the geometric half of Attributes.
type Geometric struct {
	Bound       geom.Bound
	DetailRange [4]float64

	UBasis, VBasis   geom.Basis
	UStep, VStep     int

	Orientation            Orientation
	CoordSysOrientation    Orientation
	Sides                  int

	DisplacementBound     float64
	DisplacementCoordSys  string
}

// Attributes is the ref-counted, copy-on-write bundle of shading and
// geometric state, plus the open-ended user-attribute map.
type Attributes struct {
	refs  int32
	Shading
	Geometric
	UserAttributes map[string]*param.List
}

// NewAttributes returns Attributes populated with the RenderMan default
// values and a single reference.
func NewAttributes() *Attributes {
	a := &Attributes{refs: 1}
	a.Shading.Color = geom.White
	a.Shading.Opacity = geom.White
	a.Shading.TextureST = [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	a.Shading.ShadingRate = 1
	a.Shading.Interpolation = ConstantShading
	a.Shading.ActiveLights = map[int]bool{}
	a.Geometric.DetailRange = [4]float64{0, 0, 1e38, 1e38}
	a.Geometric.UBasis, _ = geom.NamedBasis("catmull-rom")
	a.Geometric.VBasis, _ = geom.NamedBasis("catmull-rom")
	a.Geometric.UStep, a.Geometric.VStep = 1, 1
	a.Geometric.Sides = 2
	a.UserAttributes = map[string]*param.List{}
	return a
}

// Retain increments the reference count and returns a (shared) handle to
// the same Attributes, as happens whenever AttributeBegin enters a new
// scope.
func (a *Attributes) Retain() *Attributes {
	atomic.AddInt32(&a.refs, 1)
	return a
}

// Release decrements the reference count. Callers that drop their last
// handle to an Attributes (AttributeEnd restoring the parent's saved
// handle) must call this so a future Write on a sibling handle can
// detect uniqueness correctly.
func (a *Attributes) Release() {
	atomic.AddInt32(&a.refs, -1)
}

// refCount reports the current reference count; exported via a method
// (not a field) so callers cannot bypass the atomic.
func (a *Attributes) refCount() int32 { return atomic.LoadInt32(&a.refs) }

// Write returns a unique handle to mutate: a itself if its reference
// count is 1, otherwise a clone with its own single reference (and a's
// count decremented, since the caller's handle to a is being replaced).
// This is what keeps attribute mutations inside an inner scope from
// leaking outward.
func (a *Attributes) Write() *Attributes {
	if a.refCount() == 1 {
		return a
	}
	clone := &Attributes{refs: 1, Shading: a.Shading, Geometric: a.Geometric}
	clone.Shading.ActiveLights = make(map[int]bool, len(a.Shading.ActiveLights))
	for k, v := range a.Shading.ActiveLights {
		clone.Shading.ActiveLights[k] = v
	}
	clone.UserAttributes = make(map[string]*param.List, len(a.UserAttributes))
	for k, v := range a.UserAttributes {
		clone.UserAttributes[k] = v
	}
	a.Release()
	return clone
}
