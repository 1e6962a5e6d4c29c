// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package shader defines the pure capability boundary the engine needs
// from a shader implementation: load-by-name, bind a parameter list,
// and evaluate in place on a grid-shaped execution environment. The
// shader virtual machine and shadeops are an out-of-scope collaborator;
// this package only describes the shape the engine calls through.
package shader

import (
	"fmt"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
)

// Role distinguishes the slot a shader is bound into on Attributes,
// mirroring the RI shader-declaration calls.
type Role int

const (
	Surface Role = iota
	Displacement
	Atmosphere
	Interior
	Exterior
	Imager
	LightSource
	AreaLightSource
)

func (r Role) String() string {
	switch r {
	case Surface:
		return "surface"
	case Displacement:
		return "displacement"
	case Atmosphere:
		return "atmosphere"
	case Interior:
		return "interior"
	case Exterior:
		return "exterior"
	case Imager:
		return "imager"
	case LightSource:
		return "light"
	case AreaLightSource:
		return "arealight"
	default:
		return "unknown"
	}
}

// Environment is the SIMD-shaped varying execution environment a shader
// runs over: one grid's worth of shading variables, laid out as flat
// per-vertex slices so evaluation can proceed without per-vertex
// allocation. UDim*VDim is the number of shading points.
type Environment struct {
	UDim, VDim int

	P, N, Ng      []geom.V3 // surface point, shading normal, geometric normal.
	I             []geom.V3 // incident (viewing) direction, P - eyepoint.
	Cs, Os        []geom.Color
	S, T          []float64
	Time          []float64 // per-vertex sample time, for motion-blurred shading.

	// Ci/Oi hold the accumulated output color/opacity; surface/atmosphere
	// shaders write through these in place.
	Ci, Oi []geom.Color

	// Outputs holds any additional named output variables (AOVs) a shader
	// declares, keyed by variable name.
	Outputs map[string][]float64

	// Skip marks shading points whose raster projection lands outside the
	// image.
	Skip []bool
}

// NewEnvironment allocates an Environment sized for a uDim x vDim grid.
func NewEnvironment(uDim, vDim int) *Environment {
	n := uDim * vDim
	return &Environment{
		UDim: uDim, VDim: vDim,
		P: make([]geom.V3, n), N: make([]geom.V3, n), Ng: make([]geom.V3, n),
		I: make([]geom.V3, n),
		Cs: make([]geom.Color, n), Os: make([]geom.Color, n),
		S: make([]float64, n), T: make([]float64, n),
		Time: make([]float64, n),
		Ci:   make([]geom.Color, n), Oi: make([]geom.Color, n),
		Outputs: map[string][]float64{},
		Skip:    make([]bool, n),
	}
}

// Len returns the number of shading points (UDim*VDim).
func (e *Environment) Len() int { return e.UDim * e.VDim }

// Shader is the capability every bound shader object must provide. A
// concrete implementation lives in the (out-of-scope) shader VM; this
// engine only calls through the interface.
type Shader interface {
	// Name returns the shader's declared name, e.g. "matte", "distantlight".
	Name() string
	// Role reports which binding slot this shader was loaded for.
	Role() Role
	// Ambient reports whether a LightSource shader contributes without an
	// illuminance loop.
	Ambient() bool
	// Evaluate runs the shader over env in place, writing Ci/Oi (surface/
	// atmosphere/imager), P/N (displacement), or the light-specific
	// outputs a LightCtx records (light shaders).
	Evaluate(env *Environment, lights []LightCtx) error
}

// LightCtx is the per-light evaluation context a surface shader's
// illuminance loop iterates: the light's Shader plus its resolved
// direction/color contribution at each shading point, refreshed per grid
// by re-evaluating the light shader before the surface shader runs.
type LightCtx struct {
	Handle  int
	Shader  Shader
	L       []geom.V3   // direction from P to the light, per shading point.
	Cl      []geom.Color // light color contribution, per shading point.
}

// Factory loads a Shader by name, binding params to it. It is the single
// seam the ri package's Surface/Displacement/.../LightSource calls go
// through.
type Factory interface {
	Load(role Role, name string, params *param.List) (Shader, error)
}

// ErrUnknownShader reports that name has no Descriptor and no Factory
// implementation registered for it.
type ErrUnknownShader struct {
	Role Role
	Name string
}

func (e *ErrUnknownShader) Error() string {
	return fmt.Sprintf("shader: unknown %s shader %q", e.Role, e.Name)
}
