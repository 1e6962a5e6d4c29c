// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package ri implements the stateful procedural RenderMan boundary:
// the Context stack, option/attribute/transform mutators,
// shader-declaration calls, and primitive emitters that together form the
// renderer's only public surface. It never
// imports the engine that actually renders a world block; instead it
// defines the Engine interface the engine satisfies, matching how
// prim.ArchiveReader/prim.ProceduralPlugin already avoid an import cycle
// with this package by handing it callback shapes instead of types.
package ri

import (
	"fmt"
	"log/slog"

	"github.com/aqsisrender/core/bucket"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/prim"
	"github.com/aqsisrender/core/shader"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// Engine is the rendering backend a Context drives. A Context never
// renders anything itself: WorldEnd just calls EndWorld and lets the
// engine (the runtime package) do the actual bucket-ordered work.
type Engine interface {
	// BeginWorld is called once per WorldBegin, handing the engine the
	// frame's frozen options, the world-to-camera matrix captured at the
	// moment WorldBegin fired, and the bound imager shader (nil when the
	// frame has none).
	BeginWorld(o *state.Options, worldToCamera geom.M4, lights map[int]shader.Shader, imager shader.Shader, csgTrees []*bucket.CSGNode)

	// AddPrimitive queues one fully camera-space-transformed primitive
	// for the current world. csgNode is non-empty when the primitive was
	// emitted inside a Solid scope, naming the leaf its samples resolve
	// through the matching entry of BeginWorld's csgTrees. motionDeltas
	// carries one relative camera-space transform per extra motion key
	// beyond the shutter-open key already baked into p by Transform,
	// mirroring bucket.PrimitiveJob.MotionDeltas.
	AddPrimitive(p prim.Primitive, bound geom.Bound, csgNode string, motionDeltas []geom.M4)

	// EndWorld renders the queued world and returns once every bucket has
	// been handed to its display driver(s).
	EndWorld() error
}

// objectDef is a recorded ObjectBegin/ObjectEnd body: every primitive
// emitted while recording, captured relative to the CTM active at
// ObjectBegin time ("object-local" space) so a single ObjectInstance call
// can re-apply the instantiation CTM once (see primitives.go's instance
// commentary for the multiple-instantiation limitation this implies).
type objectDef struct {
	prims        []prim.Primitive
	instantiated bool
}

// Context is one RenderMan procedural session: the scope stack, the
// frame-wide options (with the Frame-scope save/restore stack), the
// coordinate-system registry, the Declare registry, the shader factory,
// diagnostics, and the engine it drives. One struct owns the whole
// session; no free functions reach into globals.
type Context struct {
	Stack    *state.Stack
	CoordSys *state.CoordSys
	Declared map[string]param.Declared
	Factory  shader.Factory
	Stats    *stats.Handler
	Engine   Engine
	log      *slog.Logger

	target      string
	frameNumber int

	options     *state.Options
	optionStack []*state.Options // pushed by FrameBegin, popped by FrameEnd.

	worldToCamera geom.M4

	lights      map[int]shader.Shader
	lightHandle int
	imager      shader.Shader // loaded by Imager, handed to the engine at WorldEnd.

	objects       map[int]*objectDef
	objectHandle  int
	recording     *objectDef // non-nil while inside ObjectBegin/End.
	recordingCTM  geom.M4    // the CTM at the ObjectBegin that opened `recording`.

	solids    []*bucket.CSGNode // open Solid scopes, innermost last.
	csgTrees  []*bucket.CSGNode // completed (top-level) Solid trees, fed to the engine at WorldBegin.
	leafCount int
}

// NewContext returns a Context ready for Begin, using state.NewOptions()
// as the Main-scope options.
func NewContext(engine Engine, factory shader.Factory, h *stats.Handler, log *slog.Logger) *Context {
	if log == nil {
		log = slog.Default()
	}
	return &Context{
		Stack:    state.NewStack(),
		CoordSys: state.NewCoordSys(),
		Declared: map[string]param.Declared{},
		Factory:  factory,
		Stats:    h,
		Engine:   engine,
		log:      log,
		options:  state.NewOptions(),
		lights:   map[int]shader.Shader{},
		objects:  map[int]*objectDef{},
	}
}

// currentTransform returns the world-affecting CTM at the current scope,
// honoring an enclosing Motion block's MotionIndex.
func (c *Context) currentTransform() *geom.M4 {
	top := c.Stack.Top()
	idx := 0
	if e, ok := c.Stack.InMotion(); ok {
		idx = e.MotionIndex
	}
	return top.Transform.Current(idx)
}

// Options returns the current (frame-scoped) Options snapshot.
func (c *Context) Options() *state.Options { return c.options }

// Target returns the output target name Begin was called with.
func (c *Context) Target() string { return c.target }

func (c *Context) reportf(kind stats.Kind, sev stats.Severity, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	d := stats.Diagnostic{Kind: kind, Severity: sev, Message: msg}
	if c.Stats != nil {
		c.Stats.Report(d)
	}
	return d
}
