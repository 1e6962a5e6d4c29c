// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package ri

import (
	"fmt"

	"github.com/aqsisrender/core/bucket"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// Begin opens the Main context and records target as the session's
// output name. A Context is created by NewContext and is already
// positioned before its first scope; Begin is the RI call that actually
// pushes that Main scope.
func (c *Context) Begin(target string) error {
	if _, err := c.Stack.Push(state.Main); err != nil {
		return c.fatal(stats.InvalidNesting, err)
	}
	c.target = target
	return nil
}

// End tears down the Main context. It is an error to call End with any
// scope still open beneath it.
func (c *Context) End() error {
	if c.Stack.Depth() != 1 {
		return c.fatal(stats.InvalidNesting, fmt.Errorf("ri: End called with %d scopes still open", c.Stack.Depth()-1))
	}
	return c.popScope(state.Main)
}

// FrameBegin opens a Frame scope, saving the current Options so that
// frame-local overrides do not
// leak into the next frame.
func (c *Context) FrameBegin(frame int) error {
	if _, err := c.Stack.Push(state.Frame); err != nil {
		return c.fatal(stats.InvalidNesting, err)
	}
	c.optionStack = append(c.optionStack, c.options)
	c.options = c.options.Clone()
	c.frameNumber = frame
	return nil
}

// FrameEnd closes the current Frame scope, restoring the Options saved
// at the matching FrameBegin.
func (c *Context) FrameEnd() error {
	if err := c.popScope(state.Frame); err != nil {
		return err
	}
	n := len(c.optionStack)
	c.options = c.optionStack[n-1]
	c.optionStack = c.optionStack[:n-1]
	return nil
}

// WorldBegin opens the World scope. The CTM in force immediately before
// WorldBegin is the camera's placement in world space (camera-to-world);
// RenderMan resets the CTM to identity on entry so that object-space
// transforms inside the world block start from world space. The frozen
// world-to-camera matrix, active lights, and any already-built CSG
// trees are handed to the engine so it can configure the image buffer.
func (c *Context) WorldBegin() error {
	cameraToWorld := *c.currentTransform()
	var worldToCamera geom.M4
	if _, ok := worldToCamera.Invert(&cameraToWorld); !ok {
		c.reportf(stats.InvalidData, stats.Warning, "camera transform is singular, using identity")
		worldToCamera.Identity()
	}
	c.worldToCamera = worldToCamera

	if _, err := c.Stack.Push(state.World); err != nil {
		return c.fatal(stats.InvalidNesting, err)
	}
	c.Stack.WriteTransform().SetAt(0, geom.M4I)
	return nil
}

// WorldEnd closes the World scope and hands the queued primitives to the
// engine for bucket-ordered rendering.
func (c *Context) WorldEnd() error {
	if err := c.popScope(state.World); err != nil {
		return err
	}
	if c.Engine == nil {
		return nil
	}
	c.Engine.BeginWorld(c.options, c.worldToCamera, c.lights, c.imager, c.csgTrees)
	err := c.Engine.EndWorld()
	c.csgTrees = nil
	c.leafCount = 0
	if err != nil {
		return c.fatal(stats.InternalBug, err)
	}
	return nil
}

// AttributeBegin pushes a new Attribute scope, retaining (not cloning)
// the current Attributes/Transform handles until something inside the
// scope actually mutates them.
func (c *Context) AttributeBegin() error {
	_, err := c.Stack.Push(state.AttributeScope)
	if err != nil {
		return c.fatal(stats.InvalidNesting, err)
	}
	return nil
}

// AttributeEnd closes the current Attribute scope, releasing its
// Attributes/Transform references and reverting to the parent's saved
// handle.
func (c *Context) AttributeEnd() error {
	return c.popScope(state.AttributeScope)
}

// TransformBegin pushes a new Transform scope.
func (c *Context) TransformBegin() error {
	_, err := c.Stack.Push(state.TransformScope)
	if err != nil {
		return c.fatal(stats.InvalidNesting, err)
	}
	return nil
}

// TransformEnd closes the current Transform scope.
func (c *Context) TransformEnd() error {
	return c.popScope(state.TransformScope)
}

// solidOpFromBucket maps state.SolidOp to the equivalent bucket.CSGOp the
// image buffer's CSG resolver evaluates.
func solidOpFromBucket(op state.SolidOp) bucket.CSGOp {
	switch op {
	case state.SolidUnion:
		return bucket.CSGUnion
	case state.SolidIntersection:
		return bucket.CSGIntersection
	case state.SolidDifference:
		return bucket.CSGDifference
	default:
		return bucket.CSGPrimitive
	}
}

// SolidBegin opens a Solid scope performing op, pushing a new (empty)
// CSGNode that primitives emitted directly inside it become leaves of,
// and that nested SolidBegin/End pairs become children of.
func (c *Context) SolidBegin(op state.SolidOp) error {
	entry, err := c.Stack.Push(state.Solid)
	if err != nil {
		return c.fatal(stats.InvalidNesting, err)
	}
	entry.SolidOp = op
	node := &bucket.CSGNode{Op: solidOpFromBucket(op)}
	if op == state.SolidPrimitive {
		c.leafCount++
		node.Leaf = fmt.Sprintf("leaf%d", c.leafCount)
	}
	c.solids = append(c.solids, node)
	return nil
}

// SolidEnd closes the current Solid scope. If it was nested inside
// another Solid, its resolved tree becomes a child of the parent; at the
// outermost Solid it is recorded as one of the world's top-level CSG
// trees for the engine to resolve per-sample.
func (c *Context) SolidEnd() error {
	if err := c.popScope(state.Solid); err != nil {
		return err
	}
	n := len(c.solids)
	node := c.solids[n-1]
	c.solids = c.solids[:n-1]
	if len(c.solids) > 0 {
		parent := c.solids[len(c.solids)-1]
		parent.Children = append(parent.Children, node)
	} else {
		c.csgTrees = append(c.csgTrees, node)
	}
	return nil
}

// ObjectBegin opens a recording scope: every primitive emitted inside
// it is captured relative to the CTM active now ("object-local" space)
// instead of being posted to the engine, and replayed by
// ObjectInstance. Nested ObjectBegin/End is not legal RI (an instance
// cannot itself record another instance); legalChildren already
// excludes Object as a child of Object.
func (c *Context) ObjectBegin() (int, error) {
	entry, err := c.Stack.Push(state.Object)
	if err != nil {
		return 0, c.fatal(stats.InvalidNesting, err)
	}
	c.objectHandle++
	handle := c.objectHandle
	entry.ObjectHandle = handle
	c.objects[handle] = &objectDef{}
	c.recording = c.objects[handle]
	c.recordingCTM = *c.currentTransform()
	return handle, nil
}

// ObjectEnd closes the recording scope opened by ObjectBegin.
func (c *Context) ObjectEnd() error {
	if err := c.popScope(state.Object); err != nil {
		return err
	}
	c.recording = nil
	return nil
}

// ObjectInstance replays the primitives recorded under handle, each
// re-transformed from its object-local space by the current CTM composed
// with the world-to-camera matrix, exactly as a freshly emitted primitive
// would be.
//
// Primitive.Transform mutates control data in place rather than copying
// it (the engine owns each primitive uniquely, so there is no other
// reader to protect); ObjectInstance therefore transforms the recorded
// primitives directly instead of cloning them first. A second
// ObjectInstance call against the same handle would compose its CTM onto
// the first call's already-transformed data rather than onto the
// original object-local data — multiple instantiation of one Object is
// not supported by this engine.
func (c *Context) ObjectInstance(handle int) error {
	if handle <= 0 {
		return c.reportf(stats.UnknownSymbol, stats.Error, "ri: ObjectInstance: invalid handle %d", handle)
	}
	def, ok := c.objects[handle]
	if !ok {
		return c.reportf(stats.UnknownSymbol, stats.Error, "ri: ObjectInstance: no object with handle %d", handle)
	}
	if def.instantiated {
		c.reportf(stats.Unimplemented, stats.Warning, "ri: ObjectInstance: handle %d instantiated more than once, not supported", handle)
	}
	def.instantiated = true
	ctm := *c.currentTransform()
	for _, p := range def.prims {
		c.transformAndEmit(p, &ctm, "")
	}
	return nil
}

// MotionBegin opens a Motion scope recording times as the transform-
// affecting calls inside it will key against.
func (c *Context) MotionBegin(times []float64) error {
	if len(times) < 2 {
		return c.reportf(stats.InvalidData, stats.Error, "ri: MotionBegin needs at least 2 times, got %d", len(times))
	}
	entry, err := c.Stack.Push(state.Motion)
	if err != nil {
		return c.fatal(stats.InvalidNesting, err)
	}
	entry.MotionTimes = times
	entry.MotionIndex = 0
	c.Stack.WriteTransform().BeginMotion(times)
	return nil
}

// MotionEnd closes the current Motion scope, consolidating the keys
// written during it.
func (c *Context) MotionEnd() error {
	return c.popScope(state.Motion)
}

// popScope pops want off the stack, reporting InvalidNesting through the
// handler on a mismatch instead of panicking fatal-
// error-as-value design.
func (c *Context) popScope(want state.Kind) error {
	if err := c.Stack.Pop(want); err != nil {
		return c.fatal(stats.InvalidNesting, err)
	}
	return nil
}

// fatal reports a diagnostic at Fatal severity and always returns it as
// an error (regardless of handler mode, a mis-nested scope call cannot
// be recovered from by the caller).
func (c *Context) fatal(kind stats.Kind, err error) error {
	d := stats.Diagnostic{Kind: kind, Severity: stats.Fatal, Message: err.Error()}
	if c.Stats != nil {
		c.Stats.Report(d)
	}
	return d
}
