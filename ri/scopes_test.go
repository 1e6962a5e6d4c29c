// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package ri

import (
	"errors"
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

func newScopeTestContext() *Context {
	return NewContext(nil, nil, stats.NewHandler(stats.Ignore), nil)
}

func wantInvalidNesting(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("got nil error, want InvalidNesting diagnostic")
	}
	var d stats.Diagnostic
	if !errors.As(err, &d) {
		t.Fatalf("error %v is not a stats.Diagnostic", err)
	}
	if d.Kind != stats.InvalidNesting {
		t.Fatalf("diagnostic kind = %v, want InvalidNesting", d.Kind)
	}
}

// TestWorldCannotNestWorld checks that legalChildren's exclusion of World
// as its own child (state.context.go's nesting table) is actually
// enforced through the RI surface rather than just in the table itself.
func TestWorldCannotNestWorld(t *testing.T) {
	c := newScopeTestContext()
	if err := c.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	if err := c.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}
	wantInvalidNesting(t, c.WorldBegin())
}

// TestTransformScopeRejectsSolidChild checks a Transform scope, which
// permits only Attribute/Transform/Motion children, rejects Solid.
func TestTransformScopeRejectsSolidChild(t *testing.T) {
	c := newScopeTestContext()
	if err := c.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	if err := c.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}
	if err := c.TransformBegin(); err != nil {
		t.Fatalf("TransformBegin: %v", err)
	}
	wantInvalidNesting(t, c.SolidBegin(state.SolidPrimitive))
}

// TestMismatchedEndErrors checks that e.g. AttributeEnd with a
// TransformScope on top (an unmatched Begin/End pair) is caught rather
// than silently popping the wrong scope.
func TestMismatchedEndErrors(t *testing.T) {
	c := newScopeTestContext()
	if err := c.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	if err := c.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}
	if err := c.TransformBegin(); err != nil {
		t.Fatalf("TransformBegin: %v", err)
	}
	wantInvalidNesting(t, c.AttributeEnd())
}

// TestEndWithOpenScopeErrors checks that End refuses to close Main while
// a child scope is still open.
func TestEndWithOpenScopeErrors(t *testing.T) {
	c := newScopeTestContext()
	if err := c.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	wantInvalidNesting(t, c.End())
}

// TestAttributeEndRestoresPriorHandle checks invariant that
// after any AttributeEnd, the active Attributes reference equals the one
// saved at the matching AttributeBegin — by pointer identity, since
// Attributes' refcount fields are unexported and COW only clones on an
// actual write.
func TestAttributeEndRestoresPriorHandle(t *testing.T) {
	c := newScopeTestContext()
	if err := c.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	if err := c.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}

	before := c.Stack.Top().Attributes
	if err := c.AttributeBegin(); err != nil {
		t.Fatalf("AttributeBegin: %v", err)
	}
	c.Color(geom.Color{R: 1}) // triggers copy-on-write: a new handle inside the scope.
	if inner := c.Stack.Top().Attributes; inner == before {
		t.Fatalf("Color did not copy-on-write: inner handle still == outer handle")
	}
	if err := c.AttributeEnd(); err != nil {
		t.Fatalf("AttributeEnd: %v", err)
	}
	if got := c.Stack.Top().Attributes; got != before {
		t.Fatalf("Attributes handle after AttributeEnd = %p, want the pre-AttributeBegin handle %p", got, before)
	}
}

// TestTransformEndRestoresPriorHandle is TestAttributeEndRestoresPriorHandle's
// counterpart for the CTM.
func TestTransformEndRestoresPriorHandle(t *testing.T) {
	c := newScopeTestContext()
	if err := c.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	if err := c.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}

	before := c.Stack.Top().Transform
	if err := c.TransformBegin(); err != nil {
		t.Fatalf("TransformBegin: %v", err)
	}
	c.Translate(1, 2, 3)
	if inner := c.Stack.Top().Transform; inner == before {
		t.Fatalf("Translate did not copy-on-write: inner handle still == outer handle")
	}
	if err := c.TransformEnd(); err != nil {
		t.Fatalf("TransformEnd: %v", err)
	}
	if got := c.Stack.Top().Transform; got != before {
		t.Fatalf("Transform handle after TransformEnd = %p, want the pre-TransformBegin handle %p", got, before)
	}
}
