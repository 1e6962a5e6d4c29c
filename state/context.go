// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package state

import "fmt"

// Kind tags the variant of a Context stack entry: a small closed enum
// routed through a dispatch table rather than a type hierarchy.
type Kind int

const (
	Main Kind = iota
	Frame
	World
	AttributeScope
	TransformScope
	Solid
	Object
	Motion
)

func (k Kind) String() string {
	switch k {
	case Main:
		return "Main"
	case Frame:
		return "Frame"
	case World:
		return "World"
	case AttributeScope:
		return "Attribute"
	case TransformScope:
		return "Transform"
	case Solid:
		return "Solid"
	case Object:
		return "Object"
	case Motion:
		return "Motion"
	default:
		return "Unknown"
	}
}

// SolidOp is the CSG operation a Solid scope combines its children under.
type SolidOp int

const (
	SolidPrimitive SolidOp = iota
	SolidIntersection
	SolidUnion
	SolidDifference
)

// legalChildren is the scope-nesting table: each scope entry knows
// which child scopes it permits. Mis-nesting — pushing a child Kind not
// in this set — is a fatal InvalidNesting error.
var legalChildren = map[Kind]map[Kind]bool{
	Main:           {Frame: true, World: true},
	Frame:          {World: true, AttributeScope: true, TransformScope: true},
	World:          {AttributeScope: true, TransformScope: true, Solid: true, Object: true, Motion: true},
	AttributeScope: {AttributeScope: true, TransformScope: true, Solid: true, Object: true, Motion: true},
	TransformScope: {AttributeScope: true, TransformScope: true, Motion: true},
	Solid:          {Solid: true, AttributeScope: true, TransformScope: true},
	Object:         {AttributeScope: true, TransformScope: true, Motion: true},
	Motion:         {},
}

// Entry is one stack frame: it owns references to an Attributes and a
// Transform snapshot, both released when the scope closes.
type Entry struct {
	Kind       Kind
	Attributes *Attributes
	Transform  *Transform
	SolidOp    SolidOp // only meaningful for Kind == Solid.

	// ObjectHandle identifies the Object scope being recorded (Kind ==
	// Object); 0 outside of one.
	ObjectHandle int

	// MotionTimes/MotionIndex track a Motion scope's keyframe times and
	// which one is currently being written to by RiMotionBegin ...
	// transform calls.
	MotionTimes []float64
	MotionIndex int
}

// Stack is the per-render-target context stack.
type Stack struct {
	entries []Entry
}

// NewStack returns an empty stack; Push(Main, ...) must be the first call.
func NewStack() *Stack { return &Stack{} }

// Top returns the current (innermost) entry, or nil if the stack is empty.
func (s *Stack) Top() *Entry {
	if len(s.entries) == 0 {
		return nil
	}
	return &s.entries[len(s.entries)-1]
}

// Depth returns the number of open scopes.
func (s *Stack) Depth() int { return len(s.entries) }

// Push opens a new scope of kind k, inheriting (retaining references to)
// the current Attributes/Transform. It returns an error if k is not a
// legal child of the current top entry.
func (s *Stack) Push(k Kind) (*Entry, error) {
	if len(s.entries) == 0 {
		if k != Main {
			return nil, fmt.Errorf("state: first scope must be Main, got %s", k)
		}
		s.entries = append(s.entries, Entry{
			Kind:       Main,
			Attributes: NewAttributes(),
			Transform:  NewTransform(),
		})
		return s.Top(), nil
	}
	top := s.Top()
	if !legalChildren[top.Kind][k] {
		return nil, fmt.Errorf("state: %w: %s cannot nest inside %s", ErrInvalidNesting, k, top.Kind)
	}
	child := Entry{
		Kind:       k,
		Attributes: top.Attributes.Retain(),
		Transform:  top.Transform.Retain(),
	}
	if k == Solid {
		child.SolidOp = SolidPrimitive
	}
	s.entries = append(s.entries, child)
	return s.Top(), nil
}

// Pop closes the current scope of the given kind, releasing its
// Attributes/Transform references (a Motion scope instead hands its
// Transform to the enclosing scope). It errors if the top entry's kind
// does not match want, catching mismatched Begin/End pairs.
func (s *Stack) Pop(want Kind) error {
	if len(s.entries) == 0 {
		return fmt.Errorf("state: %w: End with no matching Begin", ErrInvalidNesting)
	}
	top := s.Top()
	if top.Kind != want {
		return fmt.Errorf("state: %w: %sEnd does not match open %s scope", ErrInvalidNesting, want, top.Kind)
	}
	top.Attributes.Release()
	if want == Motion {
		// Motion is not a save/restore scope: the time keys written
		// inside the block become the enclosing scope's transform.
		parent := &s.entries[len(s.entries)-2]
		parent.Transform.Release()
		parent.Transform = top.Transform
	} else {
		top.Transform.Release()
	}
	s.entries = s.entries[:len(s.entries)-1]
	return nil
}

// WriteAttributes returns a unique Attributes handle for the current
// scope, replacing its reference with the COW result.
func (s *Stack) WriteAttributes() *Attributes {
	top := s.Top()
	top.Attributes = top.Attributes.Write()
	return top.Attributes
}

// WriteTransform returns a unique Transform handle for the current scope.
func (s *Stack) WriteTransform() *Transform {
	top := s.Top()
	top.Transform = top.Transform.Write()
	return top.Transform
}

// InMotion reports whether the current scope (or an enclosing one) is a
// Motion block, and if so returns its entry.
func (s *Stack) InMotion() (*Entry, bool) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Kind == Motion {
			return &s.entries[i], true
		}
		// Motion only directly wraps Transform-affecting calls; any
		// other intervening scope (the grammar in legalChildren forbids
		// it) would end the search, but since Motion permits no
		// children at all, this loop only ever finds it at i ==
		// len-1 in practice.
	}
	return nil, false
}

// ErrInvalidNesting is wrapped by every mis-nesting error this package
// returns, so callers can classify it with errors.Is without matching on
// message text.
var ErrInvalidNesting = fmt.Errorf("invalid nesting")
