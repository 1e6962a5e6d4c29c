// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package state

import (
	"sync/atomic"

	"github.com/aqsisrender/core/math/geom"
)

// Key is one (time, matrix) sample of a motion-sampled transform.
type Key struct {
	Time   float64
	Matrix geom.M4
}

// Transform is an ordered sequence of motion keys representing the
// object-to-world transform. A single key (the common case) is a static
// transform; two or more keys implies motion blur within the enclosing
// Motion scope. Ref-counted and copy-on-write like
// Attributes.
type Transform struct {
	refs int32
	Keys []Key
}

// NewTransform returns an identity Transform with a single key at time 0
// and one reference.
func NewTransform() *Transform {
	return &Transform{refs: 1, Keys: []Key{{Time: 0, Matrix: *geom.M4I}}}
}

// Retain increments the reference count and returns the same handle.
func (t *Transform) Retain() *Transform {
	atomic.AddInt32(&t.refs, 1)
	return t
}

// Release decrements the reference count.
func (t *Transform) Release() { atomic.AddInt32(&t.refs, -1) }

func (t *Transform) refCount() int32 { return atomic.LoadInt32(&t.refs) }

// Write returns a unique handle to mutate, cloning and releasing the
// shared handle when the reference count is greater than 1 (same
// invariant as Attributes.Write).
func (t *Transform) Write() *Transform {
	if t.refCount() == 1 {
		return t
	}
	clone := &Transform{refs: 1, Keys: append([]Key(nil), t.Keys...)}
	t.Release()
	return clone
}

// Current returns the matrix at the transform's current key (the last
// one outside a Motion block; the key MotionIndex selects inside one).
func (t *Transform) Current(motionIndex int) *geom.M4 {
	if motionIndex < 0 || motionIndex >= len(t.Keys) {
		return &t.Keys[len(t.Keys)-1].Matrix
	}
	return &t.Keys[motionIndex].Matrix
}

// ConcatAt post-multiplies m into the key at motionIndex (or the sole/
// last key outside Motion), matching "transform-affecting calls update
// the key at the current time index".
func (t *Transform) ConcatAt(motionIndex int, m *geom.M4) {
	cur := t.Current(motionIndex)
	var result geom.M4
	result.Mult(m, cur)
	*cur = result
}

// SetAt replaces the key at motionIndex (or the sole/last key) with m.
func (t *Transform) SetAt(motionIndex int, m *geom.M4) {
	cur := t.Current(motionIndex)
	*cur = *m
}

// BeginMotion expands Keys to len(times), copying the current single
// matrix into every new slot; called by MotionBegin.
func (t *Transform) BeginMotion(times []float64) {
	if len(t.Keys) == 0 {
		t.Keys = []Key{{Matrix: *geom.M4I}}
	}
	base := t.Keys[0].Matrix
	t.Keys = make([]Key, len(times))
	for i, tm := range times {
		t.Keys[i] = Key{Time: tm, Matrix: base}
	}
}

// AtTime interpolates the transform to time tm, linearly blending the
// translation and doing a matrix lerp for rotation/scale — adequate for
// a REYES micropolygon's per-sample motion interpolation, which operates
// on already-diced positions rather than the transform itself in the
// general case, but is also used directly for rigid transforms.
func (t *Transform) AtTime(tm float64) geom.M4 {
	if len(t.Keys) == 1 {
		return t.Keys[0].Matrix
	}
	if tm <= t.Keys[0].Time {
		return t.Keys[0].Matrix
	}
	last := len(t.Keys) - 1
	if tm >= t.Keys[last].Time {
		return t.Keys[last].Matrix
	}
	for i := 0; i < last; i++ {
		a, b := t.Keys[i], t.Keys[i+1]
		if tm >= a.Time && tm <= b.Time {
			span := b.Time - a.Time
			if span <= geom.Epsilon {
				return a.Matrix
			}
			frac := (tm - a.Time) / span
			return lerpMatrix(a.Matrix, b.Matrix, frac)
		}
	}
	return t.Keys[last].Matrix
}

func lerpMatrix(a, b geom.M4, f float64) geom.M4 {
	return geom.M4{
		Xx: geom.Lerp(a.Xx, b.Xx, f), Xy: geom.Lerp(a.Xy, b.Xy, f), Xz: geom.Lerp(a.Xz, b.Xz, f), Xw: geom.Lerp(a.Xw, b.Xw, f),
		Yx: geom.Lerp(a.Yx, b.Yx, f), Yy: geom.Lerp(a.Yy, b.Yy, f), Yz: geom.Lerp(a.Yz, b.Yz, f), Yw: geom.Lerp(a.Yw, b.Yw, f),
		Zx: geom.Lerp(a.Zx, b.Zx, f), Zy: geom.Lerp(a.Zy, b.Zy, f), Zz: geom.Lerp(a.Zz, b.Zz, f), Zw: geom.Lerp(a.Zw, b.Zw, f),
		Wx: geom.Lerp(a.Wx, b.Wx, f), Wy: geom.Lerp(a.Wy, b.Wy, f), Wz: geom.Lerp(a.Wz, b.Wz, f), Ww: geom.Lerp(a.Ww, b.Ww, f),
	}
}

// IsMotion reports whether this transform carries more than one key.
func (t *Transform) IsMotion() bool { return len(t.Keys) > 1 }
