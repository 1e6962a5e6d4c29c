// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package geom

import "testing"

func TestMultIdentity(t *testing.T) {
	var m M4
	m.Mult(M4I, M4I)
	if !m.Equal(M4I) {
		t.Fatalf("I*I should be I, got %+v", m)
	}
}

// Equal is a test-only almost-equal helper over every element.
func (m *M4) Equal(a *M4) bool {
	return Aeq(m.Xx, a.Xx) && Aeq(m.Xy, a.Xy) && Aeq(m.Xz, a.Xz) && Aeq(m.Xw, a.Xw) &&
		Aeq(m.Yx, a.Yx) && Aeq(m.Yy, a.Yy) && Aeq(m.Yz, a.Yz) && Aeq(m.Yw, a.Yw) &&
		Aeq(m.Zx, a.Zx) && Aeq(m.Zy, a.Zy) && Aeq(m.Zz, a.Zz) && Aeq(m.Zw, a.Zw) &&
		Aeq(m.Wx, a.Wx) && Aeq(m.Wy, a.Wy) && Aeq(m.Wz, a.Wz) && Aeq(m.Ww, a.Ww)
}

func TestInvertTranslate(t *testing.T) {
	var m M4
	m.TranslateTM(1, 2, 3)
	inv, ok := (&M4{}).Invert(&m)
	if !ok {
		t.Fatal("translate matrix should be invertible")
	}
	var id M4
	id.Mult(&m, inv)
	if !id.Equal(M4I) {
		t.Fatalf("m*inv(m) should be I, got %+v", id)
	}
}

func TestInvertSingular(t *testing.T) {
	var m M4 // zero matrix, determinant 0
	_, ok := (&M4{}).Invert(&m)
	if ok {
		t.Fatal("singular matrix should fail to invert")
	}
}

func TestProjectPoint(t *testing.T) {
	p := &V3{1, 2, 3}
	h := MultPoint(p, M4I)
	got, ok := Project(h)
	if !ok {
		t.Fatal("identity projection should not be degenerate")
	}
	if !got.Eq(p) {
		t.Fatalf("Project(MultPoint(p, I)) got %+v want %+v", got, p)
	}
}

func TestTranslateRoundTrip(t *testing.T) {
	var m M4
	m.TranslateTM(5, -2, 7)
	p := &V3{0, 0, 0}
	h := MultPoint(p, &m)
	got, _ := Project(h)
	want := V3{5, -2, 7}
	if !got.Aeq(&want) {
		t.Fatalf("translate got %+v want %+v", got, want)
	}
}
