// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package param

import "testing"

func TestParseDeclarationDefaultsVarying(t *testing.T) {
	d, err := parseDeclaration("Cs", "color")
	if err != nil {
		t.Fatal(err)
	}
	if d.Class != Varying || d.Type != Color || d.Len != 1 {
		t.Fatalf("got %+v", d)
	}
}

func TestParseDeclarationExplicitClassAndArray(t *testing.T) {
	d, err := parseDeclaration("widths", "uniform float[3]")
	if err != nil {
		t.Fatal(err)
	}
	if d.Class != Uniform || d.Type != Float || d.Len != 3 {
		t.Fatalf("got %+v", d)
	}
}

func TestParseDeclarationUnknownType(t *testing.T) {
	if _, err := parseDeclaration("x", "bogus"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestListInlineDeclarationRoundTrip(t *testing.T) {
	reg := map[string]Declared{}
	l := NewList(reg)
	if err := l.Get("uniform float[2] widths", []float64{1, 2}, nil); err != nil {
		t.Fatal(err)
	}
	p := l.Find("widths")
	if p == nil {
		t.Fatal("widths not found")
	}
	if p.Class != Uniform || p.Len != 2 || p.Floats[1] != 2 {
		t.Fatalf("got %+v", p)
	}
}

func TestListBareTokenUsesRegistry(t *testing.T) {
	reg := map[string]Declared{}
	if _, err := Declare(reg, "Kd", "float"); err != nil {
		t.Fatal(err)
	}
	l := NewList(reg)
	if err := l.Get("Kd", []float64{0.8}, nil); err != nil {
		t.Fatal(err)
	}
	if l.Find("Kd").Float1(0) != 0.8 {
		t.Fatal("Kd value mismatch")
	}
}

func TestListUnknownBareTokenErrors(t *testing.T) {
	l := NewList(nil)
	if err := l.Get("Unregistered", []float64{1}, nil); err == nil {
		t.Fatal("expected error for undeclared token")
	}
}
