// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package shader

import (
	"testing"

	"github.com/aqsisrender/core/param"
)

const matteYAML = `
name: matte
role: surface
params:
  - name: Ka
    class: uniform
    type: float
  - name: Kd
    class: uniform
    type: float
`

type stubShader struct{ name string }

func (s *stubShader) Name() string                                     { return s.name }
func (s *stubShader) Role() Role                                       { return Surface }
func (s *stubShader) Ambient() bool                                    { return false }
func (s *stubShader) Evaluate(env *Environment, lights []LightCtx) error { return nil }

func TestRegistryLoad(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.RegisterSource([]byte(matteYAML), func(desc *Descriptor, params *param.List) (Shader, error) {
		return &stubShader{name: desc.Name}, nil
	}); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}
	list := param.NewList(r.Declared("matte"))
	if err := list.Get("Ka", []float64{1}, nil); err != nil {
		t.Fatalf("Get Ka: %v", err)
	}
	s, err := r.Load(Surface, "matte", list)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name() != "matte" {
		t.Errorf("Name() = %q, want matte", s.Name())
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Load(Surface, "nope", param.NewList(nil)); err == nil {
		t.Fatal("expected error for unknown shader")
	}
}
