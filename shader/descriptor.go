// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package shader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aqsisrender/core/param"
)

// Descriptor is a shader's declared parameter shape, read out-of-band so
// the renderer can validate `Surface "name" params...` calls without
// executing the shader VM. Mirrors
// load/shd.go's shaderConfig/yaml.Unmarshal idiom exactly, generalized
// from GLSL attributes/uniforms to RenderMan parameter tokens.
type Descriptor struct {
	Name   string            `yaml:"name"`
	Role   string            `yaml:"role"`
	Params []DescriptorParam `yaml:"params"`
}

// DescriptorParam is one declared shader parameter: name, storage class,
// and type, in the same vocabulary param.Declare parses.
type DescriptorParam struct {
	Name  string `yaml:"name"`
	Class string `yaml:"class"`
	Type  string `yaml:"type"`
	Len   int    `yaml:"len"`
}

var roleNames = map[string]Role{
	"surface":      Surface,
	"displacement": Displacement,
	"atmosphere":   Atmosphere,
	"interior":     Interior,
	"exterior":     Exterior,
	"imager":       Imager,
	"light":        LightSource,
	"arealight":    AreaLightSource,
}

// LoadDescriptor parses a yaml shader manifest, in the shape load/shd.go
// decodes GLSL shader configs, and returns the Descriptor plus the
// Declared registry entries its params contribute (so a shader's own
// parameters can be referenced by bare name in its RI call's parameter
// list without a separate Declare).
func LoadDescriptor(data []byte) (*Descriptor, map[string]param.Declared, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, nil, fmt.Errorf("shader: yaml: %w", err)
	}
	if _, ok := roleNames[d.Role]; d.Role != "" && !ok {
		return nil, nil, fmt.Errorf("shader: unsupported role %q", d.Role)
	}
	registry := make(map[string]param.Declared, len(d.Params))
	for _, p := range d.Params {
		decl := fmt.Sprintf("%s %s", orDefault(p.Class, "uniform"), p.Type)
		if p.Len > 1 {
			decl = fmt.Sprintf("%s %s[%d]", orDefault(p.Class, "uniform"), p.Type, p.Len)
		}
		declared, err := param.Declare(registry, p.Name, decl)
		if err != nil {
			return nil, nil, fmt.Errorf("shader: param %q: %w", p.Name, err)
		}
		registry[p.Name] = declared
	}
	return &d, registry, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// DescriptorRole returns the Role named by d.Role, defaulting to Surface
// when unspecified (the common case for a plain "matte"-style shader).
func DescriptorRole(d *Descriptor) Role {
	if r, ok := roleNames[d.Role]; ok {
		return r
	}
	return Surface
}
