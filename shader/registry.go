// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package shader

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aqsisrender/core/param"
)

// Builder constructs a bound Shader instance from a loaded Descriptor and
// the parameter list an RI call supplied. Registered per descriptor name
// so the (out-of-scope) shader VM can plug concrete evaluators in without
// this package knowing about shading-language internals.
type Builder func(desc *Descriptor, params *param.List) (Shader, error)

// Registry loads shader descriptors and binds them into Shader instances,
// caching the parsed Descriptor (not the bound instance, since each RI
// call binds its own parameter list) the way assets.getShader fetches
// then lazily loads then caches a render.Shader by name.
type Registry struct {
	mu       sync.Mutex
	descs    map[string]*Descriptor
	declared map[string]map[string]param.Declared
	builders map[string]Builder
	log      *slog.Logger
}

// NewRegistry returns an empty Registry; Register/RegisterSource populate
// it before the first Load call.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		descs:    map[string]*Descriptor{},
		declared: map[string]map[string]param.Declared{},
		builders: map[string]Builder{},
		log:      log,
	}
}

// RegisterSource parses a yaml manifest (shader.LoadDescriptor) and
// registers it under its own Name, along with the Builder that will
// construct bound instances for it.
func (r *Registry) RegisterSource(yamlSrc []byte, build Builder) error {
	desc, declared, err := LoadDescriptor(yamlSrc)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descs[desc.Name] = desc
	r.declared[desc.Name] = declared
	r.builders[desc.Name] = build
	return nil
}

// Load implements Factory: it fetches the cached Descriptor for name,
// verifies role, and invokes its Builder with params.
func (r *Registry) Load(role Role, name string, params *param.List) (Shader, error) {
	r.mu.Lock()
	desc, ok := r.descs[name]
	build := r.builders[name]
	r.mu.Unlock()
	if !ok {
		r.log.Warn("shader not found", slog.String("name", name), slog.String("role", role.String()))
		return nil, &ErrUnknownShader{Role: role, Name: name}
	}
	if declRole := DescriptorRole(desc); declRole != role {
		r.log.Warn("shader role mismatch", slog.String("name", name),
			slog.String("declared", declRole.String()), slog.String("requested", role.String()))
	}
	if build == nil {
		return nil, fmt.Errorf("shader: %q has no builder registered", name)
	}
	return build(desc, params)
}

// Declared returns the registered parameter shapes for a loaded shader,
// letting param.List resolve the shader's own bare-name tokens.
func (r *Registry) Declared(name string) map[string]param.Declared {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.declared[name]
}
