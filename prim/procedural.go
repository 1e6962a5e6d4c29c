// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package prim

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/aqsisrender/core/grid"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

// ProceduralKind selects one of the three deferred-generator modes:
// DelayedReadArchive, RunProgram, or DynamicLoad.
type ProceduralKind int

const (
	// DelayedReadArchive re-runs the RIB parser on a named archive file.
	DelayedReadArchive ProceduralKind = iota
	// RunProgram spawns a child process, sends it the bound and the
	// procedural's argument string, and reads generated RIB from stdout.
	RunProgram
	// DynamicLoad hands off to a registered ProceduralPlugin by name.
	DynamicLoad
)

// ArchiveReader parses a RIB archive's byte content into primitives
// under the given attribute snapshot; the ri package supplies the real
// implementation (its own scene reader), avoiding an import cycle here.
type ArchiveReader func(data []byte, attrs *state.Attributes) ([]Primitive, error)

// ProceduralPlugin is the Go-shaped stand-in for Aqsis's DynamicLoad
// plug-in ABI (Subdivide/Free/ConvertParameters over a loaded .so/.dll):
// callers register a ProceduralPlugin by name instead of loading a
// shared object, since Go has no portable dynamic-linking equivalent
// worth depending on for this.
type ProceduralPlugin interface {
	// ConvertParameters turns the procedural's raw argument string into
	// whatever the plugin needs to generate geometry.
	ConvertParameters(args string) (any, error)
	// Subdivide is called once per Split, generating replacement
	// primitives from the converted parameters and the current bound.
	Subdivide(data any, bound geom.Bound, attrs *state.Attributes) ([]Primitive, error)
	// Free releases any plugin-held resources for data (a no-op for
	// stateless plugins).
	Free(data any)
}

// Procedural is a deferred geometry generator: Split evaluates the generator exactly once, caching
// nothing, and returns the primitives it produced in place of itself.
type Procedural struct {
	Base
	Kind ProceduralKind

	// DelayedReadArchive.
	ArchiveName string
	Archive     ArchiveReader
	ArchiveData []byte

	// RunProgram.
	Program string
	Args    []string

	// DynamicLoad.
	PluginName string
	Plugin     ProceduralPlugin
	PluginArgs string

	ProcBound geom.Bound
}

// NewProcedural constructs a Procedural; the caller selects Kind and
// populates only the fields that kind uses.
func NewProcedural(attrs *state.Attributes, kind ProceduralKind, bound geom.Bound) *Procedural {
	return &Procedural{Base: Base{Attrs: attrs}, Kind: kind, ProcBound: bound}
}

// Bound implements Primitive.
func (p *Procedural) Bound(time float64) geom.Bound { return p.ProcBound }

// Diceable implements Primitive: a Procedural is never diceable; it must
// always Split to expand its generator.
func (p *Procedural) Diceable(float64, func(geom.Bound) (float64, float64)) bool { return false }

// Dice implements Primitive; unreachable.
func (p *Procedural) Dice() *grid.MicroGrid { return grid.NewMicroGrid(1, 1) }

// Split implements Primitive: runs the selected generator exactly once.
func (p *Procedural) Split() ([]Primitive, error) {
	switch p.Kind {
	case DelayedReadArchive:
		return p.splitArchive()
	case RunProgram:
		return p.splitProgram()
	case DynamicLoad:
		return p.splitPlugin()
	default:
		return nil, fmt.Errorf("procedural: unknown generator kind %d", p.Kind)
	}
}

func (p *Procedural) splitArchive() ([]Primitive, error) {
	if p.Archive == nil {
		return nil, fmt.Errorf("procedural %q: no archive reader registered", p.ArchiveName)
	}
	return p.Archive(p.ArchiveData, p.Attrs)
}

// splitProgram spawns Program with Args, writes the procedural's bound
// to its stdin (the convention RunProgram's RI binding uses to tell the
// child what detail level to generate at), and parses the RIB it writes
// to stdout via the same ArchiveReader a DelayedReadArchive uses — the
// wire format downstream of the pipe is identical RIB text either way.
// os/exec is a boundary to the OS process, not a rendering concern, so
// its use here needs no third-party replacement.
func (p *Procedural) splitProgram() ([]Primitive, error) {
	if p.Archive == nil {
		return nil, fmt.Errorf("procedural: RunProgram %q needs an archive reader to parse its output", p.Program)
	}
	cmd := exec.Command(p.Program, p.Args...)
	cmd.Stdin = bytes.NewReader([]byte(fmt.Sprintf("%g %g %g %g %g %g\n",
		p.ProcBound.Min.X, p.ProcBound.Min.Y, p.ProcBound.Min.Z,
		p.ProcBound.Max.X, p.ProcBound.Max.Y, p.ProcBound.Max.Z)))
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("procedural: RunProgram %q: %w", p.Program, err)
	}
	return p.Archive(out.Bytes(), p.Attrs)
}

func (p *Procedural) splitPlugin() ([]Primitive, error) {
	if p.Plugin == nil {
		return nil, fmt.Errorf("procedural: DynamicLoad plugin %q not registered", p.PluginName)
	}
	data, err := p.Plugin.ConvertParameters(p.PluginArgs)
	if err != nil {
		return nil, fmt.Errorf("procedural: plugin %q ConvertParameters: %w", p.PluginName, err)
	}
	defer p.Plugin.Free(data)
	return p.Plugin.Subdivide(data, p.ProcBound, p.Attrs)
}

// Transform implements Primitive: the generator's own primitives are
// transformed once they are produced by Split, so a Procedural itself
// only needs to carry its bound into the new space.
func (p *Procedural) Transform(m, mInvT *geom.M4, time float64) {
	p.ProcBound = p.ProcBound.Transform(m)
}
