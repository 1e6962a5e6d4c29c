// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package state

import "github.com/aqsisrender/core/math/geom"

// Built-in coordinate system names. The registry never lets a caller
// register one of these under CoordinateSystem.
const (
	SpaceCamera = "camera"
	SpaceCurrent = "current"
	SpaceWorld   = "world"
	SpaceScreen  = "screen"
	SpaceNDC     = "NDC"
	SpaceRaster  = "raster"
	SpaceObject  = "object"
	SpaceShader  = "shader"
)

// coordEntry holds a named space's world-to-space matrix and its inverse,
// derived on demand the way camera.go computes viewTransform lazily.
type coordEntry struct {
	worldToSpace geom.M4
	spaceToWorld geom.M4
}

// CoordSys is the named coordinate-system registry. Built-in names
// are not seeded at construction; RiCoordinateSystem adds user names.
type CoordSys struct {
	entries map[string]coordEntry
	user    map[string]bool
}

// NewCoordSys returns a registry with no entries populated; a built-in
// name resolves only after something calls Set for it.
func NewCoordSys() *CoordSys {
	return &CoordSys{entries: map[string]coordEntry{}, user: map[string]bool{}}
}

// Set installs worldToSpace (and its derived inverse) under name.
// RiCoordinateSystem uses it for user names; a built-in name is stored
// but not marked as a user name.
func (c *CoordSys) Set(name string, worldToSpace *geom.M4) {
	inv, ok := (&geom.M4{}).Invert(worldToSpace)
	if !ok {
		inv = (&geom.M4{}).Set(geom.M4I)
	}
	c.entries[name] = coordEntry{worldToSpace: *worldToSpace, spaceToWorld: *inv}
	if !isBuiltin(name) {
		c.user[name] = true
	}
}

// Lookup returns the world-to-space matrix for name, or ok=false if
// unregistered (the ri package turns that into an UnknownSymbol error).
func (c *CoordSys) Lookup(name string) (geom.M4, bool) {
	e, ok := c.entries[name]
	return e.worldToSpace, ok
}

// ToWorld returns the space-to-world matrix for name.
func (c *CoordSys) ToWorld(name string) (geom.M4, bool) {
	e, ok := c.entries[name]
	return e.spaceToWorld, ok
}

// Compose returns the matrix that transforms points expressed in from's
// space into to's space: fromToWorld * worldToTo. Lookups through any
// composed path (camera -> world -> raster, etc.) return the
// concatenated matrix.
func (c *CoordSys) Compose(from, to string) (geom.M4, bool) {
	fromToWorld, ok1 := c.ToWorld(from)
	worldToTo, ok2 := c.Lookup(to)
	if !ok1 || !ok2 {
		return geom.M4{}, false
	}
	var m geom.M4
	m.Mult(&fromToWorld, &worldToTo)
	return m, true
}

func isBuiltin(name string) bool {
	switch name {
	case SpaceCamera, SpaceCurrent, SpaceWorld, SpaceScreen, SpaceNDC, SpaceRaster, SpaceObject, SpaceShader:
		return true
	default:
		return false
	}
}

// IsUserName reports whether name was registered by RiCoordinateSystem
// (as opposed to a built-in).
func (c *CoordSys) IsUserName(name string) bool { return c.user[name] }
