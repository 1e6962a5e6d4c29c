// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package param implements the RenderMan Interface's typed parameter
// lists: the (token, pointer) pairs that follow every primitive and
// shader-binding RI call, each token carrying a storage class and a
// type, either via a prior Declare or an inline declaration parsed from
// the token string itself.
package param

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aqsisrender/core/math/geom"
)

// Class is the storage class of a parameter: how its values vary across
// a primitive's control hull / diced grid.
type Class int

const (
	// Constant is a single value for the entire primitive.
	Constant Class = iota
	// Uniform is one value per face/patch/span.
	Uniform
	// Varying is one value per corner of the primitive's parametric
	// domain, bilinearly interpolated across a diced grid.
	Varying
	// Vertex is one value per control vertex, interpolated the same way
	// the primitive interpolates position (e.g. via the bicubic basis).
	Vertex
	// Facevarying is one value per corner of each face, allowing
	// discontinuities (e.g. UV seams) that Varying cannot express.
	Facevarying
)

// String names the storage class as RI spells it.
func (c Class) String() string {
	switch c {
	case Constant:
		return "constant"
	case Uniform:
		return "uniform"
	case Varying:
		return "varying"
	case Vertex:
		return "vertex"
	case Facevarying:
		return "facevarying"
	default:
		return "unknown"
	}
}

// Type is the scalar or aggregate type of a parameter's values.
type Type int

const (
	Float Type = iota
	Int
	String
	Point
	Vector
	Normal
	Color
	Matrix
	HPoint
)

// String names the type as RI spells it.
func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Int:
		return "integer"
	case String:
		return "string"
	case Point:
		return "point"
	case Vector:
		return "vector"
	case Normal:
		return "normal"
	case Color:
		return "color"
	case Matrix:
		return "matrix"
	case HPoint:
		return "hpoint"
	default:
		return "unknown"
	}
}

// Width returns the number of float64 elements one value of t occupies
// (1 for scalars, 3 for point/vector/normal/color, 4 for hpoint, 16 for
// matrix). String values are stored out-of-band in Param.Strings.
func (t Type) Width() int {
	switch t {
	case Float, Int:
		return 1
	case Point, Vector, Normal, Color:
		return 3
	case HPoint:
		return 4
	case Matrix:
		return 16
	default:
		return 0
	}
}

// Declared is a named parameter token's registered shape: its storage
// class, type, and array length (0 or 1 means a single value).
type Declared struct {
	Name  string
	Class Class
	Type  Type
	Len   int
}

// Param is one bound parameter: its declared shape plus the raw values
// supplied for one RI call. Numeric types (everything but String) store
// their components flattened into Floats; Ints reuse Floats too, so one
// flat storage slice serves every numeric type.
type Param struct {
	Declared
	Floats  []float64
	Strings []string
}

// NFields returns the parameter's array length: Len, or 1 when Len is 0
// (a scalar). It does not account for Type.Width.
func (p *Param) NFields() int {
	n := p.Len
	if n == 0 {
		n = 1
	}
	return n
}

// Point3 returns the i'th Point/Vector/Normal/Color value.
func (p *Param) Point3(i int) geom.V3 {
	w := p.Type.Width()
	off := i * w
	if off+2 >= len(p.Floats) {
		return geom.V3{}
	}
	return geom.V3{X: p.Floats[off], Y: p.Floats[off+1], Z: p.Floats[off+2]}
}

// Float1 returns the i'th Float/Int value.
func (p *Param) Float1(i int) float64 {
	if i >= len(p.Floats) {
		return 0
	}
	return p.Floats[i]
}

// List is the ordered set of parameters bound to one RI call, built from
// the (token, pointer) pairs RI passes after an argument list. It also
// carries the registry of Declare'd and inline-declared tokens so that a
// bare name (no "class type[n]" prefix) can be resolved.
type List struct {
	registry map[string]Declared
	Params   []*Param
}

// NewList returns an empty parameter list sharing the given declaration
// registry (typically the renderer-global one built up by Declare calls).
func NewList(registry map[string]Declared) *List {
	if registry == nil {
		registry = map[string]Declared{}
	}
	return &List{registry: registry}
}

// Declare registers name's shape so that later bare references resolve
// it, mirroring the RI Declare call. decl is the grammar string
// "class type[n]", e.g. "uniform float[3]" or simply "float" (storage
// class defaults to Varying when omitted, matching the RenderMan spec).
func Declare(registry map[string]Declared, name, decl string) (Declared, error) {
	d, err := parseDeclaration(name, decl)
	if err != nil {
		return Declared{}, err
	}
	registry[name] = d
	return d, nil
}

// Get appends one parameter to l from a (token, values) pair. token may
// be a bare declared name or a full inline declaration
// ("class type[n] name"); values holds the flattened numeric payload for
// numeric types or the strings for String.
func (l *List) Get(token string, floats []float64, strings []string) error {
	name, decl, inline := splitInlineToken(token)
	var d Declared
	var err error
	if inline {
		d, err = parseDeclaration(name, decl)
		if err != nil {
			return fmt.Errorf("param: bad inline declaration %q: %w", token, err)
		}
	} else {
		var ok bool
		d, ok = l.registry[name]
		if !ok {
			return fmt.Errorf("param: unknown token %q (not declared)", name)
		}
	}
	l.Params = append(l.Params, &Param{Declared: d, Floats: floats, Strings: strings})
	return nil
}

// Find returns the parameter named name, or nil if not present.
func (l *List) Find(name string) *Param {
	for _, p := range l.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// splitInlineToken detects the RI inline-declaration grammar
// "class type[n] name" embedded in a token string, returning the bare
// name and, when inline is true, the "class type[n]" prefix to parse.
func splitInlineToken(token string) (name, decl string, inline bool) {
	fields := strings.Fields(token)
	if len(fields) <= 1 {
		return token, "", false
	}
	// Last field is always the parameter name; everything before it is
	// the class/type/array-size declaration.
	name = fields[len(fields)-1]
	decl = strings.Join(fields[:len(fields)-1], " ")
	return name, decl, true
}

var classNames = map[string]Class{
	"constant":    Constant,
	"uniform":     Uniform,
	"varying":     Varying,
	"vertex":      Vertex,
	"facevarying": Facevarying,
}

var typeNames = map[string]Type{
	"float":   Float,
	"integer": Int,
	"int":     Int,
	"string":  String,
	"point":   Point,
	"vector":  Vector,
	"normal":  Normal,
	"color":   Color,
	"matrix":  Matrix,
	"hpoint":  HPoint,
}

// parseDeclaration parses the RI grammar "[class] type[[n]]" and returns
// the Declared shape for name. class defaults to Varying when omitted, as
// RISpec §5.2 specifies.
func parseDeclaration(name, decl string) (Declared, error) {
	decl = strings.TrimSpace(decl)
	fields := strings.Fields(decl)
	if len(fields) == 0 {
		return Declared{}, fmt.Errorf("empty declaration")
	}
	class := Varying
	typeField := fields[0]
	if len(fields) == 2 {
		c, ok := classNames[fields[0]]
		if !ok {
			return Declared{}, fmt.Errorf("unknown storage class %q", fields[0])
		}
		class = c
		typeField = fields[1]
	} else if len(fields) != 1 {
		return Declared{}, fmt.Errorf("malformed declaration %q", decl)
	}

	arrayLen := 1
	typeName := typeField
	if idx := strings.IndexByte(typeField, '['); idx >= 0 {
		if !strings.HasSuffix(typeField, "]") {
			return Declared{}, fmt.Errorf("malformed array size in %q", typeField)
		}
		typeName = typeField[:idx]
		n, err := strconv.Atoi(typeField[idx+1 : len(typeField)-1])
		if err != nil || n <= 0 {
			return Declared{}, fmt.Errorf("malformed array size in %q", typeField)
		}
		arrayLen = n
	}
	t, ok := typeNames[typeName]
	if !ok {
		return Declared{}, fmt.Errorf("unknown type %q", typeName)
	}
	return Declared{Name: name, Class: class, Type: t, Len: arrayLen}, nil
}
