// Package decl provides the output model of the compiler: type descriptors,
// fields and named declarations.
// This package has NO dependencies on I/O.
package decl

import (
	"strings"

	"github.com/artpar/zentypes/domain/zen"
)

// Well-known scalar type names.
const (
	Any       = "any"
	OpenMap   = "Record<string,any>"
	Reference = "Reference"

	UnresolvedConfirms    = "UnresolvedConfirms"
	UnresolvedMap         = "UnresolvedMap"
	UnresolvedPolymorphic = "UnresolvedPolymorphic"
)

// Sentinels lists placeholder names used when resolution is impossible.
var Sentinels = []string{UnresolvedConfirms, UnresolvedMap, UnresolvedPolymorphic}

// Type is a type descriptor. Exactly one of Scalar, Array, Intersection or
// Struct applies.
type Type interface {
	typ()
}

// Scalar is a resolved primitive, a named type, or a union of names.
// Numeric marks a named refinement of number.
type Scalar struct {
	Name    string `json:"scalarType" yaml:"scalarType"`
	Numeric bool   `json:"numeric,omitempty" yaml:"numeric,omitempty"`
}

// Array is a vector. BaseTypes is nil for the collapsed form Array<Elem>.
// A non-nil BaseTypes (possibly empty) selects the general form
// Array<Base1 & Base2 & Elem>.
type Array struct {
	Elem      Type     `json:"arrayOf" yaml:"arrayOf"`
	BaseTypes []string `json:"baseTypes" yaml:"baseTypes"`
}

// Intersection is a set of named base types extended with inline fields.
// Open adds a string index signature.
type Intersection struct {
	BaseTypes []string `json:"baseTypes" yaml:"baseTypes"`
	Fields    []Field  `json:"nested" yaml:"nested"`
	Open      bool     `json:"open,omitempty" yaml:"open,omitempty"`
}

// Struct is a plain inline structure. Open adds a string index signature
// next to the fields.
type Struct struct {
	Fields []Field `json:"nested" yaml:"nested"`
	Open   bool    `json:"open,omitempty" yaml:"open,omitempty"`
}

func (Scalar) typ()       {}
func (Array) typ()        {}
func (Intersection) typ() {}
func (Struct) typ()       {}

// IsGeneral reports whether the array uses the general form.
func (a Array) IsGeneral() bool { return a.BaseTypes != nil }

// Field is one named member of a structure.
type Field struct {
	Name        string `json:"name" yaml:"name"`
	Optional    bool   `json:"optional" yaml:"optional"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        Type   `json:"type" yaml:"type"`
}

// Key returns the emitted property name: quoted when it is not an identifier,
// with "?" appended when optional.
func (f Field) Key() string {
	return FieldKey(f.Name, f.Optional)
}

// RPC describes an RPC method declaration.
type RPC struct {
	Method string `json:"method" yaml:"method"`
	Params string `json:"params" yaml:"params"`
}

// Declaration is a named top-level output unit.
type Declaration struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Extends     []string `json:"extends,omitempty" yaml:"extends,omitempty"`
	Alias       string   `json:"alias,omitempty" yaml:"alias,omitempty"` // primitive alias target
	Body        Type     `json:"body,omitempty" yaml:"body,omitempty"`
	RPC         *RPC     `json:"rpc,omitempty" yaml:"rpc,omitempty"`
	Sources     []string `json:"sources,omitempty" yaml:"sources,omitempty"` // contributing symbols
}

// IsAlias reports whether the declaration is a primitive alias.
func (d Declaration) IsAlias() bool { return d.Alias != "" }

// IsEmpty reports whether the declaration has neither body nor alias.
func (d Declaration) IsEmpty() bool { return d.Alias == "" && d.Body == nil }

// IsOpenMap reports whether t is the open string-keyed mapping: the
// OpenMap scalar or an open structure without fields.
func IsOpenMap(t Type) bool {
	switch v := t.(type) {
	case Scalar:
		return v.Name == OpenMap
	case Struct:
		return v.Open && len(v.Fields) == 0
	}
	return false
}

// ReferenceOf returns the parametrized reference type over targets.
func ReferenceOf(targets []string) Scalar {
	if len(targets) == 0 {
		return Scalar{Name: Reference}
	}
	return Scalar{Name: Reference + "<" + strings.Join(targets, " | ") + ">"}
}

// Union returns the union of names, or the given sentinel when names is empty.
func Union(names []string, sentinel string) Scalar {
	if len(names) == 0 {
		return Scalar{Name: sentinel}
	}
	return Scalar{Name: strings.Join(names, " | ")}
}

// FieldKey renders a property name.
func FieldKey(name string, optional bool) string {
	key := zen.WrapKey(name)
	if optional {
		key += "?"
	}
	return key
}
