package compiler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/zentypes/core/compiler"
	"github.com/artpar/zentypes/core/diagnostic"
	"github.com/artpar/zentypes/core/resolver"
	"github.com/artpar/zentypes/domain/decl"
	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

type mapSource map[string]string

func (m mapSource) ListSymbolNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	return names, nil
}

func (m mapSource) GetSymbolDefinition(ctx context.Context, name string) (*zen.Object, error) {
	src, ok := m[name]
	if !ok {
		return nil, ports.ErrSymbolNotFound
	}
	return zen.ParseObject([]byte(src))
}

var registry = mapSource{
	"b/B":                `{"zen/name":"b/B","resourceType":"Bee"}`,
	"c/C":                `{"zen/name":"c/C","resourceType":"Cee"}`,
	"fhir/Patient":       `{"zen/name":"fhir/Patient","zen.fhir/type":"Patient"}`,
	"fhir/Practitioner":  `{"zen/name":"fhir/Practitioner","zen.fhir/type":"Practitioner"}`,
	"zen.fhir/Reference": `{"zen/name":"zen.fhir/Reference","zen.fhir/type":"Reference"}`,
	"x/poly":             `{"zen/name":"x/poly","fhir/polymorphic":true}`,
	"fhir/Base":          `{"zen/name":"fhir/Base","resourceType":"Base"}`,
}

func newCompiler() (*compiler.Compiler, *diagnostic.Diagnostics) {
	var diags diagnostic.Diagnostics
	return compiler.New(resolver.New(registry), &diags), &diags
}

func parseNode(t *testing.T, src string) zen.Node {
	t.Helper()
	obj, err := zen.ParseObject([]byte(src))
	require.NoError(t, err)
	n, err := zen.Decode(obj)
	require.NoError(t, err)
	return n
}

func parseSymbol(t *testing.T, src string) *zen.Symbol {
	t.Helper()
	obj, err := zen.ParseObject([]byte(src))
	require.NoError(t, err)
	sym, err := zen.NewSymbol("", obj)
	require.NoError(t, err)
	return sym
}

func compileNode(t *testing.T, src string) (decl.Type, *diagnostic.Diagnostics) {
	t.Helper()
	c, diags := newCompiler()
	typ, err := c.CompileNode(context.Background(), "t/T", parseNode(t, src))
	require.NoError(t, err)
	return typ, diags
}

func TestCompile_EndToEnd(t *testing.T) {
	c, diags := newCompiler()
	sym := parseSymbol(t, `{
		"zen/name": "a/A",
		"type": "zen/map",
		"keys": {"name": {"type": "zen/string"}, "ref": {"confirms": ["b/B"]}},
		"require": ["name"]
	}`)

	d, err := c.CompileSymbol(context.Background(), sym)
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, "A", d.Name)
	assert.Equal(t, decl.Struct{Fields: []decl.Field{
		{Name: "name", Optional: false, Type: decl.Scalar{Name: "string"}},
		{Name: "ref", Optional: true, Type: decl.Scalar{Name: "Bee"}},
	}}, d.Body)
	assert.Equal(t, 0, diags.Len())
}

func TestCompile_RequiredIsPerLevel(t *testing.T) {
	typ, _ := compileNode(t, `{
		"type": "zen/map",
		"require": ["x"],
		"keys": {
			"x": {"type": "zen/string"},
			"y": {"type": "zen/map", "require": ["inner"], "keys": {
				"inner": {"type": "zen/string"},
				"x": {"type": "zen/string"}
			}}
		}
	}`)

	s := typ.(decl.Struct)
	require.Len(t, s.Fields, 2)
	assert.False(t, s.Fields[0].Optional, "x is required at the top level")
	assert.True(t, s.Fields[1].Optional, "y is optional")

	inner := s.Fields[1].Type.(decl.Struct)
	assert.False(t, inner.Fields[0].Optional, "inner is required in its own level")
	assert.True(t, inner.Fields[1].Optional, "x is not inherited from the parent")
}

func TestCompile_Scalars(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`{"type":"zen/string"}`, "string"},
		{`{"type":"zen/boolean"}`, "boolean"},
		{`{"type":"zen/date"}`, "date"},
		{`{"type":"zen/datetime"}`, "dateTime"},
		{`{"type":"zen/integer"}`, "integer"},
		{`{"type":"zen/number"}`, "number"},
		{`{"type":"zen/any"}`, decl.OpenMap},
		{`{"validation-type":"open"}`, decl.Any},
		{`{"zen/desc":"no type"}`, decl.Any},
		{`{"fhir/polymorphic":true}`, decl.UnresolvedPolymorphic},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			typ, _ := compileNode(t, tt.src)
			assert.Equal(t, decl.Scalar{Name: tt.want}, typ)
		})
	}
}

func TestCompile_NumericRefinement(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`{"type":"zen/number","confirms":["fhir/decimal"]}`, "decimal"},
		{`{"type":"zen/number","confirms":["hl7-fhir-r4-core.decimal/schema"]}`, "schema"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			typ, _ := compileNode(t, tt.src)
			assert.Equal(t, decl.Scalar{Name: tt.want, Numeric: true}, typ)
		})
	}
}

func TestCompile_Set(t *testing.T) {
	typ, _ := compileNode(t, `{"type":"zen/set","every":{"type":"zen/string"}}`)
	assert.Equal(t, decl.Array{Elem: decl.Scalar{Name: decl.Any}}, typ)
}

func TestCompile_References(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"union of confirms", `{"confirms":["b/B","c/C"]}`, "Bee | Cee"},
		{"reference with targets", `{"confirms":["zen.fhir/Reference"],"zen.fhir/reference":{"refers":["fhir/Patient","fhir/Practitioner"]}}`, "Reference<Patient | Practitioner>"},
		{"reference with unknown targets", `{"confirms":["zen.fhir/Reference"],"zen.fhir/reference":{"refers":["x/missing"]}}`, "Reference"},
		{"generic resource skipped", `{"confirms":["zenbox/Resource","b/B"]}`, "Bee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, _ := compileNode(t, tt.src)
			assert.Equal(t, decl.Scalar{Name: tt.want}, typ)
		})
	}
}

func TestCompile_PolymorphicConfirmsFallBack(t *testing.T) {
	typ, diags := compileNode(t, `{"confirms":["x/poly"]}`)

	assert.Equal(t, decl.Scalar{Name: decl.UnresolvedConfirms}, typ)
	require.Len(t, diags.Warnings, 1)
	assert.Equal(t, diagnostic.CodeUnresolvedConfirms, diags.Warnings[0].Code)
	assert.False(t, diags.HasErrors())
}

func TestCompile_VectorCollapse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want decl.Type
	}{
		{
			"scalar element without bases",
			`{"type":"zen/vector","every":{"type":"zen/string"}}`,
			decl.Array{Elem: decl.Scalar{Name: "string"}},
		},
		{
			"scalar element with one base",
			`{"type":"zen/vector","every":{"confirms":["b/B"]}}`,
			decl.Array{Elem: decl.Scalar{Name: "Bee"}},
		},
		{
			"scalar element with two bases",
			`{"type":"zen/vector","every":{"confirms":["b/B","c/C"]}}`,
			decl.Array{Elem: decl.Scalar{Name: "Bee | Cee"}, BaseTypes: []string{"Bee", "Cee"}},
		},
		{
			"structured element",
			`{"type":"zen/vector","every":{"type":"zen/map","keys":{"a":{"type":"zen/string"}}}}`,
			decl.Array{Elem: decl.Struct{Fields: []decl.Field{{Name: "a", Optional: true, Type: decl.Scalar{Name: "string"}}}}, BaseTypes: []string{}},
		},
		{
			"structured element with a base",
			`{"type":"zen/vector","every":{"type":"zen/map","confirms":["fhir/Base"],"keys":{"a":{"type":"zen/string"}}}}`,
			decl.Array{Elem: decl.Struct{Fields: []decl.Field{{Name: "a", Optional: true, Type: decl.Scalar{Name: "string"}}}}, BaseTypes: []string{"Base"}},
		},
		{
			"missing element",
			`{"type":"zen/vector"}`,
			decl.Array{Elem: decl.Scalar{Name: decl.Any}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, _ := compileNode(t, tt.src)
			assert.Equal(t, tt.want, typ)
		})
	}
}

func TestCompile_MapRules(t *testing.T) {
	stringField := []decl.Field{{Name: "a", Optional: true, Type: decl.Scalar{Name: "string"}}}
	tests := []struct {
		name string
		src  string
		want decl.Type
	}{
		{"open", `{"type":"zen/map","validation-type":"open"}`, decl.Scalar{Name: decl.Any}},
		{"open with confirms", `{"type":"zen/map","validation-type":"open","confirms":["b/B","c/C"]}`, decl.Scalar{Name: "Bee & Cee & any"}},
		{"confirms and keys", `{"type":"zen/map","confirms":["b/B"],"keys":{"a":{"type":"zen/string"}}}`, decl.Intersection{BaseTypes: []string{"Bee"}, Fields: stringField}},
		{"confirms only", `{"type":"zen/map","confirms":["b/B"]}`, decl.Scalar{Name: decl.Any}},
		{"keys only", `{"type":"zen/map","keys":{"a":{"type":"zen/string"}}}`, decl.Struct{Fields: stringField}},
		{"any values", `{"type":"zen/map","values":{"type":"zen/any"}}`, decl.Scalar{Name: decl.OpenMap}},
		{"structured values", `{"type":"zen/map","values":{"type":"zen/map","keys":{"a":{"type":"zen/string"}}}}`, decl.Struct{Fields: stringField}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, diags := compileNode(t, tt.src)
			assert.Equal(t, tt.want, typ)
			assert.Empty(t, diags.Warnings)
		})
	}
}

func TestCompile_UnresolvedMap(t *testing.T) {
	typ, diags := compileNode(t, `{"type":"zen/map","values":{"type":"zen/string"}}`)

	assert.Equal(t, decl.Scalar{Name: decl.UnresolvedMap}, typ)
	require.Len(t, diags.Warnings, 1)
	assert.Equal(t, diagnostic.CodeUnresolvedMap, diags.Warnings[0].Code)
	assert.Contains(t, diags.Warnings[0].Raw, `"values"`)
}

func TestCompile_Descriptions(t *testing.T) {
	typ, _ := compileNode(t, `{"type":"zen/map","keys":{
		"a": {"type":"zen/string","zen/desc":"plain"},
		"b": {"type":"zen/vector","every":{"type":"zen/string","zen/desc":"from element"}}
	}}`)

	s := typ.(decl.Struct)
	assert.Equal(t, "plain", s.Fields[0].Description)
	assert.Equal(t, "from element", s.Fields[1].Description)
}

func TestCompile_UnknownShapeIsFatal(t *testing.T) {
	c, diags := newCompiler()
	node := parseNode(t, `{"type":"zen/map","keys":{
		"ok": {"type":"zen/string"},
		"bad": {"type":"zen/keyword"},
		"nested": {"type":"zen/map","keys":{"worse":{"type":"zen/regex"}}}
	}}`)

	_, err := c.CompileNode(context.Background(), "t/T", node)
	require.Error(t, err)
	assert.True(t, compiler.IsShapeError(err))

	var se *compiler.ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "t/T", se.Symbol)
	assert.Equal(t, "bad", se.Path)

	require.Len(t, diags.Errors, 2)
	assert.Equal(t, "bad", diags.Errors[0].FieldPath)
	assert.Equal(t, "nested.worse", diags.Errors[1].FieldPath)
	assert.Equal(t, `{"type":"zen/keyword"}`, diags.Errors[0].Raw)
}

func TestFieldKey(t *testing.T) {
	assert.Equal(t, "name", decl.FieldKey("name", false))
	assert.Equal(t, "name?", decl.FieldKey("name", true))
	assert.Equal(t, "'content-type'", decl.FieldKey("content-type", false))
	assert.Equal(t, "'content-type'?", decl.FieldKey("content-type", true))
}
