package emitter_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/zentypes/core/emitter"
	"github.com/artpar/zentypes/domain/decl"
)

const header = `export interface Reference<T = string> {
  id: string;
  resourceType: T;
  display?: string;
}

export type UnresolvedConfirms = any;
export type UnresolvedMap = any;
export type UnresolvedPolymorphic = any;
`

func TestEmit_Full(t *testing.T) {
	decls := []decl.Declaration{
		{Name: "dateTime", Alias: "string", Description: "A date and time"},
		{Name: "Code", Extends: []string{"string"}},
		{Name: "Uri", Extends: []string{"dateTime"}},
		{
			Name:        "Patient",
			Description: "Demographics\nand more",
			Extends:     []string{"DomainResource"},
			Body: decl.Struct{Fields: []decl.Field{
				{Name: "name", Type: decl.Scalar{Name: "string"}, Description: "Full name"},
				{Name: "birth-date", Optional: true, Type: decl.Scalar{Name: "date"}},
				{Name: "tags", Optional: true, Type: decl.Array{Elem: decl.Scalar{Name: "string"}}},
				{Name: "contact", Optional: true, Type: decl.Array{
					Elem:      decl.Struct{Fields: []decl.Field{{Name: "phone", Optional: true, Type: decl.Scalar{Name: "string"}}}},
					BaseTypes: []string{"BackboneElement"},
				}},
				{Name: "link", Optional: true, Type: decl.Intersection{
					BaseTypes: []string{"Element"},
					Fields:    []decl.Field{{Name: "other", Type: decl.Scalar{Name: "Reference<Patient>"}}},
				}},
			}},
		},
		{Name: "Note", Body: decl.Scalar{Name: decl.OpenMap}},
		{Name: "Marker", Extends: []string{"A", "B"}},
		{Name: "RpcPatientsGetSummary", RPC: &decl.RPC{Method: "clinic.patients/get-summary", Params: decl.OpenMap}},
		{Name: "Reference", Body: decl.Struct{}},
		{Name: "string", Alias: "string"},
	}

	want := header + `export type date = string;
export type integer = number;

/** A date and time */
export type dateTime = string;

export type Code = string;

export type Uri = dateTime;

/**
 * Demographics
 * and more
 */
export interface Patient extends DomainResource {
  /** Full name */
  name: string;
  'birth-date'?: date;
  tags?: Array<string>;
  contact?: Array<BackboneElement & {
    phone?: string;
  }>;
  link?: Element & {
    other: Reference<Patient>;
  };
}

export interface Note {
  [key: string]: any;
}

export interface Marker extends A, B {}
`
	assert.Equal(t, want, emitter.Emit(decls))
}

func TestEmit_FallbackAliasesOnlyWhenMissing(t *testing.T) {
	out := emitter.Emit([]decl.Declaration{
		{Name: "date", Alias: "string"},
		{Name: "integer", Alias: "number"},
		{Name: "dateTime", Alias: "string"},
	})
	assert.Equal(t, 1, strings.Count(out, "export type date = string;"))
	assert.Equal(t, 1, strings.Count(out, "export type integer = number;"))
	assert.Equal(t, 1, strings.Count(out, "export type dateTime = string;"))
}

func TestEmit_Empty(t *testing.T) {
	out := emitter.Emit(nil)
	assert.True(t, strings.HasPrefix(out, header))
	assert.Contains(t, out, "export type dateTime = string;")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := emitter.Write(&buf, []decl.Declaration{{Name: "A", Body: decl.Struct{Fields: []decl.Field{{Name: "x", Optional: true, Type: decl.Scalar{Name: "string"}}}}}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "export interface A {\n  x?: string;\n}\n")
}

func TestEmit_TypeBodies(t *testing.T) {
	out := emitter.Emit([]decl.Declaration{
		{Name: "Codes", Body: decl.Array{Elem: decl.Scalar{Name: "string"}}},
		{Name: "Merged", Extends: []string{"A"}, Body: decl.Intersection{BaseTypes: []string{"B", "A"}, Fields: []decl.Field{{Name: "x", Type: decl.Scalar{Name: "string"}}}}},
	})
	assert.Contains(t, out, "export type Codes = Array<string>;\n")
	assert.Contains(t, out, "export interface Merged extends A, B {\n  x: string;\n}\n")
}

func TestRenderType(t *testing.T) {
	tests := []struct {
		name string
		typ  decl.Type
		want string
	}{
		{"scalar", decl.Scalar{Name: "Bee"}, "Bee"},
		{"collapsed array", decl.Array{Elem: decl.Scalar{Name: "Bee"}}, "Array<Bee>"},
		{"general array of union", decl.Array{Elem: decl.Scalar{Name: "Bee | Cee"}, BaseTypes: []string{"Bee", "Cee"}}, "Array<Bee & Cee & (Bee | Cee)>"},
		{"general array without bases", decl.Array{Elem: decl.Struct{}, BaseTypes: []string{}}, "Array<{}>"},
		{"empty struct", decl.Struct{}, "{}"},
		{"nil", nil, "any"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, emitter.RenderType(tt.typ, 0))
		})
	}
}

func TestSkipped(t *testing.T) {
	assert.True(t, emitter.Skipped(decl.Declaration{Name: "RpcFoo"}))
	assert.True(t, emitter.Skipped(decl.Declaration{Name: "Whatever", RPC: &decl.RPC{}}))
	assert.True(t, emitter.Skipped(decl.Declaration{Name: "Array"}))
	assert.True(t, emitter.Skipped(decl.Declaration{Name: decl.UnresolvedMap}))
	assert.False(t, emitter.Skipped(decl.Declaration{Name: "Patient"}))
}

func TestEmitDeclaration(t *testing.T) {
	got := emitter.EmitDeclaration(decl.Declaration{
		Name: "Patient",
		Body: decl.Struct{Fields: []decl.Field{
			{Name: "id", Type: decl.Scalar{Name: "string"}},
		}},
	})
	assert.Equal(t, "export interface Patient {\n  id: string;\n}\n", got)

	rpc := decl.Declaration{Name: "RpcApiPing", RPC: &decl.RPC{Method: "api/ping"}}
	assert.Empty(t, emitter.EmitDeclaration(rpc))
}

func TestEmit_OpenStruct(t *testing.T) {
	out := emitter.Emit([]decl.Declaration{
		{Name: "Patient", Extends: []string{"DomainResource"}, Body: decl.Struct{
			Fields: []decl.Field{{Name: "name", Optional: true, Type: decl.Scalar{Name: "string"}}},
			Open:   true,
		}},
		{Name: "Holder", Body: decl.Struct{Fields: []decl.Field{
			{Name: "extra", Type: decl.Struct{Open: true}},
		}}},
	})
	assert.Contains(t, out, "export interface Patient extends DomainResource {\n  name?: string;\n  [key: string]: any;\n}\n")
	assert.Contains(t, out, "export interface Holder {\n  extra: {\n    [key: string]: any;\n  };\n}\n")
}

func TestEmit_AliasBase(t *testing.T) {
	out := emitter.Emit([]decl.Declaration{
		{Name: "code", Alias: "string"},
		{Name: "Coded", Extends: []string{"code"}, Body: decl.Struct{Fields: []decl.Field{
			{Name: "system", Optional: true, Type: decl.Scalar{Name: "string"}},
		}}},
		{Name: "Tagged", Extends: []string{"Element"}, Body: decl.Intersection{
			BaseTypes: []string{"integer"},
			Fields:    []decl.Field{{Name: "x", Type: decl.Scalar{Name: "string"}}},
		}},
		{Name: "Pair", Extends: []string{"code", "Element"}},
		{Name: "Plain", Extends: []string{"Element"}, Body: decl.Struct{}},
	})
	assert.Contains(t, out, "export type Coded = code & {\n  system?: string;\n};\n")
	assert.Contains(t, out, "export type Tagged = Element & integer & {\n  x: string;\n};\n")
	assert.Contains(t, out, "export type Pair = code & Element;\n")
	assert.Contains(t, out, "export interface Plain extends Element {\n}\n")
}

func TestEmit_NumericRefinementFallback(t *testing.T) {
	out := emitter.Emit([]decl.Declaration{
		{Name: "decimal", Alias: "number"},
		{Name: "Quantity", Body: decl.Struct{Fields: []decl.Field{
			{Name: "value", Optional: true, Type: decl.Scalar{Name: "decimal", Numeric: true}},
			{Name: "limits", Optional: true, Type: decl.Array{Elem: decl.Scalar{Name: "schema", Numeric: true}}},
			{Name: "low", Optional: true, Type: decl.Scalar{Name: "schema", Numeric: true}},
		}}},
	})
	assert.Equal(t, 1, strings.Count(out, "export type schema = number;"))
	assert.Equal(t, 1, strings.Count(out, "export type decimal = number;"))
	assert.Contains(t, out, "  limits?: Array<schema>;\n")
}
