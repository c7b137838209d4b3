package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/artpar/zentypes/core/emitter"
	"github.com/artpar/zentypes/domain/decl"
)

const componentsPrefix = "#/components/schemas/"

// OpenAPIFormatter renders declarations as OpenAPI 3 component schemas.
type OpenAPIFormatter struct{}

// NewOpenAPIFormatter creates a new OpenAPI formatter.
func NewOpenAPIFormatter() *OpenAPIFormatter {
	return &OpenAPIFormatter{}
}

// Name returns the formatter name.
func (f *OpenAPIFormatter) Name() string {
	return "openapi"
}

// Description returns the formatter description.
func (f *OpenAPIFormatter) Description() string {
	return "OpenAPI 3 document with one component schema per declaration"
}

// Extension returns the file extension.
func (f *OpenAPIFormatter) Extension() string {
	return "openapi.json"
}

// ContentType returns the MIME type.
func (f *OpenAPIFormatter) ContentType() string {
	return "application/json"
}

// Format writes an OpenAPI document.
func (f *OpenAPIFormatter) Format(w io.Writer, decls []decl.Declaration, opts FormatOptions) error {
	doc := Document(decls, opts)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if !opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(doc)
}

// Document builds the OpenAPI document for decls. Declarations the
// TypeScript output skips are skipped here too.
func Document(decls []decl.Declaration, opts FormatOptions) *openapi3.T {
	title := opts.Title
	if title == "" {
		title = "zentypes"
	}
	version := opts.Version
	if version == "" {
		version = "0.0.0"
	}

	schemas := openapi3.Schemas{
		decl.Reference: referenceSchema().NewRef(),
	}
	for _, name := range decl.Sentinels {
		schemas[name] = (&openapi3.Schema{Description: "unresolved"}).NewRef()
	}
	for _, d := range decls {
		if emitter.Skipped(d) {
			continue
		}
		schemas[d.Name] = declarationSchema(d)
	}

	return &openapi3.T{
		OpenAPI:    "3.0.3",
		Info:       &openapi3.Info{Title: title, Version: version},
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: schemas},
	}
}

func referenceSchema() *openapi3.Schema {
	return &openapi3.Schema{
		Type: openapi3.TypeObject,
		Properties: openapi3.Schemas{
			"id":           openapi3.NewStringSchema().NewRef(),
			"resourceType": openapi3.NewStringSchema().NewRef(),
			"display":      openapi3.NewStringSchema().NewRef(),
		},
		Required: []string{"id", "resourceType"},
	}
}

func declarationSchema(d decl.Declaration) *openapi3.SchemaRef {
	var body *openapi3.SchemaRef
	switch {
	case d.IsAlias():
		body = scalarRef(d.Alias)
	case d.Body != nil:
		body = typeRef(d.Body)
	}

	var out *openapi3.Schema
	switch {
	case len(d.Extends) == 0 && body != nil && body.Ref == "":
		out = body.Value
	case len(d.Extends) == 0 && body != nil:
		out = &openapi3.Schema{AllOf: openapi3.SchemaRefs{body}}
	case len(d.Extends) == 0:
		out = &openapi3.Schema{Type: openapi3.TypeObject}
	default:
		out = &openapi3.Schema{AllOf: refs(d.Extends)}
		if body != nil {
			out.AllOf = append(out.AllOf, body)
		}
	}
	if d.Description != "" {
		out.Description = d.Description
	}
	return out.NewRef()
}

func typeRef(t decl.Type) *openapi3.SchemaRef {
	switch v := t.(type) {
	case decl.Scalar:
		if v.Numeric {
			return openapi3.NewFloat64Schema().NewRef()
		}
		return scalarRef(v.Name)
	case decl.Struct:
		return objectSchema(v.Fields, v.Open).NewRef()
	case decl.Intersection:
		return (&openapi3.Schema{AllOf: append(refs(v.BaseTypes), objectSchema(v.Fields, v.Open).NewRef())}).NewRef()
	case decl.Array:
		items := typeRef(v.Elem)
		if len(v.BaseTypes) > 0 {
			items = (&openapi3.Schema{AllOf: append(refs(v.BaseTypes), items)}).NewRef()
		}
		return (&openapi3.Schema{Type: openapi3.TypeArray, Items: items}).NewRef()
	default:
		return (&openapi3.Schema{}).NewRef()
	}
}

func objectSchema(fields []decl.Field, open bool) *openapi3.Schema {
	s := &openapi3.Schema{Type: openapi3.TypeObject, Properties: openapi3.Schemas{}}
	if open {
		s.AdditionalProperties = openapi3.AdditionalProperties{Has: &open}
	}
	for _, f := range fields {
		prop := typeRef(f.Type)
		if f.Description != "" {
			if prop.Ref != "" {
				// $ref siblings are ignored in 3.0, wrap to keep the description
				prop = (&openapi3.Schema{AllOf: openapi3.SchemaRefs{prop}}).NewRef()
			}
			prop.Value.Description = f.Description
		}
		s.Properties[f.Name] = prop
		if !f.Optional {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

func scalarRef(name string) *openapi3.SchemaRef {
	switch {
	case name == "string":
		return openapi3.NewStringSchema().NewRef()
	case name == "boolean":
		return openapi3.NewBoolSchema().NewRef()
	case name == "number":
		return openapi3.NewFloat64Schema().NewRef()
	case name == "integer":
		return openapi3.NewIntegerSchema().NewRef()
	case name == "date":
		return openapi3.NewStringSchema().WithFormat("date").NewRef()
	case name == "dateTime":
		return openapi3.NewStringSchema().WithFormat("date-time").NewRef()
	case name == decl.Any:
		return (&openapi3.Schema{}).NewRef()
	case name == decl.OpenMap:
		yes := true
		return (&openapi3.Schema{Type: openapi3.TypeObject, AdditionalProperties: openapi3.AdditionalProperties{Has: &yes}}).NewRef()
	case name == decl.Reference, strings.HasPrefix(name, decl.Reference+"<"):
		return openapi3.NewSchemaRef(componentsPrefix+decl.Reference, nil)
	case strings.Contains(name, " | "):
		return (&openapi3.Schema{OneOf: refs(strings.Split(name, " | "))}).NewRef()
	default:
		return openapi3.NewSchemaRef(componentsPrefix+name, nil)
	}
}

func refs(names []string) openapi3.SchemaRefs {
	out := make(openapi3.SchemaRefs, 0, len(names))
	for _, n := range names {
		out = append(out, scalarRef(n))
	}
	return out
}

func init() {
	if err := Register(NewOpenAPIFormatter()); err != nil {
		fmt.Printf("failed to register openapi formatter: %v\n", err)
	}
}
