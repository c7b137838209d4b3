// Package emitter renders declarations as TypeScript source.
package emitter

import (
	"bytes"
	"io"
	"strings"

	"github.com/artpar/zentypes/core/compiler"
	"github.com/artpar/zentypes/domain/decl"
)

const (
	indentUnit     = "  "
	indexSignature = "[key: string]: any;"
)

// reserved names are never declared: they are TypeScript built-ins or are
// provided by the prelude.
var reserved = map[string]bool{
	"string":    true,
	"boolean":   true,
	"number":    true,
	"any":       true,
	"object":    true,
	"unknown":   true,
	"Record":    true,
	"Array":     true,
	"Reference": true,
}

// builtinPrimitives are TypeScript primitives an empty declaration may alias directly.
var builtinPrimitives = map[string]bool{
	"string":  true,
	"boolean": true,
	"number":  true,
	"any":     true,
}

// fallbackAliases back the scalar names the compiler emits for dates and
// integers when the registry does not declare them.
var fallbackAliases = []struct{ name, target string }{
	{"dateTime", "string"},
	{"date", "string"},
	{"integer", "number"},
}

const prelude = `export interface Reference<T = string> {
  id: string;
  resourceType: T;
  display?: string;
}
`

// Skipped reports whether a declaration is left out of TypeScript output.
func Skipped(d decl.Declaration) bool {
	return d.RPC != nil || compiler.IsRPCName(d.Name) || reserved[d.Name] || isSentinel(d.Name)
}

func isSentinel(name string) bool {
	for _, s := range decl.Sentinels {
		if s == name {
			return true
		}
	}
	return false
}

// Emit renders declarations to a string.
func Emit(decls []decl.Declaration) string {
	var buf bytes.Buffer
	_ = Write(&buf, decls)
	return buf.String()
}

// Write renders declarations to w, preceded by the prelude.
func Write(w io.Writer, decls []decl.Declaration) error {
	var sb strings.Builder

	aliases := make(map[string]bool)
	declared := make(map[string]bool)
	for _, d := range decls {
		if Skipped(d) {
			continue
		}
		declared[d.Name] = true
		if d.IsAlias() {
			aliases[d.Name] = true
		}
	}

	sb.WriteString(prelude)
	sb.WriteString("\n")
	for _, s := range decl.Sentinels {
		sb.WriteString("export type " + s + " = any;\n")
	}
	for _, fa := range fallbackAliases {
		if !declared[fa.name] {
			sb.WriteString("export type " + fa.name + " = " + fa.target + ";\n")
			declared[fa.name] = true
			aliases[fa.name] = true
		}
	}
	for _, name := range numericRefinements(decls) {
		if !declared[name] && !reserved[name] {
			sb.WriteString("export type " + name + " = number;\n")
			declared[name] = true
			aliases[name] = true
		}
	}

	for _, d := range decls {
		if Skipped(d) {
			continue
		}
		sb.WriteString("\n")
		writeDeclaration(&sb, d, aliases)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// EmitDeclaration renders a single declaration without the prelude.
// Skipped declarations render as "".
func EmitDeclaration(d decl.Declaration) string {
	if Skipped(d) {
		return ""
	}
	var sb strings.Builder
	writeDeclaration(&sb, d, map[string]bool{})
	return sb.String()
}

// numericRefinements returns the names of refined numbers used by decls in
// first-seen order.
func numericRefinements(decls []decl.Declaration) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(t decl.Type)
	walkFields := func(fields []decl.Field) {
		for _, f := range fields {
			walk(f.Type)
		}
	}
	walk = func(t decl.Type) {
		switch v := t.(type) {
		case decl.Scalar:
			if v.Numeric && !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case decl.Array:
			walk(v.Elem)
		case decl.Struct:
			walkFields(v.Fields)
		case decl.Intersection:
			walkFields(v.Fields)
		}
	}
	for _, d := range decls {
		if !Skipped(d) {
			walk(d.Body)
		}
	}
	return out
}

func writeDeclaration(sb *strings.Builder, d decl.Declaration, aliases map[string]bool) {
	writeComment(sb, d.Description, "")

	if d.Body == nil && d.IsAlias() {
		sb.WriteString("export type " + d.Name + " = " + d.Alias + ";\n")
		return
	}

	// An interface can only extend object types, so a primitive alias base
	// forces the intersection form.
	if bases, rest := splitBases(d); hasAliasBase(bases, aliases) {
		target := strings.Join(bases, " & ")
		if rest != "" {
			target = joinIntersection(bases, rest)
		}
		sb.WriteString("export type " + d.Name + " = " + target + ";\n")
		return
	}

	switch body := d.Body.(type) {
	case nil:
		sb.WriteString("export interface " + d.Name + extendsClause(d.Extends) + " {}\n")

	case decl.Struct:
		writeInterface(sb, d.Name, d.Extends, body.Fields, body.Open)

	case decl.Intersection:
		writeInterface(sb, d.Name, union(d.Extends, body.BaseTypes), body.Fields, body.Open)

	case decl.Scalar:
		if body.Name == decl.OpenMap {
			writeInterface(sb, d.Name, d.Extends, nil, true)
			return
		}
		sb.WriteString("export type " + d.Name + " = " + joinIntersection(d.Extends, RenderType(body, 0)) + ";\n")

	default:
		sb.WriteString("export type " + d.Name + " = " + joinIntersection(d.Extends, RenderType(body, 0)) + ";\n")
	}
}

// splitBases returns every base type of d and the rendered remainder of its
// body, "" when there is no body.
func splitBases(d decl.Declaration) ([]string, string) {
	switch body := d.Body.(type) {
	case nil:
		return d.Extends, ""
	case decl.Intersection:
		return union(d.Extends, body.BaseTypes), renderStruct(body.Fields, body.Open, 0)
	default:
		return d.Extends, RenderType(body, 0)
	}
}

func hasAliasBase(extends []string, aliases map[string]bool) bool {
	for _, e := range extends {
		if aliases[e] || builtinPrimitives[e] {
			return true
		}
	}
	return false
}

func writeInterface(sb *strings.Builder, name string, extends []string, fields []decl.Field, open bool) {
	sb.WriteString("export interface " + name + extendsClause(extends) + " {\n")
	writeFields(sb, fields, 1)
	if open {
		sb.WriteString(indentUnit + indexSignature + "\n")
	}
	sb.WriteString("}\n")
}

func writeFields(sb *strings.Builder, fields []decl.Field, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for _, f := range fields {
		writeComment(sb, f.Description, indent)
		sb.WriteString(indent)
		sb.WriteString(f.Key())
		sb.WriteString(": ")
		sb.WriteString(RenderType(f.Type, depth))
		sb.WriteString(";\n")
	}
}

// RenderType renders a type descriptor inline. depth is the indentation
// level of the line the type starts on.
func RenderType(t decl.Type, depth int) string {
	switch v := t.(type) {
	case decl.Scalar:
		return v.Name
	case decl.Struct:
		return renderStruct(v.Fields, v.Open, depth)
	case decl.Intersection:
		return joinIntersection(v.BaseTypes, renderStruct(v.Fields, v.Open, depth))
	case decl.Array:
		if !v.IsGeneral() {
			return "Array<" + RenderType(v.Elem, depth) + ">"
		}
		elem := RenderType(v.Elem, depth)
		if s, ok := v.Elem.(decl.Scalar); ok && len(v.BaseTypes) > 0 && strings.Contains(s.Name, " | ") {
			elem = "(" + elem + ")"
		}
		return "Array<" + joinIntersection(v.BaseTypes, elem) + ">"
	default:
		return decl.Any
	}
}

func renderStruct(fields []decl.Field, open bool, depth int) string {
	if len(fields) == 0 && !open {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{\n")
	writeFields(&sb, fields, depth+1)
	if open {
		sb.WriteString(strings.Repeat(indentUnit, depth+1) + indexSignature + "\n")
	}
	sb.WriteString(strings.Repeat(indentUnit, depth))
	sb.WriteString("}")
	return sb.String()
}

func joinIntersection(bases []string, rest string) string {
	if len(bases) == 0 {
		return rest
	}
	return strings.Join(bases, " & ") + " & " + rest
}

func extendsClause(extends []string) string {
	if len(extends) == 0 {
		return ""
	}
	return " extends " + strings.Join(extends, ", ")
}

func writeComment(sb *strings.Builder, text, indent string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	text = strings.ReplaceAll(text, "*/", "*\\/")
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		sb.WriteString(indent + "/** " + lines[0] + " */\n")
		return
	}
	sb.WriteString(indent + "/**\n")
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			sb.WriteString(indent + " *\n")
			continue
		}
		sb.WriteString(indent + " * " + line + "\n")
	}
	sb.WriteString(indent + " */\n")
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
