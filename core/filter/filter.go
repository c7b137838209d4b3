// Package filter decides which registry symbols take part in generation.
//
// Symbols are dropped by name prefix before they are fetched, and optionally
// by an Expr boolean expression evaluated against the fetched symbol:
//
//	namespace startsWith "hl7-fhir-r4-core" && !hasTag(tags, "zen.fhir/search")
//
// The expression sees name, namespace, local, kind and tags.
package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/artpar/zentypes/domain/zen"
)

// DefaultExcludePrefixes are infrastructure namespaces that never describe
// user-facing types.
var DefaultExcludePrefixes = []string{
	"hl7-fhir-r4-core.value-set.",
	"hl7-fhir-r4-core.search.",
	"aidbox/",
	"hl7-fhir-r4-core.structuredefinition",
	"zenbox.api",
	"fhir.compartment",
	"aidbox.",
	"zenbox/",
	"zen/",
	"zen.fhir/nested-schema",
	"fhir/complex-type",
	"zen.fhir/profile-schema",
	"fhir/primitive-type",
	"zen.fhir/base-schema",
	"zen.fhir/value-set",
	"fhir.bulk.export/bulk-export-status",
}

// Filter selects symbols.
type Filter struct {
	prefixes   []string
	expression string
	program    *vm.Program
}

// New compiles a filter. An empty expression accepts every symbol that
// passes the prefix check.
func New(excludePrefixes []string, expression string) (*Filter, error) {
	f := &Filter{prefixes: excludePrefixes, expression: strings.TrimSpace(expression)}
	if f.expression == "" {
		return f, nil
	}

	program, err := expr.Compile(f.expression,
		expr.Env(env(&zen.Symbol{})),
		expr.AsBool(),
		expr.Function("hasTag", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("hasTag requires 2 arguments")
			}
			tags, _ := params[0].([]string)
			tag, _ := params[1].(string)
			for _, t := range tags {
				if t == tag {
					return true, nil
				}
			}
			return false, nil
		}, new(func([]string, string) bool)),
	)
	if err != nil {
		return nil, fmt.Errorf("compile filter expression: %w", err)
	}
	f.program = program
	return f, nil
}

// Expression returns the source of the filter expression.
func (f *Filter) Expression() string {
	return f.expression
}

// AllowName applies the prefix excludes.
func (f *Filter) AllowName(name string) bool {
	for _, p := range f.prefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}

// Names returns the names that pass the prefix excludes, in input order.
func (f *Filter) Names(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if f.AllowName(n) {
			out = append(out, n)
		}
	}
	return out
}

// Allow applies the prefix excludes and the expression to a fetched symbol.
func (f *Filter) Allow(sym *zen.Symbol) (bool, error) {
	if !f.AllowName(sym.Name) {
		return false, nil
	}
	if f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, env(sym))
	if err != nil {
		return false, fmt.Errorf("evaluate filter for %s: %w", sym.Name, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func env(sym *zen.Symbol) map[string]any {
	tags := sym.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"name":      sym.Name,
		"namespace": sym.Namespace(),
		"local":     sym.LocalName(),
		"kind":      string(sym.Kind),
		"tags":      tags,
	}
}
