// Package compiler turns zen schema nodes into type descriptors.
//
// Descent is synchronous and never follows a reference into another symbol's
// body: cross-references are resolved to display names, which keeps cyclic
// schemas finite. Every definition a run needs should be prefetched before
// compiling so that name resolution hits the cache.
package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/zentypes/core/diagnostic"
	"github.com/artpar/zentypes/domain/decl"
	"github.com/artpar/zentypes/domain/zen"
)

// Resolver maps confirms lists to display names.
type Resolver interface {
	Resolve(ctx context.Context, confirms []string) ([]string, error)
}

// ShapeError reports a node the compiler has no rule for.
type ShapeError struct {
	Symbol string
	Path   string
	Kind   zen.Kind
	Raw    string // node as JSON
}

func (e *ShapeError) Error() string {
	where := e.Symbol
	if e.Path != "" {
		where += " at " + e.Path
	}
	return fmt.Sprintf("unrecognized node shape %q in %s", e.Kind, where)
}

// IsShapeError reports whether err contains a ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// Compiler compiles nodes for one run. Diagnostics are appended to the
// collection given to New.
type Compiler struct {
	res   Resolver
	diags *diagnostic.Diagnostics
}

// New creates a compiler.
func New(res Resolver, diags *diagnostic.Diagnostics) *Compiler {
	if diags == nil {
		diags = &diagnostic.Diagnostics{}
	}
	return &Compiler{res: res, diags: diags}
}

// Diagnostics returns the collection the compiler writes to.
func (c *Compiler) Diagnostics() *diagnostic.Diagnostics {
	return c.diags
}

// CompileNode compiles one node of symbol.
func (c *Compiler) CompileNode(ctx context.Context, symbol string, n zen.Node) (decl.Type, error) {
	return c.node(ctx, symbol, nil, n)
}

// CompileFields compiles the keys of a map node. Each field is optional
// unless listed in that map's own required set.
func (c *Compiler) CompileFields(ctx context.Context, symbol string, m *zen.MapNode) ([]decl.Field, error) {
	return c.fields(ctx, symbol, nil, m)
}

func (c *Compiler) node(ctx context.Context, symbol string, path []string, n zen.Node) (decl.Type, error) {
	switch n := n.(type) {
	case *zen.RefNode:
		return c.reference(ctx, symbol, path, n)
	case *zen.VectorNode:
		return c.vector(ctx, symbol, path, n)
	case *zen.ScalarNode:
		return c.scalar(n), nil
	case *zen.AnyNode:
		return decl.Scalar{Name: decl.OpenMap}, nil
	case *zen.SetNode:
		return decl.Array{Elem: decl.Scalar{Name: decl.Any}}, nil
	case *zen.MapNode:
		return c.mapNode(ctx, symbol, path, n)
	case *zen.PolymorphicNode:
		return decl.Scalar{Name: decl.UnresolvedPolymorphic}, nil
	case *zen.OpenNode, *zen.UntypedNode, nil:
		return decl.Scalar{Name: decl.Any}, nil
	case *zen.UnknownNode:
		return nil, c.shapeError(symbol, path, n.Kind, &n.Meta)
	default:
		return nil, c.shapeError(symbol, path, zen.Kind(fmt.Sprintf("%T", n)), zen.MetaOf(n))
	}
}

func (c *Compiler) reference(ctx context.Context, symbol string, path []string, n *zen.RefNode) (decl.Type, error) {
	if len(n.Refers) > 0 {
		targets, err := c.res.Resolve(ctx, n.Refers)
		if err != nil {
			return nil, err
		}
		return decl.ReferenceOf(targets), nil
	}

	names, err := c.res.Resolve(ctx, n.Confirms)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		c.diags.Add(diagnostic.Diagnostic{
			Severity:  diagnostic.SeverityWarning,
			Code:      diagnostic.CodeUnresolvedConfirms,
			Message:   fmt.Sprintf("confirms %v resolved to no type names", n.Confirms),
			Symbol:    symbol,
			FieldPath: joinPath(path),
		})
	}
	return decl.Union(names, decl.UnresolvedConfirms), nil
}

func (c *Compiler) vector(ctx context.Context, symbol string, path []string, n *zen.VectorNode) (decl.Type, error) {
	if n.Every == nil {
		return decl.Array{Elem: decl.Scalar{Name: decl.Any}}, nil
	}

	elem, err := c.node(ctx, symbol, append(path, "[]"), n.Every)
	if err != nil {
		return nil, err
	}
	bases, err := c.res.Resolve(ctx, zen.MetaOf(n.Every).Confirms)
	if err != nil {
		return nil, err
	}

	if _, scalar := elem.(decl.Scalar); scalar && len(bases) <= 1 {
		return decl.Array{Elem: elem}, nil
	}
	// The element's own bases are the vector's bases; keep only its structure.
	if in, ok := elem.(decl.Intersection); ok {
		elem = decl.Struct{Fields: in.Fields}
	}
	return decl.Array{Elem: elem, BaseTypes: bases}, nil
}

func (c *Compiler) mapNode(ctx context.Context, symbol string, path []string, n *zen.MapNode) (decl.Type, error) {
	hasConfirms := len(n.Confirms) > 0

	switch {
	case n.Open && !hasConfirms:
		return decl.Scalar{Name: decl.Any}, nil

	case n.Open:
		bases, err := c.res.Resolve(ctx, n.Confirms)
		if err != nil {
			return nil, err
		}
		return decl.Scalar{Name: strings.Join(append(bases, decl.Any), " & ")}, nil

	case hasConfirms && n.HasKeys:
		bases, err := c.res.Resolve(ctx, n.Confirms)
		if err != nil {
			return nil, err
		}
		fields, err := c.fields(ctx, symbol, path, n)
		if err != nil {
			return nil, err
		}
		return decl.Intersection{BaseTypes: bases, Fields: fields}, nil

	case hasConfirms:
		return decl.Scalar{Name: decl.Any}, nil

	case n.HasKeys:
		fields, err := c.fields(ctx, symbol, path, n)
		if err != nil {
			return nil, err
		}
		return decl.Struct{Fields: fields}, nil
	}

	switch values := n.Values.(type) {
	case *zen.AnyNode, *zen.OpenNode, *zen.UntypedNode:
		return decl.Scalar{Name: decl.OpenMap}, nil
	case *zen.MapNode:
		if values.HasKeys {
			fields, err := c.fields(ctx, symbol, append(path, "*"), values)
			if err != nil {
				return nil, err
			}
			return decl.Struct{Fields: fields}, nil
		}
	}

	c.diags.Add(diagnostic.Diagnostic{
		Severity:  diagnostic.SeverityWarning,
		Code:      diagnostic.CodeUnresolvedMap,
		Message:   "map has neither keys nor a usable value schema",
		Symbol:    symbol,
		FieldPath: joinPath(path),
		Raw:       rawJSON(n.Raw),
	})
	return decl.Scalar{Name: decl.UnresolvedMap}, nil
}

// fields compiles every key of m. Shape errors do not stop the loop so that a
// run reports all of them; any other error is returned immediately.
func (c *Compiler) fields(ctx context.Context, symbol string, path []string, m *zen.MapNode) ([]decl.Field, error) {
	out := make([]decl.Field, 0, len(m.Fields))
	var shapeErrs []error

	for _, f := range m.Fields {
		t, err := c.node(ctx, symbol, append(path, f.Name), f.Node)
		if err != nil {
			if IsShapeError(err) {
				shapeErrs = append(shapeErrs, err)
				continue
			}
			return nil, err
		}
		out = append(out, decl.Field{
			Name:        f.Name,
			Optional:    !m.IsRequired(f.Name),
			Description: fieldDescription(f.Node),
			Type:        t,
		})
	}
	if len(shapeErrs) > 0 {
		return nil, errors.Join(shapeErrs...)
	}
	return out, nil
}

func (c *Compiler) shapeError(symbol string, path []string, kind zen.Kind, meta *zen.Meta) error {
	var raw string
	if meta != nil {
		raw = rawJSON(meta.Raw)
	}
	err := &ShapeError{Symbol: symbol, Path: joinPath(path), Kind: kind, Raw: raw}
	c.diags.Add(diagnostic.Diagnostic{
		Severity:  diagnostic.SeverityError,
		Code:      diagnostic.CodeUnrecognizedShape,
		Message:   fmt.Sprintf("unrecognized node shape %q", kind),
		Symbol:    symbol,
		FieldPath: err.Path,
		Raw:       raw,
	})
	return err
}

// scalar compiles a primitive. A number that confirms a symbol is named by
// that symbol's local name and marked as a numeric refinement.
func (c *Compiler) scalar(n *zen.ScalarNode) decl.Scalar {
	if n.Kind == zen.KindNumber && len(n.Confirms) > 0 {
		return decl.Scalar{Name: zen.LocalName(n.Confirms[0]), Numeric: true}
	}
	return decl.Scalar{Name: scalarName(n)}
}

func scalarName(n *zen.ScalarNode) string {
	switch n.Kind {
	case zen.KindString:
		return "string"
	case zen.KindBoolean:
		return "boolean"
	case zen.KindDate:
		return "date"
	case zen.KindDatetime:
		return "dateTime"
	case zen.KindInteger:
		return "integer"
	case zen.KindNumber:
		return "number"
	}
	return decl.Any
}

func fieldDescription(n zen.Node) string {
	meta := zen.MetaOf(n)
	if meta == nil {
		return ""
	}
	if v, ok := n.(*zen.VectorNode); ok && meta.Description == "" && v.Every != nil {
		return zen.MetaOf(v.Every).Description
	}
	return meta.Description
}

func rawJSON(obj *zen.Object) string {
	if obj == nil {
		return ""
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return ""
	}
	return string(b)
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
