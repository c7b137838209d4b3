package compiler

import (
	"context"
	"strings"

	"github.com/artpar/zentypes/core/diagnostic"
	"github.com/artpar/zentypes/core/resolver"
	"github.com/artpar/zentypes/domain/decl"
	"github.com/artpar/zentypes/domain/zen"
)

// RPC parameter placeholders.
const (
	RPCParamsMap = "need-map"
	RPCParamsAny = "rpc-any"
)

// CompileSymbol builds the top-level declaration of a registry symbol.
// It returns nil without error for symbols that produce no declaration:
// profile structure schemas, search schemas, zen primitives, and symbols
// without a derivable name (reported as a warning).
func (c *Compiler) CompileSymbol(ctx context.Context, sym *zen.Symbol) (*decl.Declaration, error) {
	switch {
	case sym.HasTag(zen.TagPrimitiveType):
		return &decl.Declaration{
			Name:        sym.LocalName(),
			Description: sym.Description,
			Alias:       primitiveAlias(sym.Kind),
			Sources:     []string{sym.Name},
		}, nil
	case sym.Raw.Truthy(zen.KeyProfileURI) && sym.HasTag(zen.TagStructureSchema):
		return nil, nil
	case sym.HasTag(zen.TagSearch), sym.HasTag(zen.TagZenPrimitive):
		return nil, nil
	case sym.HasTag(zen.TagRPC):
		return &decl.Declaration{
			Name:        RPCName(sym.Name),
			Description: sym.Description,
			RPC:         &decl.RPC{Method: sym.Name, Params: rpcParams(sym.Raw.Object(zen.KeyParams))},
			Sources:     []string{sym.Name},
		}, nil
	}

	name := DeclarationName(sym)
	if name == "" {
		c.diags.AddWarning(diagnostic.CodeMissingName, "no display name can be derived", sym.Name, "")
		return nil, nil
	}

	extends, err := c.res.Resolve(ctx, sym.Confirms)
	if err != nil {
		return nil, err
	}
	d := &decl.Declaration{
		Name:        name,
		Description: sym.Description,
		Extends:     withoutName(extends, name),
		Sources:     []string{sym.Name},
	}

	if sym.HasTag(zen.TagPersistent) && (sym.IsOpen() || zen.Kind(sym.Raw.Object(zen.KeyValues).String(zen.KeyType)) == zen.KindAny) {
		d.Body = decl.Scalar{Name: decl.OpenMap}
		return d, nil
	}

	switch root := sym.Root.(type) {
	case *zen.MapNode:
		if root.HasKeys {
			fields, err := c.fields(ctx, sym.Name, nil, root)
			if err != nil {
				return nil, err
			}
			d.Body = decl.Struct{Fields: fields}
		}
	case *zen.VectorNode, *zen.ScalarNode, *zen.AnyNode, *zen.SetNode:
		body, err := c.node(ctx, sym.Name, nil, root)
		if err != nil {
			return nil, err
		}
		d.Body = body
	case *zen.UnknownNode:
		return nil, c.shapeError(sym.Name, nil, root.Kind, &root.Meta)
	}
	return d, nil
}

// DeclarationName returns the output name of a symbol: the local name for
// symbols in the fhir namespace, otherwise the display name.
func DeclarationName(sym *zen.Symbol) string {
	if strings.HasPrefix(sym.Name, "fhir/") {
		return zen.PascalCase(sym.LocalName())
	}
	return resolver.DeriveName(sym.Raw)
}

// RPCName builds the declaration name of an RPC method symbol:
// "Rpc" + last dotted namespace segment + local name, each capitalized.
// "clinic.patients/get-summary" becomes "RpcPatientsGetSummary".
func RPCName(symbol string) string {
	ns := zen.Namespace(symbol)
	if i := strings.LastIndex(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	var b strings.Builder
	b.WriteString("Rpc")
	b.WriteString(zen.Capitalize(ns))
	for _, part := range strings.Split(zen.LocalName(symbol), "-") {
		b.WriteString(zen.Capitalize(part))
	}
	return b.String()
}

// IsRPCName reports whether a declaration name has the RPC method shape.
func IsRPCName(name string) bool {
	rest, ok := strings.CutPrefix(name, "Rpc")
	if !ok || rest == "" {
		return false
	}
	first := rest[0]
	return first >= 'A' && first <= 'Z'
}

func rpcParams(params *zen.Object) string {
	if zen.Kind(params.String(zen.KeyType)) != zen.KindMap {
		return RPCParamsAny
	}
	if params.String(zen.KeyValidationType) == zen.ValidationOpen {
		return decl.OpenMap
	}
	return RPCParamsMap
}

func primitiveAlias(kind zen.Kind) string {
	switch kind {
	case zen.KindMap:
		return decl.OpenMap
	case zen.KindString, zen.KindDate, zen.KindDatetime:
		return "string"
	case zen.KindBoolean:
		return "boolean"
	case zen.KindInteger, zen.KindNumber:
		return "number"
	default:
		return decl.Any
	}
}

func withoutName(names []string, name string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
