package merge

import (
	"sync"

	"github.com/artpar/zentypes/domain/decl"
)

// Declarations merges b into a and returns the result.
//
// Extends and Sources are unioned. Bodies merge field by field when both are
// structural. Name, Description and Alias are taken from b even when empty.
// A nil Body or RPC in b means b has none and leaves a's in place.
func Declarations(a, b decl.Declaration) decl.Declaration {
	out := decl.Declaration{
		Name:        b.Name,
		Description: b.Description,
		Alias:       b.Alias,
		Extends:     unionStrings(a.Extends, b.Extends),
		Sources:     unionStrings(a.Sources, b.Sources),
		Body:        Types(a.Body, b.Body),
		RPC:         a.RPC,
	}
	if b.RPC != nil {
		rpc := *b.RPC
		out.RPC = &rpc
	} else if a.RPC != nil {
		rpc := *a.RPC
		out.RPC = &rpc
	}
	return out
}

// Types merges two type descriptors. Structural descriptors merge their
// fields; arrays merge element and base types; otherwise b wins.
//
// The open map counts as a structure without fields, so merging it with a
// structure keeps the fields and adds the index signature.
func Types(a, b decl.Type) decl.Type {
	if b == nil {
		return copyType(a)
	}
	if a == nil {
		return copyType(b)
	}
	if isStructural(a) || isStructural(b) {
		a, b = asStructure(a), asStructure(b)
	}

	switch bt := b.(type) {
	case decl.Struct:
		switch at := a.(type) {
		case decl.Struct:
			return decl.Struct{Fields: Fields(at.Fields, bt.Fields), Open: at.Open || bt.Open}
		case decl.Intersection:
			return decl.Intersection{BaseTypes: unionStrings(at.BaseTypes, nil), Fields: Fields(at.Fields, bt.Fields), Open: at.Open || bt.Open}
		}
	case decl.Intersection:
		switch at := a.(type) {
		case decl.Struct:
			return decl.Intersection{BaseTypes: unionStrings(bt.BaseTypes, nil), Fields: Fields(at.Fields, bt.Fields), Open: at.Open || bt.Open}
		case decl.Intersection:
			return decl.Intersection{BaseTypes: unionStrings(at.BaseTypes, bt.BaseTypes), Fields: Fields(at.Fields, bt.Fields), Open: at.Open || bt.Open}
		}
	case decl.Array:
		if at, ok := a.(decl.Array); ok {
			return decl.Array{Elem: Types(at.Elem, bt.Elem), BaseTypes: unionStrings(at.BaseTypes, bt.BaseTypes)}
		}
	}
	return copyType(b)
}

// Fields merges two field lists by name. Fields keep the position of their
// first appearance; for a name on both sides the flags come from b and the
// types merge.
func Fields(a, b []decl.Field) []decl.Field {
	out := make([]decl.Field, 0, len(a)+len(b))
	index := make(map[string]int, len(a)+len(b))
	for _, list := range [][]decl.Field{a, b} {
		for _, f := range list {
			if i, ok := index[f.Name]; ok {
				out[i] = decl.Field{
					Name:        f.Name,
					Optional:    f.Optional,
					Description: f.Description,
					Type:        Types(out[i].Type, f.Type),
				}
				continue
			}
			index[f.Name] = len(out)
			f.Type = copyType(f.Type)
			out = append(out, f)
		}
	}
	return out
}

func isStructural(t decl.Type) bool {
	switch t.(type) {
	case decl.Struct, decl.Intersection:
		return true
	}
	return false
}

// asStructure turns the open map scalar into an open structure. Other
// descriptors are returned unchanged.
func asStructure(t decl.Type) decl.Type {
	if s, ok := t.(decl.Scalar); ok && s.Name == decl.OpenMap {
		return decl.Struct{Open: true}
	}
	return t
}

func copyType(t decl.Type) decl.Type {
	switch v := t.(type) {
	case decl.Struct:
		return decl.Struct{Fields: copyFields(v.Fields), Open: v.Open}
	case decl.Intersection:
		return decl.Intersection{BaseTypes: unionStrings(v.BaseTypes, nil), Fields: copyFields(v.Fields), Open: v.Open}
	case decl.Array:
		return decl.Array{Elem: copyType(v.Elem), BaseTypes: unionStrings(v.BaseTypes, nil)}
	default:
		return t
	}
}

func copyFields(fields []decl.Field) []decl.Field {
	if fields == nil {
		return nil
	}
	out := make([]decl.Field, len(fields))
	for i, f := range fields {
		f.Type = copyType(f.Type)
		out[i] = f
	}
	return out
}

// Accumulator folds declarations by name, keeping first-seen name order.
type Accumulator struct {
	mu     sync.Mutex
	order  []string
	byName map[string]decl.Declaration
	merged map[string]int
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		byName: make(map[string]decl.Declaration),
		merged: make(map[string]int),
	}
}

// Add folds d into the declaration of the same name. It reports whether a
// declaration with that name already existed.
func (a *Accumulator) Add(d decl.Declaration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.byName[d.Name]
	if !ok {
		a.order = append(a.order, d.Name)
		a.byName[d.Name] = Declarations(decl.Declaration{}, d)
		return false
	}
	a.byName[d.Name] = Declarations(existing, d)
	a.merged[d.Name]++
	return true
}

// Get returns the accumulated declaration for name.
func (a *Accumulator) Get(name string) (decl.Declaration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.byName[name]
	return d, ok
}

// All returns the declarations in first-seen order.
func (a *Accumulator) All() []decl.Declaration {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]decl.Declaration, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.byName[name])
	}
	return out
}

// Merged returns how many extra declarations were folded into each name.
func (a *Accumulator) Merged() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.merged))
	for k, v := range a.merged {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct names.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}
