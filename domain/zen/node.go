package zen

import (
	"fmt"
	"strings"
)

// Node is one schema node. The set of implementations is closed; use a type
// switch over the pointer types declared in this file.
type Node interface {
	meta() *Meta
}

// Meta holds what every node carries regardless of its shape.
type Meta struct {
	Description string
	Confirms    []string
	Open        bool    // validation-type is "open"
	Raw         *Object // the node as it appeared in the definition
}

func (m *Meta) meta() *Meta { return m }

// MetaOf returns the shared attributes of any node.
func MetaOf(n Node) *Meta {
	if n == nil {
		return nil
	}
	return n.meta()
}

// RefNode has no type and only points at other symbols.
type RefNode struct {
	Meta
	Refers []string // targets of zen.fhir/reference, if any
}

// VectorNode is an ordered collection. Every is nil when the element is unspecified.
type VectorNode struct {
	Meta
	Every Node
}

// ScalarNode is a string, boolean, integer, number, date or datetime.
type ScalarNode struct {
	Meta
	Kind Kind
}

// AnyNode accepts any value.
type AnyNode struct{ Meta }

// SetNode is an unordered collection.
type SetNode struct{ Meta }

// MapNode is a structural map.
type MapNode struct {
	Meta
	HasKeys  bool
	Fields   []Field // in definition order
	Required []string
	Values   Node // value node of an open-keyed map, or nil
}

// Field is one entry of a map's keys.
type Field struct {
	Name string
	Node Node
}

// IsRequired reports whether name is in this map's own required set.
func (m *MapNode) IsRequired(name string) bool {
	for _, r := range m.Required {
		if r == name {
			return true
		}
	}
	return false
}

// PolymorphicNode is a choice of shapes selected by a discriminant.
type PolymorphicNode struct{ Meta }

// OpenNode has no type and open validation.
type OpenNode struct{ Meta }

// UntypedNode has no type and no other signal.
type UntypedNode struct{ Meta }

// UnknownNode carries a type the compiler does not recognize.
type UnknownNode struct {
	Meta
	Kind Kind
}

var (
	_ Node = (*RefNode)(nil)
	_ Node = (*VectorNode)(nil)
	_ Node = (*ScalarNode)(nil)
	_ Node = (*AnyNode)(nil)
	_ Node = (*SetNode)(nil)
	_ Node = (*MapNode)(nil)
	_ Node = (*PolymorphicNode)(nil)
	_ Node = (*OpenNode)(nil)
	_ Node = (*UntypedNode)(nil)
	_ Node = (*UnknownNode)(nil)
)

// DecodeError reports a structurally malformed value for a recognized key.
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode: " + e.Message
	}
	return fmt.Sprintf("decode %s: %s", e.Path, e.Message)
}

// Decode classifies a definition (or any nested node) into a Node.
// Unknown keys are ignored.
func Decode(def *Object) (Node, error) {
	return decode(def, nil)
}

func decode(obj *Object, path []string) (Node, error) {
	if obj == nil {
		obj = NewObject()
	}
	meta, err := decodeMeta(obj, path)
	if err != nil {
		return nil, err
	}

	kind := Kind(obj.String(KeyType))
	if kind == KindNone && obj.Truthy(KeyConfirms) {
		n := &RefNode{Meta: meta}
		if ref := obj.Object(KeyReference); ref != nil {
			n.Refers = ref.Strings(KeyRefers)
		}
		return n, nil
	}

	switch kind {
	case KindVector:
		n := &VectorNode{Meta: meta}
		if obj.Has(KeyEvery) {
			every, err := child(obj, KeyEvery, append(path, "[]"))
			if err != nil {
				return nil, err
			}
			n.Every = every
		}
		return n, nil
	case KindString, KindBoolean, KindInteger, KindNumber, KindDate, KindDatetime:
		return &ScalarNode{Meta: meta, Kind: kind}, nil
	case KindAny:
		return &AnyNode{Meta: meta}, nil
	case KindSet:
		return &SetNode{Meta: meta}, nil
	case KindMap:
		return decodeMap(obj, meta, path)
	case KindNone:
		switch {
		case obj.Truthy(KeyPolymorphic):
			return &PolymorphicNode{Meta: meta}, nil
		case meta.Open:
			return &OpenNode{Meta: meta}, nil
		default:
			return &UntypedNode{Meta: meta}, nil
		}
	default:
		return &UnknownNode{Meta: meta, Kind: kind}, nil
	}
}

func decodeMeta(obj *Object, path []string) (Meta, error) {
	if v, ok := obj.Get(KeyType); ok && v != nil {
		if _, isString := v.(string); !isString {
			return Meta{}, &DecodeError{Path: joinPath(path), Message: fmt.Sprintf("type must be a string, got %T", v)}
		}
	}
	return Meta{
		Description: obj.String(KeyDesc),
		Confirms:    obj.Strings(KeyConfirms),
		Open:        obj.String(KeyValidationType) == ValidationOpen,
		Raw:         obj,
	}, nil
}

func decodeMap(obj *Object, meta Meta, path []string) (Node, error) {
	n := &MapNode{Meta: meta, Required: RequiredSet(obj)}

	if v, ok := obj.Get(KeyKeys); ok && v != nil {
		keys, isObj := v.(*Object)
		if !isObj {
			return nil, &DecodeError{Path: joinPath(path), Message: fmt.Sprintf("keys must be an object, got %T", v)}
		}
		n.HasKeys = true
		n.Fields = make([]Field, 0, keys.Len())
		for _, name := range keys.Keys() {
			fieldNode, err := child(keys, name, append(path, name))
			if err != nil {
				return nil, err
			}
			n.Fields = append(n.Fields, Field{Name: name, Node: fieldNode})
		}
	}

	if obj.Has(KeyValues) {
		values, err := child(obj, KeyValues, append(path, "*"))
		if err != nil {
			return nil, err
		}
		n.Values = values
	}
	return n, nil
}

// RequiredSet reads the required field names of a map definition. Both
// "require" and "required" are accepted, as an array or as an object whose
// keys are the field names.
func RequiredSet(obj *Object) []string {
	for _, key := range []string{KeyRequire, KeyRequired} {
		v, ok := obj.Get(key)
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case []any:
			return toStrings(t)
		case *Object:
			return t.Keys()
		}
	}
	return nil
}

func child(obj *Object, key string, path []string) (Node, error) {
	v, _ := obj.Get(key)
	switch t := v.(type) {
	case *Object:
		return decode(t, path)
	case nil:
		return decode(nil, path)
	default:
		return nil, &DecodeError{Path: joinPath(path), Message: fmt.Sprintf("expected a schema object, got %T", v)}
	}
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
