package zen

// Raw definition keys understood by the compiler.
const (
	KeyName           = "zen/name"
	KeyTags           = "zen/tags"
	KeyDesc           = "zen/desc"
	KeyType           = "type"
	KeyConfirms       = "confirms"
	KeyKeys           = "keys"
	KeyRequire        = "require"
	KeyRequired       = "required"
	KeyEvery          = "every"
	KeyValues         = "values"
	KeyValidationType = "validation-type"
	KeyReference      = "zen.fhir/reference"
	KeyRefers         = "refers"
	KeyPolymorphic    = "fhir/polymorphic"
	KeyFhirType       = "zen.fhir/type"
	KeyResourceType   = "resourceType"
	KeyProfileURI     = "zen.fhir/profileUri"
	KeyParams         = "params"
)

// ValidationOpen is the validation-type value marking an open map.
const ValidationOpen = "open"

// Kind is the value of a definition's "type" key.
type Kind string

const (
	KindNone     Kind = ""
	KindMap      Kind = "zen/map"
	KindVector   Kind = "zen/vector"
	KindString   Kind = "zen/string"
	KindBoolean  Kind = "zen/boolean"
	KindInteger  Kind = "zen/integer"
	KindNumber   Kind = "zen/number"
	KindDate     Kind = "zen/date"
	KindDatetime Kind = "zen/datetime"
	KindAny      Kind = "zen/any"
	KindSet      Kind = "zen/set"
)

// IsScalar reports whether the kind compiles to a primitive scalar.
func (k Kind) IsScalar() bool {
	switch k {
	case KindString, KindBoolean, KindInteger, KindNumber, KindDate, KindDatetime:
		return true
	}
	return false
}

// Known reports whether the kind is one the compiler recognizes.
func (k Kind) Known() bool {
	switch k {
	case KindNone, KindMap, KindVector, KindAny, KindSet:
		return true
	}
	return k.IsScalar()
}

// Well-known tags.
const (
	TagPrimitiveType   = "fhir/primitive-type"
	TagStructureSchema = "zen.fhir/structure-schema"
	TagProfileSchema   = "zen.fhir/profile-schema"
	TagBaseSchema      = "zen.fhir/base-schema"
	TagSearch          = "zen.fhir/search"
	TagZenPrimitive    = "zen/primitive"
	TagRPC             = "zenbox/rpc"
	TagPersistent      = "zenbox/persistent"
)

// GenericResource is the confirms target every resource shares. It carries no type information.
const GenericResource = "zenbox/Resource"

// Symbol is a top-level registry entry.
type Symbol struct {
	Name        string
	Tags        []string
	Kind        Kind
	Confirms    []string
	Description string
	Root        Node    // decoded root node of the definition
	Raw         *Object // definition as returned by the registry
}

// NewSymbol decodes a registry definition. name is used when the definition
// does not carry its own zen/name.
func NewSymbol(name string, def *Object) (*Symbol, error) {
	root, err := Decode(def)
	if err != nil {
		return nil, err
	}
	if n := def.String(KeyName); n != "" {
		name = n
	}
	return &Symbol{
		Name:        name,
		Tags:        def.Strings(KeyTags),
		Kind:        Kind(def.String(KeyType)),
		Confirms:    def.Strings(KeyConfirms),
		Description: def.String(KeyDesc),
		Root:        root,
		Raw:         def,
	}, nil
}

// HasTag reports whether the symbol carries tag.
func (s *Symbol) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LocalName returns the symbol name without its namespace.
func (s *Symbol) LocalName() string {
	return LocalName(s.Name)
}

// Namespace returns the symbol namespace.
func (s *Symbol) Namespace() string {
	return Namespace(s.Name)
}

// IsOpen reports whether the definition uses open validation.
func (s *Symbol) IsOpen() bool {
	return s.Raw.String(KeyValidationType) == ValidationOpen
}

// References returns every symbol name the definition points at, through
// confirms or reference targets, at any depth, in discovery order.
func References(def *Object) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case *Object:
			add(t.Strings(KeyConfirms))
			if ref := t.Object(KeyReference); ref != nil {
				add(ref.Strings(KeyRefers))
			}
			t.Range(func(_ string, child any) bool {
				walk(child)
				return true
			})
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(def)
	return out
}
