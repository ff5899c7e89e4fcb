// Package contract turns normalized endpoints into the structural contracts
// renderers share: request and response bodies, query-parameter bags and
// the set of named schemas each endpoint depends on.
package contract

// Kind tags a Shape. The set is closed; renderers can switch on it
// exhaustively.
type Kind string

const (
	// KindUnknown is the open type used when a schema cannot be resolved.
	KindUnknown Kind = "unknown"
	// KindEmpty is the untyped body of an operation that declares none.
	KindEmpty        Kind = "empty"
	KindString       Kind = "string"
	KindNumber       Kind = "number"
	KindBoolean      Kind = "boolean"
	KindLiteralUnion Kind = "literal-union"
	KindArray        Kind = "array"
	KindObject       Kind = "object"
	// KindNamed binds to a registry schema by name and is never expanded.
	KindNamed Kind = "named"
	KindUnion Kind = "union"
)

// Shape is a resolved type descriptor. Which fields are set depends on Kind.
type Shape struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// named
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// literal-union
	Base     Kind  `json:"base,omitempty" yaml:"base,omitempty"`
	Literals []any `json:"literals,omitempty" yaml:"literals,omitempty"`

	// array
	Items *Shape `json:"items,omitempty" yaml:"items,omitempty"`

	// object
	Fields     []Field  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Supertypes []string `json:"supertypes,omitempty" yaml:"supertypes,omitempty"`

	// union
	Variants []*Shape `json:"variants,omitempty" yaml:"variants,omitempty"`
}

// Field is one property of an object shape.
type Field struct {
	Name     string `json:"name" yaml:"name"`
	Shape    *Shape `json:"shape" yaml:"shape"`
	Required bool   `json:"required" yaml:"required"`
	// Inherited names the supertype the field was flattened from.
	Inherited string `json:"inherited,omitempty" yaml:"inherited,omitempty"`
}

// Field returns the field called name, or nil.
func (s *Shape) Field(name string) *Field {
	if s == nil {
		return nil
	}
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

func unknownShape() *Shape { return &Shape{Kind: KindUnknown} }
func emptyShape() *Shape   { return &Shape{Kind: KindEmpty} }
func stringShape() *Shape  { return &Shape{Kind: KindString} }

// ContractType is a named shape. Origin is set when the top-level schema
// was a reference to a registry entry.
type ContractType struct {
	Name   string `json:"name" yaml:"name"`
	Shape  *Shape `json:"shape" yaml:"shape"`
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty"`
}
