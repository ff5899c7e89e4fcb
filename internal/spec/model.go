package spec

import "sort"

// HttpMethod is a lower-case HTTP verb as it appears in a path item.
type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// canonicalVerbOrder fixes the order in which an endpoint's verbs are visited.
var canonicalVerbOrder = map[string]int{
	"get": 0, "post": 1, "put": 2, "patch": 3, "delete": 4, "head": 5, "options": 6, "trace": 7,
}

// SchemaKind classifies a SchemaDefinition.
type SchemaKind string

const (
	KindObject    SchemaKind = "object"
	KindArray     SchemaKind = "array"
	KindPrimitive SchemaKind = "primitive"
	KindReference SchemaKind = "reference"
	KindComposite SchemaKind = "composite"
	// KindUnion covers oneOf/anyOf alternatives.
	KindUnion SchemaKind = "union"
)

// SchemaDefinition is a named or inline schema, normalized away from the
// OpenAPI object model.
type SchemaDefinition struct {
	Name string
	Kind SchemaKind

	// Primitive
	Type   string // integer, number, string, boolean, or whatever the document said
	Format string
	Enum   []any

	// Object
	Properties map[string]*SchemaDefinition
	Required   []string

	// Array
	Items *SchemaDefinition

	// Composite (allOf) and Union (oneOf/anyOf)
	ComposedOf []*SchemaDefinition

	// Reference target name (last segment of the $ref).
	Ref string

	Description string
}

// ParameterModel is a path or query parameter. Header and cookie parameters
// are carried through but ignored by contract derivation.
type ParameterModel struct {
	Name     string
	In       string // path|query|header|cookie
	Required bool
	Schema   *SchemaDefinition
}

// Media is one content encoding of a body.
type Media struct {
	Mime   string
	Schema *SchemaDefinition
}

type RequestBodyModel struct {
	Content  []Media
	Required bool
}

type ResponseModel struct {
	Status      string // 200, 2XX, default
	Description string
	Content     []Media
}

// OperationSpec describes one verb of an endpoint.
type OperationSpec struct {
	OperationID string
	Summary     string
	Tags        []string
	Parameters  []ParameterModel
	RequestBody *RequestBodyModel
	Responses   []ResponseModel // sorted by status
}

// QueryParameters returns the query parameters in declaration order.
func (o *OperationSpec) QueryParameters() []ParameterModel {
	return o.parametersIn("query")
}

// PathParameters returns the declared path parameters in declaration order.
func (o *OperationSpec) PathParameters() []ParameterModel {
	return o.parametersIn("path")
}

func (o *OperationSpec) parametersIn(in string) []ParameterModel {
	if o == nil {
		return nil
	}
	var out []ParameterModel
	for _, p := range o.Parameters {
		if p.In == in {
			out = append(out, p)
		}
	}
	return out
}

// EndpointSpec is a path template and its verb map. Verb keys are used as
// given; they are not required to be standard HTTP methods.
type EndpointSpec struct {
	Path       string
	Operations map[string]*OperationSpec
}

// Verbs returns the endpoint's verbs in canonical order: the standard HTTP
// methods first, then any other verbs sorted lexically.
func (e EndpointSpec) Verbs() []string {
	verbs := make([]string, 0, len(e.Operations))
	for v := range e.Operations {
		verbs = append(verbs, v)
	}
	sort.Slice(verbs, func(i, j int) bool {
		oi, iok := canonicalVerbOrder[verbs[i]]
		oj, jok := canonicalVerbOrder[verbs[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return verbs[i] < verbs[j]
		}
	})
	return verbs
}

// Document is the normalized API surface handed to the contract builder.
type Document struct {
	Title     string
	Version   string
	Registry  *Registry
	Endpoints []EndpointSpec // sorted by path
	Tags      []string
}
