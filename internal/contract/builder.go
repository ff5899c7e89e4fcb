package contract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/swaggen/internal/naming"
	"github.com/mark3labs/swaggen/internal/spec"
)

// Operation is the contract set of one verb.
type Operation struct {
	Verb         string        `json:"verb" yaml:"verb"`
	SemanticVerb string        `json:"semanticVerb" yaml:"semanticVerb"`
	Method       string        `json:"method" yaml:"method"`
	OperationID  string        `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	PathParams   []Field       `json:"pathParams,omitempty" yaml:"pathParams,omitempty"`
	Request      *ContractType `json:"request,omitempty" yaml:"request,omitempty"`
	Response     ContractType  `json:"response" yaml:"response"`
	QueryParams  *ContractType `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`
	Referenced   []string      `json:"referenced,omitempty" yaml:"referenced,omitempty"`
}

// Model is the derived contract of one endpoint.
type Model struct {
	Path        string       `json:"path" yaml:"path"`
	Entity      string       `json:"entity" yaml:"entity"`
	FileStem    string       `json:"fileStem" yaml:"fileStem"`
	ClassName   string       `json:"className" yaml:"className"`
	Route       string       `json:"route" yaml:"route"`
	Operations  []Operation  `json:"operations" yaml:"operations"`
	Referenced  []string     `json:"referenced" yaml:"referenced"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Operation returns the operation for verb, or nil.
func (m *Model) Operation(verb string) *Operation {
	if m == nil {
		return nil
	}
	for i := range m.Operations {
		if m.Operations[i].Verb == verb {
			return &m.Operations[i]
		}
	}
	return nil
}

// Failure records an endpoint whose model could not be built.
type Failure struct {
	Path    string `json:"path" yaml:"path"`
	Verb    string `json:"verb,omitempty" yaml:"verb,omitempty"`
	Code    Code   `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// BuildResult is the outcome of building every endpoint of a document.
type BuildResult struct {
	Models   []*Model
	Failures []Failure
}

// Referenced returns the union of every model's referenced names, sorted.
func (r BuildResult) Referenced() []string {
	set := map[string]struct{}{}
	for _, m := range r.Models {
		for _, name := range m.Referenced {
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Diagnostics returns every model's diagnostics in model order.
func (r BuildResult) Diagnostics() []Diagnostic {
	var out []Diagnostic
	for _, m := range r.Models {
		out = append(out, m.Diagnostics...)
	}
	return out
}

// BuildAll builds a model per endpoint of doc. A failing endpoint is recorded
// in Failures and does not stop the others.
func BuildAll(doc *spec.Document) BuildResult {
	var res BuildResult
	if doc == nil {
		return res
	}
	for _, ep := range doc.Endpoints {
		m, err := Build(ep, doc.Registry)
		if err != nil {
			res.Failures = append(res.Failures, failureFrom(ep.Path, err))
			continue
		}
		res.Models = append(res.Models, m)
	}
	return res
}

func failureFrom(path string, err error) Failure {
	var ce *Error
	if errors.As(err, &ce) {
		return Failure{Path: path, Verb: ce.Verb, Code: ce.Code, Message: ce.Message}
	}
	return Failure{Path: path, Message: err.Error()}
}

// Build derives the contract model of one endpoint. reg is read, never
// written. A NamingCollision aborts the endpoint with an *Error.
func Build(ep spec.EndpointSpec, reg *spec.Registry) (*Model, error) {
	m := &Model{
		Path:      ep.Path,
		Entity:    naming.EntityName(ep.Path),
		FileStem:  naming.FileStem(ep.Path),
		ClassName: naming.ClassName(ep.Path),
		Route:     naming.RoutePattern(ep.Path),
	}

	methods := map[string]string{}
	endpointRefs := map[string]struct{}{}
	for _, verb := range ep.Verbs() {
		op := ep.Operations[verb]
		if op == nil {
			continue
		}
		names := naming.Derive(naming.Input{
			Path:        ep.Path,
			Verb:        verb,
			OperationID: op.OperationID,
			HasQuery:    len(op.QueryParameters()) > 0,
		})
		if prev, ok := methods[names.Method]; ok {
			return nil, &Error{
				Code:    NamingCollision,
				Path:    ep.Path,
				Verb:    verb,
				Message: fmt.Sprintf("verbs %q and %q both resolve to method %q", prev, verb, names.Method),
			}
		}
		methods[names.Method] = verb

		b := &opBuilder{
			r:     newResolver(reg),
			verb:  verb,
			op:    op,
			names: names,
			base:  operationPointer(ep.Path, verb),
		}
		out := b.build()
		for _, name := range out.Referenced {
			endpointRefs[name] = struct{}{}
		}
		m.Operations = append(m.Operations, out)
		for _, d := range b.r.diags {
			d.Path, d.Verb = ep.Path, verb
			m.Diagnostics = append(m.Diagnostics, d)
		}
	}
	m.Referenced = sortedKeys(endpointRefs)
	return m, nil
}

type opBuilder struct {
	r     *resolver
	verb  string
	op    *spec.OperationSpec
	names naming.Names
	base  pointer
}

func (b *opBuilder) build() Operation {
	out := Operation{
		Verb:         b.verb,
		SemanticVerb: b.names.SemanticVerb,
		Method:       b.names.Method,
		OperationID:  b.op.OperationID,
		PathParams:   b.pathParams(),
		QueryParams:  b.queryParams(),
		Request:      b.request(),
		Response:     b.response(),
	}
	out.Referenced = b.r.referencedNames()
	return out
}

// pathParams follows the template order. Placeholders without a declaration
// default to a required string.
func (b *opBuilder) pathParams() []Field {
	declared := map[string]spec.ParameterModel{}
	for _, p := range b.op.PathParameters() {
		declared[p.Name] = p
	}
	var out []Field
	for _, name := range b.names.PathParams {
		p, ok := declared[name]
		var shape *Shape
		if ok {
			shape = b.paramShape(p)
		} else {
			shape = stringShape()
		}
		out = append(out, Field{Name: name, Shape: shape, Required: true})
	}
	return out
}

func (b *opBuilder) queryParams() *ContractType {
	params := b.op.QueryParameters()
	if len(params) == 0 {
		return nil
	}
	fields := make([]Field, 0, len(params))
	for _, p := range params {
		fields = append(fields, Field{Name: p.Name, Shape: b.paramShape(p), Required: p.Required})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return &ContractType{Name: b.names.QueryParams, Shape: &Shape{Kind: KindObject, Fields: fields}}
}

func (b *opBuilder) paramShape(p spec.ParameterModel) *Shape {
	if p.Schema == nil {
		return stringShape()
	}
	return b.r.resolve(p.Schema, b.base.child("parameters", p.In, p.Name, "schema"))
}

func (b *opBuilder) request() *ContractType {
	body := b.op.RequestBody
	if !naming.HasRequestBody(b.verb) {
		if body != nil {
			b.r.diag(UnexpectedRequestBody, b.base.child("requestBody"), "%s operations carry no request body; body ignored", strings.ToUpper(b.verb))
		}
		return nil
	}
	ct := &ContractType{Name: b.names.Request, Shape: emptyShape()}
	if body == nil {
		return ct
	}
	media, dropped := pickStructured(body.Content)
	b.dropEncodings(dropped, "requestBody")
	if media != nil && media.Schema != nil {
		b.fill(ct, media.Schema, b.base.child("requestBody", "content", media.Mime, "schema"))
	}
	return ct
}

// response takes the first 2xx status, in sorted order, with a structured body.
func (b *opBuilder) response() ContractType {
	ct := ContractType{Name: b.names.Response, Shape: emptyShape()}
	for _, resp := range b.op.Responses {
		if !isSuccess(resp.Status) {
			continue
		}
		media, dropped := pickStructured(resp.Content)
		b.dropEncodings(dropped, "responses", resp.Status)
		if media == nil || media.Schema == nil {
			continue
		}
		b.fill(&ct, media.Schema, b.base.child("responses", resp.Status, "content", media.Mime, "schema"))
		return ct
	}
	b.r.diag(MissingResponseBody, b.base.child("responses"), "no 2xx response declares a structured body; using an empty response")
	return ct
}

func (b *opBuilder) dropEncodings(dropped []spec.Media, parts ...string) {
	for _, d := range dropped {
		at := b.base.child(append(parts, "content", d.Mime)...)
		b.r.diag(UnsupportedContentEncoding, at, "content type %q dropped; only one structured JSON encoding is used", d.Mime)
	}
}

func (b *opBuilder) fill(ct *ContractType, def *spec.SchemaDefinition, at pointer) {
	ct.Shape = b.r.resolve(def, at)
	if def.Kind == spec.KindReference && ct.Shape.Kind == KindNamed {
		ct.Origin = def.Ref
	}
}

func isSuccess(status string) bool {
	return len(status) == 3 && status[0] == '2' && (strings.EqualFold(status[1:], "xx") || isDigits(status[1:]))
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// pickStructured returns the JSON-like media of content, preferring
// application/json, and the media it did not pick.
func pickStructured(content []spec.Media) (*spec.Media, []spec.Media) {
	pick := -1
	for i, m := range content {
		base := mediaBase(m.Mime)
		if base == "application/json" {
			pick = i
			break
		}
		if pick < 0 && (strings.HasSuffix(base, "/json") || strings.HasSuffix(base, "+json")) {
			pick = i
		}
	}
	var dropped []spec.Media
	for i, m := range content {
		if i != pick {
			dropped = append(dropped, m)
		}
	}
	if pick < 0 {
		return nil, dropped
	}
	return &content[pick], dropped
}

func mediaBase(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
