// Package naming derives every identifier a renderer needs for an endpoint
// and verb. Functions here are pure: the same inputs always give the same
// strings, whatever the caller and however often they are asked.
package naming

import (
	"regexp"
	"strings"

	"github.com/mark3labs/swaggen/internal/textcase"
)

// RootEntity names endpoints whose path has no static segment.
const RootEntity = "Root"

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// verbs that never carry a request body.
var bodylessVerbs = map[string]bool{
	"get":     true,
	"delete":  true,
	"head":    true,
	"options": true,
}

var semanticVerbs = map[string]string{
	"post":   "create",
	"get":    "read",
	"put":    "replace",
	"patch":  "modify",
	"delete": "delete",
}

// HasRequestBody reports whether verb may carry a request body.
func HasRequestBody(verb string) bool {
	return !bodylessVerbs[strings.ToLower(strings.TrimSpace(verb))]
}

// PathParameters returns the placeholder names of path in template order.
func PathParameters(path string) []string {
	matches := placeholderRe.FindAllStringSubmatch(path, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if name := strings.TrimSpace(m[1]); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// staticSegments returns the path segments that hold no placeholder.
func staticSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		seg = strings.TrimSpace(seg)
		if seg == "" || strings.ContainsAny(seg, "{}") {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// EntityName is the singular PascalCase form of the last static segment:
// "/users" and "/users/{userId}" both give "User".
func EntityName(path string) string {
	segs := staticSegments(path)
	for i := len(segs) - 1; i >= 0; i-- {
		if name := textcase.Singular(segs[i]); name != "" {
			return name
		}
	}
	return RootEntity
}

// SemanticVerb maps an HTTP verb to its action word. Unmapped verbs are
// returned lower-cased.
func SemanticVerb(verb string) string {
	v := strings.ToLower(strings.TrimSpace(verb))
	if s, ok := semanticVerbs[v]; ok {
		return s
	}
	return v
}

// MethodName joins the semantic verb, every static segment in singular
// form, and a By<Param> suffix per path parameter:
// GET /users/{userId}/orders -> readUserOrderByUserId.
func MethodName(path, verb string, params []string) string {
	var b strings.Builder
	b.WriteString(textcase.Camel(SemanticVerb(verb)))
	for _, seg := range staticSegments(path) {
		b.WriteString(textcase.Singular(seg))
	}
	for _, p := range params {
		b.WriteString("By")
		b.WriteString(textcase.Pascal(p))
	}
	return b.String()
}

// RequestTypeName returns "" for verbs without a request body. Otherwise an
// explicit operation id wins over Verb+Entity.
func RequestTypeName(path, verb, operationID string) string {
	if !HasRequestBody(verb) {
		return ""
	}
	return typeName(path, verb, operationID, "Request")
}

// ResponseTypeName always returns a name, even when the response has no body.
func ResponseTypeName(path, verb, operationID string) string {
	return typeName(path, verb, operationID, "Response")
}

func typeName(path, verb, operationID, suffix string) string {
	if id := textcase.Pascal(operationID); id != "" {
		return id + suffix
	}
	return textcase.Pascal(verb) + EntityName(path) + suffix
}

// QueryParamsTypeName names the query-parameter bag of methodName, or ""
// when the operation has no query parameters.
func QueryParamsTypeName(methodName string, hasQuery bool) string {
	if !hasQuery {
		return ""
	}
	return textcase.Pascal(methodName) + "QueryParams"
}

// FileStem is the per-endpoint file name: "/users/{userId}" -> "users_userid".
func FileStem(path string) string {
	stem := strings.TrimPrefix(strings.TrimSpace(path), "/")
	stem = strings.NewReplacer("/", "_", "{", "", "}", "").Replace(stem)
	stem = strings.ToLower(stem)
	if stem == "" {
		return "root"
	}
	return stem
}

// ClassName is the shared class prefix renderers use for an endpoint's
// handler, proxy, stub and adapter: "/users/{userId}" -> "UsersUserid".
func ClassName(path string) string {
	return textcase.Pascal(FileStem(path))
}

// RoutePattern rewrites "{param}" placeholders into ":param" route form.
func RoutePattern(path string) string {
	return placeholderRe.ReplaceAllString(path, ":$1")
}

// Input is the raw operation data names depend on.
type Input struct {
	Path        string
	Verb        string
	OperationID string
	HasQuery    bool
}

// Names bundles every identifier derived for one endpoint and verb.
type Names struct {
	Entity       string   `json:"entity" yaml:"entity"`
	SemanticVerb string   `json:"semanticVerb" yaml:"semanticVerb"`
	Method       string   `json:"method" yaml:"method"`
	Request      string   `json:"request,omitempty" yaml:"request,omitempty"`
	Response     string   `json:"response" yaml:"response"`
	QueryParams  string   `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`
	PathParams   []string `json:"pathParams,omitempty" yaml:"pathParams,omitempty"`
	FileStem     string   `json:"fileStem" yaml:"fileStem"`
	ClassName    string   `json:"className" yaml:"className"`
	Route        string   `json:"route" yaml:"route"`
}

// Derive computes all names for in.
func Derive(in Input) Names {
	params := PathParameters(in.Path)
	method := MethodName(in.Path, in.Verb, params)
	return Names{
		Entity:       EntityName(in.Path),
		SemanticVerb: SemanticVerb(in.Verb),
		Method:       method,
		Request:      RequestTypeName(in.Path, in.Verb, in.OperationID),
		Response:     ResponseTypeName(in.Path, in.Verb, in.OperationID),
		QueryParams:  QueryParamsTypeName(method, in.HasQuery),
		PathParams:   params,
		FileStem:     FileStem(in.Path),
		ClassName:    ClassName(in.Path),
		Route:        RoutePattern(in.Path),
	}
}
