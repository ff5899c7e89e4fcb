package spec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// BuildOption configures how a Document is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
	err         error
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.includeTags = addTags(c.includeTags, tags)
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.excludeTags = addTags(c.excludeTags, tags)
	}
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			if c.methods == nil {
				c.methods = make(map[HttpMethod]struct{}, len(methods))
			}
			c.methods[HttpMethod(strings.ToLower(string(m)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only endpoints whose path matches at least one of
// the provided regular expressions. An invalid pattern makes BuildDocument
// fail.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				if c.err == nil {
					c.err = fmt.Errorf("invalid path pattern %q: %w", p, err)
				}
				continue
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// BuildDocument converts an OpenAPI v3 document into the normalized Document:
// an immutable schema Registry plus one EndpointSpec per surviving path.
func BuildDocument(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	out := &Document{}
	if doc.Info != nil {
		out.Title = safeStr(doc.Info.Title)
		out.Version = safeStr(doc.Info.Version)
	}

	defs := map[string]*SchemaDefinition{}
	if doc.Components != nil {
		for name, ref := range doc.Components.Schemas {
			def := toSchemaDefinition(ref)
			if def == nil {
				continue
			}
			def.Name = name
			defs[name] = def
		}
	}
	out.Registry = NewRegistry(defs)

	pathKeys := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	tagSet := map[string]struct{}{}
	for _, p := range pathKeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := doc.Paths[p]
		if item == nil || !cfg.allowPath(p) {
			continue
		}

		// Path-level parameters first, overridden by operation-level ones.
		baseParams := make(map[string]ParameterModel)
		for _, pref := range item.Parameters {
			if pm, ok := toParameterModel(pref); ok {
				baseParams[paramKey(pm.In, pm.Name)] = pm
			}
		}

		ops := []struct {
			m HttpMethod
			o *openapi3.Operation
		}{
			{GET, item.Get},
			{POST, item.Post},
			{PUT, item.Put},
			{DELETE, item.Delete},
			{PATCH, item.Patch},
			{HEAD, item.Head},
			{OPTIONS, item.Options},
			{TRACE, item.Trace},
		}

		ep := EndpointSpec{Path: p, Operations: map[string]*OperationSpec{}}
		for _, pair := range ops {
			if pair.o == nil {
				continue
			}
			if len(cfg.methods) > 0 {
				if _, ok := cfg.methods[pair.m]; !ok {
					continue
				}
			}
			tags := cleanTags(pair.o.Tags)
			if !allowByTags(tags, cfg) {
				continue
			}
			for _, t := range tags {
				tagSet[t] = struct{}{}
			}
			ep.Operations[string(pair.m)] = toOperationSpec(pair.o, baseParams, tags)
		}
		if len(ep.Operations) == 0 {
			continue
		}
		out.Endpoints = append(out.Endpoints, ep)
	}

	for t := range tagSet {
		out.Tags = append(out.Tags, t)
	}
	sort.Strings(out.Tags)

	return out, nil
}

func (c *buildConfig) allowPath(p string) bool {
	if len(c.pathRes) == 0 {
		return true
	}
	for _, re := range c.pathRes {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := cfg.excludeTags[t]; blocked {
			return false
		}
	}
	return true
}

func toOperationSpec(o *openapi3.Operation, baseParams map[string]ParameterModel, tags []string) *OperationSpec {
	merged := make(map[string]ParameterModel, len(baseParams))
	for k, v := range baseParams {
		merged[k] = v
	}
	for _, pref := range o.Parameters {
		if pm, ok := toParameterModel(pref); ok {
			merged[paramKey(pm.In, pm.Name)] = pm
		}
	}
	params := make([]ParameterModel, 0, len(merged))
	for _, v := range merged {
		params = append(params, v)
	}
	sort.Slice(params, func(i, j int) bool {
		if params[i].In == params[j].In {
			return params[i].Name < params[j].Name
		}
		return params[i].In < params[j].In
	})

	op := &OperationSpec{
		OperationID: safeStr(o.OperationID),
		Summary:     safeStr(o.Summary),
		Tags:        tags,
		Parameters:  params,
	}

	if o.RequestBody != nil && o.RequestBody.Value != nil {
		op.RequestBody = &RequestBodyModel{
			Required: o.RequestBody.Value.Required,
			Content:  toMediaList(o.RequestBody.Value.Content),
		}
	}

	codes := make([]string, 0, len(o.Responses))
	for code := range o.Responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		rref := o.Responses[code]
		if rref == nil || rref.Value == nil {
			continue
		}
		desc := ""
		if rref.Value.Description != nil {
			desc = safeStr(*rref.Value.Description)
		}
		op.Responses = append(op.Responses, ResponseModel{
			Status:      code,
			Description: desc,
			Content:     toMediaList(rref.Value.Content),
		})
	}
	return op
}

func paramKey(in, name string) string { return in + ":" + name }

func safeStr(s string) string { return strings.TrimSpace(s) }

func cleanTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func toParameterModel(pref *openapi3.ParameterRef) (ParameterModel, bool) {
	if pref == nil || pref.Value == nil {
		return ParameterModel{}, false
	}
	p := pref.Value
	pm := ParameterModel{
		Name:     safeStr(p.Name),
		In:       safeStr(p.In),
		Required: p.Required,
	}
	if p.Schema != nil {
		pm.Schema = toSchemaDefinition(p.Schema)
	}
	return pm, true
}

func toMediaList(content openapi3.Content) []Media {
	if len(content) == 0 {
		return nil
	}
	mimes := make([]string, 0, len(content))
	for k := range content {
		mimes = append(mimes, k)
	}
	sort.Strings(mimes)
	out := make([]Media, 0, len(mimes))
	for _, mime := range mimes {
		mt := content[mime]
		if mt == nil {
			continue
		}
		out = append(out, Media{Mime: mime, Schema: toSchemaDefinition(mt.Schema)})
	}
	return out
}

// RefName returns the schema name a $ref points at: the final segment of its
// JSON pointer ("#/components/schemas/Order" -> "Order").
func RefName(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return strings.TrimPrefix(ref, "#")
}

func toSchemaDefinition(ref *openapi3.SchemaRef) *SchemaDefinition {
	if ref == nil {
		return nil
	}
	if ref.Ref != "" {
		return &SchemaDefinition{Kind: KindReference, Ref: RefName(ref.Ref)}
	}
	if ref.Value == nil {
		return &SchemaDefinition{Kind: KindPrimitive}
	}
	s := ref.Value
	def := &SchemaDefinition{
		Type:        safeStr(s.Type),
		Format:      safeStr(s.Format),
		Description: safeStr(s.Description),
	}
	if len(s.Enum) > 0 {
		def.Enum = append([]any(nil), s.Enum...)
	}

	switch {
	case len(s.AllOf) > 0:
		def.Kind = KindComposite
		for _, member := range s.AllOf {
			if m := toSchemaDefinition(member); m != nil {
				def.ComposedOf = append(def.ComposedOf, m)
			}
		}
		// Properties declared next to allOf act as the last inline member.
		if len(s.Properties) > 0 || len(s.Required) > 0 {
			def.ComposedOf = append(def.ComposedOf, &SchemaDefinition{
				Kind:       KindObject,
				Type:       "object",
				Properties: toProperties(s.Properties),
				Required:   append([]string(nil), s.Required...),
			})
		}
	case len(s.OneOf) > 0 || len(s.AnyOf) > 0:
		def.Kind = KindUnion
		for _, member := range append(append(openapi3.SchemaRefs(nil), s.OneOf...), s.AnyOf...) {
			if m := toSchemaDefinition(member); m != nil {
				def.ComposedOf = append(def.ComposedOf, m)
			}
		}
	case def.Type == "array" || s.Items != nil:
		def.Kind = KindArray
		def.Items = toSchemaDefinition(s.Items)
	case def.Type == "object" || len(s.Properties) > 0:
		def.Kind = KindObject
		def.Properties = toProperties(s.Properties)
		def.Required = append([]string(nil), s.Required...)
	default:
		def.Kind = KindPrimitive
	}
	return def
}

func toProperties(props openapi3.Schemas) map[string]*SchemaDefinition {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]*SchemaDefinition, len(props))
	for name, pr := range props {
		if d := toSchemaDefinition(pr); d != nil {
			out[name] = d
		}
	}
	return out
}
