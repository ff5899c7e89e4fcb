package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// preprocessV2ForCompatibility rewrites Swagger 2.0 operations that
// openapi2conv rejects:
//   - several body parameters are merged into one object-typed body whose
//     properties are the original parameters;
//   - body parameters mixed with formData become formData themselves and the
//     operation consumes multipart/form-data.
//
// On error the input is returned unchanged with modified=false.
func preprocessV2ForCompatibility(data []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return data, false, nil
	}

	modified := false
	for _, item := range paths {
		pi, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for method, raw := range pi {
			if !isV2OperationKey(method) {
				continue
			}
			if op, ok := raw.(map[string]any); ok && rewriteV2Operation(op) {
				modified = true
			}
		}
	}
	if !modified {
		return data, false, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func isV2OperationKey(k string) bool {
	switch strings.ToLower(k) {
	case "get", "post", "put", "delete", "patch", "options", "head":
		return true
	}
	return false
}

// rewriteV2Operation applies the body parameter fixes to op in place.
func rewriteV2Operation(op map[string]any) bool {
	params, ok := op["parameters"].([]any)
	if !ok || len(params) == 0 {
		return false
	}

	var bodies []map[string]any
	hasFormData := false
	for _, p := range params {
		pm, _ := p.(map[string]any)
		switch {
		case pm == nil:
		case strings.EqualFold(asString(pm["in"]), "body"):
			bodies = append(bodies, pm)
		case strings.EqualFold(asString(pm["in"]), "formData"):
			hasFormData = true
		}
	}

	switch {
	case len(bodies) == 0:
		return false
	case hasFormData:
		rewritten := make([]any, 0, len(params))
		for _, p := range params {
			pm, _ := p.(map[string]any)
			if pm == nil {
				continue
			}
			if strings.EqualFold(asString(pm["in"]), "body") {
				pm = formDataFromBodyParam(pm)
			}
			rewritten = append(rewritten, pm)
		}
		op["parameters"] = rewritten
		consumes, _ := op["consumes"].([]any)
		if !containsString(consumes, "multipart/form-data") {
			op["consumes"] = append(consumes, "multipart/form-data")
		}
		return true
	case len(bodies) > 1:
		props := map[string]any{}
		var required []any
		rest := make([]any, 0, len(params))
		for _, p := range params {
			pm, _ := p.(map[string]any)
			if pm == nil || !strings.EqualFold(asString(pm["in"]), "body") {
				rest = append(rest, p)
				continue
			}
			name := paramNameOr(pm, "field")
			schema := extractSchemaFromParam(pm)
			if schema == nil {
				schema = map[string]any{"type": "string"}
			}
			props[name] = schema
			if req, _ := pm["required"].(bool); req {
				required = append(required, name)
			}
		}
		bodySchema := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			bodySchema["required"] = required
		}
		merged := map[string]any{"in": "body", "name": "body", "schema": bodySchema}
		op["parameters"] = append([]any{merged}, rest...)
		return true
	}
	return false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func paramNameOr(pm map[string]any, fallback string) string {
	if name := asString(pm["name"]); name != "" {
		return name
	}
	return fallback
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// extractSchemaFromParam returns the body schema, or one synthesized from the
// parameter's own type/items/format.
func extractSchemaFromParam(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	t := asString(pm["type"])
	if t == "" {
		return nil
	}
	m := map[string]any{"type": t}
	if it, ok := pm["items"].(map[string]any); ok {
		m["items"] = it
	}
	if f := asString(pm["format"]); f != "" {
		m["format"] = f
	}
	return m
}

func formDataFromBodyParam(pm map[string]any) map[string]any {
	out := map[string]any{
		"in":   "formData",
		"name": paramNameOr(pm, "field"),
	}
	if desc := asString(pm["description"]); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}

	// formData cannot carry a referenced object; such bodies degrade to string.
	src := pm
	if sch, ok := pm["schema"].(map[string]any); ok {
		src = sch
		if asString(sch["type"]) == "" && sch["$ref"] != nil {
			src = map[string]any{"type": "string"}
		}
	}
	typ := asString(src["type"])
	if typ == "" {
		typ = "string"
	}
	out["type"] = typ
	if it, ok := src["items"].(map[string]any); ok {
		out["items"] = it
	}
	if f := asString(src["format"]); f != "" {
		out["format"] = f
	}
	return out
}
