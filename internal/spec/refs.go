package spec

import (
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-openapi/jsonpointer"
	"gopkg.in/yaml.v3"
)

const (
	schemaRefPrefix     = "#/components/schemas/"
	definitionRefPrefix = "#/definitions/"
)

// resolveRefs resolves doc in place. Local schema refs whose target is not
// declared are bound to an empty placeholder for the duration of resolution
// and removed again afterwards, so the referencing sites keep their $ref and
// surface as UnknownReference during contract building.
//
// raw is any YAML or JSON rendering of doc used to find the refs.
func resolveRefs(loader *openapi3.Loader, doc *openapi3.T, raw []byte, base *url.URL) error {
	var declared openapi3.Schemas
	if doc.Components != nil {
		declared = doc.Components.Schemas
	}
	missing := danglingRefs(raw, schemaRefPrefix, func(name string) bool {
		_, ok := declared[name]
		return ok
	})
	if len(missing) > 0 {
		if doc.Components == nil {
			doc.Components = &openapi3.Components{}
		}
		if doc.Components.Schemas == nil {
			doc.Components.Schemas = openapi3.Schemas{}
		}
		for _, name := range missing {
			doc.Components.Schemas[name] = &openapi3.SchemaRef{Value: &openapi3.Schema{}}
		}
		defer func() {
			for _, name := range missing {
				delete(doc.Components.Schemas, name)
			}
		}()
	}
	return loader.ResolveRefsIn(doc, base)
}

// danglingRefs lists, sorted, the names referenced in raw under prefix for
// which declared reports false. Only direct children of prefix count.
func danglingRefs(raw []byte, prefix string, declared func(string) bool) []string {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil
	}
	seen := map[string]struct{}{}
	collectRefs(&root, func(ref string) {
		if !strings.HasPrefix(ref, prefix) {
			return
		}
		token := strings.TrimPrefix(ref, prefix)
		if token == "" || strings.Contains(token, "/") {
			return
		}
		if name := jsonpointer.Unescape(token); !declared(name) {
			seen[name] = struct{}{}
		}
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectRefs(n *yaml.Node, visit func(string)) {
	if n == nil {
		return
	}
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Value == "$ref" && v.Kind == yaml.ScalarNode {
				visit(v.Value)
				continue
			}
			collectRefs(v, visit)
		}
		return
	}
	for _, c := range n.Content {
		collectRefs(c, visit)
	}
}
