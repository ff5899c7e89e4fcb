package spec

import (
	"sort"

	"github.com/mohae/deepcopy"
)

// Registry is the read-only dictionary of named schema definitions. It is
// built once per run; NewRegistry takes a deep copy of its input so later
// changes to the caller's definitions are not observed.
type Registry struct {
	schemas map[string]*SchemaDefinition
	names   []string
}

// NewRegistry snapshots defs into a Registry.
func NewRegistry(defs map[string]*SchemaDefinition) *Registry {
	r := &Registry{schemas: map[string]*SchemaDefinition{}}
	if len(defs) == 0 {
		return r
	}
	copied, _ := deepcopy.Copy(defs).(map[string]*SchemaDefinition)
	for name, def := range copied {
		if def == nil {
			continue
		}
		if def.Name == "" {
			def.Name = name
		}
		r.schemas[name] = def
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the definition registered under name. The returned value
// must be treated as read-only.
func (r *Registry) Lookup(name string) (*SchemaDefinition, bool) {
	if r == nil {
		return nil, false
	}
	def, ok := r.schemas[name]
	return def, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.schemas)
}
