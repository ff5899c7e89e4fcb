package contract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/swaggen/internal/spec"
)

// Resolution is the result of resolving one schema: its shape, every
// registry name reached from it (sorted, deduplicated) and the diagnostics
// recorded on the way.
type Resolution struct {
	Shape       *Shape
	Referenced  []string
	Diagnostics []Diagnostic
}

// ResolveSchema resolves def against reg. It never mutates reg and keeps no
// state between calls.
func ResolveSchema(def *spec.SchemaDefinition, reg *spec.Registry) Resolution {
	r := newResolver(reg)
	shape := r.resolve(def, rootPointer)
	return Resolution{Shape: shape, Referenced: r.referencedNames(), Diagnostics: r.diags}
}

// resolver holds the per-resolution accumulators. A builder reuses one
// resolver across all schemas of a single operation so that each named
// target is walked at most once.
type resolver struct {
	reg        *spec.Registry
	referenced map[string]struct{}
	walked     map[string]bool
	diags      []Diagnostic
	seenDiag   map[string]bool
}

func newResolver(reg *spec.Registry) *resolver {
	return &resolver{
		reg:        reg,
		referenced: map[string]struct{}{},
		walked:     map[string]bool{},
		seenDiag:   map[string]bool{},
	}
}

func (r *resolver) referencedNames() []string {
	out := make([]string, 0, len(r.referenced))
	for name := range r.referenced {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *resolver) diag(code Code, at pointer, format string, args ...any) {
	d := Diagnostic{Code: code, Pointer: string(at), Message: fmt.Sprintf(format, args...)}
	key := string(code) + "|" + d.Pointer + "|" + d.Message
	if r.seenDiag[key] {
		return
	}
	r.seenDiag[key] = true
	r.diags = append(r.diags, d)
}

// lookup resolves a reference name, recording it and walking its target for
// transitive names. Missing names yield an UnknownReference diagnostic.
func (r *resolver) lookup(name string, at pointer) (*spec.SchemaDefinition, bool) {
	target, ok := r.reg.Lookup(name)
	if !ok {
		r.diag(UnknownReference, at, "schema %q is not defined", name)
		return nil, false
	}
	r.referenced[name] = struct{}{}
	if !r.walked[name] {
		r.walked[name] = true
		r.resolve(target, componentPointer(name))
	}
	return target, true
}

func (r *resolver) resolve(def *spec.SchemaDefinition, at pointer) *Shape {
	if def == nil {
		return unknownShape()
	}
	switch def.Kind {
	case spec.KindReference:
		if _, ok := r.lookup(def.Ref, at); !ok {
			return unknownShape()
		}
		return &Shape{Kind: KindNamed, Name: def.Ref}
	case spec.KindComposite:
		return r.composite(def, at)
	case spec.KindUnion:
		out := &Shape{Kind: KindUnion}
		for i, m := range def.ComposedOf {
			out.Variants = append(out.Variants, r.resolve(m, at.child("oneOf", strconv.Itoa(i))))
		}
		return out
	case spec.KindArray:
		if def.Items == nil {
			return &Shape{Kind: KindArray, Items: unknownShape()}
		}
		return &Shape{Kind: KindArray, Items: r.resolve(def.Items, at.child("items"))}
	case spec.KindObject:
		out := &Shape{Kind: KindObject}
		fields := map[string]Field{}
		r.mergeProperties(def, at, fields, "")
		out.Fields = finishFields(fields, requiredSet(def.Required))
		return out
	default:
		return r.primitive(def, at)
	}
}

func (r *resolver) primitive(def *spec.SchemaDefinition, at pointer) *Shape {
	var kind Kind
	switch strings.ToLower(def.Type) {
	case "integer", "number":
		kind = KindNumber
	case "string":
		kind = KindString
	case "boolean":
		kind = KindBoolean
	}
	if len(def.Enum) > 0 {
		if kind == "" {
			kind = literalBase(def.Enum)
		}
		return &Shape{Kind: KindLiteralUnion, Base: kind, Format: def.Format, Literals: append([]any(nil), def.Enum...)}
	}
	if kind == "" {
		if def.Type == "" {
			r.diag(UnsupportedSchemaType, at, "schema has no type")
		} else {
			r.diag(UnsupportedSchemaType, at, "unsupported schema type %q", def.Type)
		}
		return unknownShape()
	}
	return &Shape{Kind: kind, Format: def.Format}
}

// literalBase infers the base kind of an untyped enum from its first value.
func literalBase(values []any) Kind {
	switch values[0].(type) {
	case string:
		return KindString
	case bool:
		return KindBoolean
	case int, int32, int64, float32, float64, uint64:
		return KindNumber
	}
	return KindUnknown
}

// composite merges allOf members left to right. Reference members become
// nominal supertypes and have their properties flattened in; inline members
// contribute directly. Later members win on name collision; required is the
// union across every member.
func (r *resolver) composite(def *spec.SchemaDefinition, at pointer) *Shape {
	out := &Shape{Kind: KindObject}
	fields := map[string]Field{}
	required := requiredSet(def.Required)
	seenSuper := map[string]bool{}

	for i, m := range def.ComposedOf {
		mptr := at.child("allOf", strconv.Itoa(i))
		if m == nil {
			continue
		}
		if m.Kind == spec.KindReference {
			target, ok := r.lookup(m.Ref, mptr)
			if !ok {
				continue
			}
			if !seenSuper[m.Ref] {
				seenSuper[m.Ref] = true
				out.Supertypes = append(out.Supertypes, m.Ref)
			}
			r.flatten(m.Ref, target, fields, required, map[string]bool{m.Ref: true})
			continue
		}
		r.mergeMember(m, mptr, fields, required, "", map[string]bool{})
	}

	out.Fields = finishFields(fields, required)
	return out
}

// flatten copies the properties of the named schema target into fields,
// recursing through its own composition. stack guards against cycles.
func (r *resolver) flatten(name string, target *spec.SchemaDefinition, fields map[string]Field, required map[string]bool, stack map[string]bool) {
	r.mergeMember(target, componentPointer(name), fields, required, name, stack)
}

func (r *resolver) mergeMember(m *spec.SchemaDefinition, at pointer, fields map[string]Field, required map[string]bool, inherited string, stack map[string]bool) {
	switch m.Kind {
	case spec.KindObject:
		r.mergeProperties(m, at, fields, inherited)
		for name := range requiredSet(m.Required) {
			required[name] = true
		}
	case spec.KindComposite:
		for name := range requiredSet(m.Required) {
			required[name] = true
		}
		for i, sub := range m.ComposedOf {
			if sub == nil {
				continue
			}
			sptr := at.child("allOf", strconv.Itoa(i))
			if sub.Kind != spec.KindReference {
				r.mergeMember(sub, sptr, fields, required, inherited, stack)
				continue
			}
			if stack[sub.Ref] {
				r.diag(CompositionCycle, sptr, "schema %q composes itself", sub.Ref)
				continue
			}
			target, ok := r.lookup(sub.Ref, sptr)
			if !ok {
				continue
			}
			stack[sub.Ref] = true
			r.flatten(sub.Ref, target, fields, required, stack)
			delete(stack, sub.Ref)
		}
	case spec.KindReference:
		if stack[m.Ref] {
			r.diag(CompositionCycle, at, "schema %q composes itself", m.Ref)
			return
		}
		target, ok := r.lookup(m.Ref, at)
		if !ok {
			return
		}
		stack[m.Ref] = true
		r.flatten(m.Ref, target, fields, required, stack)
		delete(stack, m.Ref)
	}
}

func (r *resolver) mergeProperties(def *spec.SchemaDefinition, at pointer, fields map[string]Field, inherited string) {
	names := make([]string, 0, len(def.Properties))
	for name := range def.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fields[name] = Field{
			Name:      name,
			Shape:     r.resolve(def.Properties[name], at.child("properties", name)),
			Inherited: inherited,
		}
	}
}

func requiredSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func finishFields(fields map[string]Field, required map[string]bool) []Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		f.Required = required[f.Name]
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
