// Package types implements the type system described in §3/§4 of the
// design: primitive types, typedefs with predicates, list/nullable
// modifiers, entity definitions and plugin signatures. Every Type carries
// a Validate capability and a Normalize step that resolves forward
// references once every type name in the compile is known (§4.5 Phase A).
package types

import (
	"fmt"

	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/values"
)

// Resolver resolves a type name to a Type. Phase A uses a resolver over
// the flat "all types seen so far" table (original_source's
// BasicResolver); Phase B and every Normalize call use one that also
// walks the namespace chain (NameSpacedResolver). Both are implemented in
// pkg/namespace so this package never needs to import it.
type Resolver interface {
	GetType(name string) (Type, bool)
}

// Type is implemented by every member of the type union in §3.
type Type interface {
	// Name is the fully qualified type name, used in diagnostics and as
	// the map key in Resolver implementations.
	Name() string

	// Validate reports whether value belongs to this type's domain. It
	// must not block — use only on already-bound values.
	Validate(v values.Value) bool

	// Normalize resolves any forward references this type holds (e.g. a
	// ListOf's element type name, an EntityDefinition's parent list). It
	// runs once, after every type in the compile has been registered
	// (§4.5: "Phase A MUST complete before Phase B starts").
	Normalize(r Resolver) error
}

// Primitive covers Number (split here into Int/Float per Go idiom — the
// DSL's "Number" is the union of the two, matched via Validate),
// String, Bool and Null.
type Primitive struct {
	kind values.Kind
}

var (
	TInt    = &Primitive{kind: values.KindInt}
	TFloat  = &Primitive{kind: values.KindFloat}
	TNumber = &numberType{}
	TString = &Primitive{kind: values.KindString}
	TBool   = &Primitive{kind: values.KindBool}
	TNull   = &Primitive{kind: values.KindNull}
)

func (p *Primitive) Name() string { return p.kind.String() }
func (p *Primitive) Validate(v values.Value) bool { return v.Kind() == p.kind || v.IsUnknown() }
func (p *Primitive) Normalize(Resolver) error { return nil }

// numberType validates both Int and Float, matching the DSL's single
// "Number" primitive (§3).
type numberType struct{}

func (*numberType) Name() string { return "number" }
func (*numberType) Validate(v values.Value) bool {
	return v.Kind() == values.KindInt || v.Kind() == values.KindFloat || v.IsUnknown()
}
func (*numberType) Normalize(Resolver) error { return nil }

// Predicate is an external callable used as a typedef constraint; it is
// satisfied by pkg/plugin's PluginFunc so pkg/types never imports the
// plugin or Starlark runtime.
type Predicate func(v values.Value) (bool, error)

// TypeDef is a refinement of a base type by a predicate, e.g.
// "typedef positive as number matching self > 0".
type TypeDef struct {
	FQN       string
	BaseName  string
	base      Type
	Predicate Predicate
}

func (t *TypeDef) Name() string { return t.FQN }

func (t *TypeDef) Validate(v values.Value) bool {
	if v.IsUnknown() {
		return true
	}
	if t.base == nil || !t.base.Validate(v) {
		return false
	}
	if t.Predicate == nil {
		return true
	}
	ok, err := t.Predicate(v)
	return err == nil && ok
}

func (t *TypeDef) Normalize(r Resolver) error {
	base, ok := r.GetType(t.BaseName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTypeNotFound, t.BaseName)
	}
	t.base = base
	return nil
}

// ErrTypeNotFound is returned by Normalize; callers convert it to a
// diagnostics.Diagnostic with their own Location.
var ErrTypeNotFound = fmt.Errorf("type not found")

// ListOf is "list of T".
type ListOf struct {
	ElementName string
	element     Type
}

func (l *ListOf) Name() string { return "list[" + l.ElementName + "]" }

func (l *ListOf) Validate(v values.Value) bool {
	if v.IsUnknown() {
		return true
	}
	items, ok := v.List_()
	if !ok {
		return false
	}
	for _, item := range items {
		if l.element != nil && !l.element.Validate(item) {
			return false
		}
	}
	return true
}

func (l *ListOf) Normalize(r Resolver) error {
	elem, ok := r.GetType(l.ElementName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTypeNotFound, l.ElementName)
	}
	l.element = elem
	return nil
}

// Nullable wraps a base type, additionally accepting Null.
type Nullable struct {
	BaseName string
	base     Type
}

func (n *Nullable) Name() string { return n.BaseName + "?" }

func (n *Nullable) Validate(v values.Value) bool {
	if v.IsNull() || v.IsUnknown() {
		return true
	}
	return n.base != nil && n.base.Validate(v)
}

func (n *Nullable) Normalize(r Resolver) error {
	base, ok := r.GetType(n.BaseName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTypeNotFound, n.BaseName)
	}
	n.base = base
	return nil
}

// PluginSignature types a plugin callable's positional/keyword parameters
// and return type. pkg/statements' PluginCall does not consult it: it
// dispatches through the plugin registry without checking argument types.
type PluginSignature struct {
	FQN        string
	ParamNames []string
	ParamTypeNames []string
	paramTypes []Type
	ReturnTypeName string
	returnType Type
}

func (p *PluginSignature) Name() string { return p.FQN }

func (p *PluginSignature) Validate(v values.Value) bool {
	return p.returnType == nil || p.returnType.Validate(v)
}

func (p *PluginSignature) Normalize(r Resolver) error {
	p.paramTypes = make([]Type, len(p.ParamTypeNames))
	for i, name := range p.ParamTypeNames {
		t, ok := r.GetType(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, name)
		}
		p.paramTypes[i] = t
	}
	if p.ReturnTypeName != "" {
		t, ok := r.GetType(p.ReturnTypeName)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, p.ReturnTypeName)
		}
		p.returnType = t
	}
	return nil
}

// ValidateArg validates positional argument i against its declared type.
func (p *PluginSignature) ValidateArg(i int, v values.Value) bool {
	if i < 0 || i >= len(p.paramTypes) || p.paramTypes[i] == nil {
		return true
	}
	return p.paramTypes[i].Validate(v)
}

// Builtins returns the primitive type table keyed by name, seeded into
// every compile's type table before any user definition is processed
// (original_source's `for name, type_symbol in TYPES.items()`).
func Builtins() map[string]Type {
	return map[string]Type{
		"number": TNumber,
		"int":    TInt,
		"float":  TFloat,
		"string": TString,
		"bool":   TBool,
		"null":   TNull,
	}
}

// NewLocatedTypeError adapts a Normalize error into a diagnostics.Diagnostic.
func NewLocatedTypeError(loc diagnostics.Location, typeName string, err error) *diagnostics.Diagnostic {
	return diagnostics.New(diagnostics.KindTypeNotFound, loc, "while normalizing %s: %v", typeName, err)
}
