package namespace

import "github.com/frostlang/frost/pkg/types"

// BasicResolver is a flat name -> Type table
// (original_source's impera.ast.type.BasicResolver): lookups are by the
// type's own fully qualified name only, no namespace chain involved. The
// loader normalizes with NamespacedResolver in both phases; BasicResolver
// serves callers that resolve against a flat table directly.
type BasicResolver struct {
	types map[string]types.Type
}

func NewBasicResolver(all map[string]types.Type) *BasicResolver {
	return &BasicResolver{types: all}
}

func (b *BasicResolver) GetType(name string) (types.Type, bool) {
	t, ok := b.types[name]
	return t, ok
}

// NamespacedResolver additionally walks a namespace chain, so a statement
// in module "a::b" can refer to a sibling type by its relative name
// (original_source's NameSpacedResolver). Resolution order: try the name
// verbatim against the flat table first (covers fully qualified and
// primitive names), then try it qualified by each namespace from ns up to
// the root.
type NamespacedResolver struct {
	types map[string]types.Type
	ns    *Namespace
}

func NewNamespacedResolver(all map[string]types.Type, ns *Namespace) *NamespacedResolver {
	return &NamespacedResolver{types: all, ns: ns}
}

func (n *NamespacedResolver) GetType(name string) (types.Type, bool) {
	if t, ok := n.types[name]; ok {
		return t, ok
	}
	for cur := n.ns; cur != nil && cur.parent != nil; cur = cur.parent {
		qualified := cur.FullName() + "::" + name
		if t, ok := n.types[qualified]; ok {
			return t, ok
		}
	}
	return nil, false
}

// WithNamespace returns a resolver scoped to a different namespace but
// sharing the same flat type table — used per-block in Phase B.
func (n *NamespacedResolver) WithNamespace(ns *Namespace) *NamespacedResolver {
	return &NamespacedResolver{types: n.types, ns: ns}
}

func (n *NamespacedResolver) Namespace() *Namespace { return n.ns }
