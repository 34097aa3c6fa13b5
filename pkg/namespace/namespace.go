// Package namespace implements the hierarchical scope tree and the two
// name-resolution strategies used by the two-phase loader (§4.5 /
// §2 item 2), grounded on original_source's impera.ast.Namespace,
// BasicResolver and NameSpacedResolver.
package namespace

import "strings"

// Namespace models a module scope: a name, a parent, and children.
type Namespace struct {
	name     string
	parent   *Namespace
	children []*Namespace
}

// Root creates the top-level, parentless namespace.
func Root() *Namespace {
	return &Namespace{name: "__root__"}
}

func (n *Namespace) Name() string { return n.name }
func (n *Namespace) Parent() *Namespace { return n.parent }
func (n *Namespace) Children() []*Namespace { return n.children }

// Child returns (creating if necessary) the child namespace with the
// given name, matching define_types' incremental population of the
// namespace tree across Phase A.
func (n *Namespace) Child(name string) *Namespace {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	child := &Namespace{name: name, parent: n}
	n.children = append(n.children, child)
	return child
}

// GetChild looks up an existing child without creating one.
func (n *Namespace) GetChild(name string) *Namespace {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// FullName renders the "::"-joined path from just below the root, e.g.
// "std::File". The root itself renders as "".
func (n *Namespace) FullName() string {
	if n.parent == nil {
		return ""
	}
	if n.parent.parent == nil {
		return n.name
	}
	return n.parent.FullName() + "::" + n.name
}

// Root walks up to the top-level namespace.
func (n *Namespace) Root() *Namespace {
	if n.parent == nil {
		return n
	}
	return n.parent.Root()
}

// Resolve walks down from n following a "::"-separated path, creating
// child namespaces as it goes. Used while the loader is building the
// namespace tree from module names in Phase A.
func (n *Namespace) Resolve(path string) *Namespace {
	cur := n
	if path == "" {
		return cur
	}
	for _, part := range strings.Split(path, "::") {
		cur = cur.Child(part)
	}
	return cur
}

// NamespaceOf returns the namespace that a fully qualified type name's
// prefix refers to, e.g. "std::net::Host" -> the "std::net" namespace,
// without creating it if absent — mirrors get_ns_from_string.
func (n *Namespace) NamespaceOf(fqtn string) *Namespace {
	parts := strings.Split(fqtn, "::")
	if len(parts) == 1 {
		return n
	}
	cur := n
	for _, part := range parts[:len(parts)-1] {
		next := cur.GetChild(part)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}
