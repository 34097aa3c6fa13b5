package types

import (
	"fmt"

	"github.com/frostlang/frost/pkg/values"
)

// Multiplicity is a relation/attribute cardinality bound [Lo:Hi]. Hi < 0
// means unbounded, matching "hi may be unbounded" in §3.
type Multiplicity struct {
	Lo int
	Hi int // -1 == unbounded
}

func (m Multiplicity) Unbounded() bool { return m.Hi < 0 }

// Single reports whether this multiplicity collapses relation access to a
// scalar, per §4.2: "Relations whose multiplicity upper bound is 1
// collapse to scalar access."
func (m Multiplicity) Single() bool { return m.Hi == 1 }

func (m Multiplicity) String() string {
	if m.Unbounded() {
		return fmt.Sprintf("[%d:]", m.Lo)
	}
	return fmt.Sprintf("[%d:%d]", m.Lo, m.Hi)
}

// AttributeDef is one declared attribute: a name, its type, an optional
// default expression (represented opaquely here — evaluating it is the
// statement runtime's job, not the type system's) and its multiplicity.
// Plain (non-relation) attributes always have multiplicity [1:1] or
// [0:1] (nullable); list-valued non-relation attributes are modeled the
// same as relations with a nil RelationTarget.
type AttributeDef struct {
	Name         string
	TypeName     string
	Type         Type
	Nullable     bool
	Multiplicity Multiplicity
	HasDefault   bool
	// RelationTarget is set when this attribute is the owning side of a
	// relation (as opposed to a plain scalar/list attribute); see
	// RelationDef below for the bidirectional pairing.
	RelationTarget string
}

// RelationDef is one half of a (possibly bidirectional) relation pair
// between two entities, per §3's "paired half-edges" description.
type RelationDef struct {
	Name         string
	TargetName   string
	Target       *EntityDefinition
	Multiplicity Multiplicity
	// InverseName is the attribute name on Target that refers back to the
	// owner, or "" if this relation has no inverse.
	InverseName string
}

// IndexDef is an ordered list of attribute names that together identify
// an instance (§3 EntityDefinition.indices).
type IndexDef struct {
	Attributes []string
}

// Implementation is one conditional implementation block with its
// attach guard (§3's "implementations: conditional blocks"). The
// predicate is represented opaquely: the statement runtime owns predicate evaluation
// and calls back into EntityDefinition.Implementations only to read the
// declared list.
type Implementation struct {
	Name      string
	Predicate interface{} // an ast.Expression, opaque to the type system
}

// EntityDefinition is the definition half of every EntityInstance;
// pkg/instance.Store is keyed by *EntityDefinition.
type EntityDefinition struct {
	FQN         string
	ParentNames []string
	parents     []*EntityDefinition

	// Attributes/Relations/Indices as declared directly on this
	// definition, before inheritance flattening.
	ownAttributes map[string]*AttributeDef
	ownRelations  map[string]*RelationDef
	Indices       []IndexDef
	Implementations []Implementation

	// attributes/relations are the flattened tables built by Normalize,
	// covering this definition and every ancestor.
	attributes map[string]*AttributeDef
	relations  map[string]*RelationDef
	normalized bool
}

func NewEntityDefinition(fqn string) *EntityDefinition {
	return &EntityDefinition{
		FQN:           fqn,
		ownAttributes: map[string]*AttributeDef{},
		ownRelations:  map[string]*RelationDef{},
	}
}

func (e *EntityDefinition) Name() string { return e.FQN }

// Validate accepts any Value whose InstanceRef names this definition or
// one of its ancestors; since pkg/types cannot see pkg/instance, the
// structural check is delegated to the caller's InstanceRef by comparing
// EntityName against the flattened ancestor chain.
func (e *EntityDefinition) Validate(v values.Value) bool {
	if v.IsUnknown() {
		return true
	}
	ref, ok := v.Entity_()
	if !ok {
		return false
	}
	name := ref.EntityName()
	if name == e.FQN {
		return true
	}
	for _, p := range e.parents {
		if p.Validate(v) {
			return true
		}
	}
	return false
}

// AddAttribute registers a directly-declared attribute.
func (e *EntityDefinition) AddAttribute(a *AttributeDef) error {
	if _, exists := e.ownAttributes[a.Name]; exists {
		return fmt.Errorf("duplicate attribute %q on %s", a.Name, e.FQN)
	}
	e.ownAttributes[a.Name] = a
	return nil
}

// AddRelation registers a directly-declared relation half-edge.
func (e *EntityDefinition) AddRelation(r *RelationDef) error {
	if _, exists := e.ownRelations[r.Name]; exists {
		return fmt.Errorf("duplicate relation %q on %s", r.Name, e.FQN)
	}
	e.ownRelations[r.Name] = r
	return nil
}

// Normalize flattens multiple inheritance, resolves relation targets, and
// checks the invariants from §3:
//   - every attribute referenced by an index exists on the entity
//   - indexed attributes are scalar
//   - an attribute name contributed by more than one ancestor, or
//     redeclared, must agree on type name, nullability and multiplicity;
//     default expressions are not compared
//   - a type cannot declare the same relation twice, including via
//     inheritance
func (e *EntityDefinition) Normalize(r Resolver) error {
	if e.normalized {
		return nil
	}
	e.normalized = true // break cycles in the inheritance graph before recursing

	e.parents = make([]*EntityDefinition, 0, len(e.ParentNames))
	for _, pname := range e.ParentNames {
		pt, ok := r.GetType(pname)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, pname)
		}
		parent, ok := pt.(*EntityDefinition)
		if !ok {
			return fmt.Errorf("parent %s of %s is not an entity", pname, e.FQN)
		}
		if err := parent.Normalize(r); err != nil {
			return err
		}
		e.parents = append(e.parents, parent)
	}

	e.attributes = map[string]*AttributeDef{}
	e.relations = map[string]*RelationDef{}

	// Flatten ancestors first (linear order, first-parent-wins on
	// conflict-free duplicates), then overlay this definition's own
	// declarations.
	for _, p := range e.parents {
		for name, a := range p.attributes {
			if existing, ok := e.attributes[name]; ok && !sameAttribute(existing, a) {
				return fmt.Errorf("conflicting attribute %q inherited by %s", name, e.FQN)
			}
			e.attributes[name] = a
		}
		for name, rel := range p.relations {
			if existing, ok := e.relations[name]; ok && existing.TargetName != rel.TargetName {
				return fmt.Errorf("conflicting relation %q inherited by %s", name, e.FQN)
			}
			e.relations[name] = rel
		}
	}

	for name, a := range e.ownAttributes {
		t, ok := r.GetType(a.TypeName)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, a.TypeName)
		}
		a.Type = t
		if existing, ok := e.attributes[name]; ok && !sameAttribute(existing, a) {
			return fmt.Errorf("conflicting attribute %q on %s", name, e.FQN)
		}
		e.attributes[name] = a
	}

	for name, rel := range e.ownRelations {
		if _, exists := e.relations[name]; exists {
			return fmt.Errorf("duplicate relation %q on %s", name, e.FQN)
		}
		target, ok := r.GetType(rel.TargetName)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, rel.TargetName)
		}
		ed, ok := target.(*EntityDefinition)
		if !ok {
			return fmt.Errorf("relation %q target %s is not an entity", name, rel.TargetName)
		}
		rel.Target = ed
		e.relations[name] = rel
	}

	for _, idx := range e.Indices {
		for _, attrName := range idx.Attributes {
			a, isAttr := e.attributes[attrName]
			_, isRel := e.relations[attrName]
			if !isAttr && !isRel {
				return fmt.Errorf("index references undeclared attribute %q on %s", attrName, e.FQN)
			}
			if isRel {
				return fmt.Errorf("index attribute %q on %s must be scalar, not a relation", attrName, e.FQN)
			}
			if a.Nullable || !a.Multiplicity.Single() {
				return fmt.Errorf("index attribute %q on %s must be scalar (not nullable or multi-valued)", attrName, e.FQN)
			}
		}
	}

	return nil
}

func sameAttribute(a, b *AttributeDef) bool {
	return a.TypeName == b.TypeName && a.Nullable == b.Nullable && a.Multiplicity == b.Multiplicity
}

// Attribute looks up a flattened attribute by name (nil, false if absent).
func (e *EntityDefinition) Attribute(name string) (*AttributeDef, bool) {
	a, ok := e.attributes[name]
	return a, ok
}

// Relation looks up a flattened relation half-edge by name.
func (e *EntityDefinition) Relation(name string) (*RelationDef, bool) {
	r, ok := e.relations[name]
	return r, ok
}

// Attributes returns the flattened attribute table.
func (e *EntityDefinition) Attributes() map[string]*AttributeDef { return e.attributes }

// Relations returns the flattened relation table.
func (e *EntityDefinition) Relations() map[string]*RelationDef { return e.relations }

// IsA reports whether e is def or a descendant of def.
func (e *EntityDefinition) IsA(def *EntityDefinition) bool {
	if e == def {
		return true
	}
	for _, p := range e.parents {
		if p.IsA(def) {
			return true
		}
	}
	return false
}
