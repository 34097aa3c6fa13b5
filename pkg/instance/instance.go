// Package instance implements the entity instance and index subsystem of
// §4.2: one Store per *types.EntityDefinition, owning that definition's
// living instances and its declared indices. Construction defers index
// insertion until a key is fully bound, matching original_source's
// lazy-identity behaviour (tests/compiler/test_index.py's collision and
// inheritance-index cases).
package instance

import (
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

// EntityInstance is one instance of an EntityDefinition: a fixed set of
// named slots, each either a scalar (plain attribute or a to-one relation
// half-edge) or a list (list attribute or a to-many relation half-edge).
// Instances own their slots (§3 Ownership note); nothing outside this
// package mutates them directly.
type EntityInstance struct {
	def   *types.EntityDefinition
	id    string
	loc   diagnostics.Location
	attrs map[string]*runtime.ResultVariable
	lists map[string]*runtime.ListResultVariable

	finalized bool
	// indexedOn records which of def's declared indices this instance has
	// already been inserted under, so Reconcile does not re-insert it.
	indexedOn map[int]bool
}

func newEntityInstance(def *types.EntityDefinition, id string, loc diagnostics.Location) *EntityInstance {
	inst := &EntityInstance{
		def:       def,
		id:        id,
		loc:       loc,
		attrs:     map[string]*runtime.ResultVariable{},
		lists:     map[string]*runtime.ListResultVariable{},
		indexedOn: map[int]bool{},
	}
	for name, a := range def.Attributes() {
		inst.attrs[name] = runtime.NewResultVariable(a.Type)
	}
	for name, r := range def.Relations() {
		if r.Multiplicity.Single() {
			inst.attrs[name] = runtime.NewResultVariable(r.Target)
		} else {
			inst.lists[name] = runtime.NewListResultVariable(r.Target, r.Multiplicity)
		}
	}
	return inst
}

func (e *EntityInstance) InstanceID() string           { return e.id }
func (e *EntityInstance) EntityName() string           { return e.def.Name() }
func (e *EntityInstance) Definition() *types.EntityDefinition { return e.def }
func (e *EntityInstance) Location() diagnostics.Location { return e.loc }
func (e *EntityInstance) Value() values.Value          { return values.Entity(e) }

// Attribute returns the scalar slot for name: a plain attribute or a
// to-one relation half-edge. ok is false for a name that is list-valued
// or undeclared.
func (e *EntityInstance) Attribute(name string) (*runtime.ResultVariable, bool) {
	rv, ok := e.attrs[name]
	return rv, ok
}

// Relation returns the list slot for name: a list attribute or a
// to-many relation half-edge.
func (e *EntityInstance) Relation(name string) (*runtime.ListResultVariable, bool) {
	rv, ok := e.lists[name]
	return rv, ok
}

// indexKey evaluates index idx against this instance's currently bound
// attributes. ok is false if any key attribute is not yet Bound.
func (e *EntityInstance) indexKey(idx types.IndexDef) (string, bool) {
	key := ""
	for i, attrName := range idx.Attributes {
		rv, ok := e.attrs[attrName]
		if !ok {
			return "", false
		}
		v, err := rv.Get()
		if err != nil {
			return "", false
		}
		if i > 0 {
			key += "\x1f"
		}
		key += v.IdentityKey()
	}
	return key, true
}

// finalize freezes every slot this instance owns, per §4.2's lifecycle:
// "finalized by the scheduler, after which all attribute RVs are frozen."
// It returns the waiters released by freezing (to be rescheduled) and any
// MultiplicityUnderfill diagnostics from list slots frozen below their
// minimum bound.
func (e *EntityInstance) finalize() ([]runtime.Waiter, *diagnostics.Diagnostics) {
	if e.finalized {
		return nil, nil
	}
	e.finalized = true

	var released []runtime.Waiter
	diags := diagnostics.NewDiagnostics()

	for _, rv := range e.attrs {
		w, err := rv.Freeze()
		released = append(released, w...)
		_ = err // Freeze itself never errors; underfill is read lazily via Get
	}
	for name, lv := range e.lists {
		w, forced := lv.FinalizeFreeze()
		released = append(released, w...)
		if forced {
			diags.Add(diagnostics.New(diagnostics.KindMultiplicityUnderfill, e.loc,
				"%s.%s finalized with a producer still outstanding", e.def.Name(), name))
		}
		if lv.Underfilled() {
			diags.Add(diagnostics.New(diagnostics.KindMultiplicityUnderfill, e.loc,
				"%s.%s frozen with %d element(s), below minimum %d", e.def.Name(), name, lv.Size(), lv.Multiplicity().Lo))
		}
	}
	return released, diags
}
