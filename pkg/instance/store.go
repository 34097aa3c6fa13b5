package instance

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

// Store owns every living instance of one EntityDefinition, plus a lookup
// table per declared index (§4.2). There is no process-wide registry:
// each definition's Store is independent, per §9's redesign note.
type Store struct {
	def     *types.EntityDefinition
	all     []*EntityInstance
	byID    map[string]*EntityInstance
	indices []map[string]*EntityInstance // parallel to def.Indices, by position
	pending []*EntityInstance
	waiting map[string][]runtime.Waiter // "idxPos|key" -> statements blocked on IndexLookupRef
}

func NewStore(def *types.EntityDefinition) *Store {
	s := &Store{
		def:     def,
		byID:    map[string]*EntityInstance{},
		waiting: map[string][]runtime.Waiter{},
	}
	s.indices = make([]map[string]*EntityInstance, len(def.Indices))
	for i := range s.indices {
		s.indices[i] = map[string]*EntityInstance{}
	}
	return s
}

// Construct evaluates as many index keys as the given kwargs make
// available; a full match against an existing index entry returns that
// instance with the new attributes merged in (subject to DoubleSet), a
// miss registers the new instance under every index it can already
// compute and defers the rest to Reconcile (§4.2 construct). Attribute
// errors from Set are collected into diags, not returned, so the caller
// can keep going and report everything together (§7 local-error policy).
func (s *Store) Construct(kwargs map[string]values.Value, loc diagnostics.Location) (*EntityInstance, []runtime.Waiter, *diagnostics.Diagnostics) {
	diags := diagnostics.NewDiagnostics()

	for i, idx := range s.def.Indices {
		key, ok := constructTimeKey(idx, kwargs)
		if !ok {
			continue
		}
		if existing, hit := s.indices[i][key]; hit {
			s.applyAttributes(existing, kwargs, loc, diags)
			return existing, nil, diags
		}
	}

	inst := newEntityInstance(s.def, uuid.NewString(), loc)
	s.applyAttributes(inst, kwargs, loc, diags)
	s.all = append(s.all, inst)
	s.byID[inst.id] = inst

	deferredAny := false
	var released []runtime.Waiter
	for i, idx := range s.def.Indices {
		key, ok := constructTimeKey(idx, kwargs)
		if !ok {
			deferredAny = true
			continue
		}
		released = append(released, s.claimIndex(i, key, inst)...)
	}
	if deferredAny {
		s.pending = append(s.pending, inst)
	}
	return inst, released, diags
}

func (s *Store) applyAttributes(inst *EntityInstance, kwargs map[string]values.Value, loc diagnostics.Location, diags *diagnostics.Diagnostics) {
	for name, v := range kwargs {
		rv, ok := inst.attrs[name]
		if !ok {
			diags.Add(diagnostics.New(diagnostics.KindNameNotFound, loc, "no attribute %q on %s", name, s.def.Name()))
			continue
		}
		if _, err := rv.Set(v, loc); err != nil {
			diags.Add(diagnostics.New(diagnostics.KindDoubleSet, loc, "could not set attribute %q on %s: %v", name, s.def.Name(), err))
		}
	}
}

// constructTimeKey evaluates idx directly against the literal kwargs
// passed to a single Construct call, before any ResultVariable exists.
// This is the common path from test_747_index_collisions: two Construct
// calls in the same statement stream with an identical index key collapse
// into one instance immediately, with no need to wait on Reconcile.
func constructTimeKey(idx types.IndexDef, kwargs map[string]values.Value) (string, bool) {
	key := ""
	for i, name := range idx.Attributes {
		v, ok := kwargs[name]
		if !ok {
			return "", false
		}
		if i > 0 {
			key += "\x1f"
		}
		key += v.IdentityKey()
	}
	return key, true
}

// claimIndex registers inst under index i's key and releases any
// IndexLookupRef statements that were blocked waiting for exactly this
// key to appear.
func (s *Store) claimIndex(i int, key string, inst *EntityInstance) []runtime.Waiter {
	s.indices[i][key] = inst
	inst.indexedOn[i] = true
	wk := waitKey(i, key)
	woken := s.waiting[wk]
	delete(s.waiting, wk)
	return woken
}

func waitKey(i int, key string) string {
	return fmt.Sprintf("%d\x1f%s", i, key)
}

// Reconcile re-evaluates every pending instance's index keys against its
// now-possibly-more-bound attributes (§4.2: "defer index insertion until
// every key attribute is Bound; at that moment re-check for collisions").
// Called once per scheduler tick. Returns both the diagnostics raised by
// any detected collision and the waiters released by newly-claimed index
// keys, e.g. an IndexLookupRef that was blocked on this exact key.
func (s *Store) Reconcile() ([]runtime.Waiter, *diagnostics.Diagnostics) {
	diags := diagnostics.NewDiagnostics()
	var released []runtime.Waiter
	still := s.pending[:0]
	for _, inst := range s.pending {
		keepPending := false
		for i, idx := range s.def.Indices {
			if inst.indexedOn[i] {
				continue
			}
			key, ok := inst.indexKey(idx)
			if !ok {
				keepPending = true
				continue
			}
			if existing, hit := s.indices[i][key]; hit && existing != inst {
				diags.Add(diagnostics.New(diagnostics.KindIndexCollision, inst.loc,
					"instance %s and %s both satisfy index %d on %s with key %q",
					existing.id, inst.id, i, s.def.Name(), key))
				continue
			}
			released = append(released, s.claimIndex(i, key, inst)...)
		}
		if keepPending {
			still = append(still, inst)
		}
	}
	s.pending = still
	return released, diags
}

// Lookup resolves index idx by key values in declaration order. On a
// miss, waiter (if non-nil) is registered to be released once this exact
// key is claimed by a later Construct/Reconcile — the statement runtime's
// way of "blocking on the index store" (§4.3 table) without the Store
// itself being a runtime.Freezable.
func (s *Store) Lookup(indexPos int, key []values.Value, waiter runtime.Waiter) (*EntityInstance, bool) {
	if indexPos < 0 || indexPos >= len(s.indices) {
		return nil, false
	}
	k := joinKey(key)
	inst, ok := s.indices[indexPos][k]
	if !ok && waiter != nil {
		wk := waitKey(indexPos, k)
		s.waiting[wk] = append(s.waiting[wk], waiter)
	}
	return inst, ok
}

func joinKey(key []values.Value) string {
	k := ""
	for i, v := range key {
		if i > 0 {
			k += "\x1f"
		}
		k += v.IdentityKey()
	}
	return k
}

// IndexPosition returns the declaration position of the index over
// exactly these attribute names, for statements that reference an index
// by its attribute list rather than a number.
func (s *Store) IndexPosition(attrNames []string) (int, error) {
	for i, idx := range s.def.Indices {
		if sameAttrSet(idx.Attributes, attrNames) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no index defined on %s for this lookup: %v", s.def.Name(), attrNames)
}

func sameAttrSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]bool{}
	for _, n := range a {
		seen[n] = true
	}
	for _, n := range b {
		if !seen[n] {
			return false
		}
	}
	return true
}

// AllInstances returns every instance in creation order (§4.2 expansion,
// used by the exporter and by Host.all-style iteration).
func (s *Store) AllInstances() []*EntityInstance {
	out := make([]*EntityInstance, len(s.all))
	copy(out, s.all)
	return out
}

// Finalize freezes every instance's slots; called once by pkg/compiler's
// finalizeStores after the fixpoint settles (§4.2 lifecycle, §4.4 step 5).
// It also runs a last Reconcile so any index key that became fully bound
// on the final tick is still checked for collisions before freezing. Any
// statement still waiting on an index key at this point never got its
// match; finalizeStores reads those from UnresolvedLookups and reports
// them as NotFound.
func (s *Store) Finalize() ([]runtime.Waiter, *diagnostics.Diagnostics) {
	released, diags := s.Reconcile()
	for _, inst := range s.all {
		w, d := inst.finalize()
		released = append(released, w...)
		for _, diag := range d.All() {
			diags.Add(diag)
		}
	}
	return released, diags
}

// UnresolvedLookups returns the waiters still registered against some
// index key that was never claimed — used at freeze time to report
// NotFound (§4.2: "fails with NotFound at freeze time if no instance
// matches").
func (s *Store) UnresolvedLookups() []runtime.Waiter {
	var out []runtime.Waiter
	for _, ws := range s.waiting {
		out = append(out, ws...)
	}
	return out
}

// Get looks an instance up by its stable identity, for the exporter and
// for plugin/native code operating on values.Value(InstanceRef) results.
func (s *Store) Get(id string) (*EntityInstance, bool) {
	inst, ok := s.byID[id]
	return inst, ok
}
