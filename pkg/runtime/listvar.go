package runtime

import (
	"fmt"

	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

// ListResultVariable is the accumulating, multiplicity-bounded relation/
// multi-attribute variable from §4.1. Unlike ResultVariable it does not
// have a single Bound value; it grows via Insert until frozen.
type ListResultVariable struct {
	elementType types.Type
	mult        types.Multiplicity
	items       []values.Value
	seen        map[string]bool // identity-bearing dedup, §4.1 "set semantics"
	outstanding int             // registered producers not yet complete
	waiters     []Waiter
	frozen      bool
	underfilled bool
}

func NewListResultVariable(elementType types.Type, mult types.Multiplicity) *ListResultVariable {
	return &ListResultVariable{
		elementType: elementType,
		mult:        mult,
		seen:        map[string]bool{},
	}
}

func (l *ListResultVariable) Multiplicity() types.Multiplicity { return l.mult }

// RegisterProducer increments the outstanding-producer count; a
// RelationAssign statement calls this once, the first time it runs
// against this list, so a later freeze attempt knows work is still
// pending (§4.1 insert/register_producer contract).
func (l *ListResultVariable) RegisterProducer() { l.outstanding++ }

// ProducerDone decrements the outstanding-producer count once a producer
// statement has delivered its value (or determined it never will, e.g. a
// for-loop over an empty, frozen iterable).
func (l *ListResultVariable) ProducerDone() {
	if l.outstanding > 0 {
		l.outstanding--
	}
}

// Outstanding reports how many producers have not yet completed.
func (l *ListResultVariable) Outstanding() int { return l.outstanding }

// Insert appends value if not already present by identity (§4.1: "set
// semantics on identity-bearing values, multiset otherwise" — every Value
// in this model has a stable IdentityKey, so Insert is always set
// semantics here; see values.Value.IdentityKey's doc comment). source is
// accepted for API symmetry with the design (a statement may want to
// attribute an insert to itself for re-entrancy keying) but list
// membership itself is keyed purely on the value.
func (l *ListResultVariable) Insert(v values.Value, source interface{}) ([]Waiter, error) {
	if l.frozen {
		return nil, fmt.Errorf("insert on frozen list result variable")
	}
	if l.elementType != nil && !l.elementType.Validate(v) {
		return nil, fmt.Errorf("%w: value %s is not a %s", ErrTyping, v, l.elementType.Name())
	}
	key := v.IdentityKey()
	if l.seen[key] {
		return nil, nil
	}
	l.seen[key] = true
	l.items = append(l.items, v)
	if !l.mult.Unbounded() && len(l.items) > l.mult.Hi {
		return nil, fmt.Errorf("list result variable exceeds multiplicity %s", l.mult)
	}
	released := l.waiters
	l.waiters = nil
	return released, nil
}

// Size is the number of distinct elements inserted so far.
func (l *ListResultVariable) Size() int { return len(l.items) }

// Items returns the accumulated elements in insertion order (§5 ordering
// guarantee: "List elements are iterated in insertion order").
func (l *ListResultVariable) Items() []values.Value {
	out := make([]values.Value, len(l.items))
	copy(out, l.items)
	return out
}

// Complete reports whether the list holds enough elements and has no
// producer still outstanding — the precondition for a successful Freeze
// (§4.1: "Complete once it holds >= lo values AND no more producers are
// outstanding").
func (l *ListResultVariable) Complete() bool {
	return l.outstanding == 0 && len(l.items) >= l.mult.Lo
}

func (l *ListResultVariable) HasWaiters() bool { return len(l.waiters) > 0 }

func (l *ListResultVariable) Await(w Waiter) { l.waiters = append(l.waiters, w) }

// Freeze closes the set. Legal when outstanding == 0; if size < lo the
// freeze still happens (so the fixpoint can terminate) but Underfilled()
// reports true afterwards so the caller can raise MultiplicityUnderfill.
// Freezing an already-frozen list leaves it untouched but still drains and
// returns any waiters that accumulated since (mirrors ResultVariable.Freeze
// — a statement can legitimately Await an already-frozen list and must
// still be woken to observe it).
func (l *ListResultVariable) Freeze() ([]Waiter, error) {
	if l.frozen {
		released := l.waiters
		l.waiters = nil
		return released, nil
	}
	if l.outstanding > 0 {
		return nil, fmt.Errorf("freeze called on list result variable with %d producers still outstanding", l.outstanding)
	}
	l.frozen = true
	if len(l.items) < l.mult.Lo {
		l.underfilled = true
	}
	released := l.waiters
	l.waiters = nil
	return released, nil
}

func (l *ListResultVariable) Frozen() bool { return l.frozen }

// FinalizeFreeze closes the list unconditionally, even with producers
// still outstanding — called once by instance finalize (§4.4 step 5),
// after which no producer statement can ever run again (the scheduler's
// fixpoint has already returned). forced reports whether a producer was
// still outstanding when this was called: a well-converged fixpoint
// leaves no list with outstanding producers, since a RelationAssign stays
// tracked as a waiter on its own pending value until it inserts and calls
// ProducerDone, so forced signals a genuine bug elsewhere rather than a
// normal underfill. The list is still marked frozen either way, so later
// reads (export, a late-blocked statement) observe a terminal, consistent
// state instead of hanging in unfrozen limbo forever.
func (l *ListResultVariable) FinalizeFreeze() (woken []Waiter, forced bool) {
	if l.frozen {
		released := l.waiters
		l.waiters = nil
		return released, false
	}
	forced = l.outstanding > 0
	l.frozen = true
	if len(l.items) < l.mult.Lo {
		l.underfilled = true
	}
	released := l.waiters
	l.waiters = nil
	return released, forced
}

// Underfilled reports whether the frozen list has fewer than Lo elements
// (§8 invariant 4 / scenario S6).
func (l *ListResultVariable) Underfilled() bool { return l.underfilled }
