// Package runtime implements the write-once result-variable machinery of
// §4.1: ResultVariable, ListResultVariable, and the Poll-based blocking
// contract from §9's design note ("Deferred evaluation by raising ->
// explicit Poll<T> result type"). Nothing in this package knows about the
// scheduler's queues or about concrete statement types — Set/Insert/Freeze
// return the waiters they released and the caller (pkg/statements /
// pkg/scheduler) decides what queue to put them on. That keeps this
// package import-cycle-free and independently testable.
package runtime

import (
	"fmt"

	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

// Waiter is a statement suspended on an RV. pkg/statements' Statement type
// satisfies this trivially (any value can be a Waiter); the only thing an
// RV does with one is hand it back to the caller on release.
type Waiter interface{}

// State is the write-once lifecycle of a single-valued ResultVariable.
type State int

const (
	StateOpen State = iota
	StateBound
	StateFrozen      // frozen empty
	StateBoundFrozen // bound, then frozen (terminal either way)
)

// ResultVariable is the single-valued RV from §4.1.
type ResultVariable struct {
	domain  types.Type
	state   State
	value   values.Value
	waiters []Waiter
	// progressPotential is set once a producer statement has been
	// scheduled against this RV but has not yet delivered a value; the
	// scheduler consults it only indirectly, through waiter presence, but
	// it is kept for parity with §3's described field and for diagnostics.
	progressPotential bool
}

// NewResultVariable creates an Open RV with the given validation domain.
// domain may be nil for contexts (tests, internal plumbing) that don't
// need type checking.
func NewResultVariable(domain types.Type) *ResultVariable {
	return &ResultVariable{domain: domain}
}

func (rv *ResultVariable) State() State { return rv.state }

func (rv *ResultVariable) MarkProducerScheduled() { rv.progressPotential = true }

// Set binds the RV to value. Idempotent if the RV already holds an equal
// value; fails with ErrDoubleSet if it holds a different one. Returns the
// waiters to release to Runnable.
func (rv *ResultVariable) Set(v values.Value, loc diagnostics.Location) ([]Waiter, error) {
	switch rv.state {
	case StateBound, StateBoundFrozen:
		if rv.value.Equal(v) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: existing=%s new=%s", ErrDoubleSet, rv.value, v)
	case StateFrozen:
		return nil, fmt.Errorf("%w: assignment to frozen variable", ErrDoubleSet)
	}

	if rv.domain != nil && !rv.domain.Validate(v) {
		return nil, fmt.Errorf("%w: value %s is not a %s", ErrTyping, v, rv.domain.Name())
	}

	rv.value = v
	rv.state = StateBound
	released := rv.waiters
	rv.waiters = nil
	return released, nil
}

// Get reads the bound value. Returns ErrUnset if Open (caller should
// Await and return runtime.Blocked); for a Frozen-empty required RV it
// returns ErrUnderfilledFreeze; Frozen optional RVs are read as Null by
// callers that know the attribute is nullable (the RV itself does not
// know nullability — that's the AttributeDef's job, so Get always
// reports Frozen-empty uniformly and pkg/statements decides).
func (rv *ResultVariable) Get() (values.Value, error) {
	switch rv.state {
	case StateBound, StateBoundFrozen:
		return rv.value, nil
	case StateFrozen:
		return values.Null, ErrUnderfilledFreeze
	default:
		return values.Value{}, ErrUnset
	}
}

// Await registers w as a waiter on this (still-open) RV.
func (rv *ResultVariable) Await(w Waiter) {
	rv.waiters = append(rv.waiters, w)
}

// HasWaiters reports whether any statement is blocked on this RV.
func (rv *ResultVariable) HasWaiters() bool { return len(rv.waiters) > 0 }

// Freeze closes the RV. Called either by the scheduler on a stalled Open
// RV (§4.4 step 2 — becomes Frozen-empty) or by instance finalize (§4.2)
// on every attribute RV regardless of state (an already-Bound RV becomes
// BoundFrozen, permanently read-only). Freezing an already-frozen RV
// leaves the state untouched but still drains and returns any waiters
// that accumulated since — a statement can legitimately Await an
// already-frozen RV (e.g. reading a frozen-empty required attribute via
// Get's ErrUnderfilledFreeze) and must still be woken. Returns the
// waiters to wake — they will re-execute and observe the new frozen
// state.
func (rv *ResultVariable) Freeze() ([]Waiter, error) {
	switch rv.state {
	case StateFrozen, StateBoundFrozen:
		released := rv.waiters
		rv.waiters = nil
		return released, nil
	case StateBound:
		rv.state = StateBoundFrozen
	default:
		rv.state = StateFrozen
	}
	released := rv.waiters
	rv.waiters = nil
	return released, nil
}
