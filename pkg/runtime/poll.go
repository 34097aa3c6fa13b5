package runtime

// Poll is the result of one Statement.Execute call. It replaces the
// exception-carrying UnsetException of the original control flow (§9:
// "Deferred evaluation by raising -> explicit Poll<T> result type"): a
// statement that would have raised now simply returns Blocked, and the
// scheduler's catch becomes a type switch instead of a recover().
type Poll struct {
	ready   bool
	blocked Freezable // the RV/list-RV this statement is waiting on
}

// Ready reports a completed statement — its side effects (RV writes,
// instance construction, list inserts) have already happened.
var Ready = Poll{ready: true}

// Blocked reports that the statement could not make progress because on
// is not yet available; the caller must register the statement as a
// waiter on "on" and try again once it wakes.
func Blocked(on Freezable) Poll {
	return Poll{ready: false, blocked: on}
}

// Pending reports a statement that has already arranged its own wake-up
// with something other than a Freezable RV — the index store, for an
// IndexLookupRef that missed and registered itself directly with
// instance.Store (§4.2: "blocks on the index store, not on any single
// RV"). The scheduler drops it from Runnable without calling Await on
// anything; it reappears only via Sink.Wake.
func Pending() Poll { return Poll{ready: false, blocked: nil} }

func (p Poll) IsReady() bool { return p.ready }

// BlockedOn returns the RV to await; valid only when !IsReady().
func (p Poll) BlockedOn() Freezable { return p.blocked }

// Freezable is satisfied by both ResultVariable and ListResultVariable so
// a Poll (and the scheduler's WaitQueue/ZeroWaiters) can hold either
// without this package depending on pkg/scheduler.
type Freezable interface {
	HasWaiters() bool
	Await(w Waiter)
	Freeze() ([]Waiter, error)
}
