// Package scheduler implements the three-queue cooperative fixpoint engine
// of §4.4: a single logical executor drains Runnable to exhaustion, then
// freezes the oldest stalled RV it can find, repeating until every queue is
// empty (success) or a maximum-iteration cap trips (FixpointExhausted).
//
// The statement/queue relationship deliberately differs from SPEC_FULL.md's
// literal `Statement.Execute(ctx, q *scheduler.Queue)` signature: giving
// every statement a handle to the scheduler's queue would make pkg/ast
// import pkg/scheduler, which must import pkg/ast for the Statement type
// itself — an import cycle. Instead a Statement only ever touches its own
// ExecutionContext and the shared Sink; the scheduler alone owns Queue and
// decides, from a statement's returned Poll, which queue it lands in next.
// This keeps the same single-threaded, Poll-based contract described in
// §9's design note while staying acyclic.
package scheduler

import (
	"context"

	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/telemetry"
)

// Config bounds one scheduler run. MaxIterations guards against a bug in
// producer counting turning a stalled compile into an infinite loop (§4.4:
// "the iteration cap is a guard against bugs... not a correctness
// requirement").
type Config struct {
	MaxIterations int
}

// DefaultConfig returns the cap used when no override is configured.
func DefaultConfig() Config {
	return Config{MaxIterations: 10000}
}

// Queue holds the three work sets from §4.4: statements ready to run now
// (Runnable), RVs that already had a waiter when a statement blocked on
// them (WaitQueue), and RVs that gained their first waiter from that block
// (ZeroWaiters). Both RV queues hold any Freezable, covering both
// *runtime.ResultVariable and *runtime.ListResultVariable (§9); see track.
type Queue struct {
	Runnable    []ast.Statement
	WaitQueue   []runtime.Freezable
	ZeroWaiters []runtime.Freezable
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue places statements on Runnable, in order. Phase B of the loader
// calls this once per top-level block to seed the run.
func (q *Queue) Enqueue(stmts ...ast.Statement) {
	q.Runnable = append(q.Runnable, stmts...)
}

// track places a Freezable on WaitQueue if it had waiters before this
// statement's own Await call registered it (hadWaiters), or on
// ZeroWaiters otherwise, per §4.4 step 3/4's distinction between an RV
// that already had a waiter and one newly discovered to have gained its
// first. Callers must sample HasWaiters() *before* calling Await, since
// afterwards it is trivially always true; see drainRunnable's call site.
// It is idempotent in practice because a Statement only calls Await once
// per Blocked return and the scheduler only tracks a Freezable the first
// time it sees it as a block target in a given tick; duplicate tracking of
// the same RV across multiple statements blocked on it is expected and
// harmless since step 2/3 below freeze-and-wake rather than dedup.
func (q *Queue) track(f runtime.Freezable, hadWaiters bool) {
	if hadWaiters {
		q.WaitQueue = append(q.WaitQueue, f)
	} else {
		q.ZeroWaiters = append(q.ZeroWaiters, f)
	}
}

// Empty reports whether every queue has drained — the success condition
// of §8 invariant 1, alongside an empty diagnostics report.
func (q *Queue) Empty() bool {
	return len(q.Runnable) == 0 && len(q.WaitQueue) == 0 && len(q.ZeroWaiters) == 0
}

// Run drives one ExecutionContext's statements through the fixpoint loop
// of §4.4 steps 1-4. Step 5 (instance finalize) is the caller's
// responsibility (pkg/compiler), since one Run call corresponds to one
// top-level block and finalize must happen once, after every block's
// queue has drained. Statements report their own local diagnostics to
// ectx.Sink; the report Run returns holds what Run raises itself: the
// underfill and index-collision diagnostics from freezing and reconciling,
// and FixpointExhausted, as a global diagnostic, if the cap trips.
//
// Every store in ectx.Sink.World is reconciled once per tick, as part of
// step 1 (instance.Store.Reconcile's own doc comment: "called once per
// scheduler tick") — this is what lets an IndexLookupRef blocked on a key
// that only became fully bound after Construct ran (rather than at
// construct time) get claimed without a dedicated RV to wait on.
func Run(ctx context.Context, ectx *ast.ExecutionContext, q *Queue, cfg Config, tel *telemetry.Telemetry, module string) *diagnostics.Diagnostics {
	diags := diagnostics.NewDiagnostics()

	_, end := startFixpointSpan(ctx, tel, module)
	defer end()

	iterations := 0
	for {
		// Step 1.
		q.drainRunnable(ectx, diags, tel)
		q.reconcileStores(ectx, diags)
		reportQueueDepth(tel, q)
		if len(q.Runnable) > 0 {
			// Reconcile released waiters; drain them before any freeze.
			continue
		}
		if q.Empty() {
			return diags
		}

		// Step 2: freeze the oldest WaitQueue entry that already has a
		// waiter. If that produced new Runnable work, loop back to step 1
		// without touching ZeroWaiters at all.
		if q.freezeFirstWithWaiters(diags) {
			recordFreeze(tel, "wait_queue")
			iterations++
			recordIteration(tel, module)
			if iterations > cfg.MaxIterations {
				return exhausted(diags, tel, module, iterations)
			}
			continue
		}

		// Step 3: no WaitQueue entry has waiters yet. Migrate any
		// ZeroWaiters entry that has accumulated one, then retry the
		// step-2 freeze.
		if q.migrateZeroWaiters() && q.freezeFirstWithWaiters(diags) {
			recordFreeze(tel, "wait_queue")
			iterations++
			recordIteration(tel, module)
			if iterations > cfg.MaxIterations {
				return exhausted(diags, tel, module, iterations)
			}
			continue
		}

		// Step 4: still no progress. Freeze every remaining ZeroWaiters
		// entry that is actually eligible (breaks RV-only-wait-on-each-
		// other cycles, §5) — a list RV with a producer still
		// outstanding is left for a later pass instead. If nothing was
		// eligible either, the fixpoint is as settled as it will get.
		if !q.freezeAllZeroWaiters(diags) {
			return diags
		}
		recordFreeze(tel, "terminating")

		iterations++
		recordIteration(tel, module)
		if iterations > cfg.MaxIterations {
			return exhausted(diags, tel, module, iterations)
		}
	}
}

func exhausted(diags *diagnostics.Diagnostics, tel *telemetry.Telemetry, module string, iterations int) *diagnostics.Diagnostics {
	diags.Add(diagnostics.New(diagnostics.KindFixpointExhausted, diagnostics.Location{},
		"scheduler did not converge within %d iterations", iterations))
	if tel != nil && tel.Events != nil {
		_ = tel.Events.PublishFixpointExhausted(module, iterations)
	}
	return diags
}

// drainRunnable executes every statement currently on Runnable, in order,
// to exhaustion (§4.4 step 1). A Ready statement may enqueue further
// statements via Sink.Wake (e.g. a for-loop emitting its next iteration,
// or a freshly-attached implementation body); those are drained in the
// same pass, matching "drain Runnable to exhaustion" rather than one
// statement per outer loop iteration. Returns whether any statement
// actually completed (made progress) this pass.
func (q *Queue) drainRunnable(ectx *ast.ExecutionContext, diags *diagnostics.Diagnostics, tel *telemetry.Telemetry) bool {
	progressed := false
	for len(q.Runnable) > 0 {
		stmt := q.Runnable[0]
		q.Runnable = q.Runnable[1:]

		poll := stmt.Execute(ectx)
		if poll.IsReady() {
			progressed = true
		} else if blocked := poll.BlockedOn(); blocked != nil {
			hadWaiters := blocked.HasWaiters()
			blocked.Await(stmt)
			q.track(blocked, hadWaiters)
		}
		// A Pending() result means the statement arranged its own
		// wake-up (e.g. instance.Store's waiting map for an
		// IndexLookupRef) and needs no tracking here.

		q.Runnable = append(q.Runnable, ectx.Sink.DrainWoken()...)
	}
	return progressed
}

// reconcileStores calls Reconcile on every store reachable from ectx,
// folding its diagnostics into diags and requeuing whatever waiters it
// released (e.g. an IndexLookupRef waiting on a key that just became
// fully bound).
func (q *Queue) reconcileStores(ectx *ast.ExecutionContext, diags *diagnostics.Diagnostics) {
	for _, store := range ectx.Sink.World.Stores() {
		released, storeDiags := store.Reconcile()
		for _, d := range storeDiags.All() {
			diags.Add(d)
		}
		for _, w := range released {
			if stmt, ok := w.(ast.Statement); ok {
				q.Runnable = append(q.Runnable, stmt)
			}
		}
	}
}

// freezeFirstWithWaiters scans WaitQueue front-to-back and freezes the
// first entry with at least one waiter (§4.4 step 2: "the first (oldest)
// eligible RV"). Freezing wakes its waiters into Runnable.
//
// A list RV with a producer still registered (Outstanding() > 0) is
// skipped rather than frozen: its producer is still expected to insert
// (it is only blocked elsewhere, e.g. on its own value expression), and
// freezing now would both report a spurious underfill and permanently
// drop it from every queue with no way back in. It is left in place so a
// later pass — after the producer's own blocker resolves and it inserts
// — finds Outstanding() == 0 and can freeze it for real.
func (q *Queue) freezeFirstWithWaiters(diags *diagnostics.Diagnostics) bool {
	for i, f := range q.WaitQueue {
		if !f.HasWaiters() || hasOutstandingProducer(f) {
			continue
		}
		q.WaitQueue = append(q.WaitQueue[:i:i], q.WaitQueue[i+1:]...)
		freezeAndWake(q, f, diags)
		return true
	}
	return false
}

// hasOutstandingProducer reports whether f is a list RV with a producer
// registered but not yet complete (§4.1 Complete: "no more producers
// outstanding"). Only ListResultVariable has this concept; a plain
// ResultVariable is always eligible once it has a waiter.
func hasOutstandingProducer(f runtime.Freezable) bool {
	lv, ok := f.(*runtime.ListResultVariable)
	return ok && lv.Outstanding() > 0
}

// migrateZeroWaiters moves every ZeroWaiters entry that has since
// accumulated at least one waiter into WaitQueue, in insertion order
// (§4.4 step 3, §5's FIFO-migration determinism note).
func (q *Queue) migrateZeroWaiters() bool {
	migrated := false
	remaining := q.ZeroWaiters[:0]
	for _, f := range q.ZeroWaiters {
		if f.HasWaiters() {
			q.WaitQueue = append(q.WaitQueue, f)
			migrated = true
		} else {
			remaining = append(remaining, f)
		}
	}
	q.ZeroWaiters = remaining
	return migrated
}

// freezeAllZeroWaiters freezes every remaining ZeroWaiters entry (§4.4
// step 4, the terminating pass): this is what lets two RVs that only wait
// on each other with no producer progress resolve rather than loop
// forever (§5 "Cycles between RVs"). As in freezeFirstWithWaiters, a list
// RV with a producer still outstanding is left in ZeroWaiters instead of
// being forced through — it is not yet a genuine cycle, just a producer
// waiting on progress this same pass may still deliver elsewhere. Reports
// whether anything was actually frozen, so the caller can tell a true
// stall (nothing left that's safe to freeze) from real progress.
func (q *Queue) freezeAllZeroWaiters(diags *diagnostics.Diagnostics) bool {
	if len(q.ZeroWaiters) == 0 {
		return false
	}
	pending := q.ZeroWaiters
	remaining := pending[:0]
	progressed := false
	for _, f := range pending {
		if hasOutstandingProducer(f) {
			remaining = append(remaining, f)
			continue
		}
		freezeAndWake(q, f, diags)
		progressed = true
	}
	q.ZeroWaiters = remaining
	return progressed
}

// freezeAndWake freezes f and requeues whatever it releases. Underfill is
// not reported as an error by either Freezable implementation — Freeze
// succeeds so the fixpoint can still terminate, and ListResultVariable
// instead exposes it via Underfilled() — so that case is checked here
// rather than via the err return (§8 invariant 4). Both callers already
// guard with hasOutstandingProducer before reaching here, so f.Freeze()
// is not expected to error in practice; the check is kept as a backstop
// rather than assumed away.
func freezeAndWake(q *Queue, f runtime.Freezable, diags *diagnostics.Diagnostics) {
	woken, err := f.Freeze()
	if err != nil {
		diags.Add(diagnostics.New(diagnostics.KindMultiplicityUnderfill, diagnostics.Location{}, "%v", err))
	}
	if lv, ok := f.(*runtime.ListResultVariable); ok && lv.Underfilled() {
		diags.Add(diagnostics.New(diagnostics.KindMultiplicityUnderfill, diagnostics.Location{},
			"list result variable frozen with %d elements, below minimum %d", lv.Size(), lv.Multiplicity().Lo))
	}
	for _, w := range woken {
		if stmt, ok := w.(ast.Statement); ok {
			q.Runnable = append(q.Runnable, stmt)
		}
	}
}

func startFixpointSpan(ctx context.Context, tel *telemetry.Telemetry, module string) (context.Context, func()) {
	if tel == nil || tel.Tracer == nil {
		return ctx, func() {}
	}
	spanCtx, span := tel.Tracer.StartFixpointSpan(ctx, module)
	return spanCtx, func() { span.End() }
}

func recordIteration(tel *telemetry.Telemetry, module string) {
	if tel != nil && tel.Metrics != nil {
		tel.Metrics.RecordIteration(module)
	}
}

func recordFreeze(tel *telemetry.Telemetry, source string) {
	if tel != nil && tel.Metrics != nil {
		tel.Metrics.RecordFreeze(source)
	}
}

func reportQueueDepth(tel *telemetry.Telemetry, q *Queue) {
	if tel == nil || tel.Metrics == nil {
		return
	}
	tel.Metrics.SetQueueDepth("runnable", len(q.Runnable))
	tel.Metrics.SetQueueDepth("wait_queue", len(q.WaitQueue))
	tel.Metrics.SetQueueDepth("zero_waiters", len(q.ZeroWaiters))
}
