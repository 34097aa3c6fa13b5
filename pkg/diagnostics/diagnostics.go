// Package diagnostics collects every error produced during a compile into
// a single report instead of aborting on the first one, per §7's
// propagation policy: local errors are collected, the scheduler continues;
// global errors are reported at shutdown and stop finalization.
package diagnostics

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Location pinpoints the source statement or definition an error came
// from. The parser/AST front end (out of scope here) is expected to stamp
// every ast.Node with one of these.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("<unknown>:%d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Kind is the structural error classification from §7. It is not a Go
// error type hierarchy on purpose: callers switch on Kind, not on the
// concrete Go type, which keeps the Diagnostic struct uniform enough to
// embed directly in *multierror.Error.
type Kind string

const (
	KindTypeNotFound         Kind = "TypeNotFound"
	KindNameNotFound         Kind = "NameNotFound"
	KindDuplicate            Kind = "Duplicate"
	KindTyping               Kind = "Typing"
	KindDoubleSet            Kind = "DoubleSet"
	KindMultiplicityUnderfill Kind = "MultiplicityUnderfill"
	KindIndexCollision       Kind = "IndexCollision"
	KindFixpointExhausted    Kind = "FixpointExhausted"
	KindPlugin               Kind = "Plugin"
	KindNotFound             Kind = "NotFound"
)

// global reports the Kinds that halt finalization (§7: "Local errors do
// not halt the scheduler; global errors do").
var global = map[Kind]bool{
	KindFixpointExhausted: true,
	KindDuplicate:         true, // cyclic inheritance is reported as Duplicate (§4.5 expansion)
}

// Diagnostic is a single compiler error with a fixed Location and Kind.
type Diagnostic struct {
	Kind     Kind
	Message  string
	Loc      Location
	Cause    error // for KindPlugin: the wrapped runtime exception
}

func (d *Diagnostic) Error() string {
	if d.Cause != nil {
		return fmt.Sprintf("[%s] %s (%s): %v", d.Kind, d.Message, d.Loc, d.Cause)
	}
	return fmt.Sprintf("[%s] %s (%s)", d.Kind, d.Message, d.Loc)
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

func (d *Diagnostic) IsGlobal() bool { return global[d.Kind] }

// New constructs a Diagnostic.
func New(kind Kind, loc Location, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a KindPlugin diagnostic around a runtime exception.
func Wrap(loc Location, cause error) *Diagnostic {
	return &Diagnostic{Kind: KindPlugin, Loc: loc, Message: "plugin invocation failed", Cause: cause}
}

// Diagnostics is the aggregate report for one compile. It is built on
// hashicorp/go-multierror because the propagation policy is exactly
// multierror's purpose: keep appending, format everything together, never
// lose an entry to an early return.
type Diagnostics struct {
	errs *multierror.Error
}

// NewDiagnostics creates an empty report.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{errs: &multierror.Error{
		ErrorFormat: formatDiagnostics,
	}}
}

// Add appends one diagnostic. Safe to call with a nil Diagnostics.
func (d *Diagnostics) Add(diag *Diagnostic) {
	if d == nil || diag == nil {
		return
	}
	d.errs = multierror.Append(d.errs, diag)
}

// Empty reports whether any diagnostic at all (local or global) was
// collected. §8 invariant 1 (determinism) requires Empty()==true and all
// queues drained to be the only definition of "success".
func (d *Diagnostics) Empty() bool {
	return d == nil || d.errs == nil || d.errs.Len() == 0
}

// Fatal reports whether any collected diagnostic is of a global Kind;
// compiler.Compile uses this to decide whether to call finalize at all.
func (d *Diagnostics) Fatal() bool {
	if d.Empty() {
		return false
	}
	for _, e := range d.errs.Errors {
		if diag, ok := e.(*Diagnostic); ok && diag.IsGlobal() {
			return true
		}
	}
	return false
}

// All returns the diagnostics in collection order.
func (d *Diagnostics) All() []*Diagnostic {
	if d == nil || d.errs == nil {
		return nil
	}
	out := make([]*Diagnostic, 0, len(d.errs.Errors))
	for _, e := range d.errs.Errors {
		if diag, ok := e.(*Diagnostic); ok {
			out = append(out, diag)
		}
	}
	return out
}

func (d *Diagnostics) Error() string {
	if d.Empty() {
		return ""
	}
	return d.errs.Error()
}

func formatDiagnostics(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	out := fmt.Sprintf("%d compile errors occurred:\n", len(errs))
	for _, e := range errs {
		out += fmt.Sprintf("\t* %s\n", e)
	}
	return out
}
