package statements

import (
	"errors"

	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
)

// classify turns a ResultVariable/ListResultVariable Set/Insert error into
// the matching diagnostics.Kind from §7, so every statement reports the
// same structural classification instead of each inventing its own
// message format.
func classify(err error, loc diagnostics.Location) *diagnostics.Diagnostic {
	switch {
	case errors.Is(err, runtime.ErrTyping):
		return diagnostics.New(diagnostics.KindTyping, loc, "%v", err)
	case errors.Is(err, runtime.ErrDoubleSet):
		return diagnostics.New(diagnostics.KindDoubleSet, loc, "%v", err)
	case errors.Is(err, runtime.ErrUnderfilledFreeze):
		return diagnostics.New(diagnostics.KindMultiplicityUnderfill, loc, "%v", err)
	default:
		return diagnostics.New(diagnostics.KindDoubleSet, loc, "%v", err)
	}
}
