package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
)

// ForLoop waits for its iterable to be Bound, then emits one copy of its
// body per element with a fresh local scope (§4.3 table). Body is a
// factory rather than a prebuilt statement list because each element's
// copy needs its own target RVs closed over a child ExecutionContext and
// the element value bound under LoopVar — emitted builds that once the
// iterable is known and memoizes the result so re-Execute does not emit
// twice.
type ForLoop struct {
	Iterable *runtime.ResultVariable
	LoopVar  string
	Body     func(ctx *ast.ExecutionContext, element *runtime.ResultVariable) []ast.Statement
	Loc      diagnostics.Location

	emitted []ast.Statement
	done    bool
}

func (f *ForLoop) Location() diagnostics.Location { return f.Loc }

// Execute returns Ready once the body has been emitted onto Runnable via
// Sink.Wake; the loader is responsible for having put this ForLoop itself
// on Runnable exactly once. Emitted statements are queued as woken so the
// scheduler's own draining picks them up like any other released waiter.
func (f *ForLoop) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	if f.done {
		return runtime.Ready
	}
	iterVal, err := f.Iterable.Get()
	if err != nil {
		return runtime.Blocked(f.Iterable)
	}
	items, ok := iterVal.List_()
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, f.Loc, "for-loop iterable is not a list"))
		f.done = true
		return runtime.Ready
	}

	for _, item := range items {
		child := ctx.Child()
		elemRV := child.Declare(f.LoopVar, nil)
		if _, err := elemRV.Set(item, f.Loc); err != nil {
			ctx.Sink.Diagnostics.Add(classify(err, f.Loc))
			continue
		}
		body := f.Body(child, elemRV)
		f.emitted = append(f.emitted, body...)
	}

	woken := make([]runtime.Waiter, len(f.emitted))
	for i, s := range f.emitted {
		woken[i] = s
	}
	ctx.Sink.Wake(woken)
	f.done = true
	return runtime.Ready
}
