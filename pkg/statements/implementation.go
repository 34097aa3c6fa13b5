package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
)

// ImplementationAttach decides whether one conditional implementation
// block attaches to Self (§4.3 table "If/Implementation", §3
// "implementations: conditional blocks"). It blocks until Predicate is
// Bound; a true result emits Body's statements into a child scope with
// Self already bound, a false result permanently drops the candidate —
// there is no "detach" once an implementation has been emitted, matching
// the write-once nature of every other side effect in this runtime.
type ImplementationAttach struct {
	Predicate *runtime.ResultVariable
	Self      *runtime.ResultVariable
	Body      func(ctx *ast.ExecutionContext, self *runtime.ResultVariable) []ast.Statement
	Loc       diagnostics.Location

	done bool
}

func (a *ImplementationAttach) Location() diagnostics.Location { return a.Loc }

func (a *ImplementationAttach) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	if a.done {
		return runtime.Ready
	}
	predVal, err := a.Predicate.Get()
	if err != nil {
		return runtime.Blocked(a.Predicate)
	}
	a.done = true

	attach, ok := predVal.Bool()
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, a.Loc, "implementation predicate is not a bool"))
		return runtime.Ready
	}
	if !attach {
		return runtime.Ready
	}

	child := ctx.Child()
	body := a.Body(child, a.Self)
	woken := make([]runtime.Waiter, len(body))
	for i, s := range body {
		woken[i] = s
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}
