package statements

import (
	"fmt"

	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/values"
)

// opFunc implements one operator's semantics once every argument is a
// known values.Value. Re-expressed from original_source's
// Operator/BinaryOperator/UnaryOperator metaclass hierarchy (each operator
// its own class registered into a class-level dict) as a static table,
// per the redesign note: a metaclass registry has no equivalent in Go,
// and a plain map literal is both simpler and fully static (§9).
type opFunc func(args []values.Value) (values.Value, error)

var operatorTable = map[string]opFunc{
	"not": opNot,
	"==":  opEquals,
	"!=":  opNotEqual,
	"<":   opLessThan,
	">":   opGreaterThan,
	"<=":  opLessThanOrEqual,
	">=":  opGreaterThanOrEqual,
	"and": opAnd,
	"or":  opOr,
	"in":  opIn,
}

func opNot(args []values.Value) (values.Value, error) {
	b, ok := args[0].Bool()
	if !ok {
		return values.Null, fmt.Errorf("'not' requires a bool operand")
	}
	return values.Bool(!b), nil
}

func opEquals(args []values.Value) (values.Value, error) {
	return values.Bool(args[0].Equal(args[1])), nil
}

func opNotEqual(args []values.Value) (values.Value, error) {
	return values.Bool(!args[0].Equal(args[1])), nil
}

func numericPair(args []values.Value) (float64, float64, bool) {
	a, ok1 := args[0].Float()
	b, ok2 := args[1].Float()
	return a, b, ok1 && ok2
}

func opLessThan(args []values.Value) (values.Value, error) {
	a, b, ok := numericPair(args)
	if !ok {
		return values.Null, fmt.Errorf("'<' can only compare numbers")
	}
	return values.Bool(a < b), nil
}

func opGreaterThan(args []values.Value) (values.Value, error) {
	a, b, ok := numericPair(args)
	if !ok {
		return values.Null, fmt.Errorf("'>' can only compare numbers")
	}
	return values.Bool(a > b), nil
}

func opLessThanOrEqual(args []values.Value) (values.Value, error) {
	a, b, ok := numericPair(args)
	if !ok {
		return values.Null, fmt.Errorf("'<=' can only compare numbers")
	}
	return values.Bool(a <= b), nil
}

func opGreaterThanOrEqual(args []values.Value) (values.Value, error) {
	a, b, ok := numericPair(args)
	if !ok {
		return values.Null, fmt.Errorf("'>=' can only compare numbers")
	}
	return values.Bool(a >= b), nil
}

func opAnd(args []values.Value) (values.Value, error) {
	a, ok1 := args[0].Bool()
	b, ok2 := args[1].Bool()
	if !ok1 || !ok2 {
		return values.Null, fmt.Errorf("'and' requires two bool operands")
	}
	return values.Bool(a && b), nil
}

func opOr(args []values.Value) (values.Value, error) {
	a, ok1 := args[0].Bool()
	b, ok2 := args[1].Bool()
	if !ok1 || !ok2 {
		return values.Null, fmt.Errorf("'or' requires two bool operands")
	}
	return values.Bool(a || b), nil
}

func opIn(args []values.Value) (values.Value, error) {
	list, ok := args[1].List_()
	if !ok {
		return values.Null, fmt.Errorf("right operand of 'in' must be a list")
	}
	for _, item := range list {
		if item.Equal(args[0]) {
			return values.Bool(true), nil
		}
	}
	return values.Bool(false), nil
}

// RegexMatch is the one operator original_source special-cases at parse
// time (the pattern is compiled once into a Literal, §expression.py
// Regex.__init__) rather than dispatched through the generic table: its
// second operand is always a values.Value already carrying a
// *regexp.Regexp, not a runtime-evaluated expression.
type RegexMatch struct {
	Subject *runtime.ResultVariable
	Pattern *runtime.ResultVariable
	Target  *runtime.ResultVariable
	Loc     diagnostics.Location
}

func (r *RegexMatch) Location() diagnostics.Location { return r.Loc }

func (r *RegexMatch) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	subject, err := r.Subject.Get()
	if err != nil {
		return runtime.Blocked(r.Subject)
	}
	pattern, err := r.Pattern.Get()
	if err != nil {
		return runtime.Blocked(r.Pattern)
	}
	s, ok := subject.String_()
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, r.Loc, "regex match requires a string subject"))
		return runtime.Ready
	}
	re, ok := pattern.Regex_()
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, r.Loc, "regex match requires a compiled pattern"))
		return runtime.Ready
	}
	woken, err := r.Target.Set(values.Bool(re.MatchString(s)), r.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, r.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}

// Operator evaluates one table entry once every argument RV is Bound
// (§4.3 table "operator"). Built via NewOperator rather than a struct
// literal so an unknown op symbol is caught at construction instead of
// silently becoming a runtime diagnostic on first Execute.
type Operator struct {
	Op     string
	Args   []*runtime.ResultVariable
	Target *runtime.ResultVariable
	Loc    diagnostics.Location

	fn opFunc
}

func NewOperator(op string, args []*runtime.ResultVariable, target *runtime.ResultVariable, loc diagnostics.Location) (*Operator, error) {
	fn, ok := operatorTable[op]
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	return &Operator{Op: op, Args: args, Target: target, Loc: loc, fn: fn}, nil
}

func (o *Operator) Location() diagnostics.Location { return o.Loc }

func (o *Operator) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	argVals := make([]values.Value, len(o.Args))
	for i, rv := range o.Args {
		v, err := rv.Get()
		if err != nil {
			return runtime.Blocked(rv)
		}
		argVals[i] = v
	}
	result, err := o.fn(argVals)
	if err != nil {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, o.Loc, "%v", err))
		return runtime.Ready
	}
	woken, err := o.Target.Set(result, o.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, o.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}
