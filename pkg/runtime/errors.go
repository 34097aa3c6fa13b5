package runtime

import "errors"

// Sentinel errors returned by ResultVariable/ListResultVariable. Callers
// in pkg/statements classify them with errors.Is and wrap the result in a
// diagnostics.Diagnostic carrying the statement's Location.
var (
	ErrUnset             = errors.New("result variable is unset")
	ErrDoubleSet         = errors.New("result variable double-set")
	ErrTyping            = errors.New("value failed type validation")
	ErrUnderfilledFreeze = errors.New("required value frozen without being set")
	ErrMultiplicityUnder = errors.New("list result variable frozen below its minimum multiplicity")
)
