// Package values implements the tagged-union runtime value that flows
// through the evaluation engine: every Literal, Reference, attribute and
// plugin result is a values.Value.
package values

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindEntity
	KindUnknown
	KindRegex
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindEntity:
		return "entity"
	case KindUnknown:
		return "unknown"
	case KindRegex:
		return "regex"
	default:
		return "invalid"
	}
}

// InstanceRef identifies an EntityInstance without pkg/values depending on
// pkg/instance; instance.EntityInstance implements this interface.
type InstanceRef interface {
	// InstanceID returns a value stable for the instance's lifetime, used
	// as the identity for Value equality and for map/set keys.
	InstanceID() string
	EntityName() string
}

// Value is an immutable tagged union. The zero Value is Null.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	list   []Value
	entity InstanceRef
	re     *regexp.Regexp
}

// Null is the singleton null value.
var Null = Value{kind: KindNull}

// Unknown is the singleton sentinel meaning "decided at deploy time".
var Unknown = Value{kind: KindUnknown}

func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Regex(re *regexp.Regexp) Value { return Value{kind: KindRegex, re: re} }

func Entity(ref InstanceRef) Value { return Value{kind: KindEntity, entity: ref} }

// List builds a list value. The slice is copied so later mutation of the
// caller's slice cannot retroactively change a value that has already been
// bound into a ResultVariable.
func List(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsUnknown() bool { return v.kind == KindUnknown }

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

func (v Value) String_() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) List_() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

func (v Value) Entity_() (InstanceRef, bool) {
	if v.kind != KindEntity {
		return nil, false
	}
	return v.entity, true
}

func (v Value) Regex_() (*regexp.Regexp, bool) {
	if v.kind != KindRegex {
		return nil, false
	}
	return v.re, true
}

// Equal implements the structural-comparison-for-scalars,
// identity-for-instances rule from §4.1's tie-break note.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		// Numeric cross-kind equality (int 1 == float 1.0) is allowed: the
		// language treats Number as a single primitive type (§3).
		if (v.kind == KindInt || v.kind == KindFloat) && (other.kind == KindInt || other.kind == KindFloat) {
			a, _ := v.Float()
			b, _ := other.Float()
			return a == b
		}
		return false
	}
	switch v.kind {
	case KindNull, KindUnknown:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindEntity:
		return v.entity != nil && other.entity != nil && v.entity.InstanceID() == other.entity.InstanceID()
	case KindRegex:
		return v.re != nil && other.re != nil && v.re.String() == other.re.String()
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IdentityKey returns a string usable as a map key for set-semantics
// insertion into a ListResultVariable: identity-bearing values (entities)
// key on their instance ID, scalars key on their formatted value, so that
// "multiset otherwise" (§4.1) only applies to values with no stable key,
// which in this model is none — every Value here is hashable.
func (v Value) IdentityKey() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUnknown:
		return "unknown"
	case KindBool:
		return "b:" + strconv.FormatBool(v.b)
	case KindInt:
		return "i:" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		return "f:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return "s:" + v.s
	case KindEntity:
		return "e:" + v.entity.EntityName() + "#" + v.entity.InstanceID()
	case KindRegex:
		return "r:" + v.re.String()
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.IdentityKey()
		}
		return "l:[" + strings.Join(parts, ",") + "]"
	default:
		return "?"
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUnknown:
		return "<unknown>"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindEntity:
		return fmt.Sprintf("%s[%s]", v.entity.EntityName(), v.entity.InstanceID())
	case KindRegex:
		return "/" + v.re.String() + "/"
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}
