// Package value defines wisp's runtime value model: the four-variant
// tagged union (None, Bool, Number, String) that the compiler's constant
// pool and the VM's stacks hold, plus the arithmetic, comparison and
// unary operations the dispatch loop applies to them.
package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// A Value is any of the four runtime variants: Nil, Bool, Number, or a
// *Str borrowed from an Interner. Unlike the teacher's extensible
// machine.Value interface (Callable, Indexable, Mapping, ...), wisp's
// value set is closed and fixed — there are no user-defined types.
type Value interface {
	String() string
	// TypeTag returns the fixed-length (9-byte) type tag string the
	// OP_GET_TYPE opcode pushes (original_source/value.c strValueType).
	TypeTag() string
}

// Nil is the None value.
type Nil struct{}

func (Nil) String() string  { return "None" }
func (Nil) TypeTag() string { return "NONE_TYPE" }

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (Bool) TypeTag() string { return "BOOL_TYPE" }

// Number is a double-precision float, wisp's only numeric type.
type Number float64

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}
func (Number) TypeTag() string { return "NMBR_TYPE" }

// Str is an interned string object. Two Strs with equal content are
// always the same pointer (see Interner), so OP_EQUAL on strings is a
// pointer comparison, matching original_source/vm.c's OP_EQUAL handling
// of OBJECT_STRING_TYPE.
type Str struct {
	s string
}

func (s *Str) String() string { return s.s }
func (*Str) TypeTag() string  { return "OSTR_TYPE" }
func (s *Str) Go() string     { return s.s }
func (s *Str) Len() int       { return len(s.s) }

var (
	// ErrTypeMismatch is wrapped by every operation that rejects its
	// operand types (spec.md §7 "type mismatch on an operation").
	ErrTypeMismatch = errors.New("type mismatch")
)

// Binary applies a binary arithmetic operator. op is one of
// "+", "-", "*", "/", "^", "%". For "+" this only covers the two-Number
// case; string concatenation needs an Interner to produce its *Str
// result, so the VM special-cases two *Str operands itself before
// falling back to Binary (see machine.execAdd).
func Binary(op string, a, b Value) (Value, error) {
	switch op {
	case "+":
		an, aok := a.(Number)
		bn, bok := b.(Number)
		if aok && bok {
			return an + bn, nil
		}
		return nil, fmt.Errorf("%w: '+' requires two Numbers or two Strings, got %s and %s", ErrTypeMismatch, a.TypeTag(), b.TypeTag())
	case "-", "*", "/", "^", "%":
		an, aok := a.(Number)
		bn, bok := b.(Number)
		if !aok || !bok {
			return nil, fmt.Errorf("%w: '%s' requires two Numbers, got %s and %s", ErrTypeMismatch, op, a.TypeTag(), b.TypeTag())
		}
		switch op {
		case "-":
			return an - bn, nil
		case "*":
			return an * bn, nil
		case "/":
			return an / bn, nil
		case "^":
			return exponent(an, bn), nil
		case "%":
			return Number(math.Remainder(float64(an), float64(bn))), nil
		}
	}
	return nil, fmt.Errorf("unknown binary operator %q", op)
}

// exponent implements spec.md §4.7's "repeated multiplication" rule,
// preserved verbatim from original_source/vm.c's OP_EXPONENT: the loop
// runs exp-1 times, so a non-negative integer exponent of 0 yields base
// itself, not 1 (see spec.md §9).
func exponent(base, exp Number) Number {
	result := base
	n := int(exp)
	for i := 0; i < n-1; i++ {
		result *= base
	}
	return result
}

// Equal implements OP_EQUAL: values of different dynamic type are never
// equal; Numbers and Bools compare by value; Strs compare by pointer
// identity (guaranteed equivalent to content equality by interning).
func Equal(a, b Value) Bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return Bool(ok)
	case Bool:
		bv, ok := b.(Bool)
		return Bool(ok && av == bv)
	case Number:
		bv, ok := b.(Number)
		return Bool(ok && av == bv)
	case *Str:
		bv, ok := b.(*Str)
		return Bool(ok && av == bv)
	default:
		return false
	}
}

// Compare implements OP_GREATER/OP_LESS: both operands must be Number.
func Compare(op string, a, b Value) (Bool, error) {
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return false, fmt.Errorf("%w: '%s' requires two Numbers, got %s and %s", ErrTypeMismatch, op, a.TypeTag(), b.TypeTag())
	}
	switch op {
	case ">":
		return Bool(an > bn), nil
	case "<":
		return Bool(an < bn), nil
	}
	return false, fmt.Errorf("unknown comparison operator %q", op)
}

// Not implements OP_NOT: the operand must be Bool.
func Not(a Value) (Value, error) {
	b, ok := a.(Bool)
	if !ok {
		return nil, fmt.Errorf("%w: '!' requires a Bool, got %s", ErrTypeMismatch, a.TypeTag())
	}
	return !b, nil
}

// Negate implements OP_NEGATE: Number negates arithmetically, Bool
// inverts, anything else fails.
func Negate(a Value) (Value, error) {
	switch v := a.(type) {
	case Number:
		return -v, nil
	case Bool:
		return !v, nil
	default:
		return nil, fmt.Errorf("%w: unary '-' requires a Number or Bool, got %s", ErrTypeMismatch, a.TypeTag())
	}
}

// Len implements OP_GET_LEN: the operand must be a String.
func Len(a Value) (Value, error) {
	s, ok := a.(*Str)
	if !ok {
		return nil, fmt.Errorf("%w: len() requires a String, got %s", ErrTypeMismatch, a.TypeTag())
	}
	return Number(s.Len()), nil
}

// Truthy reports whether v is a Bool and, if so, its value. The VM's
// jump opcodes require Bool operands (spec.md §4.7); there is no
// implicit truthiness coercion for other types.
func Truthy(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}
