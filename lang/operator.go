package lang

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Operator is the source symbol of a unary or binary operator.
type Operator string

const (
	OpAdd  Operator = "+"
	OpSub  Operator = "-"
	OpMul  Operator = "*"
	OpDiv  Operator = "/"
	OpMod  Operator = "%"
	OpLT   Operator = "<"
	OpGT   Operator = ">"
	OpLE   Operator = "<="
	OpGE   Operator = ">="
	OpEq   Operator = "=="
	OpNe   Operator = "!="
	OpAnd  Operator = "&&"
	OpOr   Operator = "||"
	OpPipe Operator = "|"
	OpNot  Operator = "!"
)

// binaryPrecedence ranks every binary operator; higher binds tighter.
var binaryPrecedence = map[Operator]int{
	OpPipe: 1,
	OpOr:   2,
	OpAnd:  3,
	OpEq:   4,
	OpNe:   4,
	OpLT:   5,
	OpGT:   5,
	OpLE:   5,
	OpGE:   5,
	OpAdd:  6,
	OpSub:  6,
	OpMul:  7,
	OpDiv:  7,
	OpMod:  7,
}

// unaryPrecedence binds tighter than any binary operator.
const unaryPrecedence = 8

type (
	unaryFunc  func(any) (any, error)
	binaryFunc func(a, b any) (any, error)
)

var unaryOps = map[Operator]unaryFunc{
	OpAdd: func(v any) (any, error) { return ToNumber(v), nil },
	OpSub: func(v any) (any, error) { return -ToNumber(v), nil },
	OpNot: func(v any) (any, error) { return !Truthy(v), nil },
}

// binaryOps holds the strict operators. The short-circuit operators and the
// pipe control their own evaluation order and are handled by the evaluator.
var binaryOps = map[Operator]binaryFunc{
	OpAdd: add,
	OpSub: arith(func(a, b float64) float64 { return a - b }),
	OpMul: arith(func(a, b float64) float64 { return a * b }),
	OpDiv: arith(func(a, b float64) float64 { return a / b }),
	OpMod: arith(math.Mod),
	OpLT:  compare(func(c int) bool { return c < 0 }),
	OpGT:  compare(func(c int) bool { return c > 0 }),
	OpLE:  compare(func(c int) bool { return c <= 0 }),
	OpGE:  compare(func(c int) bool { return c >= 0 }),
	OpEq:  func(a, b any) (any, error) { return LooseEqual(a, b), nil },
	OpNe:  func(a, b any) (any, error) { return !LooseEqual(a, b), nil },
}

func arith(fn func(a, b float64) float64) binaryFunc {
	return func(a, b any) (any, error) {
		return fn(ToNumber(a), ToNumber(b)), nil
	}
}

// add concatenates when either operand has a string form, and sums
// otherwise.
func add(a, b any) (any, error) {
	if stringish(a) || stringish(b) {
		return ToString(a) + ToString(b), nil
	}

	return ToNumber(a) + ToNumber(b), nil
}

// compare orders two strings lexically and anything else numerically. A
// comparison involving NaN is always false.
func compare(test func(int) bool) binaryFunc {
	return func(a, b any) (any, error) {
		as, aok := a.(string)
		bs, bok := b.(string)

		if aok && bok {
			return test(strings.Compare(as, bs)), nil
		}

		x, y := ToNumber(a), ToNumber(b)
		if math.IsNaN(x) || math.IsNaN(y) {
			return false, nil
		}

		switch {
		case x < y:
			return test(-1), nil
		case x > y:
			return test(1), nil
		}

		return test(0), nil
	}
}

func unknownOperator(loc Location, op Operator) error {
	return ErrUnknownOperator.
		Wrap(fmt.Errorf("%q at %s", op, loc)).
		With(slog.String("operator", string(op)))
}
