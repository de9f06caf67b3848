package lang

import (
	"fmt"
	"log/slog"
)

// Eval evaluates expr against the locals and context scope chains.
//
// The result may be a [*Future]. A returned error is synchronous; a Future
// result may still reject later.
func Eval(expr Expression, locals, context *Frame) (any, error) {
	return evaluator{locals: locals, context: context}.eval(expr)
}

// evaluator is the value-producing [Visitor].
type evaluator struct {
	locals  *Frame
	context *Frame
}

func (ev evaluator) eval(e Expression) (any, error) {
	return Visit[any](ev, e)
}

func (ev evaluator) evalAll(es []Expression) ([]any, error) {
	vs := make([]any, len(es))

	for i, e := range es {
		v, err := ev.eval(e)
		if err != nil {
			return nil, err
		}

		vs[i] = v
	}

	return vs, nil
}

// lookup resolves name against locals, then context.
func (ev evaluator) lookup(name string) any {
	if v, ok := ev.locals.Lookup(name); ok {
		return v
	}

	if v, ok := ev.context.Lookup(name); ok {
		return v
	}

	return Missing
}

// bloc returns the object of the innermost bloc being rendered.
func (ev evaluator) bloc() *Object {
	v, _ := ev.locals.Lookup("this")
	o, _ := v.(*Object)

	return o
}

func (evaluator) VisitUndefined(*Undefined) (any, error) { return Missing, nil }
func (evaluator) VisitNull(*Null) (any, error)           { return nil, nil }

func (evaluator) VisitBoolean(n *Boolean) (any, error) { return n.Value, nil }
func (evaluator) VisitNumber(n *Number) (any, error)   { return n.Value, nil }
func (evaluator) VisitString(n *String) (any, error)   { return n.Value, nil }

func (ev evaluator) VisitIdentifier(n *Identifier) (any, error) {
	return ev.lookup(n.Text), nil
}

func (ev evaluator) VisitProperty(n *Property) (any, error) {
	obj, err := ev.eval(n.Object)
	if err != nil {
		return nil, err
	}

	name := n.Property.Text

	return Then(obj, func(o any) (any, error) {
		return Member(o, name), nil
	})
}

func (ev evaluator) VisitIndex(n *Index) (any, error) {
	obj, err := ev.eval(n.Object)
	if err != nil {
		return nil, err
	}

	key, err := ev.eval(n.Index)
	if err != nil {
		return nil, err
	}

	return Then2(obj, key, func(o, k any) (any, error) {
		return Element(o, k), nil
	})
}

func (ev evaluator) VisitApplication(n *Application) (any, error) {
	fn, err := ev.eval(n.Fn)
	if err != nil {
		return nil, err
	}

	args, err := ev.evalAll(n.Args)
	if err != nil {
		return nil, err
	}

	return ThenAll(append([]any{fn}, args...), func(vs []any) (any, error) {
		f, ok := AsFunc(vs[0])
		if !ok {
			return nil, notCallable(n.Fn)
		}

		return Call(f, vs[1:]...)
	})
}

func (ev evaluator) VisitUnaryOperation(n *UnaryOperation) (any, error) {
	op, ok := unaryOps[n.Op]
	if !ok {
		return nil, unknownOperator(n.Location, n.Op)
	}

	right, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}

	return Then(right, op)
}

func (ev evaluator) VisitBinaryOperation(n *BinaryOperation) (any, error) {
	switch n.Op {
	case OpAnd:
		return ev.logical(n, false)
	case OpOr:
		return ev.logical(n, true)
	case OpPipe:
		return ev.pipe(n)
	}

	op, ok := binaryOps[n.Op]
	if !ok {
		return nil, unknownOperator(n.Location, n.Op)
	}

	left, err := ev.eval(n.Left)
	if err != nil {
		return nil, err
	}

	right, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}

	return Then2(left, right, op)
}

// logical evaluates && (stopOn false) and || (stopOn true). The left operand
// is returned as-is when its truthiness decides the result; otherwise the
// right operand is evaluated and returned.
func (ev evaluator) logical(n *BinaryOperation, stopOn bool) (any, error) {
	left, err := ev.eval(n.Left)
	if err != nil {
		return nil, err
	}

	return Then(left, func(l any) (any, error) {
		if Truthy(l) == stopOn {
			return l, nil
		}

		return ev.eval(n.Right)
	})
}

// pipe evaluates x | f. The right operand is evaluated first and must be
// callable; the left operand is then resolved through the helper convention
// and passed as the only argument.
func (ev evaluator) pipe(n *BinaryOperation) (any, error) {
	fn, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}

	return Then(fn, func(fv any) (any, error) {
		f, ok := AsFunc(fv)
		if !ok {
			return nil, notCallable(n.Right)
		}

		left, err := ev.eval(n.Left)
		if err != nil {
			return nil, err
		}

		arg, err := EvalHelper(left, ev.context, ev.bloc())
		if err != nil {
			return nil, err
		}

		return Then(arg, func(a any) (any, error) {
			return Call(f, a)
		})
	})
}

func (ev evaluator) VisitArrayConstruction(n *ArrayConstruction) (any, error) {
	return ev.evalAll(n.Values)
}

func (ev evaluator) VisitObjectConstruction(n *ObjectConstruction) (any, error) {
	obj := NewObject()

	for _, f := range n.Fields {
		v, err := ev.eval(f.Value)
		if err != nil {
			return nil, err
		}

		obj.Set(f.Key, v)
	}

	return obj, nil
}

func notCallable(e Expression) error {
	return ErrNotCallable.
		Wrap(fmt.Errorf("%s is not a function", Format(e))).
		With(slog.String("location", e.Loc().String()))
}
