package lang

import (
	"log/slog"
)

// MaxHelperDepth bounds the number of calls one [EvalHelper] chain may make.
const MaxHelperDepth = 1 << 10

// EvalHelper applies the helper convention to v.
//
// A callable is called with (context, bloc) and its result is processed
// again; a [*Future] is continued once it settles. Any other value is
// returned unchanged. The unwrapping is a loop, so long chains of callables
// do not grow the stack.
func EvalHelper(v any, context *Frame, bloc *Object) (any, error) {
	for depth := 0; ; depth++ {
		if depth >= MaxHelperDepth {
			return nil, ErrHelperDepth.With(slog.Int("depth", depth))
		}

		if f, ok := v.(*Future); ok {
			return Then(f, func(r any) (any, error) {
				return EvalHelper(r, context, bloc)
			})
		}

		fn, ok := AsFunc(v)
		if !ok {
			return v, nil
		}

		r, err := Call(fn, context, bloc)
		if err != nil {
			return nil, err
		}

		v = r
	}
}

// HelperArgs extracts the (context, bloc) pair passed to a callable by the
// helper convention. Host data maps are accepted as a context.
func HelperArgs(args []any) (*Frame, *Object) {
	var (
		context *Frame
		bloc    *Object
	)

	if len(args) > 0 {
		switch c := args[0].(type) {
		case *Frame:
			context = c
		case map[string]any:
			context = NewContext(c)
		}
	}

	if len(args) > 1 {
		bloc, _ = args[1].(*Object)
	}

	return context, bloc
}
