package lang

import (
	"fmt"
	"log/slog"

	"github.com/ardnew/bloc/log"
)

// Bind returns t bound to locals.
//
// Without parameters the bound template renders t when called with
// (context, parent). With parameters it is curried: its arguments are bound
// to the parameter names, and it returns the (context, parent) renderer.
// [ScopeLocal] arguments go in a child of locals, fixed now; [ScopeGlobal]
// arguments go in a child of the context given to the renderer.
func Bind(t *Template, locals *Frame) *Bound {
	return renderer{}.bind(t, locals)
}

// Bound is a callable template. [AsFunc] accepts it, so a Bound value
// takes part in the helper convention like any other callable.
type Bound struct {
	Template *Template
	fn       Func
}

// Call invokes the bound template directly.
func (b *Bound) Call(args ...any) (any, error) {
	return Call(b.fn, args...)
}

// Render renders the template. When the template declares parameters, args
// are bound to them first.
func (b *Bound) Render(context *Frame, parent *Object, args ...any) (any, error) {
	fn := b.fn

	if b.Template.Params != nil {
		r, err := Call(fn, args...)
		if err != nil {
			return nil, err
		}

		var ok bool
		if fn, ok = AsFunc(r); !ok {
			return nil, ErrNotCallable.Wrap(fmt.Errorf("%s", typeName(r)))
		}
	}

	return Call(fn, context, parent)
}

// renderer carries the settings shared by bind and render.
type renderer struct {
	logger log.Logger
}

func (r renderer) bind(t *Template, locals *Frame) *Bound {
	return &Bound{Template: t, fn: r.curry(t, locals)}
}

func (r renderer) curry(t *Template, locals *Frame) Func {
	if t.Params == nil {
		return r.renderWith(t, locals)
	}

	switch t.Params.Scope {
	case ScopeLocal:
		return func(args ...any) (any, error) {
			r.logger.Trace(
				"bind local params",
				slog.String("location", t.Location.String()),
				slog.Int("args", len(args)),
			)

			return r.renderWith(t, locals.Child(paramVars(t.Params, args))), nil
		}

	case ScopeGlobal:
		return func(args ...any) (any, error) {
			r.logger.Trace(
				"bind global params",
				slog.String("location", t.Location.String()),
				slog.Int("args", len(args)),
			)

			vars := paramVars(t.Params, args)

			return Func(func(inner ...any) (any, error) {
				context, parent := HelperArgs(inner)

				return r.render(t, locals, context.Child(vars), parent)
			}), nil
		}
	}

	panic(fmt.Sprintf("lang: unhandled parameter scope %v", t.Params.Scope))
}

// renderWith returns the (context, parent) renderer of t over locals.
func (r renderer) renderWith(t *Template, locals *Frame) Func {
	return func(args ...any) (any, error) {
		context, parent := HelperArgs(args)

		return r.render(t, locals, context, parent)
	}
}

// paramVars binds args to the declared parameter names. Absent arguments
// are [Missing] and surplus arguments are ignored.
func paramVars(p *ParamList, args []any) map[string]any {
	vars := make(map[string]any, len(p.Identifiers))

	for i, id := range p.Identifiers {
		if i < len(args) {
			vars[id.Text] = args[i]
		} else {
			vars[id.Text] = Missing
		}
	}

	return vars
}
