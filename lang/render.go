package lang

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

// RenderTemplate renders the children of t in order.
//
// The result is a tree: a []any whose entries are strings, nested trees, or
// other values, or a [*Future] of such a slice when any entry is deferred.
// Entry order always matches document order. Use [Flatten] to join a tree.
//
// An error raised while evaluating a bloc is written into the output at that
// bloc's position and does not stop its siblings.
func RenderTemplate(t *Template, locals, context *Frame, parent *Object) (any, error) {
	return renderer{}.render(t, locals, context, parent)
}

func (r renderer) render(
	t *Template,
	locals, context *Frame,
	parent *Object,
) (any, error) {
	locals, err := r.defineLocals(t, locals, context)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(t.Children))

	for _, c := range t.Children {
		switch c := c.(type) {
		case Text:
			out = append(out, string(c))
		case *Bloc:
			out = append(out, r.renderBloc(c, locals, context, parent))
		}
	}

	return All(out), nil
}

// defineLocals returns a fresh frame holding the template-level locals of t.
// Definitions are resolved in source order, so each may refer to those
// before it.
func (r renderer) defineLocals(t *Template, locals, context *Frame) (*Frame, error) {
	if len(t.Locals) == 0 {
		return locals, nil
	}

	frame := locals.Child(nil)

	var defs []*Definition

	for _, name := range sortedKeys(t.Locals) {
		switch v := t.Locals[name].(type) {
		case *Definition:
			defs = append(defs, v)
		default:
			frame.Set(name, v)
		}
	}

	slices.SortStableFunc(defs, func(a, b *Definition) int {
		switch {
		case a.Location.Before(b.Location):
			return -1
		case b.Location.Before(a.Location):
			return 1
		}

		return 0
	})

	for _, def := range defs {
		v, err := r.define(def, frame, context)
		if err != nil {
			return nil, err
		}

		frame.Set(def.Name, v)
	}

	return frame, nil
}

// define evaluates an expression-valued definition or binds a
// contents-valued one.
func (r renderer) define(def *Definition, locals, context *Frame) (any, error) {
	if def.Contents != nil {
		return r.bind(def.Contents, locals), nil
	}

	return Eval(def.Expression, locals, context)
}

// renderBloc builds the bloc's object, then evaluates its expression.
func (r renderer) renderBloc(
	b *Bloc,
	locals, context *Frame,
	parent *Object,
) any {
	obj := NewObject()

	var up any
	if parent != nil {
		up = parent
	}

	context = context.Child(nil)
	locals = locals.Child(map[string]any{"this": obj, "bloc": up})

	if b.Contents != nil {
		obj.Set("contents", r.bind(b.Contents, locals))
	}

	for _, p := range b.Properties {
		v, err := r.define(p, locals, context)
		if err != nil {
			return r.inline(b, err)
		}

		obj.Set(p.Name, v)
	}

	v, err := Eval(b.Expression, locals, context)
	if err == nil {
		v, err = EvalHelper(v, context, obj)
	}

	if err != nil {
		return r.inline(b, err)
	}

	return v
}

// inline converts a bloc's evaluation error into output text.
func (r renderer) inline(b *Bloc, err error) string {
	r.logger.Debug(
		"bloc failed",
		slog.String("location", b.Location.String()),
		slog.Any("error", err),
	)

	return err.Error()
}

// Flatten waits for every deferred value in tree and joins its leaves.
// Null and missing leaves produce no output.
func Flatten(ctx context.Context, tree any) (string, error) {
	var sb strings.Builder

	if err := flatten(ctx, &sb, tree); err != nil {
		return "", err
	}

	return sb.String(), nil
}

func flatten(ctx context.Context, sb *strings.Builder, v any) error {
	if f, ok := v.(*Future); ok {
		r, err := f.Await(ctx)
		if err != nil {
			return err
		}

		v = r
	}

	switch x := v.(type) {
	case nil, missing:
	case string:
		sb.WriteString(x)
	case []any:
		for _, e := range x {
			if err := flatten(ctx, sb, e); err != nil {
				return err
			}
		}
	default:
		sb.WriteString(ToString(x))
	}

	return nil
}
