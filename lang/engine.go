package lang

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/ardnew/bloc/log"
)

// Engine parses, binds and renders templates against a base environment.
//
// The zero Engine is not usable; construct one with [New]. An Engine is
// safe for concurrent use.
type Engine struct {
	logger   log.Logger
	base     map[string]any
	builtins bool

	locals func() *Frame
}

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the logger used for trace and debug records.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBase adds entries to the base environment. Later entries replace
// earlier ones, including builtins.
func WithBase(vars map[string]any) Option {
	return func(e *Engine) { maps.Copy(e.base, vars) }
}

// WithoutBuiltins leaves the builtin helpers out of the base environment.
func WithoutBuiltins() Option {
	return func(e *Engine) { e.builtins = false }
}

// New returns an Engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{base: make(map[string]any), builtins: true}

	for _, opt := range opts {
		opt(e)
	}

	e.locals = sync.OnceValue(func() *Frame {
		vars := make(map[string]any, len(e.base))
		if e.builtins {
			maps.Copy(vars, Builtins())
		}

		maps.Copy(vars, e.base)

		return NewFrame(vars)
	})

	return e
}

// Locals returns the root locals frame shared by every template the engine
// binds. Callers must not modify it.
func (e *Engine) Locals() *Frame { return e.locals() }

// Parse parses template source through the parse cache.
func (e *Engine) Parse(ctx context.Context, source string) (*RootBloc, error) {
	return parseCached(ctx, e.logger, source)
}

// Bind binds a parsed template against the base environment.
func (e *Engine) Bind(root *RootBloc) *Bound {
	e.logger.Trace("bind template",
		slog.Int("children", len(root.Template.Children)),
		slog.Int("locals", len(root.Template.Locals)),
	)

	return renderer{logger: e.logger}.bind(root.Template, e.Locals())
}

// Define resolves the top-level definitions of root against context and
// returns a locals frame holding them, for evaluating expressions or
// rendering other templates as if they appeared inside root.
func (e *Engine) Define(root *RootBloc, context *Frame) (*Frame, error) {
	return renderer{logger: e.logger}.defineLocals(root.Template, e.Locals(), context)
}

// Eval parses and evaluates a single expression with data as its context,
// waiting for every deferred value within the result.
func (e *Engine) Eval(ctx context.Context, source string, data map[string]any) (any, error) {
	expr, err := ParseExpression(source)
	if err != nil {
		return nil, err
	}

	return e.EvalExpression(ctx, expr, e.Locals().Child(nil), NewContext(data))
}

// EvalExpression evaluates expr in the given scope chains, applying the
// helper convention to the result and waiting for deferred values.
func (e *Engine) EvalExpression(
	ctx context.Context,
	expr Expression,
	locals, context *Frame,
) (any, error) {
	bloc := NewObject()
	locals = locals.Child(map[string]any{"this": bloc, "bloc": nil})

	v, err := Eval(expr, locals, context)
	if err == nil {
		v, err = EvalHelper(v, context, bloc)
	}

	if err != nil {
		return nil, err
	}

	e.logger.TraceContext(ctx, "evaluated", valueAttr("result", v))

	return ResolveDeep(ctx, v)
}

// RenderAsync renders template source with data as its context. The
// returned Future settles with the output string, or with the first error
// raised outside of a bloc.
func (e *Engine) RenderAsync(ctx context.Context, source string, data map[string]any) *Future {
	return Go(func() (any, error) {
		root, err := e.Parse(ctx, source)
		if err != nil {
			return nil, err
		}

		return e.invoke(ctx, e.Bind(root).Call, data)
	})
}

// Render renders template source and waits for the result.
func (e *Engine) Render(ctx context.Context, source string, data map[string]any) (string, error) {
	return awaitString(ctx, e.RenderAsync(ctx, source, data))
}

// RenderReader renders template source read from r.
func (e *Engine) RenderReader(ctx context.Context, r io.Reader, data map[string]any) (string, error) {
	root, err := parseReader(ctx, e.logger, r)
	if err != nil {
		return "", err
	}

	return e.RenderFunc(ctx, e.Bind(root).Call, data)
}

// RenderFunc renders an already bound template.
func (e *Engine) RenderFunc(ctx context.Context, fn Func, data map[string]any) (string, error) {
	return awaitString(ctx, Go(func() (any, error) {
		return e.invoke(ctx, fn, data)
	}))
}

func (e *Engine) invoke(ctx context.Context, fn Func, data map[string]any) (any, error) {
	tree, err := Call(fn, NewContext(data), NewObject())
	if err != nil {
		return nil, ErrRender.Wrap(err)
	}

	e.logger.TraceContext(ctx, "render invoked", valueAttr("tree", tree))

	return Flatten(ctx, tree)
}

func awaitString(ctx context.Context, f *Future) (string, error) {
	v, err := f.Await(ctx)
	if err != nil {
		return "", err
	}

	s, _ := v.(string)

	return s, nil
}
