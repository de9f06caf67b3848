package repl

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/bloc/lang"
	"github.com/ardnew/bloc/log"
)

// Session is the evaluation state behind the interactive prompt: an engine,
// an optional prelude template whose definitions are in scope, the context
// data, and the bindings made with ":let".
type Session struct {
	engine *lang.Engine
	logger log.Logger

	mu       sync.RWMutex
	prelude  *lang.RootBloc
	context  *lang.Frame
	locals   *lang.Frame
	bindings *lang.Frame
	names    []string
}

// NewSession returns a session evaluating against data. When prelude is
// non-nil its top-level definitions are resolved and kept in scope.
func NewSession(
	engine *lang.Engine,
	logger log.Logger,
	prelude *lang.RootBloc,
	data map[string]any,
) (*Session, error) {
	s := &Session{
		engine:  engine,
		logger:  logger,
		context: lang.NewContext(data),
	}

	if err := s.define(prelude); err != nil {
		return nil, err
	}

	s.bindings = s.locals.Child(nil)

	return s, nil
}

// define resolves the definitions of prelude into a new locals frame.
func (s *Session) define(prelude *lang.RootBloc) error {
	locals := s.engine.Locals()

	if prelude != nil {
		var err error
		if locals, err = s.engine.Define(prelude, s.context); err != nil {
			return err
		}
	}

	s.prelude = prelude
	s.locals = locals

	return nil
}

// Prelude returns the source of the prelude template, or "" if none.
func (s *Session) Prelude() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.prelude == nil {
		return ""
	}

	return s.prelude.Source
}

// SetPrelude replaces the prelude template with source, keeping bindings.
func (s *Session) SetPrelude(ctx context.Context, source string) error {
	root, err := s.engine.Parse(ctx, source)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bound := s.bindingValues()

	if err := s.define(root); err != nil {
		return err
	}

	s.bindings = s.locals.Child(bound)

	s.logger.TraceContext(ctx, "repl prelude replaced",
		slog.Int("definitions", len(root.Template.Locals)),
	)

	return nil
}

// Eval evaluates one expression.
func (s *Session) Eval(ctx context.Context, src string) (any, error) {
	expr, err := lang.ParseExpression(src)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	locals, dynamic := s.bindings, s.context
	s.mu.RUnlock()

	return s.engine.EvalExpression(ctx, expr, locals, dynamic)
}

// Let evaluates the expression of a "name = expr" line and binds the result
// to name for later input.
func (s *Session) Let(ctx context.Context, line string) (string, any, error) {
	name, src, ok := strings.Cut(line, "=")
	name = strings.TrimSpace(name)

	if !ok || strings.TrimSpace(src) == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrBadBinding, line)
	}

	expr, err := lang.ParseExpression(name)
	if _, ident := expr.(*lang.Identifier); err != nil || !ident {
		return "", nil, fmt.Errorf("%w: %q is not an identifier", ErrBadBinding, name)
	}

	v, err := s.Eval(ctx, src)
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	s.bindings.Set(name, v)
	s.names = append(slices.DeleteFunc(s.names, func(n string) bool { return n == name }), name)
	s.mu.Unlock()

	return name, v, nil
}

// Render renders template source with the prelude definitions and the
// bindings in scope.
func (s *Session) Render(ctx context.Context, src string) (string, error) {
	root, err := s.engine.Parse(ctx, src)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	locals, dynamic := s.bindings, s.context
	s.mu.RUnlock()

	tree, err := lang.RenderTemplate(root.Template, locals, dynamic, lang.NewObject())
	if err != nil {
		return "", err
	}

	return lang.Flatten(ctx, tree)
}

// Names returns every identifier visible to an expression, sorted.
func (s *Session) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := append(s.bindings.Names(), s.context.Names()...)
	slices.Sort(names)

	return slices.Compact(names)
}

// Bindings returns the names bound with [Session.Let] in binding order.
func (s *Session) Bindings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.names)
}

// Definitions returns the top-level definitions of the prelude by name.
func (s *Session) Definitions() map[string]*lang.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make(map[string]*lang.Definition)

	if s.prelude == nil {
		return defs
	}

	for name, v := range s.prelude.Template.Locals {
		if d, ok := v.(*lang.Definition); ok {
			defs[name] = d
		}
	}

	return defs
}

// Resolve returns the value at a dotted path such as "user.name" without
// invoking helpers.
func (s *Session) Resolve(path string) (any, bool) {
	segments := strings.Split(path, ".")

	s.mu.RLock()
	v, ok := s.bindings.Lookup(segments[0])
	if !ok {
		v, ok = s.context.Lookup(segments[0])
	}
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	for _, seg := range segments[1:] {
		if v = lang.Member(v, seg); lang.IsMissing(v) {
			return nil, false
		}
	}

	return v, true
}

// Params returns the parameter names of the template found at path, when it
// names a parameterized definition or bound template.
func (s *Session) Params(path string) ([]string, bool) {
	if d, ok := s.Definitions()[path]; ok && d.Contents != nil && d.Contents.Params != nil {
		return d.Contents.Params.Names(), true
	}

	v, ok := s.Resolve(path)
	if !ok {
		return nil, false
	}

	if b, ok := v.(*lang.Bound); ok && b.Template.Params != nil {
		return b.Template.Params.Names(), true
	}

	return nil, false
}

func (s *Session) bindingValues() map[string]any {
	vals := make(map[string]any, len(s.names))

	for _, name := range s.names {
		if v, ok := s.bindings.Lookup(name); ok {
			vals[name] = v
		}
	}

	return vals
}

// members returns the member names of v, sorted for maps and in insertion
// order for objects.
func members(v any) []string {
	switch x := v.(type) {
	case *lang.Object:
		return x.Keys()
	case map[string]any:
		return slices.Sorted(maps.Keys(x))
	case *lang.Frame:
		return x.Names()
	}

	return nil
}
