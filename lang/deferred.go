package lang

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Future is a value that becomes available later.
//
// A Future settles exactly once, either with a value or with an error.
// Settling with another Future adopts that Future's outcome.
//
// Continuations attached with [Then] and [ThenAll] are stored on the Future
// and started when it settles, so a Future that never settles holds no
// goroutines.
type Future struct {
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	settled bool
	waiters []func(any, error)
	value   any
	err     error
}

// NewFuture returns a pending Future and the function that settles it.
// Calls after the first are ignored.
func NewFuture() (*Future, func(any, error)) {
	f := &Future{done: make(chan struct{})}

	return f, f.settle
}

// Resolve returns a Future already settled with v.
func Resolve(v any) *Future {
	f, settle := NewFuture()
	settle(v, nil)

	return f
}

// Reject returns a Future already settled with err.
func Reject(err error) *Future {
	f, settle := NewFuture()
	settle(nil, err)

	return f
}

// Go runs fn on a new goroutine and returns a Future for its result.
// A panic in fn rejects the Future with [ErrHostPanic].
func Go(fn func() (any, error)) *Future {
	f, settle := NewFuture()

	go func() { settle(protect(fn)) }()

	return f
}

// protect calls fn, converting a panic into [ErrHostPanic].
func protect(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, ErrHostPanic.Wrap(fmt.Errorf("%v", r))
		}
	}()

	return fn()
}

func (f *Future) settle(v any, err error) {
	f.once.Do(func() {
		if g, ok := v.(*Future); ok && err == nil && g != f {
			g.whenSettled(f.finish)

			return
		}

		f.finish(v, err)
	})
}

func (f *Future) finish(v any, err error) {
	f.mu.Lock()
	f.value, f.err = v, err
	f.settled = true
	waiters := f.waiters
	f.waiters = nil
	close(f.done)
	f.mu.Unlock()

	for _, w := range waiters {
		go w(v, err)
	}
}

// whenSettled runs fn on a new goroutine with f's outcome once f settles.
func (f *Future) whenSettled(fn func(any, error)) {
	f.mu.Lock()

	if !f.settled {
		f.waiters = append(f.waiters, fn)
		f.mu.Unlock()

		return
	}

	v, err := f.value, f.err
	f.mu.Unlock()

	go fn(v, err)
}

// Done returns a channel closed once f settles.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until f settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// IsDeferred reports whether v is a [*Future].
func IsDeferred(v any) bool {
	_, ok := v.(*Future)

	return ok
}

// Then applies fn to v once v is concrete.
//
// If v is not a Future, fn runs immediately and its result is returned
// directly, including any error. Otherwise the result is a Future settled
// with fn's outcome, and a rejected v skips fn.
func Then(v any, fn func(any) (any, error)) (any, error) {
	f, ok := v.(*Future)
	if !ok {
		return fn(v)
	}

	out, settle := NewFuture()

	f.whenSettled(func(r any, err error) {
		if err != nil {
			settle(nil, err)

			return
		}

		settle(protect(func() (any, error) { return fn(r) }))
	})

	return out, nil
}

// Then2 applies fn to a and b once both are concrete.
func Then2(a, b any, fn func(a, b any) (any, error)) (any, error) {
	return Then(a, func(x any) (any, error) {
		return Then(b, func(y any) (any, error) {
			return fn(x, y)
		})
	})
}

// ThenAll applies fn to vs once every element is concrete. The slice passed
// to fn holds the settled values in their original positions. If any
// element is rejected, the result is rejected with the error of the first
// rejected element by position.
func ThenAll(vs []any, fn func([]any) (any, error)) (any, error) {
	pending := 0

	for _, v := range vs {
		if IsDeferred(v) {
			pending++
		}
	}

	if pending == 0 {
		return fn(vs)
	}

	var (
		mu   sync.Mutex
		out  = slices.Clone(vs)
		errs = make([]error, len(vs))
	)

	result, settle := NewFuture()

	for i, v := range vs {
		f, ok := v.(*Future)
		if !ok {
			continue
		}

		f.whenSettled(func(r any, err error) {
			mu.Lock()
			out[i], errs[i] = r, err
			pending--
			last := pending == 0
			mu.Unlock()

			if !last {
				return
			}

			for _, err := range errs {
				if err != nil {
					settle(nil, err)

					return
				}
			}

			settle(protect(func() (any, error) { return fn(out) }))
		})
	}

	return result, nil
}

// All resolves the top-level entries of vs, preserving their order. The
// result is vs itself when nothing is deferred, and a Future of the resolved
// slice otherwise.
func All(vs []any) any {
	r, _ := ThenAll(vs, func(out []any) (any, error) { return out, nil })

	return r
}

// ResolveDeep waits for v and every deferred value nested in arrays and objects
// within it, returning a fully concrete copy.
func ResolveDeep(ctx context.Context, v any) (any, error) {
	if f, ok := v.(*Future); ok {
		r, err := f.Await(ctx)
		if err != nil {
			return nil, err
		}

		return ResolveDeep(ctx, r)
	}

	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))

		for i, e := range x {
			r, err := ResolveDeep(ctx, e)
			if err != nil {
				return nil, err
			}

			out[i] = r
		}

		return out, nil

	case *Object:
		out := NewObject()

		for _, k := range x.Keys() {
			e, _ := x.Get(k)

			r, err := ResolveDeep(ctx, e)
			if err != nil {
				return nil, err
			}

			out.Set(k, r)
		}

		return out, nil
	}

	return v, nil
}
