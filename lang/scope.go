package lang

import (
	"maps"
	"slices"
	"sync"
)

// Frame is one link of a scope chain. Lookups walk parent links until the
// name is found.
//
// The nil *Frame is an empty chain.
type Frame struct {
	mu     sync.RWMutex
	vars   map[string]any
	parent *Frame
}

// NewFrame returns a root frame holding a copy of vars.
func NewFrame(vars map[string]any) *Frame {
	return (*Frame)(nil).Child(vars)
}

// NewContext returns a root frame for host data. Numbers are normalized to
// float64 throughout.
func NewContext(data map[string]any) *Frame {
	f := &Frame{vars: make(map[string]any, len(data))}
	for k, v := range data {
		f.vars[k] = Normalize(v)
	}

	return f
}

// Child returns a new frame chained to f holding a copy of vars.
func (f *Frame) Child(vars map[string]any) *Frame {
	c := &Frame{parent: f, vars: maps.Clone(vars)}
	if c.vars == nil {
		c.vars = make(map[string]any)
	}

	return c
}

// Parent returns the next frame in the chain.
func (f *Frame) Parent() *Frame {
	if f == nil {
		return nil
	}

	return f.parent
}

// Lookup returns the value of the nearest binding of name.
func (f *Frame) Lookup(name string) (any, bool) {
	for ; f != nil; f = f.parent {
		f.mu.RLock()
		v, ok := f.vars[name]
		f.mu.RUnlock()

		if ok {
			return v, true
		}
	}

	return nil, false
}

// Set binds name in f, shadowing any binding in its ancestors.
func (f *Frame) Set(name string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.vars[name] = v
}

// Names returns every name visible from f, sorted.
func (f *Frame) Names() []string {
	seen := make(map[string]struct{})

	for ; f != nil; f = f.parent {
		f.mu.RLock()
		for k := range f.vars {
			seen[k] = struct{}{}
		}
		f.mu.RUnlock()
	}

	return slices.Sorted(maps.Keys(seen))
}
