package lang

import (
	"slices"
	"testing"
)

func TestFrame_Lookup(t *testing.T) {
	root := NewFrame(map[string]any{"a": 1.0, "b": 2.0})
	child := root.Child(map[string]any{"b": 3.0})
	grand := child.Child(nil)

	tests := []struct {
		frame *Frame
		name  string
		want  any
		found bool
	}{
		{frame: grand, name: "a", want: 1.0, found: true},
		{frame: grand, name: "b", want: 3.0, found: true},
		{frame: root, name: "b", want: 2.0, found: true},
		{frame: grand, name: "c", found: false},
		{frame: nil, name: "a", found: false},
	}

	for _, tt := range tests {
		got, ok := tt.frame.Lookup(tt.name)
		if ok != tt.found || (ok && got != tt.want) {
			t.Errorf("Lookup(%q) = (%v, %v), want (%v, %v)", tt.name, got, ok, tt.want, tt.found)
		}
	}

	if grand.Parent() != child || child.Parent() != root || root.Parent() != nil {
		t.Error("parent links are wrong")
	}
}

func TestFrame_SetShadows(t *testing.T) {
	root := NewFrame(map[string]any{"x": "root"})
	child := root.Child(nil)
	child.Set("x", "child")

	if v, _ := root.Lookup("x"); v != "root" {
		t.Errorf("root x = %v, want root", v)
	}

	if v, _ := child.Lookup("x"); v != "child" {
		t.Errorf("child x = %v, want child", v)
	}
}

func TestFrame_ChildCopiesVars(t *testing.T) {
	vars := map[string]any{"x": 1.0}
	f := NewFrame(vars)
	vars["x"] = 2.0

	if v, _ := f.Lookup("x"); v != 1.0 {
		t.Errorf("x = %v, want 1", v)
	}
}

func TestFrame_Names(t *testing.T) {
	f := NewFrame(map[string]any{"b": 1, "a": 1}).Child(map[string]any{"c": 1, "a": 2})

	if got := f.Names(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Names = %v, want [a b c]", got)
	}
}

func TestNewContext_Normalizes(t *testing.T) {
	f := NewContext(map[string]any{
		"i":   42,
		"u":   uint8(7),
		"arr": []any{int64(1), "x"},
		"map": map[string]any{"n": float32(0.5)},
	})

	if v, _ := f.Lookup("i"); v != 42.0 {
		t.Errorf("i = %#v, want 42.0", v)
	}

	if v, _ := f.Lookup("u"); v != 7.0 {
		t.Errorf("u = %#v, want 7.0", v)
	}

	arr, _ := f.Lookup("arr")
	if a, ok := arr.([]any); !ok || a[0] != 1.0 {
		t.Errorf("arr = %#v", arr)
	}

	m, _ := f.Lookup("map")
	if n := Member(m, "n"); n != 0.5 {
		t.Errorf("map.n = %#v, want 0.5", n)
	}
}
