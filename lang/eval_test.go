package lang

import (
	"errors"
	"math"
	"testing"
	"time"
)

func evalSource(
	t *testing.T,
	src string,
	locals, context map[string]any,
) (any, error) {
	t.Helper()

	expr, err := ParseExpression(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}

	v, err := Eval(expr, NewFrame(locals), NewContext(context))
	if err != nil {
		return nil, err
	}

	return ResolveDeep(t.Context(), v)
}

func double(args ...any) (any, error) {
	return ToNumber(args[0]) * 2, nil
}

func TestEval(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		locals  map[string]any
		context map[string]any
		want    any
	}{
		{name: "add", src: "2 + 3", want: 5.0},
		{name: "precedence", src: "1 + 2 * 3", want: 7.0},
		{name: "grouping", src: "(1 + 2) * 3", want: 9.0},
		{name: "modulo", src: "-7 % 4", want: -3.0},
		{name: "concat", src: "1 + '2'", want: "12"},
		{name: "coerce", src: "'3' * 2", want: 6.0},
		{name: "negate", src: "!0", want: true},
		{name: "unary plus", src: "+'4'", want: 4.0},
		{name: "string order", src: "'10' < '9'", want: true},
		{name: "number order", src: "10 < 9", want: false},
		{name: "nan order", src: "'x' < 1", want: false},
		{name: "loose null", src: "null == undefined", want: true},
		{name: "loose number", src: "1 == '1'", want: true},
		{name: "not equal", src: "1 != 2", want: true},
		{name: "or value", src: "0 || 'x'", want: "x"},
		{name: "and value", src: "1 && 2", want: 2.0},
		{name: "and stop", src: "false && boom()", want: false},
		{name: "or stop", src: "'y' || boom()", want: "y"},
		{name: "array length", src: "[1, 2, 3].length", want: 3.0},
		{name: "string index", src: "'abc'[1]", want: "b"},
		{name: "out of range", src: "[1][5]", want: Missing},
		{
			name:    "member",
			src:     "a.b",
			context: map[string]any{"a": map[string]any{"b": 7}},
			want:    7.0,
		},
		{
			name:    "member of null",
			src:     "a.b",
			context: map[string]any{"a": nil},
			want:    Missing,
		},
		{
			name: "deep missing",
			src:  "a.b.c.d",
			want: Missing,
		},
		{
			name:    "computed member",
			src:     "a['b']",
			context: map[string]any{"a": map[string]any{"b": "c"}},
			want:    "c",
		},
		{
			name:   "pipe",
			src:    "x | f",
			locals: map[string]any{"f": Func(double), "x": 4.0},
			want:   8.0,
		},
		{
			name: "pipe helper",
			src:  "g | f",
			locals: map[string]any{
				"f": Func(double),
				"g": Func(func(...any) (any, error) { return 4.0, nil }),
			},
			want: 8.0,
		},
		{
			name:   "application",
			src:    "f(21)",
			locals: map[string]any{"f": Func(double)},
			want:   42.0,
		},
		{
			name:   "host function",
			src:    "join('-', 'a', 'b')",
			locals: map[string]any{"join": func(sep string, s ...string) string { return s[0] + sep + s[1] }},
			want:   "a-b",
		},
		{
			name:    "locals shadow context",
			src:     "name",
			locals:  map[string]any{"name": "local"},
			context: map[string]any{"name": "context"},
			want:    "local",
		},
		{
			name:    "context fallback",
			src:     "name",
			context: map[string]any{"name": "context"},
			want:    "context",
		},
		{
			name: "deferred operand",
			src:  "slow + 1",
			locals: map[string]any{"slow": Go(func() (any, error) {
				time.Sleep(5 * time.Millisecond)

				return 41.0, nil
			})},
			want: 42.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalSource(t, tt.src, tt.locals, tt.context)
			if err != nil {
				t.Fatalf("eval %q: %v", tt.src, err)
			}

			if !LooseEqual(got, tt.want) || IsMissing(got) != IsMissing(tt.want) {
				t.Errorf("eval %q = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEval_Object(t *testing.T) {
	got, err := evalSource(t, "{ b: 2, a: 1, 'c d': a }", nil, map[string]any{"a": "x"})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}

	obj, ok := got.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", got)
	}

	keys := obj.Keys()
	if len(keys) != 3 || keys[0] != "b" || keys[1] != "a" || keys[2] != "c d" {
		t.Errorf("keys = %v, want [b a c d]", keys)
	}

	if v, _ := obj.Get("c d"); v != "x" {
		t.Errorf("c d = %v, want x", v)
	}
}

func TestEval_Division(t *testing.T) {
	got, err := evalSource(t, "1 / 0", nil, nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}

	if f, ok := got.(float64); !ok || !math.IsInf(f, 1) {
		t.Errorf("1 / 0 = %v, want +Inf", got)
	}
}

func TestEval_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		locals map[string]any
		want   error
	}{
		{name: "undefined function", src: "undefinedFn()", want: ErrNotCallable},
		{name: "number call", src: "(1)(2)", want: ErrNotCallable},
		{
			name:   "pipe into value",
			src:    "1 | x",
			locals: map[string]any{"x": 2.0},
			want:   ErrNotCallable,
		},
		{
			name: "host panic",
			src:  "p()",
			locals: map[string]any{"p": Func(func(...any) (any, error) {
				panic("boom")
			})},
			want: ErrHostPanic,
		},
		{
			name: "host error",
			src:  "e()",
			locals: map[string]any{"e": func() (string, error) {
				return "", ErrBuiltin
			}},
			want: ErrBuiltin,
		},
		{
			name: "rejected operand",
			src:  "r + 1",
			locals: map[string]any{
				"r": Reject(ErrBuiltin),
			},
			want: ErrBuiltin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalSource(t, tt.src, tt.locals, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("eval %q error = %v, want %v", tt.src, err, tt.want)
			}
		})
	}
}

func TestEval_PipeEvaluatesRightFirst(t *testing.T) {
	var order []string

	locals := map[string]any{
		"left": Func(func(...any) (any, error) {
			order = append(order, "left")

			return 1.0, nil
		}),
		"right": Func(func(...any) (any, error) {
			order = append(order, "right")

			return Func(double), nil
		}),
	}

	got, err := evalSource(t, "left() | right()", locals, nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}

	if got != 2.0 {
		t.Errorf("got %v, want 2", got)
	}

	if len(order) != 2 || order[0] != "right" || order[1] != "left" {
		t.Errorf("evaluation order = %v, want [right left]", order)
	}
}

func TestEvalHelper_Depth(t *testing.T) {
	var loop Func
	loop = func(...any) (any, error) { return loop, nil }

	_, err := EvalHelper(loop, nil, nil)
	if !errors.Is(err, ErrHelperDepth) {
		t.Errorf("error = %v, want %v", err, ErrHelperDepth)
	}
}

func TestEvalHelper_Arguments(t *testing.T) {
	context := NewContext(map[string]any{"k": "v"})
	bloc := NewObject()

	fn := Func(func(args ...any) (any, error) {
		c, b := HelperArgs(args)
		if c != context || b != bloc {
			t.Errorf("helper called with (%v, %v)", c, b)
		}

		return "done", nil
	})

	got, err := EvalHelper(fn, context, bloc)
	if err != nil {
		t.Fatalf("EvalHelper: %v", err)
	}

	if got != "done" {
		t.Errorf("got %v, want done", got)
	}
}
