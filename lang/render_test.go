package lang

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func render(t *testing.T, e *Engine, src string, data map[string]any) string {
	t.Helper()

	out, err := e.Render(t.Context(), src, data)
	if err != nil {
		t.Fatalf("render %q: %v", src, err)
	}

	return out
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{name: "text", src: "plain text", want: "plain text"},
		{name: "empty", src: "", want: ""},
		{
			name: "context",
			src:  "Hello, {{ name }}!",
			data: map[string]any{"name": "World"},
			want: "Hello, World!",
		},
		{name: "arithmetic", src: "{{ 2 + 3 }}", want: "5"},
		{name: "missing", src: "[{{ nope }}]", want: "[]"},
		{name: "null", src: "[{{ null }}]", want: "[]"},
		{name: "array", src: "{{ ['a', 1, true] }}", want: "a1true"},
		{name: "comment", src: "a{{! ignored }}b", want: "ab"},
		{name: "negation", src: "{{ !x }}", want: "true"},
		{name: "object braces", src: "{{ {a: {b: 'x'}}.a.b }}", want: "x"},
		{
			name: "definition",
			src:  "{{:greeting = 'hi'}}{{ greeting }}, {{ greeting }}",
			want: "hi, hi",
		},
		{
			name: "definitions in order",
			src:  "{{:a = 1}}{{:b = a + 1}}{{ b }}",
			want: "2",
		},
		{
			name: "definition shadows context",
			src:  "{{:name = 'local'}}{{ name }}",
			data: map[string]any{"name": "context"},
			want: "local",
		},
		{
			name: "property",
			src:  "{{ this.greeting ; greeting = 'hi' }}",
			want: "hi",
		},
		{
			name: "property sees context",
			src:  "{{ this.n ; n = x * 2 }}",
			data: map[string]any{"x": 21},
			want: "42",
		},
		{
			name: "contents definition",
			src:  "{{:greet -> who}}Hi {{ who }}{{/}}{{ greet('Bob') }}",
			want: "Hi Bob",
		},
		{
			name: "contents without params",
			src:  "{{:rule}}--{{/}}{{ rule }}x{{ rule }}",
			want: "--x--",
		},
		{
			name: "global params reach callees",
			src:  "{{:inner}}<{{ n }}>{{/}}{{:outer => n}}{{ inner }}{{/}}{{ outer('g') }}",
			want: "<g>",
		},
		{
			name: "local params stay lexical",
			src:  "{{:inner}}<{{ n }}>{{/}}{{:outer -> n}}{{ inner }}{{/}}{{ outer('g') }}",
			want: "<>",
		},
		{
			name: "missing argument",
			src:  "{{:pair -> a, b}}{{ a }}{{ b == undefined }}{{/}}{{ pair(1) }}",
			want: "1true",
		},
		{
			name: "parent bloc",
			src:  "{{# with(1) ; title = 'T' -> x }}{{ bloc.title }}{{ x }}{{/}}",
			want: "T1",
		},
		{
			name: "if",
			src:  "{{# if(flag) }}yes{{:else}}no{{/}}{{/}}",
			data: map[string]any{"flag": true},
			want: "yes",
		},
		{
			name: "if else",
			src:  "{{# if(flag) }}yes{{:else}}no{{/}}{{/}}",
			data: map[string]any{"flag": false},
			want: "no",
		},
		{
			name: "unless",
			src:  "{{# unless(flag) }}off{{/}}",
			want: "off",
		},
		{
			name: "each",
			src:  "{{# each(items) -> item }}[{{ item }}]{{/}}",
			data: map[string]any{"items": []any{1, 2, 3}},
			want: "[1][2][3]",
		},
		{
			name: "each map",
			src:  "{{# each(m) -> v, k }}{{ k }}={{ v }};{{/}}",
			data: map[string]any{"m": map[string]any{"b": 2, "a": 1}},
			want: "a=1;b=2;",
		},
		{
			name: "each object keeps order",
			src:  "{{# each({z: 1, y: 2}) -> v, k }}{{ k }}{{/}}",
			want: "zy",
		},
		{
			name: "each empty",
			src:  "{{# each(items) -> item }}{{ item }}{{:else}}none{{/}}{{/}}",
			data: map[string]any{"items": []any{}},
			want: "none",
		},
		{
			name: "with",
			src:  "{{# with(user) -> u }}{{ u.name }}{{/}}",
			data: map[string]any{"user": map[string]any{"name": "Ada"}},
			want: "Ada",
		},
		{
			name: "nested sections",
			src:  "{{# each(rows) -> row }}{{# each(row) -> c }}{{ c }}{{/}};{{/}}",
			data: map[string]any{"rows": []any{[]any{1, 2}, []any{3}}},
			want: "12;3;",
		},
		{
			name: "pipe",
			src:  "{{ 'ada' | fn.title }}",
			want: "Ada",
		},
	}

	e := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, e, tt.src, tt.data); got != tt.want {
				t.Errorf("render %q = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestRender_OrderUnderAsync(t *testing.T) {
	e := New(WithBase(map[string]any{
		"slow": Func(func(...any) (any, error) {
			return Go(func() (any, error) {
				time.Sleep(30 * time.Millisecond)

				return "slow", nil
			}), nil
		}),
		"fast": Func(func(...any) (any, error) {
			return Resolve("fast"), nil
		}),
	}))

	got := render(t, e, "A{{ slow() }}B{{ fast() }}", nil)
	if got != "AslowBfast" {
		t.Errorf("got %q, want %q", got, "AslowBfast")
	}
}

func TestRender_FailureContainment(t *testing.T) {
	got := render(t, New(), "a{{ undefinedFn() }}b{{ 1 + 1 }}", nil)

	if !strings.HasPrefix(got, "a") || !strings.HasSuffix(got, "b2") {
		t.Errorf("siblings not rendered: %q", got)
	}

	if !strings.Contains(got, "undefinedFn is not a function") {
		t.Errorf("inline error missing: %q", got)
	}
}

func TestRender_BadPropertyInlined(t *testing.T) {
	got := render(t, New(), "<{{ this.x ; x = nope() }}>", nil)

	if !strings.Contains(got, "not callable") {
		t.Errorf("inline error missing: %q", got)
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		base map[string]any
		want error
	}{
		{name: "parse", src: "{{ 1 + }}", want: ErrParse},
		{name: "unclosed", src: "{{# if(true) }}open", want: ErrParse},
		{
			name: "local definition",
			src:  "{{:x = nope()}}{{ x }}",
			want: ErrNotCallable,
		},
		{
			name: "async rejection",
			src:  "{{ fail() }}",
			base: map[string]any{"fail": Func(func(...any) (any, error) {
				return Reject(ErrBuiltin), nil
			})},
			want: ErrBuiltin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithBase(tt.base)).Render(t.Context(), tt.src, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("render %q error = %v, want %v", tt.src, err, tt.want)
			}
		})
	}
}

func TestRender_BlocObjectsAreIsolated(t *testing.T) {
	var calls atomic.Int32

	e := New(WithBase(map[string]any{
		"probe": Func(func(args ...any) (any, error) {
			_, bloc := HelperArgs(args)
			if bloc == nil {
				t.Error("helper received no bloc")

				return nil, nil
			}

			calls.Add(1)

			v, _ := bloc.Get("tag")

			return v, nil
		}),
	}))

	got := render(t, e, "{{ probe ; tag = 'a' }}{{ probe ; tag = 'b' }}", nil)
	if got != "ab" {
		t.Errorf("got %q, want ab", got)
	}

	if calls.Load() != 2 {
		t.Errorf("probe called %d times, want 2", calls.Load())
	}
}

func TestRenderTemplate_Tree(t *testing.T) {
	root, err := ParseTemplate("a{{ x }}b")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tree, err := RenderTemplate(root.Template, nil, NewContext(map[string]any{"x": 1}), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	out, ok := tree.([]any)
	if !ok || len(out) != 3 {
		t.Fatalf("tree = %#v, want three entries", tree)
	}

	if out[0] != "a" || out[1] != 1.0 || out[2] != "b" {
		t.Errorf("tree = %#v", out)
	}
}

func TestRenderFunc(t *testing.T) {
	e := New()

	root, err := e.Parse(t.Context(), "{{ n * 2 }}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	bound := e.Bind(root)

	for n, want := range map[int]string{1: "2", 5: "10"} {
		got, err := e.RenderFunc(t.Context(), bound.Call, map[string]any{"n": n})
		if err != nil {
			t.Fatalf("render: %v", err)
		}

		if got != want {
			t.Errorf("n=%d: got %q, want %q", n, got, want)
		}
	}
}

func TestRenderReader(t *testing.T) {
	got, err := New().RenderReader(t.Context(), strings.NewReader("{{ 'x' + 1 }}"), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if got != "x1" {
		t.Errorf("got %q, want x1", got)
	}
}

func TestEngine_Eval(t *testing.T) {
	e := New()

	got, err := e.Eval(t.Context(), "fn.upper(name) + '!'", map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}

	if got != "ADA!" {
		t.Errorf("got %v, want ADA!", got)
	}
}

func TestEngine_Define(t *testing.T) {
	e := New()

	root, err := e.Parse(t.Context(), `{{:greeting = 'hi ' + who}}{{:shout -> s}}{{ fn.upper(s) }}!{{/}}ignored`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	context := NewContext(map[string]any{"who": "ada"})

	locals, err := e.Define(root, context)
	if err != nil {
		t.Fatalf("define: %v", err)
	}

	expr, err := ParseExpression("greeting")
	if err != nil {
		t.Fatal(err)
	}

	got, err := e.EvalExpression(t.Context(), expr, locals, context)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}

	if got != "hi ada" {
		t.Errorf("greeting = %v, want hi ada", got)
	}

	other, err := ParseTemplate(`{{ shout(greeting) }}`)
	if err != nil {
		t.Fatal(err)
	}

	tree, err := RenderTemplate(other.Template, locals, context, NewObject())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	out, err := Flatten(t.Context(), tree)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}

	if out != "HI ADA!" {
		t.Errorf("render = %q, want %q", out, "HI ADA!")
	}
}

func TestBind_ParamScopeAcrossContexts(t *testing.T) {
	e := New()

	root, err := e.Parse(t.Context(),
		"{{:inner}}[{{ p }}]{{/}}"+
			"{{:local -> p}}{{ p }}{{ inner }}-{{ q }}{{/}}"+
			"{{:global => p}}{{ p }}{{ inner }}-{{ q }}{{/}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	locals, err := e.Define(root, NewContext(nil))
	if err != nil {
		t.Fatalf("define: %v", err)
	}

	// Bind the argument once, then render the same curried template in
	// two different contexts.
	curry := func(t *testing.T, name string) Func {
		t.Helper()

		v, ok := locals.Lookup(name)
		if !ok {
			t.Fatalf("%s is not defined", name)
		}

		fn, ok := AsFunc(v)
		if !ok {
			t.Fatalf("%s is %T, want a callable", name, v)
		}

		r, err := Call(fn, "A")
		if err != nil {
			t.Fatalf("bind %s: %v", name, err)
		}

		if fn, ok = AsFunc(r); !ok {
			t.Fatalf("bound %s is %T, want a callable", name, r)
		}

		return fn
	}

	contexts := []*Frame{
		NewContext(map[string]any{"q": "x", "p": "ctx"}),
		NewContext(map[string]any{"q": "y"}),
	}

	tests := []struct {
		name string
		want []string
	}{
		// A local parameter is fixed in the locals chain: it hides the
		// context's p but is invisible to callees.
		{"local", []string{"A[ctx]-x", "A[]-y"}},
		// A global parameter rides on the call's context, so callees see it.
		{"global", []string{"A[A]-x", "A[A]-y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := curry(t, tt.name)

			for i, context := range contexts {
				tree, err := Call(fn, context, NewObject())
				if err != nil {
					t.Fatalf("render in context %d: %v", i, err)
				}

				got, err := Flatten(t.Context(), tree)
				if err != nil {
					t.Fatalf("flatten: %v", err)
				}

				if got != tt.want[i] {
					t.Errorf("context %d: got %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}
