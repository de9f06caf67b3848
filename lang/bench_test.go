package lang

import (
	"strings"
	"testing"
)

const benchTemplate = `{{:greet -> who}}Hello, {{ who }}!{{/}}
{{# each(items) -> item, i }}{{ i + 1 }}. {{ greet(item.name) }} ({{ item.score * 2 }})
{{/}}`

func benchData(n int) map[string]any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{"name": "user", "score": i}
	}

	return map[string]any{"items": items}
}

func BenchmarkParseTemplate(b *testing.B) {
	src := strings.Repeat(benchTemplate, 10)

	b.ReportAllocs()

	for b.Loop() {
		if _, err := ParseTemplate(src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseString_Cached(b *testing.B) {
	ClearCache()

	b.ReportAllocs()

	for b.Loop() {
		if _, err := ParseString(b.Context(), benchTemplate); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRender(b *testing.B) {
	e := New()
	data := benchData(100)

	b.ReportAllocs()

	for b.Loop() {
		if _, err := e.Render(b.Context(), benchTemplate, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEval(b *testing.B) {
	expr, err := ParseExpression("(a + b) * c > 10 && name != ''")
	if err != nil {
		b.Fatal(err)
	}

	locals := NewFrame(nil)
	context := NewContext(map[string]any{"a": 1, "b": 2, "c": 5, "name": "x"})

	b.ReportAllocs()

	for b.Loop() {
		if _, err := Eval(expr, locals, context); err != nil {
			b.Fatal(err)
		}
	}
}
