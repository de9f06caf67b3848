package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func jsonLogger(buf *bytes.Buffer, opts ...Option) Logger {
	return Make(buf, append([]Option{WithFormat(FormatJSON), WithPretty(false)}, opts...)...)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var records []map[string]any

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON record %q: %v", line, err)
		}

		records = append(records, m)
	}

	return records
}

func TestLogger_Make_Defaults(t *testing.T) {
	l := Make(nil)

	if l.Level() != DefaultLevel {
		t.Errorf("Level() = %v, want %v", l.Level(), DefaultLevel)
	}

	if l.Format() != DefaultFormat {
		t.Errorf("Format() = %v, want %v", l.Format(), DefaultFormat)
	}

	l.Info("discarded")
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level Level
		want  []string
	}{
		{LevelTrace, []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}},
		{LevelInfo, []string{"INFO", "WARN", "ERROR"}},
		{LevelError, []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer

			l := jsonLogger(&buf, WithLevel(tt.level))
			l.Trace("m")
			l.Debug("m")
			l.Info("m")
			l.Warn("m")
			l.Error("m")

			records := decodeLines(t, &buf)
			if len(records) != len(tt.want) {
				t.Fatalf("got %d records, want %d: %s", len(records), len(tt.want), buf.String())
			}

			for i, r := range records {
				if r["level"] != tt.want[i] {
					t.Errorf("record %d level = %v, want %s", i, r["level"], tt.want[i])
				}
			}
		})
	}
}

func TestLogger_ContextMethods(t *testing.T) {
	var buf bytes.Buffer

	l := jsonLogger(&buf, WithLevel(LevelTrace))
	ctx := t.Context()

	l.TraceContext(ctx, "a")
	l.DebugContext(ctx, "b")
	l.InfoContext(ctx, "c")
	l.WarnContext(ctx, "d")
	l.ErrorContext(ctx, "e")
	l.InfoContext(nil, "f")

	records := decodeLines(t, &buf)
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}

	for i, msg := range []string{"a", "b", "c", "d", "e", "f"} {
		if records[i]["msg"] != msg {
			t.Errorf("record %d msg = %v, want %s", i, records[i]["msg"], msg)
		}
	}
}

func TestLogger_Caller(t *testing.T) {
	var buf bytes.Buffer

	jsonLogger(&buf, WithCaller(true)).Info("here")

	records := decodeLines(t, &buf)
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}

	src, ok := records[0]["source"].(map[string]any)
	if !ok {
		t.Fatalf("no source in %v", records[0])
	}

	if file, _ := src["file"].(string); !strings.HasSuffix(file, "log_test.go") {
		t.Errorf("source file = %q, want the calling test file", file)
	}
}

func TestLogger_TimeLayoutNone(t *testing.T) {
	var buf bytes.Buffer

	jsonLogger(&buf, WithTimeLayout("none")).Info("untimed")

	if r := decodeLines(t, &buf)[0]; r["time"] != nil {
		t.Errorf("time present: %v", r["time"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer

	l := jsonLogger(&buf).With(slog.String("request", "r1"))
	l.Info("first")

	l = l.Wrap(WithLevel(LevelDebug))
	l.Debug("second", slog.Int("n", 2))

	records := decodeLines(t, &buf)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	for i, r := range records {
		if r["request"] != "r1" {
			t.Errorf("record %d lost attribute: %v", i, r)
		}
	}

	if records[1]["n"] != 2.0 {
		t.Errorf("n = %v, want 2", records[1]["n"])
	}
}

func TestLogger_ZeroValue(t *testing.T) {
	var l Logger

	l.Info("nothing")
	l.ErrorContext(t.Context(), "nothing")

	if l.Enabled(t.Context(), LevelError) {
		t.Error("zero Logger reports enabled")
	}

	if got := l.With(slog.String("k", "v")); got.Logger != nil {
		t.Error("With on zero Logger built a handler")
	}

	var buf bytes.Buffer

	l.Wrap(WithOutput(&buf), WithPretty(false)).Info("now visible")

	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("Wrap of zero Logger did not log: %q", buf.String())
	}
}

func TestLogger_Concurrent(t *testing.T) {
	var buf bytes.Buffer

	l := jsonLogger(&buf)

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Go(func() {
			l.With(slog.Int("worker", i)).Info("tick")
		})
	}

	wg.Wait()

	if n := len(decodeLines(t, &buf)); n != 16 {
		t.Errorf("got %d records, want 16", n)
	}
}

func TestPrettyText(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithTimeLayout("none"), WithLevel(LevelTrace)).
		With(slog.String("file", "a b.tpl"))

	l.Trace("bind", slog.Group("node", slog.Int("line", 3), slog.Bool("deferred", true)))

	got := strings.TrimSpace(buf.String())
	want := `TRACE bind file="a b.tpl" node.line=3 node.deferred=true`

	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestPrettyText_WithGroup(t *testing.T) {
	var buf bytes.Buffer

	h := Make(&buf, WithTimeLayout("none")).Handler().WithGroup("req").WithAttrs([]slog.Attr{slog.String("id", "7")})
	slog.New(h).Info("done", slog.Int("status", 200))

	got := strings.TrimSpace(buf.String())
	want := `INFO  done req.id=7 req.status=200`

	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestPrettyJSON_Indents(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithFormat(FormatJSON), WithTimeLayout("none")).Info("x", slog.String("k", "v"))

	out := buf.String()
	if !strings.Contains(out, "\n  \"msg\": \"x\"") {
		t.Errorf("record not indented: %q", out)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Errorf("indented record is not valid JSON: %v", err)
	}
}

func TestPackageLogger(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	var buf bytes.Buffer

	SetDefault(jsonLogger(&buf))
	Config(WithLevel(LevelTrace))

	ctx := context.Background()

	Trace("t")
	TraceContext(ctx, "tc")
	Debug("d")
	DebugContext(ctx, "dc")
	Info("i")
	InfoContext(ctx, "ic")
	Warn("w")
	WarnContext(ctx, "wc")
	Error("e")
	ErrorContext(ctx, "ec")
	With(slog.String("k", "v")).Info("with")

	records := decodeLines(t, &buf)
	if len(records) != 11 {
		t.Fatalf("got %d records, want 11", len(records))
	}

	if records[10]["k"] != "v" {
		t.Errorf("With attribute missing: %v", records[10])
	}
}
