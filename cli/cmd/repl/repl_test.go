package repl

import (
	"bytes"
	"strings"
	"testing"
)

func TestExecute(t *testing.T) {
	s := newTestSession(t, testPrelude)
	ctx := t.Context()

	tests := []struct {
		input string
		mode  inputMode
		want  outcome
	}{
		{"1 + 1", modeEval, outcome{text: "2"}},
		{":quit", modeEval, outcome{quit: true}},
		{"q", modeCtrl, outcome{quit: true}},
		{":clear", modeEval, outcome{clear: true}},
		{"edit", modeCtrl, outcome{edit: true}},
		{"let x = [1, 2]", modeCtrl, outcome{text: "x = - 1\n- 2"}},
		{":render {{ x.length }} items", modeEval, outcome{text: "2 items"}},
	}

	for _, tt := range tests {
		got := execute(ctx, s, tt.input, tt.mode)
		if got.err != nil {
			t.Fatalf("execute(%q): %v", tt.input, got.err)
		}

		if got != tt.want {
			t.Errorf("execute(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}

	if got := execute(ctx, s, "frobnicate", modeCtrl); got.err == nil {
		t.Error("unknown command succeeded")
	}

	if got := execute(ctx, s, "help", modeCtrl); !strings.Contains(got.text, "let NAME = EXPR") {
		t.Errorf("help text = %q", got.text)
	}

	if got := execute(ctx, s, ":list", modeEval); !strings.Contains(got.text, "shout") ||
		!strings.Contains(got.text, "x") {
		t.Errorf("list = %q", got.text)
	}
}

func TestScript(t *testing.T) {
	s := newTestSession(t, testPrelude)

	in := strings.NewReader(`
# comment
:let n = 2
n * 21
missing(
:render {{ shout(who) }}
:quit
1 + 1
`)

	var out bytes.Buffer

	if err := Script(t.Context(), s, in, &out); err != nil {
		t.Fatalf("Script: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("output = %q, want 4 lines", out.String())
	}

	if lines[0] != "n = 2" || lines[1] != "42" || lines[3] != "ADA!" {
		t.Errorf("output = %q", lines)
	}

	if !strings.HasPrefix(lines[2], "error: ") {
		t.Errorf("parse error line = %q", lines[2])
	}
}
