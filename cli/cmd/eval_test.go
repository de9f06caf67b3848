package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/bloc/lang"
)

func TestEval_Run(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.tpl", "{{:greeting = 'hi ' + who}}unused text")

	tests := []struct {
		name string
		cmd  Eval
		want string
	}{
		{"arithmetic", Eval{Expr: "1 + 2"}, "3"},
		{"context", Eval{Data: Data{Set: []string{"who=ada"}}, Expr: "'hi ' + who"}, "hi ada"},
		{"template definitions", Eval{Data: Data{Set: []string{"who=bo"}}, Template: defs, Expr: "greeting"}, "hi bo"},
		{"yaml", Eval{Format: "yaml", Expr: "['a', 'b']"}, "- a\n- b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := testIO(t, "")

			if err := tt.cmd.Run(ctx); err != nil {
				t.Fatalf("Run: %v", err)
			}

			if got := strings.TrimSuffix(out.String(), "\n"); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEval_RunJSON(t *testing.T) {
	ctx, out := testIO(t, "")

	e := Eval{Format: "json", Expr: "{name: 'ada', ok: true}"}
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output %q is not JSON: %v", out.String(), err)
	}

	if got["name"] != "ada" || got["ok"] != true {
		t.Errorf("decoded = %v", got)
	}
}

func TestFormatValue(t *testing.T) {
	obj := lang.NewObject()
	obj.Set("k", "v")

	tests := []struct {
		v      any
		format string
		want   string
	}{
		{"text", "text", "text"},
		{true, "", "true"},
		{obj, "text", "k: v"},
		{obj, "yaml", "k: v"},
		{[]any{"x"}, "yaml", "- x"},
	}

	for _, tt := range tests {
		got, err := formatValue(tt.v, tt.format)
		if err != nil {
			t.Errorf("formatValue(%v, %q): %v", tt.v, tt.format, err)

			continue
		}

		if got != tt.want {
			t.Errorf("formatValue(%v, %q) = %q, want %q", tt.v, tt.format, got, tt.want)
		}
	}

	if _, err := formatValue("x", "toml"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown format error = %v", err)
	}
}
