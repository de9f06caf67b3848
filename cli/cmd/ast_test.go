package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
)

func TestAST_Run(t *testing.T) {
	const src = "a {{ x }} b"

	decodeYAML := func(b []byte, v any) error { return yaml.Unmarshal(b, v) }

	tests := []struct {
		name   string
		cmd    AST
		decode func([]byte, any) error
	}{
		{"yaml", AST{Format: "yaml", Indent: 2, File: "-"}, decodeYAML},
		{"yaml flow", AST{Format: "yaml", Indent: 0, File: "-"}, decodeYAML},
		{"json", AST{Format: "json", Indent: 4, File: "-"}, json.Unmarshal},
		{"compact json", AST{Format: "json", File: "-"}, json.Unmarshal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := testIO(t, src)

			if err := tt.cmd.Run(ctx); err != nil {
				t.Fatalf("Run: %v", err)
			}

			var tree map[string]any
			if err := tt.decode(out.Bytes(), &tree); err != nil {
				t.Fatalf("decode %q: %v", out.String(), err)
			}

			if tree["kind"] != "template" {
				t.Errorf("kind = %v, want template", tree["kind"])
			}

			children, ok := tree["children"].([]any)
			if !ok || len(children) != 3 {
				t.Errorf("children = %v, want 3 entries", tree["children"])
			}
		})
	}
}

func TestAST_RunParseError(t *testing.T) {
	ctx, _ := testIO(t, "{{ ) }}")

	if err := (&AST{Format: "yaml", File: "-"}).Run(ctx); !errors.Is(err, ErrRender) {
		t.Errorf("Run() error = %v, want ErrRender", err)
	}
}

func TestFmt_Run(t *testing.T) {
	const src = "x {{   a+b   }} y\n"

	ctx, out := testIO(t, src)
	if err := (&Fmt{File: "-"}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	formatted := out.String()
	if strings.Contains(formatted, "   ") {
		t.Errorf("formatted output kept spacing: %q", formatted)
	}

	// Formatting is a fixed point.
	ctx, again := testIO(t, formatted)
	if err := (&Fmt{File: "-"}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if again.String() != formatted {
		t.Errorf("second pass = %q, want %q", again.String(), formatted)
	}

	path := writeFile(t, t.TempDir(), "x.tpl", src)

	ctx, out = testIO(t, "")
	if err := (&Fmt{Write: true, File: path}).Run(ctx); err != nil {
		t.Fatalf("Run -w: %v", err)
	}

	if out.Len() != 0 {
		t.Errorf("stdout = %q, want nothing with -w", out.String())
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != formatted {
		t.Errorf("rewritten file = %q, want %q", got, formatted)
	}
}
