package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFile creates name under dir with content and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

// testIO returns a context whose commands read in and write to the
// returned buffer.
func testIO(t *testing.T, in string) (context.Context, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	return WithIO(t.Context(), strings.NewReader(in), &out), &out
}

func TestUniqueSources(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tpl", "a")
	b := writeFile(t, dir, "b.tpl", "b")

	link := filepath.Join(dir, "link.tpl")
	if err := os.Symlink(a, link); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"empty is stdin", nil, []string{"-"}},
		{"order kept", []string{b, a}, []string{b, a}},
		{"duplicates dropped", []string{a, b, a}, []string{a, b}},
		{"symlink is the same file", []string{a, link}, []string{a}},
		{"stdin last", []string{"-", a, "-"}, []string{a, "-"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uniqueSources(tt.paths)
			if err != nil {
				t.Fatalf("uniqueSources: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}

			for i, src := range got {
				if src.name != tt.want[i] {
					t.Errorf("source %d = %q, want %q", i, src.name, tt.want[i])
				}
			}
		})
	}

	if _, err := uniqueSources([]string{filepath.Join(dir, "absent")}); !errors.Is(err, ErrReadInput) {
		t.Errorf("missing file error = %v, want ErrReadInput", err)
	}
}

func TestSourceRead(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.tpl", "file")

	got, err := source{name: path, path: path}.read(strings.NewReader("stdin"))
	if err != nil || string(got) != "file" {
		t.Errorf("read file = %q, %v", got, err)
	}

	got, err = source{name: stdinSource}.read(strings.NewReader("stdin"))
	if err != nil || string(got) != "stdin" {
		t.Errorf("read stdin = %q, %v", got, err)
	}
}

func TestError(t *testing.T) {
	cause := errors.New("boom")
	err := ErrRender.Wrap(cause)

	if !errors.Is(err, ErrRender) {
		t.Error("wrapped error does not match its sentinel")
	}

	if !errors.Is(err, cause) {
		t.Error("wrapped error does not match its cause")
	}

	if errors.Is(err, ErrWatch) {
		t.Error("wrapped error matches another sentinel")
	}

	if got := err.Error(); got != "render: boom" {
		t.Errorf("Error() = %q", got)
	}

	v := ErrReadInput.With().LogValue()
	if len(v.Group()) != 1 {
		t.Errorf("LogValue() = %v", v)
	}
}
