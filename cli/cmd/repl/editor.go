package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ardnew/bloc/lang"
	"github.com/ardnew/bloc/log"
)

const defaultEditor = "vi"

// editPreludeCommand implements [tea.ExecCommand]. It opens the prelude
// template in $EDITOR and parses the result, offering to edit again until
// the template parses or the user declines.
type editPreludeCommand struct {
	source  string
	ctxFunc func() context.Context
	logger  log.Logger
	edited  string
	changed bool
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func (c *editPreludeCommand) SetStdin(r io.Reader)  { c.stdin = r }
func (c *editPreludeCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *editPreludeCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the edit-parse loop. It returns [ErrEditDeclined] when the
// user gives up on a template that does not parse.
func (c *editPreludeCommand) Run() error {
	ctx := c.ctxFunc()

	f, err := os.CreateTemp("", "bloc-repl-*.bloc")
	if err != nil {
		return err
	}

	path := f.Name()
	defer os.Remove(path)

	if err := f.Close(); err != nil {
		return err
	}

	content := c.source

	for {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return err
		}

		if err := runEditor(ctx, c.stdin, c.stdout, c.stderr, path); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		content = string(data)
		if strings.TrimSpace(content) == "" {
			return nil
		}

		_, perr := lang.ParseTemplate(content)

		c.logger.TraceContext(ctx, "editor parse attempt",
			slog.Int("length", len(content)),
			slog.Bool("success", perr == nil),
		)

		if perr == nil {
			c.edited, c.changed = content, content != c.source

			return nil
		}

		var pe *lang.ParseError
		if errors.As(perr, &pe) {
			fmt.Fprintf(c.stderr, "\n%s\n", pe.Detail())
		} else {
			fmt.Fprintf(c.stderr, "\nparse error: %s\n", perr)
		}

		fmt.Fprint(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "n", "no":
			return ErrEditDeclined
		}
	}
}

// runEditor opens path in $EDITOR and waits for it to exit.
func runEditor(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	args := strings.Fields(editor)

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}
