package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/bloc/lang"
	"github.com/ardnew/bloc/log"
)

// Fmt prints a template in canonical form.
type Fmt struct {
	Write bool `help:"Rewrite FILE in place instead of printing" short:"w"`

	File string `arg:"" default:"-" help:"Template file, or '-' for stdin" name:"file"`
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	std := streamsFrom(ctx)

	root, err := parseSource(ctx, f.File, std)
	if err != nil {
		return err
	}

	text := lang.FormatTemplate(root.Template)

	if !f.Write || f.File == stdinSource {
		if _, err := io.WriteString(std.out, text); err != nil {
			return ErrWriteOutput.Wrap(err)
		}

		return nil
	}

	info, err := os.Stat(f.File)
	if err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("file", f.File))
	}

	if err := os.WriteFile(f.File, []byte(text), info.Mode().Perm()); err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("file", f.File))
	}

	log.DebugContext(ctx, "formatted", slog.String("file", f.File))

	return nil
}
