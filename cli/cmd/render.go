package cmd

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ardnew/bloc/lang"
	"github.com/ardnew/bloc/log"
)

// Render renders template files against context data.
type Render struct {
	Data `embed:""`

	Out   string   `help:"Write output to FILE; a .gz or .zst extension compresses it" placeholder:"FILE" short:"o" type:"path"`
	Watch bool     `help:"Render again whenever an input file changes"                short:"w"`
	Files []string `arg:"" help:"Template files, or '-' for stdin"                    name:"file" optional:""`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	sources, err := uniqueSources(r.Files)
	if err != nil {
		return err
	}

	if r.Watch {
		return r.watch(ctx, sources)
	}

	return r.render(ctx, sources)
}

// render renders every source in order to the configured output.
func (r *Render) render(ctx context.Context, sources []source) (err error) {
	start := time.Now()
	std := streamsFrom(ctx)

	data, err := r.load()
	if err != nil {
		return err
	}

	out, err := createOutput(r.Out, std.out)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = ErrWriteOutput.Wrap(cerr).With(slog.String("file", r.Out))
		}
	}()

	engine := lang.New(lang.WithLogger(log.Default()))

	for _, src := range sources {
		if err := renderSource(ctx, engine, src, std.in, data, out); err != nil {
			return err
		}
	}

	log.DebugContext(ctx, "rendered",
		slog.Int("files", len(sources)),
		slog.String("out", r.Out),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}

func renderSource(
	ctx context.Context,
	engine *lang.Engine,
	src source,
	stdin io.Reader,
	data map[string]any,
	out io.Writer,
) error {
	buf, err := src.read(stdin)
	if err != nil {
		return ErrReadInput.Wrap(err).With(slog.String("file", src.name))
	}

	text, err := engine.Render(ctx, string(buf), data)
	if err != nil {
		return ErrRender.Wrap(err).With(slog.String("file", src.name))
	}

	if _, err := io.WriteString(out, text); err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}
