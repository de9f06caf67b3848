package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ardnew/bloc/lang"
	"github.com/ardnew/bloc/log"
)

// Eval evaluates one expression against context data.
type Eval struct {
	Data `embed:""`

	Template string `help:"Template file whose top-level definitions are in scope" placeholder:"FILE" short:"t" type:"existingfile"`
	Format   string `default:"text" enum:"text,yaml,json" help:"Output format (${enum})" short:"f"`

	Expr string `arg:"" help:"Expression to evaluate" name:"expr"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	data, err := e.load()
	if err != nil {
		return err
	}

	engine := lang.New(lang.WithLogger(log.Default()))
	dynamic := lang.NewContext(data)
	locals := engine.Locals()

	if e.Template != "" {
		buf, err := os.ReadFile(e.Template)
		if err != nil {
			return ErrReadInput.Wrap(err).With(slog.String("file", e.Template))
		}

		root, err := engine.Parse(ctx, string(buf))
		if err != nil {
			return err
		}

		if locals, err = engine.Define(root, dynamic); err != nil {
			return err
		}
	}

	expr, err := lang.ParseExpression(e.Expr)
	if err != nil {
		return err
	}

	v, err := engine.EvalExpression(ctx, expr, locals, dynamic)
	if err != nil {
		return err
	}

	text, err := formatValue(v, e.Format)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(streamsFrom(ctx).out, text)

	return err
}

// formatValue renders a settled value as text, YAML or JSON.
func formatValue(v any, format string) (string, error) {
	switch format {
	case "", "text":
		return lang.Display(v)

	case "yaml", "json":
		b, err := lang.Encode(v, format == "json")
		if err != nil {
			return "", err
		}

		return string(trimNewline(b)), nil
	}

	return "", ErrUnknownType.With(slog.String("format", format))
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == '\n' {
		b = b[:len(b)-1]
	}

	return b
}
