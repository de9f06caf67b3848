package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ardnew/bloc/cli/cmd/repl"
	"github.com/ardnew/bloc/lang"
	"github.com/ardnew/bloc/log"
)

// REPL evaluates expressions interactively.
type REPL struct {
	Data `embed:""`

	Prelude   string `help:"Template whose top-level definitions are in scope" placeholder:"FILE" short:"t" type:"existingfile"`
	History   string `default:"${cache}/history"                              help:"History file"             placeholder:"FILE" type:"path"`
	NoHistory bool   `help:"Do not read or write the history file"`
}

// Run executes the repl command. When standard input is not a terminal,
// each input line is executed in turn and results are printed.
func (r *REPL) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	data, err := r.load()
	if err != nil {
		return err
	}

	logger := log.Default()
	engine := lang.New(lang.WithLogger(logger))

	var prelude *lang.RootBloc

	if r.Prelude != "" {
		buf, err := os.ReadFile(r.Prelude)
		if err != nil {
			return ErrReadInput.Wrap(err).With(slog.String("file", r.Prelude))
		}

		if prelude, err = engine.Parse(ctx, string(buf)); err != nil {
			return ErrRender.Wrap(err).With(slog.String("file", r.Prelude))
		}
	}

	session, err := repl.NewSession(engine, logger, prelude, data)
	if err != nil {
		return ErrRender.Wrap(err).With(slog.String("file", r.Prelude))
	}

	std := streamsFrom(ctx)

	if !isTerminal(std.in) {
		return repl.Script(ctx, session, std.in, std.out)
	}

	path := r.History
	if r.NoHistory {
		path = ""
	}

	return repl.Run(ctx, session, repl.NewHistory(path), logger)
}

func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
