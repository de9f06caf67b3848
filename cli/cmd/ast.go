package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/bloc/lang"
)

// AST prints the parse tree of a template.
type AST struct {
	Format string `default:"yaml" enum:"yaml,json" help:"Output format (${enum})" short:"f"`
	Indent int    `default:"2"                     help:"Indent width"           short:"i"`

	File string `arg:"" default:"-" help:"Template file, or '-' for stdin" name:"file"`
}

// Run executes the ast command.
func (a *AST) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	std := streamsFrom(ctx)

	root, err := parseSource(ctx, a.File, std)
	if err != nil {
		return err
	}

	b, err := encodeTree(ctx, root.ToMap(), a.Format, a.Indent)
	if err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("format", a.Format))
	}

	_, err = fmt.Fprintln(std.out, string(trimNewline(b)))

	return err
}

// encodeTree serializes a plain map tree. A non-positive indent selects
// flow-style YAML or compact JSON.
func encodeTree(ctx context.Context, tree map[string]any, format string, indent int) ([]byte, error) {
	switch format {
	case "", "yaml":
		var opts []yaml.EncodeOption
		if indent > 0 {
			opts = append(opts, yaml.Indent(indent), yaml.IndentSequence(true))
		} else {
			opts = append(opts, yaml.Flow(true))
		}

		return yaml.MarshalContext(ctx, tree, opts...)

	case "json":
		if indent > 0 {
			return json.MarshalIndent(tree, "", strings.Repeat(" ", indent))
		}

		return json.Marshal(tree)
	}

	return nil, ErrUnknownType.With(slog.String("format", format))
}

// parseSource reads and parses one named template, "-" being stdin.
func parseSource(ctx context.Context, name string, std streams) (*lang.RootBloc, error) {
	src := source{name: name}
	if name != stdinSource {
		src.path = name
	}

	buf, err := src.read(std.in)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("file", name))
	}

	root, err := lang.ParseString(ctx, string(buf))
	if err != nil {
		return nil, ErrRender.Wrap(err).With(slog.String("file", name))
	}

	return root, nil
}
