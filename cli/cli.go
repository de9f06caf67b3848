package cli

import (
	"context"
	"io"

	"github.com/alecthomas/kong"

	"github.com/ardnew/bloc/cli/cmd"
	"github.com/ardnew/bloc/pkg"
)

// CLI is the top-level command-line interface for bloc.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit" short:"V"`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render templates"`
	Eval   cmd.Eval   `cmd:""                    help:"Evaluate an expression"`
	AST    cmd.AST    `cmd:"" name:"ast"         help:"Print the parse tree of a template"`
	Fmt    cmd.Fmt    `cmd:""                    help:"Print a template in canonical form"`
	REPL   cmd.REPL   `cmd:"" name:"repl"        help:"Evaluate expressions interactively"`
	Init   cmd.Init   `cmd:""                    help:"Initialize configuration file"`
}

// Option adjusts how [Run] builds and runs the parser.
type Option func(*options)

type options struct {
	config string
	cache  string
	stdin  io.Reader
	stdout io.Writer
}

// WithConfigFile reads flag defaults from path instead of the per-user
// configuration file.
func WithConfigFile(path string) Option {
	return func(o *options) { o.config = path }
}

// WithCacheDir stores transient files under dir instead of the per-user
// cache directory.
func WithCacheDir(dir string) Option {
	return func(o *options) { o.cache = dir }
}

// WithIO replaces the standard streams commands read from and write to.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(o *options) { o.stdin, o.stdout = in, out }
}

// Run executes the bloc CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(ctx context.Context, exit func(code int), args []string, opts ...Option) error {
	var cli CLI

	o := options{config: pkg.ConfigFile(), cache: pkg.CacheDir()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := mkdirAllRequired(o.config, o.cache); err != nil {
		return err
	}

	vars := kong.Vars{
		cmd.ConfigIdentifier: o.config,
		cmd.CacheIdentifier:  o.cache,
		"version":            pkg.Name + " " + pkg.Version,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars(o.cache))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Apply logger flags before kong parses, so that parse errors are
	// already logged the requested way.
	cli.Log.scan(args)

	kopts := []kong.Option{
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(resolve(ctx), o.config),
		vars,
	}

	if o.stdout != nil {
		kopts = append(kopts, kong.Writers(o.stdout, o.stdout))
	}

	parser, err := kong.New(&cli, kopts...)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithIO(ctx, o.stdin, o.stdout)

	cli.Log.start(ctx)

	// No-op unless built with tag pprof and a mode is selected.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(&cli)
}
