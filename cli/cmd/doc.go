// Package cmd implements the bloc subcommands: render, eval, ast, fmt,
// repl and init.
//
// Commands read their inputs and write their results through the streams
// stored in the [context.Context] by [WithIO], which default to the process's
// standard input and output.
package cmd

var (
	// CacheIdentifier is the kong variable holding the cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable holding the configuration file
	// path.
	ConfigIdentifier = "config"
)
