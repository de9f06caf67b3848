// Package log wraps [log/slog] with the level set, output formats and
// option-based configuration shared by the bloc packages and commands.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr)
//	logger.Info("rendered", slog.String("file", name))
//
// The zero [Logger] discards everything, so library types can embed one and
// log unconditionally.
//
// # Configuration
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatText),
//		log.WithTimeLayout("kitchen"),
//		log.WithCaller(true))
//
// [Logger.Wrap] derives a logger with some options replaced, keeping any
// attributes already attached with [Logger.With].
//
// # Levels
//
// [LevelTrace] sits below [LevelDebug] and is used for per-node
// evaluation records.
//
// # Pretty Output
//
// With [WithPretty], text records are styled with lipgloss when the output
// is a terminal, and JSON records are indented.
//
// # Package Logger
//
// The package-level functions log through a default logger writing to
// standard error. [Config] reconfigures it.
package log
