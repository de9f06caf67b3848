// Package cli contains the command line interface for bloc.
//
// # Usage
//
// Templates are rendered by default; a bare file list is a render:
//
//	bloc -d data.yaml page.tpl > page.html
//	bloc render --set user=ada -o out.txt.gz a.tpl b.tpl
//	bloc render --watch -o site.html site.tpl
//
// The other commands evaluate, inspect and reformat templates:
//
//	bloc eval -t defs.tpl -f json "items | fn.length"
//	bloc ast -f json page.tpl
//	bloc fmt -w page.tpl
//	bloc repl -d data.yaml
//	bloc init
//
// # Configuration
//
// Flag defaults are read from a YAML file (see [pkg.ConfigFile]). Nested
// mappings name flags by joining keys with hyphens, so the following sets
// --log-level and --log-format:
//
//	log:
//	  level: debug
//	  format: text
//
// "bloc init" writes the current flag values to that file.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp layout (rfc3339, kitchen, none, ...)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o bloc .
//
// Then --pprof-mode selects a profile (cpu, heap, allocs, ...) and
// --pprof-dir its output directory, by default under the cache directory.
package cli
