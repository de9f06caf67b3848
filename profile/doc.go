// Package profile runs an optional runtime profiler around a bloc command.
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof ./cmd/bloc
//	bloc --pprof-mode cpu render page.tpl
//
// Without the tag [Modes] is empty and [Profiler.Start] does nothing.
//
// Profiles are written under the configured directory with the file name
// chosen by [github.com/pkg/profile] (cpu.pprof, mem.pprof, trace.out and so
// on). Analyze them with go tool pprof:
//
//	go tool pprof -http=: ~/.cache/bloc/pprof/cpu.pprof
//
// Tagged builds also register the [net/http/pprof] handlers on the default
// mux.
package profile

// Tag is the build tag that enables profiling.
const Tag = `pprof`
