//go:build !pprof

package cli

import (
	"context"

	"github.com/alecthomas/kong"
)

// pprofConfig accepts the profiling flags and ignores them when built
// without the pprof tag.
type pprofConfig struct {
	Mode string `default:"" help:"Enable profiling (requires the pprof build tag)" hidden:"" short:"p"`
	Dir  string `default:"" help:"Profile output directory"                        hidden:"" type:"path"`
}

func (pprofConfig) vars(string) kong.Vars { return kong.Vars{} }

func (pprofConfig) group() kong.Group {
	return kong.Group{Key: "pprof", Title: "Profiling (pprof)"}
}

func (pprofConfig) start(context.Context) (stop func()) { return func() {} }
