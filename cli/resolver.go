package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/bloc/log"
)

// resolve returns a [kong.ConfigurationLoader] for YAML configuration
// files.
//
// Nested mappings name flags by joining keys with hyphens, and underscores
// are read as hyphens, so these documents all set --log-level:
//
//	log-level: debug
//	log_level: debug
//	log:
//	  level: debug
//
// Scalars are passed to kong as strings. Command-line flags override
// configuration values. A file that does not parse is logged and ignored.
func resolve(ctx context.Context) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc map[string]any

		if err := yaml.NewDecoder(r).DecodeContext(ctx, &doc); err != nil && err != io.EOF {
			log.WarnContext(ctx, "ignoring configuration file", slog.Any("error", err))

			return config{}, nil
		}

		c := make(config)
		c.flatten("", doc)

		return c, nil
	}
}

// config implements [kong.Resolver] over flattened flag names.
type config map[string]any

func (c config) flatten(prefix string, m map[string]any) {
	for k, v := range m {
		name := strings.ReplaceAll(k, "_", "-")
		if prefix != "" {
			name = prefix + "-" + name
		}

		if sub, ok := v.(map[string]any); ok {
			c.flatten(name, sub)

			continue
		}

		c[name] = flagValue(v)
	}
}

// flagValue converts a decoded YAML value to the form kong's mappers
// accept.
func flagValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = flagValue(e)
		}

		return out
	}

	return fmt.Sprint(v)
}

func (c config) Validate(*kong.Application) error { return nil }

func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if v, ok := c[flag.Name]; ok {
		return v, nil
	}

	return nil, nil
}
