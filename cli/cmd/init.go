package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/bloc/log"
	"github.com/ardnew/bloc/profile"
)

// defaultConfigIndent is the indent width of generated configuration files.
const defaultConfigIndent = 2

// Init generates a configuration file holding the current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return ErrWriteConfig.Wrap(errors.New("no command context"))
	}

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok || confPath == "" {
		return ErrWriteConfig.Wrap(errors.New("configuration path undefined"))
	}

	if _, err := os.Stat(confPath); err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(ErrFileExists)
	}

	buf, err := yaml.MarshalContext(ctx, configDocument(ktx),
		yaml.Indent(defaultConfigIndent),
		yaml.IndentSequence(true),
	)
	if err != nil {
		return ErrWriteConfig.With(slog.String("file", confPath)).Wrap(err)
	}

	if err := os.MkdirAll(filepath.Dir(confPath), 0o755); err != nil {
		return ErrWriteConfig.With(slog.String("file", confPath)).Wrap(err)
	}

	if err := os.WriteFile(confPath, buf, 0o644); err != nil {
		return ErrWriteConfig.With(slog.String("file", confPath)).Wrap(err)
	}

	log.DebugContext(ctx, "initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// configDocument groups the set global flags by their first name segment:
// "log-level" becomes log.level.
func configDocument(ktx *kong.Context) yaml.MapSlice {
	var (
		doc    yaml.MapSlice
		groups = make(map[string]int)
		ignore = []string{"help", "version", profile.Tag}
	)

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(ignore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		val, ok := configValue(ktx.FlagValue(flag))
		if !ok {
			continue
		}

		group, key, nested := strings.Cut(flag.Name, "-")
		if !nested {
			doc = append(doc, yaml.MapItem{Key: flag.Name, Value: val})

			continue
		}

		idx, seen := groups[group]
		if !seen {
			idx = len(doc)
			groups[group] = idx
			doc = append(doc, yaml.MapItem{Key: group, Value: yaml.MapSlice{}})
		}

		sub, _ := doc[idx].Value.(yaml.MapSlice)
		doc[idx].Value = append(sub, yaml.MapItem{Key: key, Value: val})
	}

	return doc
}

// configValue reports the YAML value of a flag, or false if the flag holds
// nothing worth persisting.
func configValue(v any) (any, bool) {
	switch v := v.(type) {
	case nil:
		return nil, false

	case string:
		return v, v != ""

	case []string:
		return v, len(v) > 0

	case bool, int, int64, uint, uint64, float64:
		return v, true

	case interface{ String() string }:
		s := v.String()

		return s, s != ""
	}

	return v, true
}
