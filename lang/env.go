package lang

// This file defines the builtin environment seeded into every engine's root
// locals frame. The environment is built once per process and cloned on
// every access, so callers may add to the returned map freely.
//
// Builtin names can be shadowed by template definitions and engine bases.

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/ardnew/mung"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/builtin"
	"github.com/goccy/go-yaml"
	"github.com/goodsign/monday"
	"github.com/klauspost/readahead"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//nolint:gochecknoglobals
var (
	builtinsOnce sync.Once
	builtins     map[string]any
)

// Builtins returns a copy of the builtin environment.
//
// Only the block helpers and four namespaces live at the top level, so data
// keys such as "user", "file" or "title" stay reachable from templates:
//
//   - fn: the expr-lang builtins plus the bloc value helpers (yaml, json,
//     parse, calc, date, title, markdown, string, number, length), which
//     replace expr builtins of the same name;
//   - sys: host information and the process environment;
//   - fs: file reads, tests and path manipulation;
//   - pathlist: PATH-like list manipulation.
func Builtins() map[string]any {
	builtinsOnce.Do(func() {
		fn := exprBuiltins()
		maps.Copy(fn, map[string]any{
			"yaml":     encoder(false),
			"json":     encoder(true),
			"parse":    lift(decode),
			"calc":     lift(calc),
			"date":     lift(formatDate),
			"title":    lift(title),
			"markdown": lift(markdown),
			"string":   lift(ToString),
			"number":   lift(ToNumber),
			"length":   lift(length),
		})

		builtins = map[string]any{
			// Block helpers.
			"if":     ifHelper,
			"unless": unlessHelper,
			"each":   eachHelper,
			"with":   withHelper,

			"fn": fn,

			"sys": map[string]any{
				"target":   getTarget(),
				"platform": getPlatform(),
				"hostname": getHostname(),
				"user":     getUser(),
				"shell":    getShell(),
				"cwd":      lift(getCwd),
				"env":      lift(envLookup),
			},

			"fs": map[string]any{
				"read":      lift(readFile),
				"abs":       lift(pathAbs),
				"cat":       lift(pathCat),
				"rel":       lift(pathRel),
				"base":      lift(filepath.Base),
				"dir":       lift(filepath.Dir),
				"ext":       lift(filepath.Ext),
				"exists":    lift(fileExists),
				"isDir":     lift(fileIsDir),
				"isRegular": lift(fileIsRegular),
				"isSymlink": lift(fileIsSymlink),
			},

			// PATH-like string manipulation via mung.
			"pathlist": map[string]any{
				"prefix":   lift(pathlistPrefix),
				"prefixif": lift(pathlistPrefixIf),
			},
		}
	})

	return maps.Clone(builtins)
}

// lift adapts a host function so that deferred arguments are awaited before
// it is called.
func lift(f any) Func {
	fn, ok := AsFunc(f)
	if !ok {
		panic(fmt.Sprintf("lang: builtin %T is not a function", f))
	}

	return func(args ...any) (any, error) {
		return ThenAll(args, func(in []any) (any, error) {
			return Call(fn, in...)
		})
	}
}

// ---------------------------------------------------------------------------
// Block helpers
// ---------------------------------------------------------------------------

func ifHelper(cond any) Func {
	return func(args ...any) (any, error) {
		return Then(cond, func(c any) (any, error) {
			if Truthy(c) {
				return section(args, "contents")
			}

			return section(args, "else")
		})
	}
}

func unlessHelper(cond any) Func {
	return func(args ...any) (any, error) {
		return Then(cond, func(c any) (any, error) {
			if !Truthy(c) {
				return section(args, "contents")
			}

			return section(args, "else")
		})
	}
}

// eachHelper renders contents(item, key) for every element of items. When
// items is empty the section's else template is rendered instead.
func eachHelper(items any) Func {
	return func(args ...any) (any, error) {
		return Then(items, func(v any) (any, error) {
			context, bloc := HelperArgs(args)

			b, err := bound(bloc, "contents", true)
			if err != nil {
				return nil, err
			}

			var out []any

			for key, item := range elements(v) {
				r, err := b.Render(context, bloc, item, key)
				if err != nil {
					return nil, err
				}

				out = append(out, r)
			}

			if out == nil {
				return section(args, "else")
			}

			return All(out), nil
		})
	}
}

func withHelper(value any) Func {
	return func(args ...any) (any, error) {
		return Then(value, func(v any) (any, error) {
			context, bloc := HelperArgs(args)

			b, err := bound(bloc, "contents", true)
			if err != nil {
				return nil, err
			}

			return b.Render(context, bloc, v)
		})
	}
}

// section renders the named template property of the bloc given in the
// helper arguments. A missing else template renders as nothing.
func section(args []any, name string) (any, error) {
	context, bloc := HelperArgs(args)

	b, err := bound(bloc, name, name == "contents")
	if err != nil || b == nil {
		return "", err
	}

	return b.Render(context, bloc)
}

func bound(bloc *Object, name string, required bool) (*Bound, error) {
	v, _ := bloc.Get(name)

	if b, ok := v.(*Bound); ok {
		return b, nil
	}

	if !required {
		return nil, nil
	}

	return nil, ErrBuiltin.
		Wrap(errors.New("helper requires a section body")).
		With(slog.String("property", name))
}

// elements yields the (key, item) pairs of arrays and objects. Object keys
// follow insertion order; map keys are sorted.
func elements(v any) iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		switch x := v.(type) {
		case nil, missing:
			return
		case []any:
			for i, e := range x {
				if !yield(float64(i), e) {
					return
				}
			}
		case *Object:
			for _, k := range x.Keys() {
				e, _ := x.Get(k)
				if !yield(k, e) {
					return
				}
			}
		case map[string]any:
			for _, k := range sortedKeys(x) {
				if !yield(k, x[k]) {
					return
				}
			}
		default:
			rv := reflect.Indirect(reflect.ValueOf(v))
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				yield(float64(0), v)

				return
			}

			for i := range rv.Len() {
				if !yield(float64(i), Normalize(rv.Index(i).Interface())) {
					return
				}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// envLookup returns the named environment variable, or every variable when
// name is empty.
func envLookup(name string) any {
	if name == "" {
		return environ(nil)
	}

	if v, ok := os.LookupEnv(name); ok {
		return v
	}

	return Missing
}

// environ converts a "KEY=VALUE" list to a map.
// If list is empty, os.Environ() is used.
func environ(list []string) map[string]any {
	if len(list) == 0 {
		list = os.Environ()
	}

	result := make(map[string]any, len(list))

	for _, entry := range list {
		key, value, ok := strings.Cut(entry, "=")
		if ok {
			result[key] = value
		}
	}

	return result
}

// readFile returns a deferred value holding the contents of path.
func readFile(path string) *Future {
	return Go(func() (any, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, ErrBuiltin.Wrap(err).With(slog.String("path", path))
		}
		defer f.Close()

		ra := readahead.NewReader(f)
		defer ra.Close()

		data, err := io.ReadAll(ra)
		if err != nil {
			return nil, ErrBuiltin.Wrap(err).With(slog.String("path", path))
		}

		return string(data), nil
	})
}

// encoder returns the yaml or json helper. Deferred values anywhere within
// the argument are awaited before encoding.
func encoder(asJSON bool) Func {
	return func(args ...any) (any, error) {
		var v any = Missing
		if len(args) > 0 {
			v = args[0]
		}

		return settled(v, func(v any) (any, error) {
			b, err := Encode(v, asJSON)
			if err != nil {
				return nil, err
			}

			return strings.TrimSuffix(string(b), "\n"), nil
		})
	}
}

// settled calls fn with v once v holds no deferred values.
func settled(v any, fn func(any) (any, error)) (any, error) {
	if !hasDeferred(v) {
		return fn(v)
	}

	return Go(func() (any, error) {
		r, err := ResolveDeep(context.Background(), v)
		if err != nil {
			return nil, err
		}

		return fn(r)
	}), nil
}

func hasDeferred(v any) bool {
	switch x := v.(type) {
	case *Future:
		return true
	case []any:
		for _, e := range x {
			if hasDeferred(e) {
				return true
			}
		}
	case *Object:
		for _, k := range x.Keys() {
			if e, _ := x.Get(k); hasDeferred(e) {
				return true
			}
		}
	}

	return false
}

// encodable converts v for serialization. Objects keep their key order and
// integral numbers are written without a fraction.
func encodable(v any) any {
	switch x := v.(type) {
	case missing:
		return nil
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}

		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encodable(e)
		}

		return out
	case *Object:
		out := make(yaml.MapSlice, 0, x.Len())

		for _, k := range x.Keys() {
			e, _ := x.Get(k)
			out = append(out, yaml.MapItem{Key: k, Value: encodable(e)})
		}

		return out
	case map[string]any:
		out := make(yaml.MapSlice, 0, len(x))
		for _, k := range sortedKeys(x) {
			out = append(out, yaml.MapItem{Key: k, Value: encodable(x[k])})
		}

		return out
	case Func, *Bound:
		return ToString(x)
	}

	return v
}

// decode parses YAML or JSON text into objects, arrays and scalars.
func decode(text string) (any, error) {
	var out any

	err := yaml.UnmarshalWithOptions([]byte(text), &out, yaml.UseOrderedMap())
	if err != nil {
		return nil, ErrBuiltin.Wrap(err)
	}

	return fromHost(out), nil
}

// fromHost converts decoded and host values to expression values.
func fromHost(v any) any {
	switch x := v.(type) {
	case yaml.MapSlice:
		obj := NewObject()
		for _, item := range x {
			obj.Set(ToString(item.Key), fromHost(item.Value))
		}

		return obj
	case map[string]any:
		obj := NewObject()
		for _, k := range sortedKeys(x) {
			obj.Set(k, fromHost(x[k]))
		}

		return obj
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromHost(e)
		}

		return out
	case []byte:
		return string(x)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = fromHost(rv.Index(i).Interface())
		}

		return out
	}

	return Normalize(v)
}

// hostValue converts expression values to plain Go values for host
// libraries. Integral numbers become int.
func hostValue(v any) any {
	switch x := v.(type) {
	case missing:
		return nil
	case float64:
		if x == float64(int(x)) {
			return int(x)
		}

		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = hostValue(e)
		}

		return out
	case *Object:
		out := make(map[string]any, x.Len())

		for _, k := range x.Keys() {
			e, _ := x.Get(k)
			out[k] = hostValue(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = hostValue(e)
		}

		return out
	}

	return v
}

// calc evaluates an expr-lang expression with env as its variables.
func calc(src string, env any) (any, error) {
	vars, _ := hostValue(env).(map[string]any)
	if vars == nil {
		vars = map[string]any{}
	}

	r, err := expr.Eval(src, vars)
	if err != nil {
		return nil, ErrBuiltin.Wrap(err).With(slog.String("expr", src))
	}

	return fromHost(r), nil
}

// formatDate parses text in any common layout and formats it with a Go
// layout in the given locale. Empty text means now.
func formatDate(text, layout, locale string) (string, error) {
	t := time.Now()

	if text != "" {
		var err error
		if t, err = dateparse.ParseAny(text); err != nil {
			return "", ErrBuiltin.Wrap(err).With(slog.String("date", text))
		}
	}

	if layout == "" {
		layout = time.RFC3339
	}

	loc := monday.Locale(monday.LocaleEnUS)
	if locale != "" {
		loc = monday.Locale(locale)
	}

	return monday.Format(t, layout, loc), nil
}

func title(s string) string {
	return cases.Title(language.English).String(s)
}

//nolint:gochecknoglobals
var markdownRenderer = sync.OnceValue(func() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
})

func markdown(s string) (string, error) {
	var buf bytes.Buffer

	if err := markdownRenderer().Convert([]byte(s), &buf); err != nil {
		return "", ErrBuiltin.Wrap(err)
	}

	return buf.String(), nil
}

func length(v any) float64 {
	switch x := v.(type) {
	case []any:
		return float64(len(x))
	case string:
		return float64(utf8.RuneCountInString(x))
	case *Object:
		return float64(x.Len())
	case map[string]any:
		return float64(len(x))
	case nil, missing:
		return 0
	}

	if n, ok := Member(v, "length").(float64); ok {
		return n
	}

	return 0
}

// ---------------------------------------------------------------------------
// expr-lang builtins
// ---------------------------------------------------------------------------

// exprBuiltins adapts the expr-lang builtin functions that can be called
// directly. Predicate builtins such as filter and map are compiled specially
// by expr and are unavailable here; calc supports them.
func exprBuiltins() map[string]any {
	fns := make(map[string]any, len(builtin.Builtins))

	for _, b := range builtin.Builtins {
		if fn := exprFunc(b); fn != nil {
			fns[b.Name] = lift(fn)
		}
	}

	return fns
}

func exprFunc(b *builtin.Function) Func {
	call := func(args []any) (any, error) {
		in := make([]any, len(args))
		for i, a := range args {
			in[i] = hostValue(a)
		}

		switch {
		case b.Func != nil:
			return b.Func(in...)
		case b.Safe != nil:
			r, _, err := b.Safe(in...)

			return r, err
		default:
			if len(in) != 1 {
				return nil, fmt.Errorf("%s: want 1 argument, got %d", b.Name, len(in))
			}

			return b.Fast(in[0]), nil
		}
	}

	if b.Func == nil && b.Safe == nil && b.Fast == nil {
		return nil
	}

	return func(args ...any) (any, error) {
		r, err := call(args)
		if err != nil {
			return nil, ErrBuiltin.Wrap(err).With(slog.String("builtin", b.Name))
		}

		return fromHost(r), nil
	}
}

// ---------------------------------------------------------------------------
// System information
// ---------------------------------------------------------------------------

// target contains string identifiers for a target operating system and
// instruction set architecture.
type target struct {
	OS   string
	Arch string
}

// getTarget returns the host target using GNU GCC/LLVM naming conventions.
func getTarget() target {
	t := getPlatform()

	switch t.Arch {
	case "386":
		t.Arch = "i386"
	case "amd64":
		t.Arch = "x86_64"
	case "arm":
		arm, ok := os.LookupEnv("GOARM")
		if ok {
			arm, _, _ = strings.Cut(arm, ",")
			switch strings.TrimSpace(arm) {
			case "5", "6", "7":
				t.Arch = "armv" + arm
			}
		}
	case "arm64":
		if t.OS != "darwin" {
			t.Arch = "aarch64"
		}
	case "mipsle":
		t.Arch = "mipsel"
	}

	return t
}

// getPlatform returns the host target using Go conventions.
func getPlatform() target {
	var (
		o, a string
		ok   bool
	)

	if o, ok = os.LookupEnv("GOHOSTOS"); !ok {
		if o, ok = os.LookupEnv("GOOS"); !ok {
			o = runtime.GOOS
		}
	}

	if a, ok = os.LookupEnv("GOHOSTARCH"); !ok {
		if a, ok = os.LookupEnv("GOARCH"); !ok {
			a = runtime.GOARCH
		}
	}

	return target{OS: o, Arch: a}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}

	return hostname
}

func getUser() *user.User {
	u, err := user.Current()
	if err != nil {
		return nil
	}

	return u
}

func getShell() string {
	if shell, ok := os.LookupEnv("SHELL"); ok {
		return shell
	}

	u := getUser()
	if u == nil || u.Username == "" {
		return ""
	}

	f, err := os.Open("/etc/passwd")
	if err != nil {
		return ""
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		e := strings.Split(s.Text(), ":")
		if len(e) > 6 && e[0] == u.Username {
			return e[6]
		}
	}

	return ""
}

func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return cwd
}

// ---------------------------------------------------------------------------
// Filesystem and paths
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func fileIsRegular(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

func fileIsSymlink(path string) bool {
	info, err := os.Lstat(path)

	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathCat(elem ...string) string {
	return filepath.Join(elem...)
}

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return pathCat(from, to)
	}

	return p
}

// pathlistPrefix prepends items to the path list, dropping duplicates.
func pathlistPrefix(list string, items ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(items...),
	).String()
}

// pathlistPrefixIf is pathlistPrefix keeping only the items accepted by
// predicate.
func pathlistPrefixIf(
	list string,
	predicate func(string) bool,
	items ...string,
) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(items...),
		mung.WithFilter(predicate),
	).String()
}
