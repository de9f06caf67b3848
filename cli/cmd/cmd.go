package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/alecthomas/kong"
)

type contextKey struct{}

// WithContext returns a copy of ctx carrying ktx.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type (
	ioKey   struct{}
	streams struct {
		in  io.Reader
		out io.Writer
	}
)

// WithIO returns a copy of ctx whose commands read standard input from in
// and write results to out. Nil streams keep the process defaults.
func WithIO(ctx context.Context, in io.Reader, out io.Writer) context.Context {
	return context.WithValue(ctx, ioKey{}, streams{in: in, out: out})
}

func streamsFrom(ctx context.Context) streams {
	s, _ := ctx.Value(ioKey{}).(streams)

	if s.in == nil {
		s.in = os.Stdin
	}

	if s.out == nil {
		s.out = os.Stdout
	}

	return s
}

// stdinSource names standard input in a list of input files.
const stdinSource = "-"

// source is one named template input.
type source struct {
	name string
	path string // empty for standard input
}

// fileKey identifies a file by device and inode, so that symlinks and
// relative or absolute spellings of one file compare equal.
type fileKey struct {
	dev uint64
	ino uint64
}

// uniqueSources returns paths with duplicate files removed, keeping the
// first occurrence. Every "-" collapses into one standard input source
// placed last. An empty list means standard input alone.
func uniqueSources(paths []string) ([]source, error) {
	if len(paths) == 0 {
		return []source{{name: stdinSource}}, nil
	}

	var (
		out   = make([]source, 0, len(paths))
		seen  = make(map[fileKey]struct{})
		stdin bool
	)

	for _, p := range paths {
		if p == stdinSource {
			stdin = true

			continue
		}

		resolved, err := resolvePath(p)
		if err != nil {
			return nil, ErrReadInput.Wrap(err).With(slog.String("file", p))
		}

		info, err := os.Stat(resolved)
		if err != nil {
			return nil, ErrReadInput.Wrap(err).With(slog.String("file", p))
		}

		if key, ok := makeFileKey(info); ok {
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}
		}

		out = append(out, source{name: p, path: resolved})
	}

	if stdin {
		out = append(out, source{name: stdinSource})
	}

	return out, nil
}

func makeFileKey(info os.FileInfo) (fileKey, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileKey{}, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}

// read returns the contents of s, reading standard input from in.
func (s source) read(in io.Reader) ([]byte, error) {
	if s.path == "" {
		return io.ReadAll(in)
	}

	return os.ReadFile(s.path)
}
