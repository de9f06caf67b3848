package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// nopCloser keeps a shared stream open when its writer is closed.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// multiCloser closes an encoder before the file beneath it.
type multiCloser struct {
	io.Writer

	closers []io.Closer
}

func (m multiCloser) Close() error {
	var first error

	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// createOutput opens path for writing, compressing by its extension: ".gz"
// with gzip and ".zst" with zstd. An empty path writes to stdout, which is
// left open on Close.
func createOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{stdout}, nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ErrWriteOutput.Wrap(err).With(slog.String("file", path))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, ErrWriteOutput.Wrap(err).With(slog.String("file", path))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zw := gzip.NewWriter(f)

		return multiCloser{Writer: zw, closers: []io.Closer{zw, f}}, nil

	case ".zst":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()

			return nil, ErrWriteOutput.Wrap(err).With(slog.String("file", path))
		}

		return multiCloser{Writer: zw, closers: []io.Closer{zw, f}}, nil
	}

	return f, nil
}
