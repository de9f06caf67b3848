package lang

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/bloc/log"
)

// parsed holds parse results keyed by the xxh3 hash of the source.
// Parsed trees are immutable, so entries are shared between callers.
var parsed sync.Map

// entry is parsed exactly once; concurrent callers wait on once.
// source is kept so that a hash collision is detected on lookup.
type entry struct {
	once   sync.Once
	source string
	root   *RootBloc
	err    error
}

func cacheKey(source string) string {
	return strconv.FormatUint(xxh3.HashString(source), 36)
}

// ParseString parses template source, reusing the result of any earlier
// parse of identical source.
func ParseString(ctx context.Context, source string) (*RootBloc, error) {
	return parseCached(ctx, log.Logger{}, source)
}

// ParseReader reads template source from r and parses it like
// [ParseString].
func ParseReader(ctx context.Context, r io.Reader) (*RootBloc, error) {
	return parseReader(ctx, log.Logger{}, r)
}

func parseReader(ctx context.Context, logger log.Logger, r io.Reader) (*RootBloc, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("source", "reader"))
	}

	logger.TraceContext(ctx, "read input",
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true),
	)

	return parseCached(ctx, logger, string(data))
}

func parseCached(ctx context.Context, logger log.Logger, source string) (*RootBloc, error) {
	key := cacheKey(source)

	v, hit := parsed.LoadOrStore(key, &entry{source: source})
	e, _ := v.(*entry)

	logger.TraceContext(ctx, "cache lookup",
		slog.String("source_hash", key),
		slog.Bool("cache_hit", hit),
	)

	if e.source != source {
		logger.DebugContext(ctx, "cache collision",
			slog.String("source_hash", key),
			slog.Int("source_length", len(source)),
		)

		return ParseTemplate(source)
	}

	e.once.Do(func() {
		e.root, e.err = ParseTemplate(source)
		if e.err != nil {
			logger.DebugContext(ctx, "parse failed",
				slog.Any("error", e.err),
				slog.Int("source_length", len(source)),
			)
		}
	})

	return e.root, e.err
}

// ClearCache discards every cached parse result.
func ClearCache() {
	parsed.Clear()
}
