package lang

import (
	"log/slog"
	"maps"
	"reflect"
	"slices"
)

func sortedKeys[T any](m map[string]T) []string {
	if len(m) == 0 {
		return nil
	}

	return slices.Sorted(maps.Keys(m))
}

// typeName names the dynamic type of v for log records.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case missing:
		return "undefined"
	case *Future:
		return "deferred"
	case Func:
		return "function"
	}

	return reflect.TypeOf(v).String()
}

// valueAttr describes v under key without forcing deferred values.
func valueAttr(key string, v any) slog.Attr {
	return slog.Group(key,
		slog.String("type", typeName(v)),
		slog.Bool("deferred", IsDeferred(v)),
	)
}
