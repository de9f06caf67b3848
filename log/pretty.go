package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styles colors the parts of a text record. The renderer chooses the color
// profile of the output, so writers that are not terminals get plain text.
type styles struct {
	time, source, message, key, str, number, boolean, null lipgloss.Style

	trace, debug, info, warn, error lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)

	return &styles{
		time:    r.NewStyle().Foreground(lipgloss.Color("8")),
		source:  r.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		message: r.NewStyle().Bold(true),
		key:     r.NewStyle().Foreground(lipgloss.Color("6")),
		str:     r.NewStyle().Foreground(lipgloss.Color("2")),
		number:  r.NewStyle().Foreground(lipgloss.Color("3")),
		boolean: r.NewStyle().Foreground(lipgloss.Color("5")),
		null:    r.NewStyle().Foreground(lipgloss.Color("8")),
		trace:   r.NewStyle().Foreground(lipgloss.Color("8")),
		debug:   r.NewStyle().Foreground(lipgloss.Color("4")),
		info:    r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		error:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

func (s *styles) level(l slog.Level) lipgloss.Style {
	switch {
	case l < slog.LevelDebug:
		return s.trace
	case l < slog.LevelInfo:
		return s.debug
	case l < slog.LevelWarn:
		return s.info
	case l < slog.LevelError:
		return s.warn
	}

	return s.error
}

// textHandler writes one styled line per record:
//
//	TIME LEVEL source message key=value group.key=value
type textHandler struct {
	opts   slog.HandlerOptions
	styles *styles
	mu     *sync.Mutex
	w      io.Writer
	prefix string // qualified name of the open group, with trailing dot
	groups []string
	attrs  []byte // preformatted attributes from WithAttrs
}

func newTextHandler(w io.Writer, opts *slog.HandlerOptions) *textHandler {
	h := &textHandler{styles: newStyles(w), mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}

	return h
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}

	return level >= threshold
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	h2 := *h
	h2.attrs = bytes.Clone(h.attrs)

	for _, a := range attrs {
		h2.attrs = h2.appendAttr(h2.attrs, h.prefix, h.groups, a)
	}

	return &h2
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	h2 := *h
	h2.prefix = h.prefix + name + "."
	h2.groups = append(h.groups[:len(h.groups):len(h.groups)], name)

	return &h2
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	if !r.Time.IsZero() {
		if a, ok := h.builtin(slog.Time(slog.TimeKey, r.Time)); ok {
			buf = append(buf, h.styles.time.Render(a.Value.String())...)
			buf = append(buf, ' ')
		}
	}

	if a, ok := h.builtin(slog.Any(slog.LevelKey, r.Level)); ok {
		buf = append(buf, h.styles.level(r.Level).Render(fmt.Sprintf("%-5s", a.Value.String()))...)
		buf = append(buf, ' ')
	}

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()

		src := f.File + ":" + strconv.Itoa(f.Line)
		if i := strings.LastIndexByte(f.File, '/'); i >= 0 {
			src = f.File[i+1:] + ":" + strconv.Itoa(f.Line)
		}

		buf = append(buf, h.styles.source.Render(src)...)
		buf = append(buf, ' ')
	}

	if a, ok := h.builtin(slog.String(slog.MessageKey, r.Message)); ok {
		buf = append(buf, h.styles.message.Render(a.Value.String())...)
	}

	buf = append(buf, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, h.prefix, h.groups, a)

		return true
	})

	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf)

	return err
}

// builtin applies ReplaceAttr to a top-level record field.
func (h *textHandler) builtin(a slog.Attr) (slog.Attr, bool) {
	if h.opts.ReplaceAttr != nil {
		a = h.opts.ReplaceAttr(nil, a)
	}

	return a, !a.Equal(slog.Attr{})
}

func (h *textHandler) appendAttr(buf []byte, prefix string, groups []string, a slog.Attr) []byte {
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a.Value = a.Value.Resolve()
		a = h.opts.ReplaceAttr(groups, a)
	}

	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		if len(members) == 0 {
			return buf
		}

		if a.Key != "" {
			prefix += a.Key + "."
			groups = append(groups[:len(groups):len(groups)], a.Key)
		}

		for _, m := range members {
			buf = h.appendAttr(buf, prefix, groups, m)
		}

		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, h.styles.key.Render(prefix+a.Key)...)
	buf = append(buf, '=')

	return append(buf, h.value(a.Value)...)
}

func (h *textHandler) value(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			s = strconv.Quote(s)
		}

		return h.styles.str.Render(s)

	case slog.KindInt64, slog.KindUint64, slog.KindFloat64:
		return h.styles.number.Render(v.String())

	case slog.KindDuration:
		return h.styles.number.Render(v.Duration().String())

	case slog.KindBool:
		return h.styles.boolean.Render(v.String())

	case slog.KindTime:
		return h.styles.time.Render(v.Time().Format(time.RFC3339))

	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return h.styles.null.Render("<nil>")
		case error:
			return h.styles.str.Render(strconv.Quote(x.Error()))
		}
	}

	return v.String()
}

// indentWriter reformats each JSON record written to it with indentation.
// [slog.JSONHandler] writes a whole record per call.
type indentWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *indentWriter) Write(p []byte) (int, error) {
	var buf bytes.Buffer

	if err := json.Indent(&buf, bytes.TrimRight(p, "\n"), "", "  "); err != nil {
		buf.Reset()
		buf.Write(p)
	} else {
		buf.WriteByte('\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(buf.Bytes()); err != nil {
		return 0, err
	}

	return len(p), nil
}
