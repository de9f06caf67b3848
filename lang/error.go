package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrParse           = NewError("parse error")
	ErrReadInput       = NewError("failed to read input")
	ErrNotCallable     = NewError("not callable")
	ErrUnknownOperator = NewError("unknown operator")
	ErrArgumentType    = NewError("invalid argument type")
	ErrHostPanic       = NewError("host function panicked")
	ErrHelperDepth     = NewError("helper chain too deep")
	ErrRender          = NewError("render failed")
	ErrBuiltin         = NewError("builtin failed")
)

// Error is an error carrying structured logging attributes.
// It implements both error and [slog.LogValuer].
type Error struct {
	msg   string
	err   error
	attrs []slog.Attr
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError returns err as an *Error, wrapping it if necessary.
func WrapError(err error) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error joins the message and the wrapped error with ": ", omitting
// whichever is empty.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error { return e.err }

// Is matches any *Error created from the same sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.msg != "" && t.msg == e.msg
}

// LogValue groups the message, cause and attributes.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap returns a copy of e wrapping err.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs,
	}
}

// With returns a copy of e with attrs appended.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// ParseError reports malformed template or expression source.
type ParseError struct {
	Location
	Source string
	Msg    string
}

// Error formats the message with its position.
func (e *ParseError) Error() string {
	return "parse error at " + e.Location.String() + ": " + e.Msg
}

// Is matches [ErrParse].
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// LogValue implements [slog.LogValuer].
func (e *ParseError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Msg),
		slog.Int("line", e.Line),
		slog.Int("char", e.Char),
	)
}

// Detail returns Error followed by the offending source line and a caret
// under the failing column.
func (e *ParseError) Detail() string {
	var buf strings.Builder

	buf.WriteString(e.Error())
	buf.WriteString("\n")

	lines := strings.Split(e.Source, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return buf.String()
	}

	line := lines[e.Line-1]
	num := strconv.Itoa(e.Line)

	buf.WriteString("  ")
	buf.WriteString(num)
	buf.WriteString(" | ")
	buf.WriteString(line)
	buf.WriteString("\n")

	// 2 leading spaces + " | "
	buf.WriteString(strings.Repeat(" ", len(num)+5))

	// Mirror tabs so the caret lines up under tab-indented source.
	for i, r := range []rune(line) {
		if i >= e.Char-1 {
			break
		}

		if r == '\t' {
			buf.WriteRune('\t')
		} else {
			buf.WriteRune(' ')
		}
	}

	buf.WriteString("^\n")

	return buf.String()
}
