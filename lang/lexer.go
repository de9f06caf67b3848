package lang

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF    tokenKind = iota
	tokClose            // }} at brace depth zero
	tokNumber           // 1, 2.5, 1e3
	tokString           // 'text' or "text"
	tokIdent            // name, including keywords
	tokPunct            // operators and delimiters
)

type token struct {
	kind tokenKind
	text string
	loc  Location
}

// punctuation is ordered longest first so that "&&" wins over "&".
var punctuation = []string{
	"->", "=>", "==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "!", "|", "=",
	"(", ")", "[", "]", "{", "}", ".", ",", ":", ";",
}

// scanner walks template source rune by rune, tracking position.
type scanner struct {
	src  string
	pos  int
	line int
	char int
}

func newScanner(src string) *scanner {
	return &scanner{src: src, line: 1, char: 1}
}

func (s *scanner) loc() Location { return Location{Line: s.line, Char: s.char} }

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peekRune() rune {
	if s.eof() {
		return utf8.RuneError
	}

	r, _ := utf8.DecodeRuneInString(s.src[s.pos:])

	return r
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.src[s.pos:], p)
}

func (s *scanner) advance() rune {
	r, n := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += n

	if r == '\n' {
		s.line++
		s.char = 1
	} else {
		s.char++
	}

	return r
}

func (s *scanner) skip(p string) {
	for range utf8.RuneCountInString(p) {
		s.advance()
	}
}

func (s *scanner) skipSpace() {
	for !s.eof() && unicode.IsSpace(s.peekRune()) {
		s.advance()
	}
}

// lexer produces expression tokens from inside a tag.
type lexer struct {
	*scanner
	depth  int // open { inside the current tag
	peeked *token
}

func (l *lexer) peek() (token, error) {
	if l.peeked == nil {
		t, err := l.scan()
		if err != nil {
			return token{}, err
		}

		l.peeked = &t
	}

	return *l.peeked, nil
}

func (l *lexer) next() (token, error) {
	t, err := l.peek()
	l.peeked = nil

	return t, err
}

func (l *lexer) scan() (token, error) {
	l.skipSpace()

	loc := l.loc()

	if l.eof() {
		return token{kind: tokEOF, loc: loc}, nil
	}

	if l.depth == 0 && l.hasPrefix("}}") {
		l.skip("}}")

		return token{kind: tokClose, text: "}}", loc: loc}, nil
	}

	r := l.peekRune()

	switch {
	case r == '\'' || r == '"':
		return l.scanString(loc)
	case isDigit(r):
		return l.scanNumber(loc)
	case isIdentRune(r, true):
		start := l.pos
		for !l.eof() && isIdentRune(l.peekRune(), false) {
			l.advance()
		}

		return token{kind: tokIdent, text: l.src[start:l.pos], loc: loc}, nil
	}

	for _, p := range punctuation {
		if l.hasPrefix(p) {
			l.skip(p)

			switch p {
			case "{":
				l.depth++
			case "}":
				l.depth--
			}

			return token{kind: tokPunct, text: p, loc: loc}, nil
		}
	}

	return token{}, l.errorf(loc, "unexpected character %q", r)
}

func (l *lexer) scanNumber(loc Location) (token, error) {
	start := l.pos

	digits := func() {
		for !l.eof() && isDigit(l.peekRune()) {
			l.advance()
		}
	}

	digits()

	if l.hasPrefix(".") && l.pos+1 < len(l.src) && isDigit(rune(l.src[l.pos+1])) {
		l.advance()
		digits()
	}

	if r := l.peekRune(); r == 'e' || r == 'E' {
		mark := *l.scanner

		l.advance()

		if r := l.peekRune(); r == '+' || r == '-' {
			l.advance()
		}

		if !isDigit(l.peekRune()) {
			*l.scanner = mark
		} else {
			digits()
		}
	}

	text := l.src[start:l.pos]
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return token{}, l.errorf(loc, "invalid number %q", text)
	}

	return token{kind: tokNumber, text: text, loc: loc}, nil
}

func (l *lexer) scanString(loc Location) (token, error) {
	quote := l.advance()

	var sb strings.Builder

	for {
		if l.eof() {
			return token{}, l.errorf(loc, "unterminated string")
		}

		r := l.advance()

		switch r {
		case quote:
			return token{kind: tokString, text: sb.String(), loc: loc}, nil
		case '\n':
			return token{}, l.errorf(loc, "unterminated string")
		case '\\':
			if err := l.scanEscape(&sb); err != nil {
				return token{}, err
			}
		default:
			sb.WriteRune(r)
		}
	}
}

var simpleEscapes = map[rune]rune{
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t',
	'v': '\v', '\\': '\\', '\'': '\'', '"': '"', '/': '/',
}

func (l *lexer) scanEscape(sb *strings.Builder) error {
	loc := l.loc()

	if l.eof() {
		return l.errorf(loc, "unterminated escape")
	}

	r := l.advance()

	if e, ok := simpleEscapes[r]; ok {
		sb.WriteRune(e)

		return nil
	}

	width := map[rune]int{'x': 2, 'u': 4, 'U': 8}[r]
	if width == 0 {
		return l.errorf(loc, "unknown escape \\%c", r)
	}

	if l.pos+width > len(l.src) {
		return l.errorf(loc, "short escape \\%c", r)
	}

	hex := l.src[l.pos : l.pos+width]

	code, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return l.errorf(loc, "invalid escape \\%c%s", r, hex)
	}

	l.skip(hex)

	if r == 'x' {
		sb.WriteByte(byte(code))
	} else {
		sb.WriteRune(rune(code))
	}

	return nil
}

func (l *lexer) errorf(loc Location, format string, args ...any) *ParseError {
	return parseErrorf(l.src, loc, format, args...)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentRune(r rune, first bool) bool {
	switch {
	case r == '_' || r == '$' || unicode.IsLetter(r):
		return true
	case !first && unicode.IsDigit(r):
		return true
	}

	return false
}
