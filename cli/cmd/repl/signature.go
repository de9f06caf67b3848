package repl

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// builtinParams lists the parameters of the builtin helpers, keyed by the
// path they are called through.
var builtinParams = map[string][]string{
	"if":     {"cond"},
	"unless": {"cond"},
	"each":   {"list"},
	"with":   {"value"},

	"fn.yaml":     {"value"},
	"fn.json":     {"value"},
	"fn.parse":    {"text"},
	"fn.calc":     {"src", "env"},
	"fn.date":     {"text", "layout", "locale"},
	"fn.title":    {"s"},
	"fn.markdown": {"s"},
	"fn.string":   {"v"},
	"fn.number":   {"v"},
	"fn.length":   {"v"},

	"sys.env": {"name"},
	"sys.cwd": {},

	"fs.read":      {"path"},
	"fs.abs":       {"path"},
	"fs.cat":       {"...elem"},
	"fs.rel":       {"from", "to"},
	"fs.base":      {"path"},
	"fs.dir":       {"path"},
	"fs.ext":       {"path"},
	"fs.exists":    {"path"},
	"fs.isDir":     {"path"},
	"fs.isRegular": {"path"},
	"fs.isSymlink": {"path"},

	"pathlist.prefix":   {"list", "...items"},
	"pathlist.prefixif": {"list", "predicate", "...items"},
}

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// functionCall describes the call, if any, whose argument list holds the
// cursor.
type functionCall struct {
	name     string // dotted callee path, e.g. "fs.cat"
	argIndex int
	inCall   bool
}

// detectFunctionCall finds the innermost unclosed '(' before cursor and
// the callee path in front of it.
func detectFunctionCall(input string, cursor int) functionCall {
	cursor = min(cursor, len(input))

	open, depth := -1, 0

	for i := cursor; i > 0 && open < 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				open = i
			}

			depth--
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if r != '.' && r != '_' && !isIdentRune(r) {
			break
		}

		start -= size
	}

	name := strings.Trim(input[start:open], ".")
	if name == "" {
		return functionCall{}
	}

	arg, depth := 0, 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				arg++
			}
		}
	}

	return functionCall{name: name, argIndex: arg, inCall: true}
}

func isIdentRune(r rune) bool {
	return r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// signature returns the parameter names of the callable at name, looking
// through the session's definitions and bindings before the builtins.
func signature(s *Session, name string) ([]string, bool) {
	if params, ok := s.Params(name); ok {
		return params, true
	}

	params, ok := builtinParams[name]

	return params, ok
}

// renderSignatureHint renders "name(a, b)" with the parameter at argIndex
// highlighted. A variadic parameter stays highlighted for every later
// argument.
func renderSignatureHint(name string, params []string, argIndex int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(name))
	b.WriteString(signatureStyle.Render("("))

	for i, param := range params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		variadic := strings.HasPrefix(param, "...")
		if argIndex == i || (variadic && argIndex > i) {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
