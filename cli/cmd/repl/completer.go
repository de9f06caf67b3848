package repl

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/bloc/lang"
)

// ctrlCommands are the commands accepted in command mode or after ':'.
var ctrlCommands = []string{"help", "let", "render", "list", "edit", "clear", "quit"}

// isWordBoundary reports whether r delimits a completion word: whitespace,
// member access, or expression punctuation.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%',
		'<', '>', '=', '!',
		'&', '|', ',', '?', ':', ';',
		'"', '\'':
		return true
	}

	return false
}

// wordBounds returns the word at cursor and its byte offsets within input.
// The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor
	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the member-access chain before the word starting at
// wordStart. For "x + user.home.na" with the word "na" it is "user.home".
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimRight(prefix, ".")

	pos := len(prefix)
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return strings.TrimSpace(prefix[pos:])
}

// childCandidates returns the completions after parent: every visible name
// at the top level, or the members of the value at parent.
func childCandidates(s *Session, parent string) []string {
	if parent == "" {
		return s.Names()
	}

	v, ok := s.Resolve(parent)
	if !ok {
		return nil
	}

	return members(v)
}

// completion is the result of matching the word under the cursor.
type completion struct {
	matches    fuzzy.Matches
	candidates []string
	start, end int
}

// complete matches the word at cursor against the names valid there. In
// command mode the first word completes to a command and later words
// complete as expressions.
func complete(s *Session, mode inputMode, input string, cursor int) completion {
	word, start, end := wordBounds(input, cursor)
	c := completion{start: start, end: end}

	if mode == modeCtrl && strings.TrimSpace(input[:start]) == "" {
		if word == "" {
			return c
		}

		c.candidates = ctrlCommands
		c.matches = fuzzy.Find(word, c.candidates)

		return c
	}

	parent := parentPath(input, start)
	c.candidates = childCandidates(s, parent)

	if len(c.candidates) == 0 {
		return completion{start: start, end: end}
	}

	if word == "" {
		// Show every member right after a dot; nothing at the top level so
		// the hint line stays visible.
		if parent == "" {
			return completion{start: start, end: end}
		}

		c.matches = make(fuzzy.Matches, len(c.candidates))
		for i, name := range c.candidates {
			c.matches[i] = fuzzy.Match{Str: name, Index: i}
		}

		return c
	}

	c.matches = fuzzy.Find(word, c.candidates)

	return c
}

// computeMatches refreshes the completion for the model's current input.
func (m model) computeMatches() completion {
	return complete(m.session, m.mode, m.input.Value(), m.input.Position())
}

// renderCandidateBar builds the single-line completion bar, ellipsized to
// width. The selected candidate is highlighted while tab-cycling.
func renderCandidateBar(
	s *Session,
	c completion,
	input string,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(c.matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	var (
		b        strings.Builder
		used     int
		sepWidth = lipgloss.Width(sep)
		ellipsis = hintStyle.Render("...")
		parent   = parentPath(input, c.start)
	)

	for i, match := range c.matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx, isFunction(s, parent, match.Str))

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+lipgloss.Width(ellipsis) > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders one candidate with its matched runes emphasized.
// Callables carry a "()" suffix that is not part of the completion.
func renderCandidate(match fuzzy.Match, selected, callable bool) string {
	base, highlight := suggestionStyle, matchStyle
	if selected {
		base, highlight = selectedStyle, selectedMatchStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if callable {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}

// isFunction reports whether name, a member of parent, is callable.
func isFunction(s *Session, parent, name string) bool {
	path := name
	if parent != "" {
		path = parent + "." + name
	}

	v, ok := s.Resolve(path)
	if !ok {
		return false
	}

	_, callable := lang.AsFunc(v)

	return callable
}

// formatPreview is the one-line summary of a definition shown by "list".
func formatPreview(d *lang.Definition) string {
	if d.Expression != nil {
		return ellipsize(lang.Format(d.Expression), 40)
	}

	var sb strings.Builder

	if d.Contents.Params != nil {
		sb.WriteString("(" + strings.Join(d.Contents.Params.Names(), ", ") + ") -> ")
	}

	sb.WriteString(ellipsize(strings.Join(strings.Fields(lang.FormatTemplate(d.Contents)), " "), 40))

	return sb.String()
}

func ellipsize(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n-3]) + "..."
}
