package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/bloc/lang"
	"github.com/ardnew/bloc/log"
)

// preludeMsg is sent when the prelude was edited and parsed.
type preludeMsg struct{ source string }

// editCancelledMsg is sent when the editor left the prelude unchanged.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to fix a prelude that
// does not parse.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the editor could not be run.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

const helpMessage = `
Commands (Esc toggles command mode, or prefix a line with ':'):

  let NAME = EXPR   Bind the value of EXPR to NAME
  render TEMPLATE   Render inline template source
  list              List definitions and bindings
  edit              Edit the prelude template in $EDITOR
  clear             Clear screen
  help              Print this help
  quit              Exit

Keys:
  Tab / Shift-Tab     cycle completion candidates
  Space               accept the current candidate
  Up / Down           history (switches mode to match the entry)
  Shift-Up/Down       history within the current mode
  Alt-Up/Down         command history
  Ctrl-C on an empty line, or Ctrl-D, exits
`

// inputMode is the meaning of a submitted line.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
)

// outcome is the effect of one submitted line.
type outcome struct {
	text  string
	err   error
	quit  bool
	clear bool
	edit  bool
}

// execute runs one line in mode. A line beginning with ':' is a command in
// either mode.
func execute(ctx context.Context, s *Session, input string, mode inputMode) outcome {
	if cmd, ok := strings.CutPrefix(input, ":"); ok {
		input, mode = strings.TrimSpace(cmd), modeCtrl
	}

	if mode == modeEval {
		return display(s.Eval(ctx, input))
	}

	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "q", "quit", "exit":
		return outcome{quit: true}

	case "h", "help":
		return outcome{text: helpMessage}

	case "l", "list":
		return outcome{text: listing(s)}

	case "c", "clear":
		return outcome{clear: true}

	case "e", "edit":
		return outcome{edit: true}

	case "let":
		name, v, err := s.Let(ctx, args)
		if err != nil {
			return outcome{err: err}
		}

		out := display(v, nil)
		out.text = name + " = " + out.text

		return out

	case "r", "render":
		text, err := s.Render(ctx, args)

		return outcome{text: text, err: err}
	}

	return outcome{err: fmt.Errorf("unknown command %q (try help)", cmd)}
}

func display(v any, err error) outcome {
	if err != nil {
		return outcome{err: err}
	}

	text, err := lang.Display(v)

	return outcome{text: text, err: err}
}

// listing describes the prelude definitions and the bindings.
func listing(s *Session) string {
	var b strings.Builder

	defs := s.Definitions()
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(formatPreview(defs[name])))
	}

	for _, name := range s.Bindings() {
		v, _ := s.Resolve(name)
		text, _ := lang.Display(v)
		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render("= "+ellipsize(strings.Join(strings.Fields(text), " "), 40)))
	}

	if b.Len() == 0 {
		return hintStyle.Render("  (nothing defined)")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Script executes every line of r as if typed at the prompt, writing
// results to w. It stops at "quit" or the end of input. Errors are written
// to w and do not stop the script.
func Script(ctx context.Context, s *Session, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		out := execute(ctx, s, line, modeEval)

		switch {
		case out.quit:
			return nil
		case out.err != nil:
			fmt.Fprintln(w, "error: "+out.err.Error())
		case out.text != "":
			fmt.Fprintln(w, out.text)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// model is the Bubble Tea model for the interactive prompt.
type model struct {
	ctxFunc          func() context.Context
	input            textinput.Model
	session          *Session
	logger           log.Logger
	history          *History
	historyIdx       int
	comp             completion
	suggIdx          int       // selected candidate index
	tabActive        bool      // whether user is tab-cycling
	preTabText       string    // input text before tab-cycling began
	preTabCursor     int       // cursor position before tab-cycling began
	altNavActive     bool      // whether user is in Alt+Up/Down navigation
	altNavOrigMode   inputMode // mode before Alt navigation
	altNavOrigText   string
	altNavOrigCursor int
	width            int
	quitting         bool
	mode             inputMode
	evalText         string
	evalCursor       int
	ctrlText         string
	ctrlCursor       int
}

// Run starts the interactive prompt on the terminal.
func Run(ctx context.Context, session *Session, history *History, logger log.Logger) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history", slog.Any("error", err))
	}

	logger.TraceContext(ctx, "repl start",
		slog.Int("history", history.Len()),
		slog.Int("names", len(session.Names())),
	)

	p := tea.NewProgram(newModel(ctx, session, history, logger), tea.WithContext(ctx))
	_, err = p.Run()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}

	return err
}

const defaultWidth = 80

func newModel(ctx context.Context, session *Session, history *History, logger log.Logger) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		session:    session,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		suggIdx:    -1,
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - lipgloss.Width(evalPrompt) - 2

		return m, nil

	case preludeMsg:
		if err := m.session.SetPrelude(m.ctxFunc(), msg.source); err != nil {
			return m, tea.Println(errorStyle.Render("error: " + err.Error()))
		}

		return m, tea.Println(resultStyle.Render("prelude updated"))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		return m, tea.Println(hintStyle.Render("prelude unchanged"))

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	call := detectFunctionCall(input, m.input.Position())

	switch {
	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(input) == "":
		hint := "Type an expression, or press Esc for commands"
		if m.mode == modeCtrl {
			hint = "let, render, list, edit, clear, help, quit (Esc to return)"
		}

		b.WriteString(hintStyle.Render(hint))

	case call.inCall && len(m.comp.matches) == 0:
		if params, ok := signature(m.session, call.name); ok {
			b.WriteString(renderSignatureHint(call.name, params, call.argIndex))
		}

	case len(m.comp.matches) > 0:
		b.WriteString(renderCandidateBar(m.session, m.comp, input, m.suggIdx, m.tabActive, m.width))
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.altNavActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altNavActive = false

		if !m.tabActive || len(m.comp.matches) == 0 {
			return m.executeInput()
		}

		// Lock in the candidate without executing.
		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyCtrl(-1), nil
		}

		return m.historyStep(-1, false), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyCtrl(1), nil
		}

		return m.historyStep(1, false), nil

	case tea.KeyShiftUp:
		return m.historyStep(-1, true), nil

	case tea.KeyShiftDown:
		return m.historyStep(1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		m.altNavActive = false

		if m.mode == modeEval {
			return m.switchToMode(modeCtrl), nil
		}

		return m.switchToMode(modeEval), nil

	case tea.KeyRunes, tea.KeySpace:
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	var cmd tea.Cmd

	m.tabActive = false
	m.altNavActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the tab selection by step, completing immediately when only
// one candidate remains.
func (m model) cycle(step int) model {
	n := len(m.comp.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		replaceCurrentWord(&m, m.comp.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.comp.matches = nil

		return m
	}

	switch {
	case m.tabActive:
		m.suggIdx = (m.suggIdx + step + n) % n
	case step > 0:
		m.tabActive = true
		m.preTabText, m.preTabCursor = m.input.Value(), m.input.Position()
		m.suggIdx = 0
	default:
		m.tabActive = true
		m.preTabText, m.preTabCursor = m.input.Value(), m.input.Position()
		m.suggIdx = n - 1
	}

	replaceCurrentWord(&m, m.comp.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the word under completion with replacement.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	start, end := min(m.comp.start, len(input)), min(m.comp.end, len(input))

	m.input.SetValue(input[:start] + replacement + input[end:])
	m.input.SetCursor(start + len(replacement))

	m.comp.end = start + len(replacement)
}

// refreshMatches recomputes completions. With autoConfirm, a word that
// already equals its only candidate is accepted.
func refreshMatches(m *model, autoConfirm bool) {
	m.comp = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.comp.matches) != 1 {
		return
	}

	if word := m.input.Value()[m.comp.start:m.comp.end]; word == m.comp.matches[0].Str {
		m.tabActive = false
		m.suggIdx = -1
		m.comp.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	mode := m.mode
	if strings.HasPrefix(input, ":") {
		mode = modeCtrl
	}

	m.evalText, m.evalCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0
	m.input.SetValue("")

	if err := m.history.Add(strings.TrimPrefix(input, ":"), mode); err != nil {
		m.logger.DebugContext(m.ctxFunc(), "history not saved", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()
	refreshMatches(&m, false)

	echo := promptStyle.Render(evalPrompt) + inputStyle.Render(input)
	if m.mode == modeCtrl {
		echo = ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
	}

	out := execute(m.ctxFunc(), m.session, input, m.mode)

	m.logger.TraceContext(m.ctxFunc(), "repl input",
		slog.String("input", input),
		slog.Bool("error", out.err != nil),
	)

	switch {
	case out.quit:
		m.quitting = true

		return m, tea.Sequence(tea.Println(echo), tea.Quit)

	case out.clear:
		return m, tea.ClearScreen

	case out.edit:
		return m, tea.Sequence(tea.Println(echo), m.edit())

	case out.err != nil:
		return m, tea.Sequence(tea.Println(echo), tea.Println(errorStyle.Render("error: "+out.err.Error())))
	}

	return m, tea.Sequence(tea.Println(echo), tea.Println(resultStyle.Render(out.text)))
}

func (m model) edit() tea.Cmd {
	cmd := &editPreludeCommand{
		source:  m.session.Prelude(),
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case !cmd.changed:
			return editCancelledMsg{}
		}

		return preludeMsg{source: cmd.edited}
	})
}

// historyStep moves through history by step. With sameMode, entries of the
// other mode are skipped; otherwise the mode follows the entry.
func (m model) historyStep(step int, sameMode bool) model {
	for i := m.historyIdx + step; i >= 0 && i < m.history.Len(); i += step {
		entry, err := m.history.Entry(i)
		if err != nil || (sameMode && entry.Mode != m.mode) {
			continue
		}

		if entry.Mode != m.mode {
			m = m.switchToMode(entry.Mode)
		}

		m.historyIdx = i
		m.input.SetValue(entry.Line)
		m.input.SetCursor(len(entry.Line))
		refreshMatches(&m, false)

		return m
	}

	if step > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		refreshMatches(&m, false)
	}

	return m
}

// historyCtrl moves through command history only, restoring the original
// mode and input on running off either end.
func (m model) historyCtrl(step int) model {
	if !m.altNavActive {
		m.altNavActive = true
		m.altNavOrigMode = m.mode
		m.altNavOrigText = m.input.Value()
		m.altNavOrigCursor = m.input.Position()

		if m.mode != modeCtrl {
			m = m.switchToMode(modeCtrl)
		}
	}

	for i := m.historyIdx + step; i >= 0 && i < m.history.Len(); i += step {
		if entry, err := m.history.Entry(i); err == nil && entry.Mode == modeCtrl {
			m.historyIdx = i
			m.input.SetValue(entry.Line)
			m.input.SetCursor(len(entry.Line))
			refreshMatches(&m, false)

			return m
		}
	}

	m.altNavActive = false
	if m.altNavOrigMode != m.mode {
		m = m.switchToMode(m.altNavOrigMode)
	}

	m.input.SetValue(m.altNavOrigText)
	m.input.SetCursor(m.altNavOrigCursor)
	m.historyIdx = m.history.Len()
	refreshMatches(&m, false)

	return m
}

// switchToMode switches mode, keeping each mode's unsent input.
func (m model) switchToMode(mode inputMode) model {
	if m.mode == modeEval {
		m.evalText, m.evalCursor = m.input.Value(), m.input.Position()
	} else {
		m.ctrlText, m.ctrlCursor = m.input.Value(), m.input.Position()
	}

	m.mode = mode
	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	refreshMatches(&m, false)

	return m
}
