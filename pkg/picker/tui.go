package picker

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"sshpick/pkg/sshconfig"
)

// Options controls the picker TUI.
type Options struct {
	InitialQuery     string
	ShowProxyCommand bool
	SortByName       bool
	Session          SessionConfig
}

// Run starts the interactive picker over the registry and blocks until the
// user quits. The returned code is the main command's exit status when
// ExitAfterSession ended the program, 0 otherwise. Warnings are surfaced on
// the status line at startup.
func Run(reg *sshconfig.Registry, warnings []string, opts Options) (int, error) {
	m := newModel(reg, warnings, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return 1, err
	}
	if fm, ok := final.(model); ok {
		// Failures from the last session's teardown have no status line left
		// to land on; print them once the terminal is ours again.
		if fm.exitNotice != "" {
			fmt.Fprintln(os.Stderr, fm.exitNotice)
		}
		return fm.exitCode, nil
	}
	return 0, nil
}

// sessionDoneMsg arrives when tea.ExecProcess returns the terminal after the
// main command exits (or fails to start).
type sessionDoneMsg struct {
	session *Session
	err     error
}

type model struct {
	reg  *sshconfig.Registry
	opts Options

	input   textinput.Model
	matches []Match

	selected int
	scroll   int

	status      string
	statusUntil time.Time

	width  int
	height int

	exitCode int
	quitting bool

	// exitNotice carries post-session errors out of the program when
	// ExitAfterSession quits before the status line can show them.
	exitNotice string
}

func newModel(reg *sshconfig.Registry, warnings []string, opts Options) model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search..."
	ti.CharLimit = 256
	ti.SetValue(strings.TrimSpace(opts.InitialQuery))
	ti.PromptStyle = ti.PromptStyle.Bold(true)
	ti.Focus()

	m := model{
		reg:     reg,
		opts:    opts,
		input:   ti,
		matches: Rank(reg, ti.Value(), opts.SortByName),
	}
	if len(warnings) > 0 {
		m.setStatus(strings.Join(warnings, " | "), 6000)
	}
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) setStatus(msg string, ms int) {
	m.status = msg
	m.statusUntil = time.Now().Add(time.Duration(ms) * time.Millisecond)
}

func (m *model) clampSelection() {
	if m.selected >= len(m.matches) {
		m.selected = len(m.matches) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	h := m.listHeight()
	if m.selected < m.scroll {
		m.scroll = m.selected
	}
	if m.selected >= m.scroll+h {
		m.scroll = m.selected - h + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// listHeight is how many host rows fit between the fixed chrome above and
// below the list.
func (m *model) listHeight() int {
	// title + search + header above; detail panel + status + help below.
	h := m.height - 12
	if h < 5 {
		h = 5
	}
	return h
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampSelection()
		return m, nil

	case sessionDoneMsg:
		code := ExitCode(msg.err)

		// A spawn failure never produced an exit status; show the cause
		// instead of a synthetic exit code.
		var exitErr *exec.ExitError
		spawnFailed := msg.err != nil && !errors.As(msg.err, &exitErr)

		var notices []string
		if spawnFailed {
			notices = append(notices, msg.err.Error())
		}
		if err := msg.session.RunPostHook(); err != nil {
			notices = append(notices, err.Error())
		}

		if m.opts.Session.ExitAfterSession {
			m.exitCode = code
			m.exitNotice = strings.Join(notices, " | ")
			m.quitting = true
			return m, tea.Quit
		}
		if !spawnFailed && code != 0 {
			notices = append([]string{fmt.Sprintf("session ended with code %d", code)}, notices...)
		}
		if len(notices) > 0 {
			m.setStatus(strings.Join(notices, " | "), 4000)
		}
		return m, tea.ClearScreen

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.selected--
			m.clampSelection()
			return m, nil

		case key.Matches(msg, keys.Down):
			m.selected++
			m.clampSelection()
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.selected -= m.listHeight()
			m.clampSelection()
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.selected += m.listHeight()
			m.clampSelection()
			return m, nil

		case key.Matches(msg, keys.Home):
			m.selected = 0
			m.clampSelection()
			return m, nil

		case key.Matches(msg, keys.End):
			m.selected = len(m.matches) - 1
			m.clampSelection()
			return m, nil

		case key.Matches(msg, keys.Confirm):
			return m.confirm()
		}

		// Everything else edits the query.
		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.matches = Rank(m.reg, m.input.Value(), m.opts.SortByName)
			m.selected = 0
			m.scroll = 0
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// confirm builds and launches the session for the highlighted host. Render
// and pre-hook failures stay inside the TUI as status messages; only a
// healthy session hands the terminal over.
func (m model) confirm() (tea.Model, tea.Cmd) {
	if len(m.matches) == 0 {
		m.setStatus("no matching host", 2000)
		return m, nil
	}
	host := m.reg.At(m.matches[m.selected].Index)

	s, err := NewSession(host, m.opts.Session)
	if err != nil {
		m.setStatus(err.Error(), 4000)
		return m, nil
	}
	if err := s.RunPreHook(); err != nil {
		m.setStatus(err.Error(), 4000)
		return m, nil
	}
	cmd, err := s.MainCmd()
	if err != nil {
		m.setStatus(err.Error(), 4000)
		return m, nil
	}
	return m, tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sessionDoneMsg{session: s, err: err}
	})
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("sshpick"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(m.formatRow("NAME", "USER", "DESTINATION", "PORT", "PROXY")))
	b.WriteString("\n")

	if len(m.matches) == 0 {
		b.WriteString(emptyStyle.Render("no hosts match"))
		b.WriteString("\n")
	} else {
		end := m.scroll + m.listHeight()
		if end > len(m.matches) {
			end = len(m.matches)
		}
		for i := m.scroll; i < end; i++ {
			h := m.reg.At(m.matches[i].Index)
			row := m.formatRow(h.Alias, h.User, h.Destination(),
				strconv.Itoa(h.EffectivePort()), h.ProxyCommand)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + row))
			} else {
				b.WriteString(normalStyle.Render("  " + row))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(m.detailView())

	if m.status != "" && time.Now().Before(m.statusUntil) {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("↑/↓ move · pgup/pgdn page · enter connect · esc quit"))
	b.WriteString("\n")
	return b.String()
}

func (m model) formatRow(name, user, dest, port, proxy string) string {
	row := fmt.Sprintf("%-24s %-12s %-32s %-5s", trunc(name, 24), trunc(user, 12), trunc(dest, 32), port)
	if m.opts.ShowProxyCommand {
		row += " " + trunc(proxy, 40)
	}
	return row
}

// detailView always shows the highlighted host's proxy command and local
// forwards, independent of the proxy column toggle.
func (m model) detailView() string {
	if len(m.matches) == 0 {
		return "\n"
	}
	h := m.reg.At(m.matches[m.selected].Index)

	var b strings.Builder
	b.WriteString("\n")
	proxy := h.ProxyCommand
	if proxy == "" {
		proxy = "-"
	}
	b.WriteString(detailLabelStyle.Render("proxy: "))
	b.WriteString(detailValueStyle.Render(proxy))
	b.WriteString("\n")

	forwards := "-"
	if len(h.LocalForwards) > 0 {
		var parts []string
		for _, f := range h.LocalForwards {
			parts = append(parts, f.String())
		}
		forwards = strings.Join(parts, ", ")
	}
	b.WriteString(detailLabelStyle.Render("forwards: "))
	b.WriteString(detailValueStyle.Render(forwards))
	b.WriteString("\n")
	return b.String()
}

func trunc(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
