package picker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

func press(t *testing.T, m model, msg tea.KeyMsg) model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm
}

func typeRune(t *testing.T, m model, r rune) model {
	t.Helper()
	return press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func TestSelectionIsClampedNoWraparound(t *testing.T) {
	reg := registryFrom(t, "Host a\nHost b\nHost c\n")
	m := newModel(reg, nil, Options{})

	// Up at the top stays at the top.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 0 {
		t.Fatalf("expected selection clamped at 0, got %d", m.selected)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 2 {
		t.Fatalf("expected selection 2, got %d", m.selected)
	}

	// Down at the bottom stays at the bottom.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 2 {
		t.Fatalf("expected selection clamped at 2, got %d", m.selected)
	}
}

func TestHomeEndJumpToEdges(t *testing.T) {
	reg := registryFrom(t, "Host a\nHost b\nHost c\nHost d\n")
	m := newModel(reg, nil, Options{})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnd})
	if m.selected != 3 {
		t.Fatalf("expected End to select the last row, got %d", m.selected)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyHome})
	if m.selected != 0 {
		t.Fatalf("expected Home to select the first row, got %d", m.selected)
	}
}

func TestTypingRefiltersAndResetsSelection(t *testing.T) {
	reg := registryFrom(t, "Host web-1\nHost database\nHost webhook\n")
	m := newModel(reg, nil, Options{})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Fatalf("expected selection 1, got %d", m.selected)
	}

	m = typeRune(t, m, 'w')
	if m.selected != 0 {
		t.Fatalf("typing must reset selection, got %d", m.selected)
	}
	if len(m.matches) != 2 {
		t.Fatalf("expected 2 matches for 'w', got %d", len(m.matches))
	}
}

func TestInitialQueryPrefiltersList(t *testing.T) {
	reg := registryFrom(t, "Host web-1\nHost database\n")
	m := newModel(reg, nil, Options{InitialQuery: "data"})

	if len(m.matches) != 1 || reg.At(m.matches[0].Index).Alias != "database" {
		t.Fatalf("expected initial query to prefilter, got %d matches", len(m.matches))
	}
	if m.input.Value() != "data" {
		t.Fatalf("expected search box prefilled, got %q", m.input.Value())
	}
}

func TestSessionDoneResumesBrowsing(t *testing.T) {
	reg := registryFrom(t, "Host web-1\nHost web-2\n")
	m := newModel(reg, nil, Options{InitialQuery: "web"})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})

	s, err := NewSession(reg.At(0), SessionConfig{MainTemplate: "ssh x"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	next, _ := m.Update(sessionDoneMsg{session: s})
	nm := next.(model)
	if nm.quitting {
		t.Fatalf("model must keep running without --exit")
	}
	if nm.input.Value() != "web" || nm.selected != 1 {
		t.Fatalf("query and selection must survive a session, got %q/%d",
			nm.input.Value(), nm.selected)
	}
}

func TestSessionDoneQuitsWithExitFlag(t *testing.T) {
	reg := registryFrom(t, "Host web-1\n")
	m := newModel(reg, nil, Options{
		Session: SessionConfig{MainTemplate: "ssh x", ExitAfterSession: true},
	})

	s, err := NewSession(reg.At(0), SessionConfig{MainTemplate: "ssh x"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	next, cmd := m.Update(sessionDoneMsg{session: s})
	nm := next.(model)
	if !nm.quitting {
		t.Fatalf("expected quit with --exit")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
}

func TestConfirmWithNoMatchesStaysInBrowsing(t *testing.T) {
	reg := registryFrom(t, "Host web-1\n")
	m := newModel(reg, nil, Options{InitialQuery: "zzz"})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	nm := next.(model)
	if cmd != nil {
		t.Fatalf("confirm with no matches must not launch anything")
	}
	if nm.status == "" {
		t.Fatalf("expected a status message")
	}
}

func TestExitAfterSessionSurfacesPostHookFailure(t *testing.T) {
	reg := registryFrom(t, "Host web-1\n")
	m := newModel(reg, nil, Options{
		Session: SessionConfig{MainTemplate: "ssh x", ExitAfterSession: true},
	})

	s, err := NewSession(reg.At(0), SessionConfig{
		MainTemplate:     "ssh x",
		PostHookTemplate: "echo broken; exit 9",
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	next, _ := m.Update(sessionDoneMsg{session: s})
	nm := next.(model)
	if !nm.quitting {
		t.Fatalf("expected quit with --exit")
	}
	if nm.exitCode != 0 {
		t.Fatalf("post-hook failure must not change the session exit code, got %d", nm.exitCode)
	}
	if !strings.Contains(nm.exitNotice, "post-hook") {
		t.Fatalf("post-hook failure must survive the quit, got notice %q", nm.exitNotice)
	}
}

func TestSessionDoneSpawnFailureShowsCause(t *testing.T) {
	reg := registryFrom(t, "Host web-1\n")
	m := newModel(reg, nil, Options{})

	s, err := NewSession(reg.At(0), SessionConfig{MainTemplate: "ssh x"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	spawnErr := errors.New(`exec: "no-such-binary": executable file not found in $PATH`)
	next, _ := m.Update(sessionDoneMsg{session: s, err: spawnErr})
	nm := next.(model)
	if !strings.Contains(nm.status, "no-such-binary") {
		t.Fatalf("spawn failure cause must be visible, got status %q", nm.status)
	}
	if strings.Contains(nm.status, "session ended with code") {
		t.Fatalf("spawn failure must not masquerade as an exit code, got %q", nm.status)
	}
}

func TestTruncKeepsValidUTF8(t *testing.T) {
	got := trunc("übergrößenträger.example.com", 10)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) != 10 {
		t.Fatalf("expected 10 runes, got %d in %q", utf8.RuneCountInString(got), got)
	}

	// Multibyte strings under the limit by rune count pass through untouched.
	if got := trunc("héllo", 24); got != "héllo" {
		t.Fatalf("short string must be unchanged, got %q", got)
	}
}

func TestConfirmPreHookFailureStaysInBrowsing(t *testing.T) {
	reg := registryFrom(t, "Host web-1\n")
	m := newModel(reg, nil, Options{
		Session: SessionConfig{MainTemplate: "ssh x", PreHookTemplate: "exit 3"},
	})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	nm := next.(model)
	if cmd != nil {
		t.Fatalf("pre-hook failure must not hand the terminal over")
	}
	if nm.status == "" || nm.quitting {
		t.Fatalf("expected status message and continued browsing")
	}
}
