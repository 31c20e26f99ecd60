package picker

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"sshpick/pkg/sshconfig"
)

// SessionConfig holds the three command templates and the post-session policy.
// Empty hook templates mean "no hook".
type SessionConfig struct {
	MainTemplate     string
	PreHookTemplate  string
	PostHookTemplate string
	ExitAfterSession bool
}

// hookRunner runs one shell command line and returns its combined output.
// Swappable in tests.
type hookRunner func(command string) ([]byte, error)

// runHookCommand executes a hook line via "bash -lc" so it honors the user's
// shell configuration and PATH. Output is captured, not shown live: the
// terminal belongs to the TUI (or to the main command) while hooks run.
func runHookCommand(command string) ([]byte, error) {
	return exec.Command("bash", "-lc", command).CombinedOutput()
}

// Session is one prepared connection to a host: all templates rendered, no
// process started yet. The caller drives the sequence pre-hook, main command,
// post-hook; a pre-hook failure must stop the sequence, a post-hook failure
// must not.
type Session struct {
	Host sshconfig.ResolvedHost

	mainCommand string
	preCommand  string
	postCommand string

	runHook hookRunner
}

// NewSession renders every template for the host up front. A failure in any
// template aborts before anything is spawned, so a broken post-hook template
// never leaves a half-run session behind.
func NewSession(h sshconfig.ResolvedHost, cfg SessionConfig) (*Session, error) {
	s := &Session{Host: h, runHook: runHookCommand}

	var err error
	if s.mainCommand, err = Render(cfg.MainTemplate, h); err != nil {
		return nil, err
	}
	if cfg.PreHookTemplate != "" {
		if s.preCommand, err = Render(cfg.PreHookTemplate, h); err != nil {
			return nil, err
		}
	}
	if cfg.PostHookTemplate != "" {
		if s.postCommand, err = Render(cfg.PostHookTemplate, h); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MainCommand returns the rendered main command line, for display.
func (s *Session) MainCommand() string { return s.mainCommand }

// MainCmd builds the exec.Cmd for the main command. Standard streams are left
// unset: the caller hands the controlling terminal over (tea.ExecProcess wires
// them to the real TTY before the child starts).
func (s *Session) MainCmd() (*exec.Cmd, error) {
	argv, err := shlex.Split(s.mainCommand)
	if err != nil {
		return nil, &SpawnError{Stage: StageMain, Err: err}
	}
	if len(argv) == 0 {
		return nil, &SpawnError{Stage: StageMain, Err: errors.New("empty command")}
	}
	return exec.Command(argv[0], argv[1:]...), nil
}

// RunPreHook runs the pre-session hook, if configured. A nonzero exit is a
// *HookError and means the main command must not run.
func (s *Session) RunPreHook() error {
	return s.runStageHook(StagePre, s.preCommand)
}

// RunPostHook runs the post-session hook, if configured. Callers treat a
// failure as a notice only; the session itself already completed.
func (s *Session) RunPostHook() error {
	return s.runStageHook(StagePost, s.postCommand)
}

func (s *Session) runStageHook(stage Stage, command string) error {
	if command == "" {
		return nil
	}
	out, err := s.runHook(command)
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &HookError{
			Stage:  stage,
			Code:   exitErr.ExitCode(),
			Output: strings.TrimSpace(string(out)),
		}
	}
	return &SpawnError{Stage: stage, Err: err}
}

// ExitCode extracts the child's exit status from a tea.ExecProcess callback
// error. A nil error is 0; a start failure that never produced a status is
// reported as 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
