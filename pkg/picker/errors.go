package picker

import "fmt"

// Stage identifies which part of a session a failure belongs to.
type Stage string

const (
	StagePre  Stage = "pre-hook"
	StageMain Stage = "command"
	StagePost Stage = "post-hook"
)

// TemplateError wraps a Handlebars rendering failure.
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("render template %q: %v", e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// HookError reports a hook command that ran and exited nonzero.
type HookError struct {
	Stage  Stage
	Code   int
	Output string
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Stage, e.Code)
}

// SpawnError reports a command that could not be started at all, for example
// when the executable does not exist.
type SpawnError struct {
	Stage Stage
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Stage, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
