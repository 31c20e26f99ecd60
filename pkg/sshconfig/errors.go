package sshconfig

import (
	"fmt"
	"strings"
)

// IOError reports a failure to open or read a config file (missing file,
// permission denied, scanner failure).
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read ssh config %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// MalformedError reports a directive that could not be parsed. Parsing is
// fail-fast: a directive we cannot understand could connect the user to the
// wrong host, so the whole parse is rejected rather than the line skipped.
type MalformedError struct {
	File   string
	Line   int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

// IncludeCycleError reports an Include chain that reaches a file already being
// parsed. Cycle lists the files on the chain, ending with the repeated one.
type IncludeCycleError struct {
	Cycle []string
}

func (e *IncludeCycleError) Error() string {
	return fmt.Sprintf("include cycle: %s", strings.Join(e.Cycle, " -> "))
}

// IncludeTooDeepError reports Include nesting beyond maxIncludeDepth.
type IncludeTooDeepError struct {
	File  string
	Depth int
}

func (e *IncludeTooDeepError) Error() string {
	return fmt.Sprintf("include nesting too deep (%d levels) at %s", e.Depth, e.File)
}
