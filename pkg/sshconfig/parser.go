// Package sshconfig parses OpenSSH client configuration files and resolves
// them into a registry of connectable hosts.
//
// Parsing and resolution are two passes. Parse turns one file (plus its
// Include tree) into an ordered sequence of pattern blocks; Resolve merges any
// number of parsed sources into per-alias host entries using OpenSSH
// precedence: the first obtained value wins for scalar keywords, while
// IdentityFile and LocalForward accumulate across every matching block.
package sshconfig

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxIncludeDepth bounds Include recursion. OpenSSH uses 16.
const maxIncludeDepth = 16

// Directive is one keyword line from a config file. Keyword is lowercased;
// Args preserve the original spelling.
type Directive struct {
	Keyword string
	Args    []string
	File    string
	Line    int
}

// PatternBlock is a Host (or Match) header plus the directives that follow it
// until the next header. A block with no patterns is inert: it matches no
// alias and contributes nothing during resolution.
type PatternBlock struct {
	Patterns   []Pattern
	Directives []Directive
	File       string
	Line       int
}

// Matches reports whether alias is covered by this block: at least one
// non-negated pattern matches and no negated pattern does.
func (b *PatternBlock) Matches(alias string) bool {
	matched := false
	for _, p := range b.Patterns {
		if !p.Matches(alias) {
			continue
		}
		if p.Negated {
			return false
		}
		matched = true
	}
	return matched
}

// ConfigSource is the parse result for one file, with the blocks of any
// included files spliced in at the Include's position.
type ConfigSource struct {
	Path   string
	Blocks []PatternBlock

	// Warnings records accepted-but-simplified constructs (currently Match
	// blocks whose conditions we do not evaluate) so they can be surfaced to
	// the user instead of silently dropped.
	Warnings []string
}

// keywords whose argument is the raw remainder of the line, passed verbatim to
// a shell later. Splitting these on whitespace would corrupt the command.
var verbatimKeywords = map[string]bool{
	"proxycommand":  true,
	"localcommand":  true,
	"remotecommand": true,
}

// Parse reads the config file at path, expanding Include directives
// recursively. The returned error is one of *IOError, *MalformedError,
// *IncludeCycleError or *IncludeTooDeepError.
func Parse(path string) (*ConfigSource, error) {
	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		abs = ExpandPath(path)
	}

	p := &parser{src: &ConfigSource{Path: abs}}
	blocks, err := p.parseFile(abs, 0)
	if err != nil {
		return nil, err
	}
	p.src.Blocks = blocks
	return p.src, nil
}

type parser struct {
	src *ConfigSource

	// stack holds the files currently being parsed, outermost first, so a
	// re-entered file can name the whole cycle.
	stack []string
}

func (p *parser) parseFile(path string, depth int) ([]PatternBlock, error) {
	if depth > maxIncludeDepth {
		return nil, &IncludeTooDeepError{File: path, Depth: depth}
	}
	for i, onStack := range p.stack {
		if onStack == path {
			cycle := append(append([]string(nil), p.stack[i:]...), path)
			return nil, &IncludeCycleError{Cycle: cycle}
		}
	}
	p.stack = append(p.stack, path)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()

	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	var blocks []PatternBlock
	var current *PatternBlock

	flush := func() {
		if current != nil {
			blocks = append(blocks, *current)
			current = nil
		}
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		keyword, rest, ok := splitKeyVal(line)
		if !ok {
			flush()
			return nil, &MalformedError{File: path, Line: lineNo,
				Reason: fmt.Sprintf("directive %q has no arguments", line)}
		}

		switch keyword {
		case "host":
			flush()
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				return nil, &MalformedError{File: path, Line: lineNo, Reason: "Host directive without patterns"}
			}
			current = &PatternBlock{File: path, Line: lineNo}
			for _, f := range fields {
				current.Patterns = append(current.Patterns, CompilePattern(f))
			}

		case "match":
			flush()
			// Match conditions are not evaluated; only "Match all" (which is
			// equivalent to "Host *") is honored. Anything else becomes an
			// inert block so its directives never leak into other hosts.
			current = &PatternBlock{File: path, Line: lineNo}
			if strings.EqualFold(strings.TrimSpace(rest), "all") {
				current.Patterns = []Pattern{CompilePattern("*")}
			} else {
				p.src.Warnings = append(p.src.Warnings,
					fmt.Sprintf("%s:%d: Match conditions are not evaluated; block skipped", path, lineNo))
			}

		case "include":
			flush()
			included, err := p.include(path, rest, depth)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, included...)

		default:
			args, err := splitDirectiveArgs(keyword, rest)
			if err != nil {
				return nil, &MalformedError{File: path, Line: lineNo, Reason: err.Error()}
			}
			if err := validateDirective(keyword, args); err != nil {
				return nil, &MalformedError{File: path, Line: lineNo, Reason: err.Error()}
			}
			if current == nil {
				// Directives before the first Host apply to every host, the
				// same way OpenSSH treats leading global settings.
				current = &PatternBlock{
					Patterns: []Pattern{CompilePattern("*")},
					File:     path,
					Line:     lineNo,
				}
			}
			current.Directives = append(current.Directives, Directive{
				Keyword: keyword,
				Args:    args,
				File:    path,
				Line:    lineNo,
			})
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return blocks, nil
}

// include expands an Include glob relative to the including file's directory
// and parses every matched file in filesystem match order. A glob that matches
// nothing is not an error; that is common for optional drop-in directories.
func (p *parser) include(baseFile, pattern string, depth int) ([]PatternBlock, error) {
	pattern = ExpandPath(strings.TrimSpace(unquote(pattern)))
	if pattern == "" {
		return nil, nil
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(filepath.Dir(baseFile), pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &IOError{Path: pattern, Err: err}
	}

	var out []PatternBlock
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		blocks, err := p.parseFile(m, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, blocks...)
	}
	return out, nil
}

// splitKeyVal splits "Key Value" or "Key=Value" into a lowercased keyword and
// the untrimmed-right remainder. A keyword with nothing after it is not ok.
func splitKeyVal(line string) (keyword, rest string, ok bool) {
	i := strings.IndexAny(line, " \t=")
	if i < 0 {
		return "", "", false
	}
	keyword = strings.ToLower(strings.TrimSpace(line[:i]))
	rest = strings.TrimSpace(line[i+1:])
	if keyword == "" || rest == "" {
		return "", "", false
	}
	return keyword, rest, true
}

// splitDirectiveArgs tokenizes a directive's remainder. Verbatim keywords keep
// the remainder as a single argument; everything else is split on whitespace
// with double-quote grouping ("two words" is one argument).
func splitDirectiveArgs(keyword, rest string) ([]string, error) {
	if verbatimKeywords[keyword] {
		return []string{rest}, nil
	}

	var args []string
	var cur strings.Builder
	inQuote := false
	flushed := false

	for _, r := range rest {
		switch {
		case r == '"':
			inQuote = !inQuote
			flushed = true
		case !inQuote && (r == ' ' || r == '\t'):
			if cur.Len() > 0 || flushed {
				args = append(args, cur.String())
				cur.Reset()
				flushed = false
			}
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%s: unterminated quote", keyword)
	}
	if cur.Len() > 0 || flushed {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing argument", keyword)
	}
	return args, nil
}

// validateDirective rejects arguments the resolver would otherwise have to
// guess about. Resolution has no error path, so format checks live here.
func validateDirective(keyword string, args []string) error {
	switch keyword {
	case "port":
		if _, err := strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("Port %q is not a number", args[0])
		}
	case "localforward":
		if _, err := parseForward(args); err != nil {
			return err
		}
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ExpandPath expands environment variables and a leading "~" in a path.
func ExpandPath(p string) string {
	if p == "" {
		return ""
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		home, _ := os.UserHomeDir()
		if home != "" {
			if p == "~" {
				return home
			}
			if strings.HasPrefix(p, "~/") {
				return filepath.Join(home, p[2:])
			}
		}
	}
	return p
}
