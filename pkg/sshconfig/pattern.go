package sshconfig

import (
	"regexp"
	"strings"
)

// Pattern is one host pattern from a Host line. OpenSSH patterns support '*'
// (any run of characters), '?' (any single character) and a leading '!' that
// negates the pattern for the block it appears in.
type Pattern struct {
	// Text is the pattern as written, including any leading '!'.
	Text string

	Negated bool

	re *regexp.Regexp
}

// CompilePattern translates an OpenSSH host pattern into a matcher.
// The translation cannot fail: every metacharacter outside '*' and '?' is
// quoted literally.
func CompilePattern(text string) Pattern {
	p := Pattern{Text: text}

	body := text
	if strings.HasPrefix(body, "!") {
		p.Negated = true
		body = body[1:]
	}

	quoted := regexp.QuoteMeta(body)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	quoted = strings.ReplaceAll(quoted, `\?`, ".")
	p.re = regexp.MustCompile("^" + quoted + "$")

	return p
}

// Matches reports whether alias matches the pattern body. Negation is the
// caller's concern: a negated pattern that Matches means the alias is excluded
// from the block.
func (p Pattern) Matches(alias string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(alias)
}

// IsLiteral reports whether the pattern names exactly one host: no wildcard
// metacharacters and not negated. Literal patterns become registry aliases.
func (p Pattern) IsLiteral() bool {
	if p.Negated || p.Text == "" {
		return false
	}
	return !strings.ContainsAny(p.Text, "*?")
}
