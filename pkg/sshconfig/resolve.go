package sshconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// ForwardRule is one parsed LocalForward directive.
type ForwardRule struct {
	// BindAddress is empty when the directive omitted it (bind to loopback).
	BindAddress string
	BindPort    int
	DestHost    string
	DestPort    int
}

func (f ForwardRule) String() string {
	bind := strconv.Itoa(f.BindPort)
	if f.BindAddress != "" {
		bind = f.BindAddress + ":" + bind
	}
	return fmt.Sprintf("%s -> %s:%d", bind, f.DestHost, f.DestPort)
}

// parseForward parses LocalForward arguments: "[bind_address:]port host:port".
func parseForward(args []string) (ForwardRule, error) {
	if len(args) != 2 {
		return ForwardRule{}, fmt.Errorf("LocalForward wants 2 arguments, got %d", len(args))
	}

	var rule ForwardRule

	bind := args[0]
	if i := strings.LastIndexByte(bind, ':'); i >= 0 {
		rule.BindAddress = bind[:i]
		bind = bind[i+1:]
	}
	port, err := strconv.Atoi(bind)
	if err != nil {
		return ForwardRule{}, fmt.Errorf("LocalForward bind port %q is not a number", bind)
	}
	rule.BindPort = port

	dest := args[1]
	i := strings.LastIndexByte(dest, ':')
	if i <= 0 || i == len(dest)-1 {
		return ForwardRule{}, fmt.Errorf("LocalForward destination %q is not host:port", dest)
	}
	rule.DestHost = dest[:i]
	port, err = strconv.Atoi(dest[i+1:])
	if err != nil {
		return ForwardRule{}, fmt.Errorf("LocalForward destination port %q is not a number", dest[i+1:])
	}
	rule.DestPort = port

	return rule, nil
}

// ResolvedHost is the merged view of one literal alias across all sources.
// Zero values mean "never set"; Hostname is always populated (it defaults to
// the alias). Instances are built once per resolution pass and treated as
// immutable afterwards.
type ResolvedHost struct {
	Alias         string
	Hostname      string
	User          string
	Port          int
	IdentityFiles []string
	ProxyCommand  string
	LocalForwards []ForwardRule

	// Raw preserves unmodeled keywords verbatim (first value wins) so they can
	// be inspected or templated without a parser change.
	Raw map[string]string
}

// EffectivePort returns the configured port or the SSH default.
func (h ResolvedHost) EffectivePort() int {
	if h.Port > 0 {
		return h.Port
	}
	return 22
}

// Destination renders "user@hostname:port" for display and search.
func (h ResolvedHost) Destination() string {
	dest := h.Hostname
	if h.User != "" {
		dest = h.User + "@" + dest
	}
	return dest + ":" + strconv.Itoa(h.EffectivePort())
}

// Registry is the ordered set of resolved hosts. Order is the first-seen order
// of literal aliases across sources; Lookup is O(1) by alias. A registry is
// rebuilt in full on startup or reload, never mutated in place.
type Registry struct {
	hosts   []ResolvedHost
	byAlias map[string]int
}

func (r *Registry) Len() int { return len(r.hosts) }

// At returns the host at registry index i.
func (r *Registry) At(i int) ResolvedHost { return r.hosts[i] }

// Hosts returns the hosts in registry order. Callers must not mutate it.
func (r *Registry) Hosts() []ResolvedHost { return r.hosts }

// Lookup returns the host for a literal alias.
func (r *Registry) Lookup(alias string) (ResolvedHost, bool) {
	i, ok := r.byAlias[alias]
	if !ok {
		return ResolvedHost{}, false
	}
	return r.hosts[i], true
}

// scalar keywords that are modeled as typed fields. Everything else lands in
// Raw. LocalForward and IdentityFile accumulate and are handled separately.
const (
	kwHostname     = "hostname"
	kwUser         = "user"
	kwPort         = "port"
	kwProxyCommand = "proxycommand"
	kwIdentityFile = "identityfile"
	kwLocalForward = "localforward"
)

// Resolve merges the sources, in the order given, into a Registry.
//
// The alias list is every literal (non-wildcard, non-negated) pattern in
// first-seen order; requested, when non-empty, filters that list with the same
// glob semantics as Host patterns. For each alias all blocks are re-scanned in
// the same global order: scalar keywords are written only while unset
// (first-wins), IdentityFile and LocalForward append. This single ordered pass
// reproduces OpenSSH's "first obtained value wins" rule.
//
// Resolve is a pure function of its inputs: the same sources and filter always
// produce an identical registry.
func Resolve(sources []*ConfigSource, requested []string) *Registry {
	var filters []Pattern
	for _, pat := range requested {
		filters = append(filters, CompilePattern(pat))
	}

	reg := &Registry{byAlias: make(map[string]int)}

	for _, src := range sources {
		for _, block := range src.Blocks {
			for _, pat := range block.Patterns {
				if !pat.IsLiteral() {
					continue
				}
				alias := pat.Text
				if _, seen := reg.byAlias[alias]; seen {
					continue
				}
				if len(filters) > 0 && !anyMatches(filters, alias) {
					continue
				}
				reg.byAlias[alias] = len(reg.hosts)
				reg.hosts = append(reg.hosts, ResolvedHost{Alias: alias})
			}
		}
	}

	for i := range reg.hosts {
		h := &reg.hosts[i]
		h.Raw = make(map[string]string)
		for _, src := range sources {
			for bi := range src.Blocks {
				block := &src.Blocks[bi]
				if !block.Matches(h.Alias) {
					continue
				}
				applyBlock(h, block)
			}
		}
		if h.Hostname == "" {
			h.Hostname = h.Alias
		}
	}

	return reg
}

func applyBlock(h *ResolvedHost, block *PatternBlock) {
	for _, d := range block.Directives {
		switch d.Keyword {
		case kwHostname:
			if h.Hostname == "" {
				h.Hostname = d.Args[0]
			}
		case kwUser:
			if h.User == "" {
				h.User = d.Args[0]
			}
		case kwPort:
			if h.Port == 0 {
				// Validated numeric at parse time.
				h.Port, _ = strconv.Atoi(d.Args[0])
			}
		case kwProxyCommand:
			if h.ProxyCommand == "" {
				h.ProxyCommand = d.Args[0]
			}
		case kwIdentityFile:
			h.IdentityFiles = append(h.IdentityFiles, d.Args...)
		case kwLocalForward:
			if rule, err := parseForward(d.Args); err == nil {
				h.LocalForwards = append(h.LocalForwards, rule)
			}
		default:
			if _, set := h.Raw[d.Keyword]; !set {
				h.Raw[d.Keyword] = strings.Join(d.Args, " ")
			}
		}
	}
}

func anyMatches(pats []Pattern, alias string) bool {
	for _, p := range pats {
		if p.Matches(alias) {
			return true
		}
	}
	return false
}
