package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"sshpick/pkg/picker"
	"sshpick/pkg/sshconfig"
)

const defaultTemplate = `ssh "{{{name}}}"`

// systemConfigPath is skipped silently when absent; many machines have no
// system-wide client config.
const systemConfigPath = "/etc/ssh/ssh_config"

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

var (
	flagConfigs   multiFlag
	flagShowProxy bool
	flagSearch    string
	flagSort      bool
	flagTemplate  string
	flagOnStart   string
	flagOnEnd     string
	flagExit      bool
	flagList      bool
	flagDefaults  string
)

func init() {
	flag.Var(&flagConfigs, "c", "SSH config file (repeatable; replaces the default /etc/ssh/ssh_config + ~/.ssh/config pair)")
	flag.Var(&flagConfigs, "config", "SSH config file (repeatable)")
	flag.BoolVar(&flagShowProxy, "show-proxy-command", false, "Show a ProxyCommand column in the host list")
	flag.StringVar(&flagSearch, "s", "", "Initial search filter")
	flag.StringVar(&flagSearch, "search", "", "Initial search filter")
	flag.BoolVar(&flagSort, "sort", true, "Sort hosts alphabetically when the search box is empty")
	flag.StringVar(&flagTemplate, "t", defaultTemplate, "Command template to run on confirm")
	flag.StringVar(&flagTemplate, "template", defaultTemplate, "Command template to run on confirm")
	flag.StringVar(&flagOnStart, "on-session-start-template", "", "Command template to run before the session")
	flag.StringVar(&flagOnEnd, "on-session-end-template", "", "Command template to run after the session")
	flag.BoolVar(&flagExit, "e", false, "Exit after the session ends instead of returning to the list")
	flag.BoolVar(&flagExit, "exit", false, "Exit after the session ends")
	flag.BoolVar(&flagList, "list", false, "Print the resolved hosts and exit")
	flag.StringVar(&flagDefaults, "defaults-file", "", "Path to the YAML defaults file (default: XDG paths)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sshpick\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  sshpick [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sshpick
  sshpick -c ~/.ssh/config -c ~/work/ssh_config
  sshpick -s prod --exit
  sshpick -t 'mosh {{{name}}}'
`)
	}
}

func main() {
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if err := applyDefaultsFile(set); err != nil {
		fmt.Fprintf(os.Stderr, "sshpick: %v\n", err)
		os.Exit(1)
	}

	reg, warnings, err := loadRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sshpick: %v\n", err)
		os.Exit(1)
	}

	if flagList {
		for _, h := range reg.Hosts() {
			fmt.Println(hostLine(h))
		}
		return
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "sshpick: stdin is not a terminal")
		os.Exit(1)
	}

	code, err := picker.Run(reg, warnings, picker.Options{
		InitialQuery:     flagSearch,
		ShowProxyCommand: flagShowProxy,
		SortByName:       flagSort,
		Session: picker.SessionConfig{
			MainTemplate:     flagTemplate,
			PreHookTemplate:  flagOnStart,
			PostHookTemplate: flagOnEnd,
			ExitAfterSession: flagExit,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sshpick: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// applyDefaultsFile fills flags the user did not set from the optional YAML
// defaults file. A missing file means built-in defaults; a broken one is
// fatal.
func applyDefaultsFile(set map[string]bool) error {
	d, _, err := picker.LoadDefaults(flagDefaults)
	if err != nil {
		if errors.Is(err, picker.ErrDefaultsNotFound) {
			return nil
		}
		return err
	}

	if !set["c"] && !set["config"] && len(d.ConfigPaths) > 0 {
		flagConfigs = append(multiFlag(nil), d.ConfigPaths...)
	}
	if !set["t"] && !set["template"] && d.Template != "" {
		flagTemplate = d.Template
	}
	if !set["on-session-start-template"] && d.OnSessionStart != "" {
		flagOnStart = d.OnSessionStart
	}
	if !set["on-session-end-template"] && d.OnSessionEnd != "" {
		flagOnEnd = d.OnSessionEnd
	}
	if !set["show-proxy-command"] && d.ShowProxyCommand != nil {
		flagShowProxy = *d.ShowProxyCommand
	}
	if !set["sort"] && d.Sort != nil {
		flagSort = *d.Sort
	}
	if !set["e"] && !set["exit"] && d.Exit != nil {
		flagExit = *d.Exit
	}
	return nil
}

// loadRegistry parses every configured source and resolves them. With the
// default source list a missing system config is skipped; every other parse
// failure is fatal and already carries file/line context.
func loadRegistry() (*sshconfig.Registry, []string, error) {
	paths := []string(flagConfigs)
	usingDefaults := len(paths) == 0
	if usingDefaults {
		paths = []string{systemConfigPath, "~/.ssh/config"}
	}

	var sources []*sshconfig.ConfigSource
	var warnings []string
	for _, p := range paths {
		src, err := sshconfig.Parse(p)
		if err != nil {
			var ioErr *sshconfig.IOError
			if usingDefaults && p == systemConfigPath && errors.As(err, &ioErr) && os.IsNotExist(ioErr.Err) {
				continue
			}
			return nil, nil, err
		}
		sources = append(sources, src)
		warnings = append(warnings, src.Warnings...)
	}
	if len(sources) == 0 {
		return nil, nil, errors.New("no readable SSH config files")
	}

	return sshconfig.Resolve(sources, flag.Args()), warnings, nil
}

func hostLine(h sshconfig.ResolvedHost) string {
	parts := []string{h.Alias, "->", h.Destination()}
	if h.ProxyCommand != "" {
		parts = append(parts, "via proxy")
	}
	if n := len(h.LocalForwards); n > 0 {
		parts = append(parts, fmt.Sprintf("(%d forwards)", n))
	}
	return strings.Join(parts, " ")
}
