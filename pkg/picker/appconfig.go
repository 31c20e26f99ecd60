package picker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"sshpick/pkg/sshconfig"
)

// ErrDefaultsNotFound means no defaults file exists at any candidate path.
// Callers treat it as "use built-in defaults", not as a failure.
var ErrDefaultsNotFound = errors.New("no defaults file found")

// Defaults is the optional YAML defaults file. Every field maps to a CLI
// flag; flags override file values.
//
// Example:
//
//	config_paths:
//	  - ~/.ssh/config
//	  - ~/work/ssh_config
//	template: ssh "{{{name}}}"
//	on_session_start: notify-send "connecting to {{name}}"
//	sort: true
type Defaults struct {
	ConfigPaths      []string `yaml:"config_paths,omitempty"`
	Template         string   `yaml:"template,omitempty"`
	OnSessionStart   string   `yaml:"on_session_start,omitempty"`
	OnSessionEnd     string   `yaml:"on_session_end,omitempty"`
	ShowProxyCommand *bool    `yaml:"show_proxy_command,omitempty"`
	Sort             *bool    `yaml:"sort,omitempty"`
	Exit             *bool    `yaml:"exit,omitempty"`
}

// LoadDefaults reads the first readable candidate path. A missing file at
// every candidate returns ErrDefaultsNotFound; a file that exists but does
// not parse is a real error. An explicitly named file the user asked for is
// never skipped: any read failure there is fatal.
func LoadDefaults(explicitPath string) (*Defaults, string, error) {
	if explicitPath != "" {
		p := sshconfig.ExpandPath(explicitPath)
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, p, fmt.Errorf("read defaults file %s: %w", p, err)
		}
		return parseDefaults(p, data)
	}

	for _, p := range DefaultsPathCandidates("") {
		p = sshconfig.ExpandPath(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		return parseDefaults(p, data)
	}
	return nil, "", ErrDefaultsNotFound
}

func parseDefaults(path string, data []byte) (*Defaults, string, error) {
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, path, fmt.Errorf("parse yaml %s: %w", path, err)
	}
	return &d, path, nil
}

// DefaultsPathCandidates returns possible defaults file paths, in priority
// order. If explicitPath is provided, it is returned first.
func DefaultsPathCandidates(explicitPath string) []string {
	var out []string
	if explicitPath != "" {
		out = append(out, explicitPath)
	}
	if env := os.Getenv("SSHPICK_CONFIG"); env != "" {
		out = append(out, env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "sshpick", "config.yaml"))
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		out = append(out, filepath.Join(home, ".config", "sshpick", "config.yaml"))
	}
	return out
}
