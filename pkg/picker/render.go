package picker

import (
	"strconv"

	"github.com/mailgun/raymond/v2"

	"sshpick/pkg/sshconfig"
)

// Context builds the template rendering context for one host. Field names are
// part of the user-facing template contract:
//
//	name           host alias
//	hostname       resolved HostName (alias when unset)
//	user           resolved User, may be empty
//	port           effective port as a string
//	destination    "user@hostname:port" summary
//	proxy_command  resolved ProxyCommand, may be empty
//	identity_files list of IdentityFile paths
//	local_forwards list of "bind -> host:port" strings
func Context(h sshconfig.ResolvedHost) map[string]interface{} {
	forwards := make([]string, 0, len(h.LocalForwards))
	for _, f := range h.LocalForwards {
		forwards = append(forwards, f.String())
	}
	return map[string]interface{}{
		"name":           h.Alias,
		"hostname":       h.Hostname,
		"user":           h.User,
		"port":           strconv.Itoa(h.EffectivePort()),
		"destination":    h.Destination(),
		"proxy_command":  h.ProxyCommand,
		"identity_files": h.IdentityFiles,
		"local_forwards": forwards,
	}
}

// Render interpolates a Handlebars template against the host's context.
// "{{field}}" is the escaped form, "{{{field}}}" inserts the value verbatim.
func Render(template string, h sshconfig.ResolvedHost) (string, error) {
	out, err := raymond.Render(template, Context(h))
	if err != nil {
		return "", &TemplateError{Template: template, Err: err}
	}
	return out, nil
}
