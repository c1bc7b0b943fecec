// Package config loads contribuart.yaml.
//
// Values in the file are defaults; command-line flags always win.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} in input with values from
// the process environment. Unset variables without a default expand to the
// empty string; a missing token or bucket fails later, where it is used.
func ExpandEnv(input string) string {
	return expandWith(input, os.LookupEnv)
}

// expandWith expands input using lookup. A set but empty variable takes
// the default, matching shell ${VAR:-default}.
func expandWith(input string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := lookup(groups[1]); ok && value != "" {
			return value
		}
		return groups[2]
	})
}
