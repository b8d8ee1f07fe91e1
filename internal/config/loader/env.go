package loader

import (
	"os"
	"strings"

	"github.com/iancoleman/strcase"
)

// EnvLoader loads settings from environment variables.
//
// Values are returned as strings; the caller decides how to interpret
// them against the settings types.
type EnvLoader struct {
	prefix  string            // variable prefix, e.g. "SETTREE_"
	mapping map[string]string // variable -> settings path
	environ func() []string
}

// NewEnvLoader creates a loader for variables starting with prefix. Each
// known settings path is mapped from the variable named by EnvName.
// The prefix should include the trailing underscore.
func NewEnvLoader(prefix string, paths ...string) *EnvLoader {
	l := &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string, len(paths)),
		environ: os.Environ,
	}
	for _, p := range paths {
		l.mapping[EnvName(prefix, p)] = p
	}
	return l
}

// EnvName returns the variable name for a dotted settings path:
// "server.maxConnections" becomes PREFIX + "SERVER_MAX_CONNECTIONS".
func EnvName(prefix, path string) string {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		parts[i] = strcase.ToScreamingSnake(p)
	}
	return prefix + strings.Join(parts, "_")
}

// WithEnviron replaces the environment source, for tests.
func (l *EnvLoader) WithEnviron(environ func() []string) *EnvLoader {
	l.environ = environ
	return l
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, path string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = path
}

// RemoveMapping removes an environment variable mapping.
func (l *EnvLoader) RemoveMapping(envVar string) {
	delete(l.mapping, envVar)
}

// Mapping returns the settings path mapped from envVar.
func (l *EnvLoader) Mapping(envVar string) (string, bool) {
	p, ok := l.mapping[envVar]
	return p, ok
}

// Load reads mapped and prefixed environment variables into a nested map.
// Prefixed variables without a mapping are placed by envToPath.
// Empty values are kept; only unset variables are absent.
func (l *EnvLoader) Load() (map[string]any, error) {
	data := make(map[string]any)

	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		path, mapped := l.mapping[name]
		if !mapped {
			if !strings.HasPrefix(name, l.prefix) {
				continue
			}
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		setByPath(data, path, value)
	}

	return data, nil
}

// envToPath converts PREFIX_SERVER_MAX_CONNECTIONS to
// server.max_connections: the first word names the branch and the rest
// the setting.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.TrimPrefix(env, l.prefix)
	if name == "" {
		return ""
	}

	section, setting, ok := strings.Cut(name, "_")
	if !ok {
		return strcase.ToSnake(name)
	}
	return strcase.ToSnake(section) + "." + strcase.ToSnake(setting)
}

// setByPath sets a value in a nested map using a dot-separated path.
// A scalar in the way of an intermediate table is replaced.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}

	current[parts[len(parts)-1]] = value
}
