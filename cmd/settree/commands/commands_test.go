package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/settree/internal/config"
	"github.com/dshills/settree/internal/config/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "none", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExampleTree(t *testing.T) {
	_, err := exampleTree()
	require.NoError(t, err)
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)

	require.True(t, gjson.Valid(out))
	assert.Equal(t, "object", gjson.Get(out, "type").String())
	assert.Equal(t, int64(65535), gjson.Get(out, "properties.server.properties.port.maximum").Int())
	assert.Equal(t, "Listen port", gjson.Get(out, "properties.server.properties.port.description").String())
	assert.True(t, gjson.Get(out, "properties.plugins.x-serialize-separately").Bool())

	out, err = execute(t, "schema", "--format", "yaml")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "$schema")
	assert.Contains(t, doc, "properties")

	_, err = execute(t, "schema", "--format", "xml")
	assert.Error(t, err)
}

func TestDefaultsCommand(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"toml", []string{"[server]", "port = 8080", "log_level = "}},
		{"yaml", []string{"# Listen port", "port: 8080", "read_timeout: 15s"}},
		{"json", []string{`"port": 8080`, `"ttl": "5m0s"`}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := execute(t, "defaults", "--format", tt.format)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
			assert.NotContains(t, out, "plugins")
		})
	}

	_, err := execute(t, "defaults", "--format", "ini")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	good := writeFile(t, "good.toml", "debug = true\n\n[server]\nport = 9000\n")
	unknown := writeFile(t, "unknown.yaml", "server:\n  port: 9000\n  bogus: 1\n")
	bad := writeFile(t, "bad.json", `{"server": {"port": "high"}, "log_level": "loud"}`)

	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		contains []string
	}{
		{"valid file", []string{"check", good}, false, []string{"ok"}},
		{"unknown key", []string{"check", unknown}, false, []string{"ok"}},
		{"unknown key strict", []string{"check", "--strict", unknown}, true, []string{"server.bogus"}},
		{"bad values", []string{"check", bad}, true, []string{"server.port", "log_level"}},
		{"merged files", []string{"check", good, unknown}, false, []string{"ok"}},
		{"missing file", []string{"check", filepath.Join(t.TempDir(), "missing.toml")}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestGetCommand(t *testing.T) {
	file := writeFile(t, "settings.yaml", "server:\n  port: 9000\n  allowed_origins: [a, b]\n")
	plugins := writeFile(t, "plugins.json", `{"plugins": {"enabled": true, "paths": ["/opt/plugins"]}}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default", []string{"get", "server.port"}, "8080\n"},
		{"from file", []string{"get", "server.port", "--file", file}, "9000\n"},
		{"list", []string{"get", "server.allowed_origins", "-f", file}, "[\"a\",\"b\"]\n"},
		{"map", []string{"get", "limits"}, "{\"default\":600}\n"},
		{"duration", []string{"get", "cache.ttl"}, "5m0s\n"},
		{"origin default", []string{"get", "server.port", "--origin"}, "8080\t(defaults)\n"},
		{"origin file", []string{"get", "server.port", "-f", file, "--origin"}, "9000\t(" + file + ")\n"},
		{"separate file", []string{"get", "plugins.paths", "--separate", plugins}, "[\"/opt/plugins\"]\n"},
		{"separate origin", []string{"get", "plugins.enabled", "--separate", plugins, "--origin"}, "true\t(" + plugins + ")\n"},
		{"separate ignored", []string{"get", "plugins.paths"}, "[]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGetCommand_Env(t *testing.T) {
	t.Setenv("SETTREE_SERVER_PORT", "9100")

	out, err := execute(t, "get", "server.port")
	require.NoError(t, err)
	assert.Equal(t, "9100\n", out)

	out, err = execute(t, "get", "server.port", "--no-env")
	require.NoError(t, err)
	assert.Equal(t, "8080\n", out)
}

func TestGetCommand_Unknown(t *testing.T) {
	_, err := execute(t, "get", "server.bogus")
	assert.ErrorIs(t, err, config.ErrSettingNotFound)
}

func TestLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "get", "server.port")
	assert.Error(t, err)

	_, err = execute(t, "--log-level", "debug", "get", "server.port")
	assert.NoError(t, err)
}

func TestFlatten(t *testing.T) {
	assert.Len(t, flatten(assert.AnError), 1)
}

func TestFormatFlag(t *testing.T) {
	f := newFormatFlag(serial.JSON, serial.JSON, serial.YAML)
	assert.Equal(t, "json", f.String())
	assert.Equal(t, "format", f.Type())

	require.NoError(t, f.Set("yml"))
	assert.Equal(t, serial.YAML, f.value)

	err := f.Set("toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json, yaml")
	assert.Equal(t, serial.YAML, f.value)
}
