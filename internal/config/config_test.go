package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dshills/settree/internal/config/annotated"
	"github.com/dshills/settree/internal/config/loader"
	"github.com/dshills/settree/internal/config/notify"
	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/serial"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type testSettings struct {
	Debug  bool
	Server struct {
		Host string `comment:"Listen address"`
		Port int    `min:"1" max:"65535"`
	}
	Plugins struct {
		Enabled bool
	} `separate:"true"`
}

func newSettings(t *testing.T, opts ...Option) *Settings {
	t.Helper()
	var cfg testSettings
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080

	root, err := annotated.Build(&cfg)
	require.NoError(t, err)

	s := New(root, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func get(t *testing.T, s *Settings, path string) any {
	t.Helper()
	v, err := s.Get(path)
	require.NoError(t, err)
	return v
}

func TestSettings_Defaults(t *testing.T) {
	s := newSettings(t)

	assert.Equal(t, false, get(t, s, "debug"))
	assert.Equal(t, "localhost", get(t, s, "server.host"))
	assert.Equal(t, int64(8080), get(t, s, "server.port"))

	_, err := s.Get("server.missing")
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestSettings_Load(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.toml", "debug = true\n\n[server]\nport = 9000\n")
	local := writeFile(t, dir, "local.yaml", "server:\n  host: example.com\n")

	s := newSettings(t,
		WithEnvPrefix("APP_"),
		WithEnviron(func() []string { return []string{"APP_SERVER_PORT=9100", "OTHER=1"} }),
	)

	require.NoError(t, s.Load(base, local, filepath.Join(dir, "missing.json")))

	assert.Equal(t, true, get(t, s, "debug"))
	assert.Equal(t, "example.com", get(t, s, "server.host"))
	assert.Equal(t, int64(9100), get(t, s, "server.port"))
	assert.Len(t, s.Paths(), 3)
}

func TestSettings_LoadIsAtomic(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.toml", "debug = true\n\n[server]\nport = \"high\"\n")

	s := newSettings(t)
	err := s.Load(bad)
	require.Error(t, err)

	var pe *serial.PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "server.port", pe.Path)

	assert.Equal(t, false, get(t, s, "debug"))
	assert.Empty(t, s.Paths())
}

func TestSettings_LoadParseError(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.toml", "debug = \n")

	s := newSettings(t)
	assert.Error(t, s.Load(bad))
}

func TestSettings_ReloadRestoresDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.toml", "[server]\nport = 9000\n")

	s := newSettings(t)
	require.NoError(t, s.Load(path))
	assert.Equal(t, int64(9000), get(t, s, "server.port"))

	writeFile(t, dir, "settings.toml", "debug = true\n")
	require.NoError(t, s.Reload())
	assert.Equal(t, int64(8080), get(t, s, "server.port"))
	assert.Equal(t, true, get(t, s, "debug"))
}

func TestSettings_NoFiles(t *testing.T) {
	s := newSettings(t)
	assert.ErrorIs(t, s.Reload(), ErrNoFiles)
	assert.ErrorIs(t, s.Watch(context.Background()), ErrNoFiles)
}

func TestSettings_Set(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		value   any
		want    any
		wantErr error
	}{
		{"platform value", "server.port", decimal.NewFromInt(9000), int64(9000), nil},
		{"serialized value", "server.port", int64(9001), int64(9001), nil},
		{"lenient string", "server.port", "9002", int64(9002), nil},
		{"corrected", "server.port", 70000, int64(65535), nil},
		{"lenient bool", "debug", "yes", true, nil},
		{"unknown path", "server.bogus", 1, nil, ErrSettingNotFound},
		{"wrong shape", "server.port", []any{1}, nil, schema.ErrUnexpectedShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSettings(t)
			err := s.Set(tt.path, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, get(t, s, tt.path))
		})
	}
}

func TestSettings_Notifications(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.toml", "debug = true\n\n[server]\nport = 9000\n")

	s := newSettings(t)

	var changes []notify.Change
	s.SubscribePath("server", func(c notify.Change) { changes = append(changes, c) })

	require.NoError(t, s.Load(path))
	require.Len(t, changes, 2)

	set := changes[0]
	assert.Equal(t, notify.ChangeSet, set.Type)
	assert.Equal(t, "server.port", set.Path)
	assert.Equal(t, path, set.Source)
	assert.True(t, decimal.NewFromInt(8080).Equal(set.OldValue.(decimal.Decimal)))
	assert.True(t, decimal.NewFromInt(9000).Equal(set.NewValue.(decimal.Decimal)))

	assert.Equal(t, notify.ChangeReload, changes[1].Type)

	require.NoError(t, s.Set("server.host", "example.com"))
	require.Len(t, changes, 3)
	assert.Equal(t, SourceAPI, changes[2].Source)

	s.Reset()
	require.Len(t, changes, 5)
	for _, c := range changes[3:] {
		assert.Equal(t, SourceReset, c.Source)
	}
	assert.Equal(t, int64(8080), get(t, s, "server.port"))
}

func TestSettings_ObserverCanRead(t *testing.T) {
	s := newSettings(t)

	var seen any
	s.SubscribePath("server.port", func(c notify.Change) {
		v, err := s.Get("server.port")
		if err == nil {
			seen = v
		}
	})

	require.NoError(t, s.Set("server.port", 9000))
	assert.Equal(t, int64(9000), seen)
}

func TestSettings_Validation(t *testing.T) {
	dir := t.TempDir()
	unknown := writeFile(t, dir, "unknown.toml", "[server]\nport = 9000\nbogus = 1\n")
	outOfRange := writeFile(t, dir, "range.toml", "[server]\nport = 70000\n")

	tests := []struct {
		name    string
		strict  bool
		path    string
		wantErr bool
	}{
		{"strict unknown key", true, unknown, true},
		{"lenient unknown key", false, unknown, false},
		{"out of range", false, outOfRange, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSettings(t, WithValidation(tt.strict))
			err := s.Load(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidationFailed)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSettings_Save(t *testing.T) {
	for _, name := range []string{"settings.toml", "settings.yaml", "settings.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)

			s := newSettings(t)
			require.NoError(t, s.Set("server.port", 9000))
			require.NoError(t, s.Set("debug", true))
			require.NoError(t, s.Save(path))

			other := newSettings(t)
			require.NoError(t, other.Load(path))
			assert.Equal(t, int64(9000), get(t, other, "server.port"))
			assert.Equal(t, true, get(t, other, "debug"))
		})
	}
}

func TestSettings_SaveUnknownFormat(t *testing.T) {
	s := newSettings(t)
	assert.ErrorIs(t, s.Save(filepath.Join(t.TempDir(), "settings.ini")), serial.ErrUnknownFormat)
}

func TestSettings_Watch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.toml", "[server]\nport = 9000\n")

	s := newSettings(t, WithDebounce(10*time.Millisecond))
	require.NoError(t, s.Load(path))

	var mu sync.Mutex
	reloads := 0
	s.Subscribe(func(c notify.Change) {
		if c.Type == notify.ChangeReload {
			mu.Lock()
			reloads++
			mu.Unlock()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))

	time.Sleep(50 * time.Millisecond)
	writeFile(t, dir, "settings.toml", "[server]\nport = 9500\n")

	assert.Eventually(t, func() bool {
		v, err := s.Get("server.port")
		return err == nil && v == int64(9500)
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, reloads, 1)
}

func TestSettings_Origin(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.toml", "debug = true\n\n[server]\nport = 9000\n")

	s := newSettings(t,
		WithEnvPrefix("APP_"),
		WithEnviron(func() []string { return []string{"APP_DEBUG=false"} }),
	)

	origin, err := s.Origin("server.port")
	require.NoError(t, err)
	assert.Equal(t, SourceDefaults, origin)

	require.NoError(t, s.Load(path))
	require.NoError(t, s.Set("server.host", "example.com"))

	tests := []struct {
		path string
		want string
	}{
		{"server.port", path},
		{"debug", SourceEnv},
		{"server.host", SourceAPI},
		{"plugins.enabled", SourceDefaults},
	}
	for _, tt := range tests {
		got, err := s.Origin(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err = s.Origin("server.bogus")
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestSettings_SetSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.toml", "[server]\nport = 9000\nhost = \"file.example\"\n")

	s := newSettings(t)
	require.NoError(t, s.Load(path))
	require.NoError(t, s.Set("server.port", 9500))
	require.NoError(t, s.Reload())

	assert.Equal(t, int64(9500), get(t, s, "server.port"))
	assert.Equal(t, "file.example", get(t, s, "server.host"))

	s.Reset()
	require.NoError(t, s.Reload())
	assert.Equal(t, int64(9000), get(t, s, "server.port"))
}

func TestSettings_SeparateFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.toml")
	sep := filepath.Join(dir, "plugins.json")

	s := newSettings(t, WithSeparateFile(sep))
	require.NoError(t, s.Set("plugins.enabled", true))
	require.NoError(t, s.Set("server.port", 9000))
	require.NoError(t, s.Save(file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "plugins")

	doc, err := os.ReadFile(sep)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(doc, "plugins.enabled").Bool())
	assert.False(t, gjson.GetBytes(doc, "server").Exists())

	loaded := newSettings(t, WithSeparateFile(sep))
	require.NoError(t, loaded.Load(file))
	assert.Equal(t, true, get(t, loaded, "plugins.enabled"))
	assert.Equal(t, int64(9000), get(t, loaded, "server.port"))

	origin, err := loaded.Origin("plugins.enabled")
	require.NoError(t, err)
	assert.Equal(t, sep, origin)
}

func TestSettings_SeparateFileErrors(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "settings.toml", "debug = true\n")

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"not an object", `{"plugins": 3}`, serial.ErrNotTable},
		{"wrong value", `{"plugins": {"enabled": "maybe"}}`, schema.ErrUnexpectedShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sep := writeFile(t, dir, "plugins.json", tt.content)
			s := newSettings(t, WithSeparateFile(sep))

			err := s.Load(file)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, false, get(t, s, "debug"))
		})
	}

	s := newSettings(t, WithSeparateFile(filepath.Join(dir, "missing.json")))
	require.NoError(t, s.Load(file))
	assert.Equal(t, false, get(t, s, "plugins.enabled"))
}

// readHookFS runs onRead before every file read.
type readHookFS struct {
	loader.OSFS
	onRead func()
}

func (f readHookFS) ReadFile(path string) ([]byte, error) {
	f.onRead()
	return f.OSFS.ReadFile(path)
}

func TestSettings_SetDuringLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.toml", "[server]\nport = 9000\n")

	var s *Settings
	var once sync.Once
	s = newSettings(t, WithFileSystem(readHookFS{onRead: func() {
		once.Do(func() { require.NoError(t, s.Set("server.host", "example.com")) })
	}}))

	require.NoError(t, s.Load(path))
	assert.Equal(t, "example.com", get(t, s, "server.host"))
	assert.Equal(t, int64(9000), get(t, s, "server.port"))

	origin, err := s.Origin("server.host")
	require.NoError(t, err)
	assert.Equal(t, SourceAPI, origin)

	require.NoError(t, s.Reload())
	assert.Equal(t, "example.com", get(t, s, "server.host"))
}
