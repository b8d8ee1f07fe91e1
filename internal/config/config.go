package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dshills/settree/internal/config/jsonschema"
	"github.com/dshills/settree/internal/config/layer"
	"github.com/dshills/settree/internal/config/loader"
	"github.com/dshills/settree/internal/config/notify"
	"github.com/dshills/settree/internal/config/serial"
	"github.com/dshills/settree/internal/config/tree"
	"github.com/dshills/settree/internal/config/watcher"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
)

// Change sources reported to observers. SourceDefaults, SourceEnv and
// SourceAPI also name the layers reported by Origin.
const (
	SourceDefaults = "defaults"
	SourceAPI      = "api"
	SourceEnv      = "env"
	SourceReset    = "reset"
)

// Settings manages a settings tree together with its files, environment
// variables and observers.
//
// Observers run after the tree lock is released and may read through
// Settings. Writes from inside an observer should be done asynchronously.
type Settings struct {
	mu     sync.RWMutex
	root   *tree.Branch
	leaves map[string]tree.LeafNode

	notifier *notify.Notifier
	bridge   *notify.Bridge

	// Layers of the last successful Load. Values written through Set are
	// kept in session and survive reloads.
	layers  *layer.Manager
	session map[string]any

	// Loading
	fs        loader.FileSystem
	envPrefix string
	environ   func() []string
	validate  bool
	strict    bool
	validator *jsonschema.Validator
	paths     []string
	separate  string

	// Live reload
	debounce time.Duration
	watcher  *watcher.Watcher
}

// Option configures a Settings instance.
type Option func(*Settings)

// WithEnvPrefix enables environment overrides. Each leaf is read from the
// variable named by loader.EnvName, e.g. APP_SERVER_PORT for server.port
// with prefix "APP_".
func WithEnvPrefix(prefix string) Option {
	return func(s *Settings) {
		s.envPrefix = prefix
	}
}

// WithEnviron replaces the environment source.
func WithEnviron(environ func() []string) Option {
	return func(s *Settings) {
		s.environ = environ
	}
}

// WithFileSystem sets the file system settings files are read from.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(s *Settings) {
		s.fs = fsys
	}
}

// WithNotifier sets the notifier changes are delivered through.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Settings) {
		s.notifier = n
	}
}

// WithValidation checks settings files against the tree's JSON Schema
// before applying them. In strict mode unknown keys are errors.
func WithValidation(strict bool) Option {
	return func(s *Settings) {
		s.validate = true
		s.strict = strict
	}
}

// WithSeparateFile sets the JSON file that holds the branches serialized
// apart from the main settings files. Load reads them from it and Save
// writes them to it. Without it those branches keep their defaults
// unless a settings file or the environment sets them.
func WithSeparateFile(path string) Option {
	return func(s *Settings) {
		s.separate = path
	}
}

// WithDebounce sets the quiet period Watch waits for before reloading.
func WithDebounce(d time.Duration) Option {
	return func(s *Settings) {
		s.debounce = d
	}
}

// New creates Settings over root.
func New(root *tree.Branch, opts ...Option) *Settings {
	s := &Settings{
		root:     root,
		leaves:   tree.Leaves(root),
		fs:       loader.DefaultFS(),
		debounce: watcher.DefaultDebounce,
		session:  make(map[string]any),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.notifier == nil {
		s.notifier = notify.New()
	}
	if s.validate {
		s.validator = jsonschema.NewValidator(jsonschema.ForTree(root)).WithStrictMode(s.strict)
	}
	s.bridge = notify.Attach(root, s.notifier, SourceAPI)

	data, err := defaults(root)
	if err != nil {
		log.Warn().Err(err).Msg("encoding defaults")
	}
	s.layers = layer.NewManager(layer.NewLayer(SourceDefaults, layer.SourceDefaults, layer.PriorityDefaults, data))

	return s
}

// Root returns the settings tree.
func (s *Settings) Root() *tree.Branch {
	return s.root
}

// Notifier returns the notifier changes are delivered through.
func (s *Settings) Notifier() *notify.Notifier {
	return s.notifier
}

// Subscribe registers an observer for all changes.
func (s *Settings) Subscribe(observer notify.Observer) *notify.Subscription {
	return s.notifier.Subscribe(observer)
}

// SubscribePath registers an observer for changes at or below path.
func (s *Settings) SubscribePath(path string, observer notify.Observer) *notify.Subscription {
	return s.notifier.SubscribePath(path, observer)
}

// Paths returns the files used by the last successful Load.
func (s *Settings) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.paths)
}

// Get returns the serialized value at a dotted path.
func (s *Settings) Get(path string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leaf, ok := s.leaves[path]
	if !ok {
		return nil, &SettingError{Path: path, Err: ErrSettingNotFound}
	}
	return serial.Value(leaf)
}

// Set writes one setting. value may be the platform value or any
// serialized form the lenient map serializer accepts, such as "8080".
func (s *Settings) Set(path string, value any) error {
	leaf, ok := s.leaves[path]
	if !ok {
		return &SettingError{Path: path, Err: ErrSettingNotFound}
	}

	v, err := leaf.Type().DeserializeAny(value, serial.MapSerializer{Lenient: true})
	if err != nil {
		return &SettingError{Path: path, Err: err}
	}

	return s.bridge.Batched(SourceAPI, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !leaf.SetAnyValue(v) {
			return &SettingError{Path: path, Err: ErrWriteRefused}
		}

		stored, err := serial.Value(leaf)
		if err != nil {
			return &SettingError{Path: path, Err: err}
		}
		layer.SetByPath(s.session, path, stored)
		s.layers.AddLayer(s.sessionLayer())
		return nil
	})
}

// Origin returns the name of the layer that supplied the value at path:
// SourceDefaults, a file path, SourceEnv or SourceAPI.
func (s *Settings) Origin(path string) (string, error) {
	if _, ok := s.leaves[path]; !ok {
		return "", &SettingError{Path: path, Err: ErrSettingNotFound}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if name := s.layers.WhichLayer(path); name != "" {
		return name, nil
	}
	return SourceDefaults, nil
}

// Reset restores every leaf to its default and forgets values written
// through Set. Files are not re-read.
func (s *Settings) Reset() {
	_ = s.bridge.Batched(SourceReset, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.session = make(map[string]any)
		s.layers.RemoveLayer(SourceAPI)

		paths := maps.Keys(s.leaves)
		slices.Sort(paths)
		for _, path := range paths {
			if !s.leaves[path].Reset() {
				log.Warn().Str("path", path).Msg("reset refused")
			}
		}
		return nil
	})
}

// Load rebuilds the settings from the tree defaults, the given files in
// order, the separate file, the environment and values written through
// Set, then applies the result in one step. Missing files are skipped. On
// error the tree is left unchanged.
func (s *Settings) Load(paths ...string) error {
	layers, err := s.collect(paths)
	if err != nil {
		return err
	}

	source := SourceEnv
	if len(paths) > 0 {
		source = strings.Join(paths, ",")
	}

	err = s.bridge.Batched(source, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		layers.AddLayer(s.sessionLayer())
		data := layers.Merge()
		if err := serial.ApplyAll(s.root, data, serial.MapSerializer{Lenient: true}); err != nil {
			return err
		}
		s.layers = layers
		s.paths = slices.Clone(paths)
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().Strs("files", paths).Msg("settings loaded")
	s.notifier.NotifyReload(source)
	return nil
}

// Reload repeats the last successful Load.
func (s *Settings) Reload() error {
	paths := s.Paths()
	if len(paths) == 0 {
		return ErrNoFiles
	}
	return s.Load(paths...)
}

// Save writes the current settings to path in the format its extension
// names. Branches serialized separately go to the separate file when one
// is set and are left out otherwise.
func (s *Settings) Save(path string) error {
	format, err := serial.FormatOf(path)
	if err != nil {
		return err
	}

	s.mu.RLock()
	data, err := serial.Marshal(s.root, format)
	var separate []byte
	if err == nil && s.separate != "" {
		separate, err = serial.MarshalSeparate(s.root)
	}
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := saveFile(path, data); err != nil {
		return err
	}
	if separate != nil {
		return saveFile(s.separate, separate)
	}
	return nil
}

func saveFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings file %s: %w", path, err)
	}
	return nil
}

// Watch reloads the settings whenever one of the loaded files changes,
// until ctx is done or Close is called. Reload failures are logged and
// leave the previous values in place.
func (s *Settings) Watch(ctx context.Context) error {
	paths := s.Paths()
	if len(paths) == 0 {
		return ErrNoFiles
	}

	w, err := watcher.New(watcher.WithDebounce(s.debounce))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if s.separate != "" {
		if _, err := s.fs.Stat(s.separate); err == nil {
			paths = append(paths, s.separate)
		}
	}
	for _, p := range paths {
		if err := w.Watch(p); err != nil {
			_ = w.Close()
			return fmt.Errorf("watching %s: %w", p, err)
		}
	}
	w.OnChange(s.handleFileChange)

	s.mu.Lock()
	prev := s.watcher
	s.watcher = w
	s.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	return w.Start(ctx)
}

// Close stops watching and shuts down the notifier.
func (s *Settings) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	s.bridge.Detach()
	s.notifier.Close()
	return err
}

// handleFileChange handles file change events from the watcher.
func (s *Settings) handleFileChange(event watcher.Event) {
	log.Debug().Str("file", event.Path).Stringer("op", event.Op).Msg("settings file changed")
	if err := s.Reload(); err != nil {
		log.Warn().Err(err).Str("file", event.Path).Msg("reload failed")
	}
}

// collect stacks defaults, files, the separate file and the environment.
// Session values are added by the caller under the write lock.
func (s *Settings) collect(paths []string) (*layer.Manager, error) {
	s.mu.RLock()
	data, err := defaults(s.root)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	m := layer.NewManager(layer.NewLayer(SourceDefaults, layer.SourceDefaults, layer.PriorityDefaults, data))

	files := make(map[string]any)
	for i, p := range paths {
		f, err := loader.ForPathWithFS(s.fs, p)
		if err != nil {
			return nil, err
		}
		fileData, err := f.Load()
		if err != nil {
			return nil, err
		}
		if fileData == nil {
			log.Debug().Str("file", p).Msg("settings file not found, skipping")
			continue
		}
		m.AddLayer(layer.NewLayer(p, layer.SourceFile, layer.PriorityFile+i, fileData))
		loader.DeepMerge(files, loader.Clone(fileData))
	}

	if s.validator != nil {
		if err := s.validator.Validate(files); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
	}

	if s.separate != "" {
		sep, err := s.loadSeparate()
		if err != nil {
			return nil, err
		}
		if len(sep) > 0 {
			m.AddLayer(layer.NewLayer(s.separate, layer.SourceFile, layer.PriorityFile+len(paths), sep))
		}
	}

	if s.envPrefix != "" {
		paths := maps.Keys(s.leaves)
		slices.Sort(paths)
		env := loader.NewEnvLoader(s.envPrefix, paths...)
		if s.environ != nil {
			env.WithEnviron(s.environ)
		}
		envData, err := env.Load()
		if err != nil {
			return nil, err
		}
		if len(envData) > 0 {
			m.AddLayer(layer.NewLayer(SourceEnv, layer.SourceEnv, layer.PriorityEnv, envData))
		}
	}

	return m, nil
}

// loadSeparate reads the separate file. A missing file yields no data.
func (s *Settings) loadSeparate() (map[string]any, error) {
	doc, err := s.fs.ReadFile(s.separate)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("file", s.separate).Msg("separate settings file not found, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("reading separate settings file %s: %w", s.separate, err)
	}
	data, err := serial.ExtractSeparate(doc, s.root)
	if err != nil {
		return nil, fmt.Errorf("separate settings file %s: %w", s.separate, err)
	}
	return data, nil
}

func (s *Settings) sessionLayer() *layer.Layer {
	return layer.NewLayer(SourceAPI, layer.SourceSession, layer.PrioritySession, loader.Clone(s.session))
}

// defaults encodes the default value of every leaf.
func defaults(root *tree.Branch) (map[string]any, error) {
	out := make(map[string]any)
	err := tree.Walk(root, func(path []string, n tree.Node) error {
		switch n := n.(type) {
		case tree.LeafNode:
			v, err := n.Type().SerializeAny(n.AnyDefault(), serial.MapSerializer{})
			if err != nil {
				return &SettingError{Path: tree.JoinPath(path), Err: err}
			}
			layer.SetByPath(out, tree.JoinPath(path), v)
		}
		return nil
	})
	return out, err
}
