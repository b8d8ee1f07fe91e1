// Package config ties a settings tree to its files, environment and
// observers.
//
// A Settings value owns a tree built with the builder or annotated
// packages and keeps it in sync with its sources:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← Highest priority
//	├─────────────────────────────┤
//	│  2. Settings Files          │  ← in the order given to Load
//	├─────────────────────────────┤
//	│  1. Tree Defaults           │  ← Lowest priority
//	└─────────────────────────────┘
//
// Every Load computes the complete state from all three layers and applies
// it in one step: either every leaf takes its new value or, on any error,
// none does.
//
// # Sub-packages
//
//   - constraint: value checks and corrections
//   - schema: serializable types
//   - tree: leaves, branches and queries
//   - types: converters between Go types and serializable types
//   - builder: fluent tree construction
//   - annotated: trees from tagged structs
//   - mirror: cached runtime values over leaves
//   - serial: tree and document conversion (TOML, YAML, JSON)
//   - loader: file and environment loading
//   - jsonschema: JSON Schema generation and validation
//   - notify: change notification
//   - watcher: file watching for live reload
//
// # Basic Usage
//
//	type Server struct {
//	    Host string `comment:"Listen address"`
//	    Port int    `min:"1" max:"65535"`
//	}
//
//	cfg := Server{Host: "localhost", Port: 8080}
//	root, err := annotated.Build(&cfg)
//	if err != nil {
//	    return err
//	}
//
//	s := config.New(root, config.WithEnvPrefix("APP_"))
//	defer s.Close()
//
//	if err := s.Load("settings.toml"); err != nil {
//	    return err
//	}
//	if err := annotated.Apply(s.Root(), &cfg); err != nil {
//	    return err
//	}
//
// # Error Handling
//
//   - ErrSettingNotFound: setting path doesn't exist
//   - ErrValidationFailed: a settings file fails schema validation
//   - ErrWriteRefused: a leaf refused a checked value
//   - ErrNoFiles: Reload or Watch before Load
//
// Deserialization failures are reported per path as *serial.PathError.
package config
