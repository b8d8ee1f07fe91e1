// Package layer stacks the sources of a settings document.
//
// Each layer holds a nested map as read from one source. Higher priority
// layers override values from lower priority layers when merged.
package layer

import (
	"github.com/dshills/settree/internal/config/loader"
)

// Layer represents a single settings source.
type Layer struct {
	// Name identifies the layer, e.g. "defaults" or a file path.
	Name string

	// Priority determines merge order (higher overrides lower).
	Priority int

	// Source indicates where this layer was loaded from.
	Source Source

	// Data holds the settings values as a nested map.
	Data map[string]any
}

// NewLayer creates a layer over data.
func NewLayer(name string, source Source, priority int, data map[string]any) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{
		Name:     name,
		Source:   source,
		Priority: priority,
		Data:     data,
	}
}

// Clone creates a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	return &Layer{
		Name:     l.Name,
		Priority: l.Priority,
		Source:   l.Source,
		Data:     loader.Clone(l.Data),
	}
}

// Source indicates where a settings layer came from.
type Source uint8

const (
	// SourceDefaults represents the tree defaults.
	SourceDefaults Source = iota
	// SourceFile represents a settings file.
	SourceFile
	// SourceEnv represents environment variables.
	SourceEnv
	// SourceSession represents values set through the API.
	SourceSession
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceDefaults:
		return "defaults"
	case SourceFile:
		return "file"
	case SourceEnv:
		return "environment"
	case SourceSession:
		return "session"
	default:
		return "unknown"
	}
}
