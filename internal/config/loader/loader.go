// Package loader reads settings documents into nested maps.
//
// Files are parsed according to their extension (TOML, YAML or JSON) and
// may pull in other files through an "@include" key. Environment variables
// under a prefix are mapped onto settings paths. The resulting maps are
// applied to a settings tree by the serial package.
package loader

import (
	"io"
	"io/fs"
	"os"
)

// Loader is the interface for settings loaders.
type Loader interface {
	// Load reads settings from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// FileLoader is the interface for loaders that read from files.
type FileLoader interface {
	Loader
	// LoadFrom reads settings from a specific path.
	LoadFrom(path string) (map[string]any, error)
}

// ReaderLoader is the interface for loaders that read from io.Reader.
type ReaderLoader interface {
	// LoadFromReader reads settings from a reader.
	LoadFromReader(r io.Reader) (map[string]any, error)
}

// FileSystem abstracts the file operations loaders need.
type FileSystem interface {
	fs.FS
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the OS file system.
func DefaultFS() FileSystem {
	return OSFS{}
}
