package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/dshills/settree/internal/config/serial"
	"github.com/rs/zerolog/log"
)

// IncludeKey is the top-level key listing files to merge beneath a document.
const IncludeKey = "@include"

// DefaultIncludeDepth bounds nested includes.
const DefaultIncludeDepth = 8

// ErrIncludeDepth indicates includes nested deeper than allowed.
var ErrIncludeDepth = errors.New("include depth exceeded")

// File loads settings from a TOML, YAML or JSON file.
type File struct {
	fs     FileSystem
	path   string
	format serial.Format
}

var (
	_ FileLoader   = (*File)(nil)
	_ ReaderLoader = (*File)(nil)
)

// ForPath returns a loader for path with the format taken from its extension.
func ForPath(path string) (*File, error) {
	return ForPathWithFS(DefaultFS(), path)
}

// ForPathWithFS is ForPath with a custom file system.
func ForPathWithFS(fsys FileSystem, path string) (*File, error) {
	format, err := serial.FormatOf(path)
	if err != nil {
		return nil, err
	}
	return &File{fs: fsys, path: path, format: format}, nil
}

// NewFile creates a loader that parses path as format regardless of its
// extension.
func NewFile(fsys FileSystem, path string, format serial.Format) *File {
	return &File{fs: fsys, path: path, format: format}
}

// Path returns the configured path.
func (l *File) Path() string { return l.path }

// Format returns the format used for the configured path.
func (l *File) Format() serial.Format { return l.format }

// Load reads the configured path and resolves its includes.
func (l *File) Load() (map[string]any, error) {
	return l.LoadWithIncludes(l.path, DefaultIncludeDepth)
}

// LoadFrom reads a single file without resolving includes. Files other
// than the configured one are parsed according to their extension.
func (l *File) LoadFrom(path string) (map[string]any, error) {
	format, err := l.formatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	return decode(format, path, data)
}

// LoadFromReader parses the reader in the configured format.
func (l *File) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	return decode(l.format, "<reader>", data)
}

// LoadWithIncludes loads path and merges the files named by its
// "@include" key beneath it. Relative includes resolve against the
// including file's directory; the including file wins on conflicts.
// A missing include is skipped.
func (l *File) LoadWithIncludes(path string, maxDepth int) (map[string]any, error) {
	if maxDepth <= 0 {
		return nil, fmt.Errorf("%w at %s", ErrIncludeDepth, path)
	}

	data, err := l.LoadFrom(path)
	if err != nil || data == nil {
		return data, err
	}

	includes, ok := data[IncludeKey]
	if !ok {
		return data, nil
	}
	delete(data, IncludeKey)

	names, err := includeList(includes)
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	baseDir := filepath.Dir(path)
	merged := make(map[string]any)
	for _, inc := range names {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(baseDir, inc)
		}

		incData, err := l.LoadWithIncludes(incPath, maxDepth-1)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", incPath, err)
		}
		if incData == nil {
			log.Debug().Str("path", incPath).Msg("include not found")
			continue
		}
		merged = DeepMerge(merged, incData)
	}

	return DeepMerge(merged, data), nil
}

func (l *File) formatFor(path string) (serial.Format, error) {
	if path == l.path {
		return l.format, nil
	}
	return serial.FormatOf(path)
}

func includeList(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s entries must be strings, got %T", IncludeKey, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be a string or a list of strings, got %T", IncludeKey, v)
}
