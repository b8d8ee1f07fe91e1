package serial

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/settree/internal/config/tree"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat indicates a file extension with no matching codec.
var ErrUnknownFormat = errors.New("unknown settings format")

// Format names a document format.
type Format string

// Supported formats.
const (
	TOML Format = "toml"
	YAML Format = "yaml"
	JSON Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{TOML, YAML, JSON}

// FormatOf returns the format matching the extension of path.
func FormatOf(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "toml":
		return TOML, nil
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Marshal encodes the current values of root in format f. YAML output
// carries node comments.
func Marshal(root *tree.Branch, f Format) ([]byte, error) {
	switch f {
	case TOML:
		data, err := Encode(root)
		if err != nil {
			return nil, err
		}
		return toml.Marshal(data)
	case YAML:
		node, err := yamlMapping(root)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case JSON:
		data, err := Encode(root)
		if err != nil {
			return nil, err
		}
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

func yamlMapping(b *tree.Branch) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, child := range b.Items() {
		var value *yaml.Node
		switch n := child.(type) {
		case *tree.Branch:
			if n.IsSerializedSeparately() {
				continue
			}
			sub, err := yamlMapping(n)
			if err != nil {
				return nil, err
			}
			value = sub
		case tree.LeafNode:
			raw, err := Value(n)
			if err != nil {
				return nil, &PathError{Path: n.Name(), Err: err}
			}
			value = &yaml.Node{}
			if err := value.Encode(raw); err != nil {
				return nil, &PathError{Path: n.Name(), Err: err}
			}
		default:
			continue
		}

		key := &yaml.Node{
			Kind:        yaml.ScalarNode,
			Tag:         "!!str",
			Value:       child.Name(),
			HeadComment: yamlComment(child.Comment()),
		}
		m.Content = append(m.Content, key, value)
	}
	return m, nil
}

func yamlComment(c string) string {
	if c == "" {
		return ""
	}
	lines := strings.Split(c, "\n")
	for i, l := range lines {
		lines[i] = "# " + l
	}
	return strings.Join(lines, "\n")
}
