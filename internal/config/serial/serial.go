// Package serial converts between settings trees and plain Go values, and
// marshals trees into TOML, YAML and JSON documents.
package serial

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/tree"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
)

// ErrNotTable indicates a branch whose raw value is not a table.
var ErrNotTable = errors.New("expected a table of settings")

// PathError reports a failure at one settings path.
type PathError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// Encode converts the current values of root into nested maps. Branches
// serialized separately are left out.
func Encode(root *tree.Branch) (map[string]any, error) {
	return EncodeWith(root, MapSerializer{})
}

// EncodeWith is Encode with a custom value serializer.
func EncodeWith(root *tree.Branch, s schema.ValueSerializer) (map[string]any, error) {
	out := make(map[string]any, root.Len())
	for _, child := range root.Items() {
		switch n := child.(type) {
		case *tree.Branch:
			if n.IsSerializedSeparately() {
				continue
			}
			sub, err := EncodeWith(n, s)
			if err != nil {
				return nil, err
			}
			out[n.Name()] = sub
		case tree.LeafNode:
			v, err := n.Type().SerializeAny(n.AnyValue(), s)
			if err != nil {
				return nil, &PathError{Path: n.Name(), Err: err}
			}
			out[n.Name()] = v
		}
	}
	return out, nil
}

// Value serializes the current value of a single leaf.
func Value(leaf tree.LeafNode) (any, error) {
	return leaf.Type().SerializeAny(leaf.AnyValue(), MapSerializer{})
}

// Apply writes data into the leaves of root. Every value is deserialized
// and checked before any leaf changes, so a failing document leaves the
// tree untouched. Keys without a matching node are ignored.
func Apply(root *tree.Branch, data map[string]any) error {
	return ApplyWith(root, data, MapSerializer{})
}

// ApplyWith is Apply with a custom value serializer.
func ApplyWith(root *tree.Branch, data map[string]any, s schema.ValueSerializer) error {
	st := stage{}
	st.collect(root, nil, data, s)
	return st.apply()
}

// ApplyAll is ApplyWith that also writes into separately serialized
// branches, for documents that merge a settings file with the data
// returned by ExtractSeparate.
func ApplyAll(root *tree.Branch, data map[string]any, s schema.ValueSerializer) error {
	st := stage{separate: true}
	st.collect(root, nil, data, s)
	return st.apply()
}

type write struct {
	leaf  tree.LeafNode
	path  string
	value any
}

type stage struct {
	separate bool
	writes   []write
	errs     []error
}

func (st *stage) apply() error {
	if len(st.errs) > 0 {
		return errors.Join(st.errs...)
	}
	for _, w := range st.writes {
		if !w.leaf.SetAnyValue(w.value) {
			log.Warn().Str("path", w.path).Msg("setting refused value")
		}
	}
	return nil
}

func (st *stage) collect(b *tree.Branch, prefix []string, data map[string]any, s schema.ValueSerializer) {
	keys := maps.Keys(data)
	slices.Sort(keys)
	for _, key := range keys {
		raw := data[key]
		path := append(slices.Clip(prefix), key)

		switch n := b.Child(key).(type) {
		case nil:
			log.Debug().Str("path", tree.JoinPath(path)).Msg("ignoring unknown setting")
		case *tree.Branch:
			if n.IsSerializedSeparately() && !st.separate {
				log.Debug().Str("path", tree.JoinPath(path)).Msg("skipping separately serialized branch")
				continue
			}
			sub, ok := raw.(map[string]any)
			if !ok {
				st.errs = append(st.errs, &PathError{Path: tree.JoinPath(path), Err: fmt.Errorf("%w, got %T", ErrNotTable, raw)})
				continue
			}
			st.collect(n, path, sub, s)
		case tree.LeafNode:
			v, err := n.Type().DeserializeAny(raw, s)
			if err != nil {
				st.errs = append(st.errs, &PathError{Path: tree.JoinPath(path), Err: err})
				continue
			}
			st.writes = append(st.writes, write{leaf: n, path: tree.JoinPath(path), value: v})
		}
	}
}
