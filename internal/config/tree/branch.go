package tree

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Branch is a node holding a fixed set of uniquely named children.
type Branch struct {
	nodeBase
	children []Node
	index    map[string]Node
	separate bool
}

// NewBranch creates a branch from a snapshot of children. Children must
// have distinct, non-empty names. A branch serialized separately is
// skipped by its parent's serialization pass and handled on its own.
func NewBranch(name, comment string, children []Node, serializeSeparately bool, attrs ...NodeAttribute) (*Branch, error) {
	b := &Branch{
		nodeBase: newNodeBase(name, comment, attrs),
		children: make([]Node, 0, len(children)),
		index:    make(map[string]Node, len(children)),
		separate: serializeSeparately,
	}

	for _, c := range children {
		if c == nil || c.Name() == "" {
			return nil, fmt.Errorf("%w: in branch %q", ErrUnnamedChild, name)
		}
		if _, dup := b.index[c.Name()]; dup {
			return nil, fmt.Errorf("%w: %q in branch %q", ErrDuplicateChild, c.Name(), name)
		}
		b.index[c.Name()] = c
		b.children = append(b.children, c)
	}

	slices.SortFunc(b.children, func(x, y Node) int {
		return strings.Compare(x.Name(), y.Name())
	})
	return b, nil
}

// NodeKind returns KindBranch.
func (b *Branch) NodeKind() NodeKind { return KindBranch }

// Items returns the children ordered by name.
func (b *Branch) Items() []Node { return slices.Clone(b.children) }

// Len returns the number of children.
func (b *Branch) Len() int { return len(b.children) }

// IsSerializedSeparately reports whether the branch is excluded from its
// parent's serialization pass.
func (b *Branch) IsSerializedSeparately() bool { return b.separate }

// Lookup returns the direct child with the given name.
func (b *Branch) Lookup(name string) (Node, error) {
	if c, ok := b.index[name]; ok {
		return c, nil
	}
	return nil, &MissingChildError{
		QueryError: QueryError{Parent: b, Path: []string{name}},
		Name:       name,
	}
}

// Child returns the direct child with the given name, or nil.
func (b *Branch) Child(name string) Node {
	return b.index[name]
}

// SkipBranch may be returned by a WalkFunc to skip a branch's children.
var SkipBranch = errors.New("skip this branch")

// WalkFunc is called for each node visited by Walk. path is the node's
// name path from the walked root, excluding the root itself.
type WalkFunc func(path []string, n Node) error

// Walk visits the descendants of root depth-first in name order. Returning
// SkipBranch from fn for a branch skips its children; returning it for a
// leaf skips the leaf's remaining siblings. Any other error stops the walk
// and is returned.
func Walk(root *Branch, fn WalkFunc) error {
	return walk(root, nil, fn)
}

func walk(b *Branch, prefix []string, fn WalkFunc) error {
	for _, c := range b.children {
		path := append(slices.Clip(prefix), c.Name())
		err := fn(path, c)
		if sub, ok := c.(*Branch); ok {
			if errors.Is(err, SkipBranch) {
				continue
			}
			if err != nil {
				return err
			}
			if err := walk(sub, path, fn); err != nil {
				return err
			}
			continue
		}
		if errors.Is(err, SkipBranch) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Leaves returns every leaf below root keyed by dotted path.
func Leaves(root *Branch) map[string]LeafNode {
	out := make(map[string]LeafNode)
	_ = Walk(root, func(path []string, n Node) error {
		if l, ok := n.(LeafNode); ok {
			out[JoinPath(path)] = l
		}
		return nil
	})
	return out
}
