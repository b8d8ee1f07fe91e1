// Package tree implements the settree node model: typed leaves holding one
// constraint-checked value each, and branches holding an immutable,
// name-keyed set of children.
//
// The tree has no parent pointers and no internal locking. A tree is owned
// by one goroutine at a time; callers that share it must synchronize.
package tree

import (
	"fmt"
	"maps"
	"strings"
)

// NodeKind distinguishes the two node variants.
type NodeKind uint8

const (
	// KindLeaf is a node holding one typed value.
	KindLeaf NodeKind = iota
	// KindBranch is a node holding child nodes.
	KindBranch
)

// String returns "leaf" or "branch".
func (k NodeKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// Node is a tree element. The interface is sealed: the only
// implementations are *Branch and *Leaf[T], so a type switch over
// *Branch and LeafNode is exhaustive.
type Node interface {
	// Name returns the node's name, unique among its siblings.
	Name() string

	// Comment returns the node's documentation, possibly empty.
	Comment() string

	// NodeKind reports which variant the node is.
	NodeKind() NodeKind

	// Attributes returns a copy of the node's attributes.
	Attributes() map[ID]NodeAttribute

	// Attribute returns the attribute with the given id.
	Attribute(id ID) (NodeAttribute, bool)

	sealed()
}

// ID identifies an attribute. Namespaces keep attributes of independent
// tools apart.
type ID struct {
	Namespace string
	Name      string
}

// NewID creates an ID.
func NewID(namespace, name string) ID {
	return ID{Namespace: namespace, Name: name}
}

// ParseID parses "namespace:name".
func ParseID(s string) (ID, error) {
	ns, name, ok := strings.Cut(s, ":")
	if !ok || ns == "" || name == "" {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID{Namespace: ns, Name: name}, nil
}

// String returns "namespace:name".
func (id ID) String() string {
	return id.Namespace + ":" + id.Name
}

// nodeBase holds the state shared by both variants.
type nodeBase struct {
	name    string
	comment string
	attrs   map[ID]NodeAttribute
}

func newNodeBase(name, comment string, attrs []NodeAttribute) nodeBase {
	b := nodeBase{name: name, comment: comment}
	if len(attrs) > 0 {
		b.attrs = make(map[ID]NodeAttribute, len(attrs))
		for _, a := range attrs {
			b.attrs[a.ID()] = a
		}
	}
	return b
}

func (b *nodeBase) Name() string    { return b.name }
func (b *nodeBase) Comment() string { return b.comment }

func (b *nodeBase) Attributes() map[ID]NodeAttribute {
	return maps.Clone(b.attrs)
}

func (b *nodeBase) Attribute(id ID) (NodeAttribute, bool) {
	a, ok := b.attrs[id]
	return a, ok
}

func (b *nodeBase) sealed() {}
