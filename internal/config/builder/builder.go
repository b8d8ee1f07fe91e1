// Package builder provides fluent construction of settree trees.
//
//	root, err := builder.Tree().
//		Fork("server").
//		Comment("Network settings").
//		Add(portLeaf).
//		Finish().
//		Build()
//
// Typed values are added with the package-level Value and ConvertedValue
// functions, since Go methods cannot take type parameters. Construction
// errors are collected and reported once by Build.
package builder

import (
	"errors"
	"fmt"

	"github.com/dshills/settree/internal/config/mirror"
	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/tree"
)

// ErrNoParent is the panic value for Finish on a builder that was not
// created by Fork.
var ErrNoParent = errors.New("builder has no parent to finish into")

// BranchBuilder accumulates the children and metadata of one branch.
type BranchBuilder struct {
	parent   *BranchBuilder
	name     string
	comment  string
	separate bool
	attrs    []tree.NodeAttribute
	children []tree.Node
	errs     []error
}

// Tree returns a builder for an unnamed root branch.
func Tree() *BranchBuilder { return &BranchBuilder{} }

// Branch returns a builder for a named branch.
func Branch(name string) *BranchBuilder { return &BranchBuilder{name: name} }

// Name returns the branch name.
func (b *BranchBuilder) Name() string { return b.name }

// Comment sets the branch comment.
func (b *BranchBuilder) Comment(comment string) *BranchBuilder {
	b.comment = comment
	return b
}

// SerializeSeparately marks the branch as handled outside its parent's
// serialization pass.
func (b *BranchBuilder) SerializeSeparately(separate bool) *BranchBuilder {
	b.separate = separate
	return b
}

// Attribute attaches an attribute to the branch.
func (b *BranchBuilder) Attribute(a tree.NodeAttribute) *BranchBuilder {
	b.attrs = append(b.attrs, a)
	return b
}

// Add appends an already built node.
func (b *BranchBuilder) Add(n tree.Node) *BranchBuilder {
	b.children = append(b.children, n)
	return b
}

// Fork starts a child branch. Call Finish on the returned builder to add
// the child and get this builder back.
func (b *BranchBuilder) Fork(name string) *BranchBuilder {
	child := Branch(name)
	child.parent = b
	return child
}

// Finish builds this branch into its parent and returns the parent.
func (b *BranchBuilder) Finish() *BranchBuilder {
	if b.parent == nil {
		panic(ErrNoParent)
	}
	n, err := b.Build()
	if err != nil {
		b.parent.fail(err)
	} else {
		b.parent.Add(n)
	}
	return b.parent
}

// Err returns the errors collected so far.
func (b *BranchBuilder) Err() error {
	return errors.Join(b.errs...)
}

// Build creates the branch.
func (b *BranchBuilder) Build() (*tree.Branch, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	return tree.NewBranch(b.name, b.comment, b.children, b.separate, b.attrs...)
}

func (b *BranchBuilder) fail(err error) {
	if b.name != "" {
		err = fmt.Errorf("branch %q: %w", b.name, err)
	}
	b.errs = append(b.errs, err)
}

// Value adds a leaf with the given type and default to b.
func Value[T any](b *BranchBuilder, name string, typ schema.SerializableType[T], def T) *BranchBuilder {
	return Leaf(name, typ).Default(def).Into(b)
}

// ConvertedValue adds a leaf storing conv's serialized form of def.
func ConvertedValue[R, S any](b *BranchBuilder, name string, conv mirror.Converter[R, S], def R) *BranchBuilder {
	return ConvertedLeaf(name, conv, def).Into(b)
}

// LeafBuilder accumulates the parameters of one leaf.
type LeafBuilder[T any] struct {
	name      string
	comment   string
	typ       schema.SerializableType[T]
	def       T
	listeners []tree.Listener[T]
	attrs     []tree.NodeAttribute
}

// Leaf starts a leaf of the given type. Without Default, the default is
// T's zero value.
func Leaf[T any](name string, typ schema.SerializableType[T]) *LeafBuilder[T] {
	return &LeafBuilder[T]{name: name, typ: typ}
}

// ConvertedLeaf starts a leaf whose type and default come from conv.
func ConvertedLeaf[R, S any](name string, conv mirror.Converter[R, S], def R) *LeafBuilder[S] {
	return Leaf(name, conv.SerializedType()).Default(conv.ToSerialized(def))
}

// Comment sets the leaf comment.
func (l *LeafBuilder[T]) Comment(comment string) *LeafBuilder[T] {
	l.comment = comment
	return l
}

// Default sets the default value.
func (l *LeafBuilder[T]) Default(def T) *LeafBuilder[T] {
	l.def = def
	return l
}

// Listener adds a change listener.
func (l *LeafBuilder[T]) Listener(fn tree.Listener[T]) *LeafBuilder[T] {
	l.listeners = append(l.listeners, fn)
	return l
}

// Attribute attaches an attribute to the leaf.
func (l *LeafBuilder[T]) Attribute(a tree.NodeAttribute) *LeafBuilder[T] {
	l.attrs = append(l.attrs, a)
	return l
}

// Build creates the leaf.
func (l *LeafBuilder[T]) Build() (*tree.Leaf[T], error) {
	var first tree.Listener[T]
	if len(l.listeners) > 0 {
		first = l.listeners[0]
	}
	leaf, err := tree.NewLeaf(l.name, l.typ, l.comment, l.def, first, l.attrs...)
	if err != nil {
		return nil, err
	}
	for _, fn := range l.listeners[min(1, len(l.listeners)):] {
		leaf.AddChangeListener(fn)
	}
	return leaf, nil
}

// Into builds the leaf and adds it to b. Errors are reported by b.Build.
func (l *LeafBuilder[T]) Into(b *BranchBuilder) *BranchBuilder {
	leaf, err := l.Build()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Add(leaf)
}
