package tree

import (
	"slices"
	"strings"

	"github.com/dshills/settree/internal/config/schema"
)

// ParsePath splits a dotted path into segments, dropping empty ones.
func ParsePath(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, ".") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Query locates a node of an expected kind, and for leaves an expected
// value type, below a root branch.
type Query[N Node] struct {
	path         []string
	expectedKind NodeKind
	expectedType schema.Type
	match        func(Node) (N, bool)
}

// LeafQuery creates a query for a leaf whose type equals typ.
func LeafQuery[T any](typ schema.SerializableType[T], path ...string) *Query[*Leaf[T]] {
	return &Query[*Leaf[T]]{
		path:         slices.Clone(path),
		expectedKind: KindLeaf,
		expectedType: typ,
		match: func(n Node) (*Leaf[T], bool) {
			l, ok := n.(*Leaf[T])
			if !ok || !typ.Equal(l.Type()) {
				return nil, false
			}
			return l, true
		},
	}
}

// BranchQuery creates a query for a branch. An empty path selects the root.
func BranchQuery(path ...string) *Query[*Branch] {
	return &Query[*Branch]{
		path:         slices.Clone(path),
		expectedKind: KindBranch,
		match: func(n Node) (*Branch, bool) {
			b, ok := n.(*Branch)
			return b, ok
		},
	}
}

// Path returns the queried path.
func (q *Query[N]) Path() []string { return slices.Clone(q.path) }

// Run resolves the query against root. A segment with no matching child
// yields a *MissingChildError; a node of the wrong kind or type, including
// a leaf where a branch was needed to continue, yields a *WrongTypeError.
func (q *Query[N]) Run(root *Branch) (N, error) {
	var zero N

	if len(q.path) == 0 {
		if n, ok := q.match(root); ok {
			return n, nil
		}
		return zero, &WrongTypeError{
			QueryError:   QueryError{Parent: root},
			Node:         root,
			ExpectedKind: q.expectedKind,
			ExpectedType: q.expectedType,
		}
	}

	current := root
	last := len(q.path) - 1
	for i, seg := range q.path {
		child, ok := current.index[seg]
		if !ok {
			return zero, &MissingChildError{
				QueryError: QueryError{Parent: current, Path: slices.Clone(q.path[:i+1])},
				Name:       seg,
			}
		}

		if i == last {
			if n, ok := q.match(child); ok {
				return n, nil
			}
			return zero, &WrongTypeError{
				QueryError:   QueryError{Parent: current, Path: slices.Clone(q.path)},
				Node:         child,
				ExpectedKind: q.expectedKind,
				ExpectedType: q.expectedType,
			}
		}

		next, ok := child.(*Branch)
		if !ok {
			return zero, &WrongTypeError{
				QueryError:   QueryError{Parent: current, Path: slices.Clone(q.path[:i+1])},
				Node:         child,
				ExpectedKind: KindBranch,
			}
		}
		current = next
	}
	return zero, nil
}

// Search is Run without the diagnostics.
func (q *Query[N]) Search(root *Branch) (N, bool) {
	n, err := q.Run(root)
	return n, err == nil
}

// ApplyLeaf resolves q and sets the leaf to v. The boolean is the result
// of SetValue.
func ApplyLeaf[T any](root *Branch, q *Query[*Leaf[T]], v T) (bool, error) {
	l, err := q.Run(root)
	if err != nil {
		return false, err
	}
	return l.SetValue(v), nil
}
