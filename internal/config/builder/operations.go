package builder

import "github.com/dshills/settree/internal/config/tree"

// MoveChildren adds every child of from to to. The nodes are shared, so
// from should be discarded afterwards.
func MoveChildren(from *tree.Branch, to *BranchBuilder) *BranchBuilder {
	for _, n := range from.Items() {
		to.Add(n)
	}
	return to
}

// MoveNode adds n to to.
func MoveNode(n tree.Node, to *BranchBuilder) *BranchBuilder {
	return to.Add(n)
}

// CopyValue sets to's value to from's, notifying to's listeners.
func CopyValue[T any](from, to *tree.Leaf[T]) bool {
	return to.SetValue(from.Value())
}
