package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/settree/internal/config/schema"
)

// Construction errors.
var (
	// ErrDuplicateChild indicates two children with the same name.
	ErrDuplicateChild = errors.New("duplicate child name")

	// ErrUnnamedChild indicates a nil child or a child without a name.
	ErrUnnamedChild = errors.New("child has no name")

	// ErrInvalidDefault indicates a default value rejected by its type.
	ErrInvalidDefault = errors.New("invalid default value")

	// ErrInvalidID indicates a malformed attribute id.
	ErrInvalidID = errors.New("invalid attribute id")
)

// ErrQuery is matched by every error returned from a tree query.
var ErrQuery = errors.New("query against config tree failed")

// QueryError is the root of the query failure family. Parent is the last
// branch reached before the failure and Path the queried path up to and
// including the failing segment.
type QueryError struct {
	Parent *Branch
	Path   []string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%v: %s", ErrQuery, JoinPath(e.Path))
}

// Is matches ErrQuery.
func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

// MissingChildError reports a path segment with no matching child.
type MissingChildError struct {
	QueryError
	Name string
}

// Error implements the error interface.
func (e *MissingChildError) Error() string {
	return fmt.Sprintf("%v: no child %q in %s", ErrQuery, e.Name, branchLabel(e.Parent))
}

// Unwrap exposes the QueryError.
func (e *MissingChildError) Unwrap() error { return &e.QueryError }

// WrongTypeError reports a node of the wrong kind, or a leaf whose type
// differs from the expected one. ExpectedType is nil when a branch was
// expected.
type WrongTypeError struct {
	QueryError
	Node         Node
	ExpectedKind NodeKind
	ExpectedType schema.Type
}

// Error implements the error interface.
func (e *WrongTypeError) Error() string {
	want := e.ExpectedKind.String()
	if e.ExpectedType != nil {
		want += " of type " + e.ExpectedType.String()
	}

	got := e.Node.NodeKind().String()
	if l, ok := e.Node.(LeafNode); ok {
		got += " of type " + l.Type().String()
	}
	return fmt.Sprintf("%v: %s is a %s, expected %s", ErrQuery, JoinPath(e.Path), got, want)
}

// Unwrap exposes the QueryError.
func (e *WrongTypeError) Unwrap() error { return &e.QueryError }

// JoinPath joins path segments with dots.
func JoinPath(path []string) string {
	return strings.Join(path, ".")
}

func branchLabel(b *Branch) string {
	if b == nil || b.Name() == "" {
		return "root"
	}
	return fmt.Sprintf("branch %q", b.Name())
}
