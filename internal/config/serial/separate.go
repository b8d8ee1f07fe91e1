package serial

import (
	"fmt"
	"strings"

	"github.com/dshills/settree/internal/config/tree"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// SeparateBranch is a branch serialized apart from its parent, with its
// dotted path from the root.
type SeparateBranch struct {
	Path   string
	Branch *tree.Branch
}

// SeparateBranches returns every separately serialized branch below root,
// nested ones included, in walk order.
func SeparateBranches(root *tree.Branch) []SeparateBranch {
	var out []SeparateBranch
	_ = tree.Walk(root, func(path []string, n tree.Node) error {
		if b, ok := n.(*tree.Branch); ok && b.IsSerializedSeparately() {
			out = append(out, SeparateBranch{Path: tree.JoinPath(path), Branch: b})
		}
		return nil
	})
	return out
}

// EncodeSeparate stores the values of b, a branch serialized separately
// from its parent, under path in the JSON document doc. An empty doc starts
// a new object.
func EncodeSeparate(doc []byte, path string, b *tree.Branch) ([]byte, error) {
	data, err := Encode(b)
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		doc = []byte("{}")
	}
	out, err := sjson.SetBytes(doc, path, data)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	return out, nil
}

// MarshalSeparate encodes every separately serialized branch of root into
// one indented JSON document, each under its dotted path. It returns nil
// when root has no such branch.
func MarshalSeparate(root *tree.Branch) ([]byte, error) {
	var doc []byte
	for _, sb := range SeparateBranches(root) {
		var err error
		if doc, err = EncodeSeparate(doc, sb.Path, sb.Branch); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		return nil, nil
	}
	return pretty.Pretty(doc), nil
}

// ExtractSeparate reads the objects stored for the separately serialized
// branches of root out of the JSON document doc and returns them nested
// by path, ready for ApplyAll. Other content of doc is ignored.
func ExtractSeparate(doc []byte, root *tree.Branch) (map[string]any, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: invalid JSON document", ErrNotTable)
	}

	out := make(map[string]any)
	for _, sb := range SeparateBranches(root) {
		res := gjson.GetBytes(doc, sb.Path)
		if !res.Exists() {
			continue
		}
		if !res.IsObject() {
			return nil, &PathError{Path: sb.Path, Err: fmt.Errorf("%w, got %s", ErrNotTable, res.Type)}
		}

		var data map[string]any
		if err := decodeJSON(res.Raw, &data); err != nil {
			return nil, &PathError{Path: sb.Path, Err: err}
		}
		nest(out, strings.Split(sb.Path, "."), data)
	}
	return out, nil
}

// nest merges data into out below path, keeping what is already there.
func nest(out map[string]any, path []string, data map[string]any) {
	m := out
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[key] = next
		}
		m = next
	}

	last := path[len(path)-1]
	existing, ok := m[last].(map[string]any)
	if !ok {
		m[last] = data
		return
	}
	for k, v := range data {
		existing[k] = v
	}
}
