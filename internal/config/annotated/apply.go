package annotated

import (
	"fmt"
	"reflect"

	"github.com/dshills/settree/internal/config/serial"
	"github.com/dshills/settree/internal/config/tree"
	"github.com/go-viper/mapstructure/v2"
)

// Apply copies the current values of root into the struct v points to.
// root is normally the tree Build produced for the same struct type, and
// opts must name the same convention.
//
// Branches serialized separately are included.
func Apply(root *tree.Branch, v any, opts ...Option) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrNotStruct, v)
	}

	data, err := values(root)
	if err != nil {
		return err
	}

	o := newOptions(opts)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     v,
		TagName:    TagName,
		Squash:     true,
		ZeroFields: true,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		MatchName: func(key, field string) bool {
			return key == field || key == o.convention.Apply(field)
		},
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

// values encodes every leaf below b, unlike serial.Encode which leaves
// separately serialized branches out.
func values(b *tree.Branch) (map[string]any, error) {
	out := make(map[string]any, b.Len())
	for _, c := range b.Items() {
		switch n := c.(type) {
		case *tree.Branch:
			sub, err := values(n)
			if err != nil {
				return nil, err
			}
			out[n.Name()] = sub
		case tree.LeafNode:
			val, err := serial.Value(n)
			if err != nil {
				return nil, err
			}
			out[n.Name()] = val
		}
	}
	return out, nil
}
