package types

import (
	"fmt"

	"github.com/dshills/settree/internal/config/mirror"
	"github.com/dshills/settree/internal/config/schema"
)

// ListType converts []R to []S element by element.
type ListType[R, S any] struct {
	elem mirror.Converter[R, S]
	typ  *schema.ListType[S]
}

// List returns a converter for slices of elem's runtime type.
func List[R, S any](elem mirror.Converter[R, S]) ListType[R, S] {
	return ListType[R, S]{elem: elem, typ: schema.ListOf(elem.SerializedType())}
}

// WithMinSize returns a copy with a minimum length.
func (t ListType[R, S]) WithMinSize(n int) ListType[R, S] {
	return ListType[R, S]{elem: t.elem, typ: t.typ.WithMinSize(n)}
}

// WithMaxSize returns a copy with a maximum length.
func (t ListType[R, S]) WithMaxSize(n int) ListType[R, S] {
	return ListType[R, S]{elem: t.elem, typ: t.typ.WithMaxSize(n)}
}

// WithUnique returns a copy that rejects duplicates.
func (t ListType[R, S]) WithUnique(unique bool) ListType[R, S] {
	return ListType[R, S]{elem: t.elem, typ: t.typ.WithUnique(unique)}
}

// Element returns the element converter.
func (t ListType[R, S]) Element() mirror.Converter[R, S] { return t.elem }

// SerializedType returns the list type.
func (t ListType[R, S]) SerializedType() schema.SerializableType[[]S] { return t.typ }

// ToSerialized converts every element.
func (t ListType[R, S]) ToSerialized(rs []R) []S {
	out := make([]S, len(rs))
	for i, r := range rs {
		out[i] = t.elem.ToSerialized(r)
	}
	return out
}

// ToRuntime converts every element, failing on the first that cannot be
// converted.
func (t ListType[R, S]) ToRuntime(ss []S) ([]R, error) {
	out := make([]R, len(ss))
	for i, s := range ss {
		r, err := t.elem.ToRuntime(s)
		if err != nil {
			return nil, conversionError(ss, fmt.Sprintf("%T", out), fmt.Errorf("element %d: %w", i, err))
		}
		out[i] = r
	}
	return out, nil
}

// MapType converts map[string]R to map[string]S entry by entry.
type MapType[R, S any] struct {
	value mirror.Converter[R, S]
	typ   *schema.MapType[S]
}

// Map returns a converter for string-keyed maps of value's runtime type.
func Map[R, S any](value mirror.Converter[R, S]) MapType[R, S] {
	return MapType[R, S]{value: value, typ: schema.MapOf(value.SerializedType())}
}

// WithMinSize returns a copy with a minimum number of entries.
func (t MapType[R, S]) WithMinSize(n int) MapType[R, S] {
	return MapType[R, S]{value: t.value, typ: t.typ.WithMinSize(n)}
}

// WithMaxSize returns a copy with a maximum number of entries.
func (t MapType[R, S]) WithMaxSize(n int) MapType[R, S] {
	return MapType[R, S]{value: t.value, typ: t.typ.WithMaxSize(n)}
}

// SerializedType returns the map type.
func (t MapType[R, S]) SerializedType() schema.SerializableType[map[string]S] { return t.typ }

// ToSerialized converts every value.
func (t MapType[R, S]) ToSerialized(rs map[string]R) map[string]S {
	out := make(map[string]S, len(rs))
	for k, r := range rs {
		out[k] = t.value.ToSerialized(r)
	}
	return out
}

// ToRuntime converts every value.
func (t MapType[R, S]) ToRuntime(ss map[string]S) (map[string]R, error) {
	out := make(map[string]R, len(ss))
	for k, s := range ss {
		r, err := t.value.ToRuntime(s)
		if err != nil {
			return nil, conversionError(ss, fmt.Sprintf("%T", out), fmt.Errorf("entry %q: %w", k, err))
		}
		out[k] = r
	}
	return out, nil
}
