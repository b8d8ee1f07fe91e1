package schema

import (
	"fmt"
	"strconv"

	"github.com/dshills/settree/internal/config/constraint"
)

// ListType is the type of ordered sequences whose elements share one type.
// Size and uniqueness violations are never corrected; element corrections
// are delegated to the element type and produce a fresh slice.
type ListType[E any] struct {
	elem   SerializableType[E]
	size   constraint.Size
	unique bool
	chain  constraint.Chain[[]E]
}

// ListOf returns an unbounded, non-unique list of elem.
func ListOf[E any](elem SerializableType[E]) *ListType[E] {
	return must(NewListType(elem, 0, constraint.Unbounded, false))
}

// NewListType creates a list type. maxSize may be constraint.Unbounded.
func NewListType[E any](elem SerializableType[E], minSize, maxSize int, unique bool) (*ListType[E], error) {
	if elem == nil {
		return nil, fmt.Errorf("%w: list element type is nil", ErrWrongValueType)
	}
	size, err := constraint.NewSize(minSize, maxSize)
	if err != nil {
		return nil, err
	}

	t := &ListType[E]{elem: elem, size: size, unique: unique}
	t.chain = constraint.Chain[[]E]{
		constraint.SliceSize[E]{Size: size},
		elementChecker[E]{elem: elem},
	}
	if unique {
		t.chain = append(t.chain, constraint.Unique[E]{})
	}
	return t, nil
}

// WithMinSize returns a copy with the given minimum size.
func (t *ListType[E]) WithMinSize(n int) *ListType[E] {
	return must(NewListType(t.elem, n, t.size.Max, t.unique))
}

// WithMaxSize returns a copy with the given maximum size.
func (t *ListType[E]) WithMaxSize(n int) *ListType[E] {
	return must(NewListType(t.elem, t.size.Min, n, t.unique))
}

// WithUnique returns a copy with the unique flag set.
func (t *ListType[E]) WithUnique(unique bool) *ListType[E] {
	return must(NewListType(t.elem, t.size.Min, t.size.Max, unique))
}

// Element returns the typed element type.
func (t *ListType[E]) Element() SerializableType[E] { return t.elem }

// ElementType returns the element type.
func (t *ListType[E]) ElementType() Type { return t.elem }

// MinSize returns the minimum size.
func (t *ListType[E]) MinSize() int { return t.size.Min }

// MaxSize returns the maximum size or constraint.Unbounded.
func (t *ListType[E]) MaxSize() int { return t.size.Max }

// Unique reports whether duplicates are rejected.
func (t *ListType[E]) Unique() bool { return t.unique }

// Kind returns KindList.
func (t *ListType[E]) Kind() Kind { return KindList }

// Equal compares element types, bounds and the unique flag.
func (t *ListType[E]) Equal(other Type) bool {
	o, ok := other.(ListDescriptor)
	if !ok || o.Kind() != KindList {
		return false
	}
	return t.size.Min == o.MinSize() &&
		t.size.Max == o.MaxSize() &&
		t.unique == o.Unique() &&
		t.elem.Equal(o.ElementType())
}

// Hash returns the type hash.
func (t *ListType[E]) Hash() uint64 {
	return hashParts(KindList.String(),
		strconv.FormatUint(t.elem.Hash(), 16),
		strconv.Itoa(t.size.Min),
		strconv.Itoa(t.size.Max),
		strconv.FormatBool(t.unique))
}

// String describes the type.
func (t *ListType[E]) String() string {
	var minP, maxP, uniqP string
	if t.size.Min > 0 {
		minP = fmt.Sprintf("minSize=%d", t.size.Min)
	}
	if t.size.Max != constraint.Unbounded {
		maxP = fmt.Sprintf("maxSize=%d", t.size.Max)
	}
	if t.unique {
		uniqP = "unique"
	}
	return describe("List", "element="+t.elem.String(), minP, maxP, uniqP)
}

// Accepts reports whether v has an allowed size, every element is accepted
// and, for unique lists, no two elements are equal.
func (t *ListType[E]) Accepts(v []E) bool { return t.chain.Accepts(v) }

// Test checks v. The caller's slice is never modified.
func (t *ListType[E]) Test(v []E) TypeCheckResult[[]E] {
	corrected, outcome := t.chain.Test(v)
	return resultOf(corrected, outcome)
}

// AcceptsAny reports whether v is an acceptable []E.
func (t *ListType[E]) AcceptsAny(v any) bool { return acceptsAny[[]E](t, v) }

// TestAny tests a boxed value.
func (t *ListType[E]) TestAny(v any) TypeCheckResult[any] { return testAny[[]E](t, v) }

// Serialize describes the type.
func (t *ListType[E]) Serialize(s TypeSerializer) { s.SerializeList(t) }

// SerializeValue serializes each element, then the list.
func (t *ListType[E]) SerializeValue(v []E, s ValueSerializer) any {
	elems := make([]any, len(v))
	for i, e := range v {
		elems[i] = t.elem.SerializeValue(e, s)
	}
	return s.SerializeList(elems, t)
}

// DeserializeValue deserializes the list, then each element.
func (t *ListType[E]) DeserializeValue(elem any, s ValueSerializer) ([]E, error) {
	raw, err := s.DeserializeList(elem, t)
	if err != nil {
		return checked[[]E](t, elem, nil, err)
	}

	out := make([]E, len(raw))
	for i, r := range raw {
		e, err := t.elem.DeserializeValue(r, s)
		if err != nil {
			return nil, NewDeserializationError(elem, t, fmt.Errorf("element %d: %w", i, err))
		}
		out[i] = e
	}
	return checked[[]E](t, elem, out, nil)
}

// SerializeAny serializes a boxed value.
func (t *ListType[E]) SerializeAny(v any, s ValueSerializer) (any, error) {
	return serializeAny[[]E](t, v, s)
}

// DeserializeAny deserializes into a boxed []E.
func (t *ListType[E]) DeserializeAny(elem any, s ValueSerializer) (any, error) {
	return deserializeAny[[]E](t, elem, s)
}

// Copy returns a fresh slice holding a copy of every element.
func (t *ListType[E]) Copy(v []E) []E {
	if v == nil {
		return nil
	}
	out := make([]E, len(v))
	for i, e := range v {
		out[i] = t.elem.Copy(e)
	}
	return out
}

// CopyAny copies a boxed []E.
func (t *ListType[E]) CopyAny(v any) any { return copyAny[[]E](t, v) }

// elementChecker delegates to the element type.
type elementChecker[E any] struct {
	elem SerializableType[E]
}

func (c elementChecker[E]) Name() string { return "elements" }

func (c elementChecker[E]) Check(v []E) bool {
	for _, e := range v {
		if !c.elem.Accepts(e) {
			return false
		}
	}
	return true
}

func (c elementChecker[E]) Correct(v []E) ([]E, bool) {
	out := make([]E, len(v))
	for i, e := range v {
		usable, ok := c.elem.Test(e).Value()
		if !ok {
			return nil, false
		}
		out[i] = usable
	}
	return out, true
}
