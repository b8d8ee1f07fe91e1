package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/dshills/settree/internal/config/constraint"
)

// ErrDuplicateField is returned when a record declares a field twice.
var ErrDuplicateField = errors.New("duplicate record field")

// MapType is the type of string-keyed maps whose values share one type.
type MapType[V any] struct {
	value SerializableType[V]
	size  constraint.Size
	chain constraint.Chain[map[string]V]
}

// MapOf returns an unbounded map of value.
func MapOf[V any](value SerializableType[V]) *MapType[V] {
	return must(NewMapType(value, 0, constraint.Unbounded))
}

// NewMapType creates a map type. maxSize may be constraint.Unbounded.
func NewMapType[V any](value SerializableType[V], minSize, maxSize int) (*MapType[V], error) {
	if value == nil {
		return nil, fmt.Errorf("%w: map value type is nil", ErrWrongValueType)
	}
	size, err := constraint.NewSize(minSize, maxSize)
	if err != nil {
		return nil, err
	}
	return &MapType[V]{
		value: value,
		size:  size,
		chain: constraint.Chain[map[string]V]{
			constraint.MapSize[V]{Size: size},
			entryChecker[V]{value: value},
		},
	}, nil
}

// WithMinSize returns a copy with the given minimum size.
func (t *MapType[V]) WithMinSize(n int) *MapType[V] {
	return must(NewMapType(t.value, n, t.size.Max))
}

// WithMaxSize returns a copy with the given maximum size.
func (t *MapType[V]) WithMaxSize(n int) *MapType[V] {
	return must(NewMapType(t.value, t.size.Min, n))
}

// Value returns the typed value type.
func (t *MapType[V]) Value() SerializableType[V] { return t.value }

// ValueType returns the value type.
func (t *MapType[V]) ValueType() Type { return t.value }

// MinSize returns the minimum number of entries.
func (t *MapType[V]) MinSize() int { return t.size.Min }

// MaxSize returns the maximum number of entries or constraint.Unbounded.
func (t *MapType[V]) MaxSize() int { return t.size.Max }

// Kind returns KindMap.
func (t *MapType[V]) Kind() Kind { return KindMap }

// Equal compares value types and bounds.
func (t *MapType[V]) Equal(other Type) bool {
	o, ok := other.(MapDescriptor)
	if !ok || o.Kind() != KindMap {
		return false
	}
	return t.size.Min == o.MinSize() && t.size.Max == o.MaxSize() && t.value.Equal(o.ValueType())
}

// Hash returns the type hash.
func (t *MapType[V]) Hash() uint64 {
	return hashParts(KindMap.String(),
		strconv.FormatUint(t.value.Hash(), 16),
		strconv.Itoa(t.size.Min),
		strconv.Itoa(t.size.Max))
}

// String describes the type.
func (t *MapType[V]) String() string {
	var minP, maxP string
	if t.size.Min > 0 {
		minP = fmt.Sprintf("minSize=%d", t.size.Min)
	}
	if t.size.Max != constraint.Unbounded {
		maxP = fmt.Sprintf("maxSize=%d", t.size.Max)
	}
	return describe("Map", "value="+t.value.String(), minP, maxP)
}

// Accepts reports whether v has an allowed size and every value is accepted.
func (t *MapType[V]) Accepts(v map[string]V) bool { return t.chain.Accepts(v) }

// Test checks v. The caller's map is never modified.
func (t *MapType[V]) Test(v map[string]V) TypeCheckResult[map[string]V] {
	corrected, outcome := t.chain.Test(v)
	return resultOf(corrected, outcome)
}

// AcceptsAny reports whether v is an acceptable map[string]V.
func (t *MapType[V]) AcceptsAny(v any) bool { return acceptsAny[map[string]V](t, v) }

// TestAny tests a boxed value.
func (t *MapType[V]) TestAny(v any) TypeCheckResult[any] { return testAny[map[string]V](t, v) }

// Serialize describes the type.
func (t *MapType[V]) Serialize(s TypeSerializer) { s.SerializeMap(t) }

// SerializeValue serializes each value, then the map.
func (t *MapType[V]) SerializeValue(v map[string]V, s ValueSerializer) any {
	entries := make(map[string]any, len(v))
	for k, e := range v {
		entries[k] = t.value.SerializeValue(e, s)
	}
	return s.SerializeMap(entries, t)
}

// DeserializeValue deserializes the map, then each value.
func (t *MapType[V]) DeserializeValue(elem any, s ValueSerializer) (map[string]V, error) {
	raw, err := s.DeserializeMap(elem, t)
	if err != nil {
		return checked[map[string]V](t, elem, nil, err)
	}

	out := make(map[string]V, len(raw))
	for k, r := range raw {
		v, err := t.value.DeserializeValue(r, s)
		if err != nil {
			return nil, NewDeserializationError(elem, t, fmt.Errorf("entry %q: %w", k, err))
		}
		out[k] = v
	}
	return checked[map[string]V](t, elem, out, nil)
}

// SerializeAny serializes a boxed value.
func (t *MapType[V]) SerializeAny(v any, s ValueSerializer) (any, error) {
	return serializeAny[map[string]V](t, v, s)
}

// DeserializeAny deserializes into a boxed map[string]V.
func (t *MapType[V]) DeserializeAny(elem any, s ValueSerializer) (any, error) {
	return deserializeAny[map[string]V](t, elem, s)
}

// Copy returns a fresh map holding a copy of every value.
func (t *MapType[V]) Copy(v map[string]V) map[string]V {
	if v == nil {
		return nil
	}
	out := make(map[string]V, len(v))
	for k, e := range v {
		out[k] = t.value.Copy(e)
	}
	return out
}

// CopyAny copies a boxed map[string]V.
func (t *MapType[V]) CopyAny(v any) any { return copyAny[map[string]V](t, v) }

type entryChecker[V any] struct {
	value SerializableType[V]
}

func (c entryChecker[V]) Name() string { return "entries" }

func (c entryChecker[V]) Check(v map[string]V) bool {
	for _, e := range v {
		if !c.value.Accepts(e) {
			return false
		}
	}
	return true
}

func (c entryChecker[V]) Correct(v map[string]V) (map[string]V, bool) {
	out := make(map[string]V, len(v))
	for k, e := range v {
		usable, ok := c.value.Test(e).Value()
		if !ok {
			return nil, false
		}
		out[k] = usable
	}
	return out, true
}

// Field is one named member of a record.
type Field struct {
	Name string
	Type Type
}

// RecordType is the type of fixed sets of named, individually typed
// fields. Its platform representation is map[string]any holding each
// field's own platform value. Missing and extra fields are rejected.
type RecordType struct {
	fields []Field
	index  map[string]int
	chain  constraint.Chain[map[string]any]
}

// NewRecordType creates a record type with fields in declaration order.
func NewRecordType(fields ...Field) (*RecordType, error) {
	t := &RecordType{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Type == nil {
			return nil, fmt.Errorf("%w: field %q has no type", ErrWrongValueType, f.Name)
		}
		if _, dup := t.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		t.index[f.Name] = len(t.fields)
		t.fields = append(t.fields, f)
	}
	t.chain = constraint.Chain[map[string]any]{fieldChecker{t: t}}
	return t, nil
}

// Fields returns the fields in declaration order.
func (t *RecordType) Fields() []Field { return slices.Clone(t.fields) }

// Field returns the named field's type.
func (t *RecordType) Field(name string) (Type, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.fields[i].Type, true
}

// Kind returns KindRecord.
func (t *RecordType) Kind() Kind { return KindRecord }

// Equal compares field names, order and types.
func (t *RecordType) Equal(other Type) bool {
	o, ok := other.(*RecordType)
	if !ok || len(t.fields) != len(o.fields) {
		return false
	}
	for i, f := range t.fields {
		if f.Name != o.fields[i].Name || !f.Type.Equal(o.fields[i].Type) {
			return false
		}
	}
	return true
}

// Hash returns the type hash.
func (t *RecordType) Hash() uint64 {
	parts := []string{KindRecord.String()}
	for _, f := range t.fields {
		parts = append(parts, f.Name, strconv.FormatUint(f.Type.Hash(), 16))
	}
	return hashParts(parts...)
}

// String describes the type.
func (t *RecordType) String() string {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "Record{" + strings.Join(parts, ", ") + "}"
}

// Accepts reports whether v has exactly the declared fields and each is accepted.
func (t *RecordType) Accepts(v map[string]any) bool { return t.chain.Accepts(v) }

// Test checks v field by field. The caller's map is never modified.
func (t *RecordType) Test(v map[string]any) TypeCheckResult[map[string]any] {
	corrected, outcome := t.chain.Test(v)
	return resultOf(corrected, outcome)
}

// AcceptsAny reports whether v is an acceptable record value.
func (t *RecordType) AcceptsAny(v any) bool { return acceptsAny[map[string]any](t, v) }

// TestAny tests a boxed value.
func (t *RecordType) TestAny(v any) TypeCheckResult[any] { return testAny[map[string]any](t, v) }

// Serialize describes the type.
func (t *RecordType) Serialize(s TypeSerializer) { s.SerializeRecord(t) }

// SerializeValue serializes each field, then the record. Fields whose
// value has the wrong platform type are omitted.
func (t *RecordType) SerializeValue(v map[string]any, s ValueSerializer) any {
	fields := make(map[string]any, len(v))
	for _, f := range t.fields {
		fv, ok := v[f.Name]
		if !ok {
			continue
		}
		if out, err := f.Type.SerializeAny(fv, s); err == nil {
			fields[f.Name] = out
		}
	}
	return s.SerializeRecord(fields, t)
}

// DeserializeValue deserializes the record, then each field.
func (t *RecordType) DeserializeValue(elem any, s ValueSerializer) (map[string]any, error) {
	raw, err := s.DeserializeRecord(elem, t)
	if err != nil {
		return checked[map[string]any](t, elem, nil, err)
	}

	out := make(map[string]any, len(raw))
	for k, r := range raw {
		ft, ok := t.Field(k)
		if !ok {
			return nil, NewDeserializationError(elem, t, fmt.Errorf("%w: unknown field %q", ErrUnexpectedShape, k))
		}
		v, err := ft.DeserializeAny(r, s)
		if err != nil {
			return nil, NewDeserializationError(elem, t, fmt.Errorf("field %q: %w", k, err))
		}
		out[k] = v
	}
	return checked[map[string]any](t, elem, out, nil)
}

// SerializeAny serializes a boxed value.
func (t *RecordType) SerializeAny(v any, s ValueSerializer) (any, error) {
	return serializeAny[map[string]any](t, v, s)
}

// DeserializeAny deserializes into a boxed map[string]any.
func (t *RecordType) DeserializeAny(elem any, s ValueSerializer) (any, error) {
	return deserializeAny[map[string]any](t, elem, s)
}

// Copy returns a fresh map with every declared field copied by its type.
func (t *RecordType) Copy(v map[string]any) map[string]any {
	if v == nil {
		return nil
	}
	out := make(map[string]any, len(v))
	for k, fv := range v {
		if ft, ok := t.Field(k); ok {
			fv = ft.CopyAny(fv)
		}
		out[k] = fv
	}
	return out
}

// CopyAny copies a boxed record value.
func (t *RecordType) CopyAny(v any) any { return copyAny[map[string]any](t, v) }

type fieldChecker struct {
	t *RecordType
}

func (c fieldChecker) Name() string { return "fields" }

func (c fieldChecker) Check(v map[string]any) bool {
	if len(v) != len(c.t.fields) {
		return false
	}
	for _, f := range c.t.fields {
		fv, ok := v[f.Name]
		if !ok || !f.Type.AcceptsAny(fv) {
			return false
		}
	}
	return true
}

func (c fieldChecker) Correct(v map[string]any) (map[string]any, bool) {
	if len(v) != len(c.t.fields) {
		return nil, false
	}
	out := maps.Clone(v)
	for _, f := range c.t.fields {
		fv, ok := v[f.Name]
		if !ok {
			return nil, false
		}
		usable, ok := f.Type.TestAny(fv).Value()
		if !ok {
			return nil, false
		}
		out[f.Name] = usable
	}
	return out, true
}
