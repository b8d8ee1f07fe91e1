// Package schema defines the serializable type system for settree.
//
// A SerializableType describes a domain of values in their
// serialization-neutral platform representation (bool, decimal.Decimal,
// string, slices, string-keyed maps) together with the constraints those
// values must satisfy. Types are immutable and compare structurally: two
// independently constructed types with the same kind and parameters are
// Equal and hash identically.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dshills/settree/internal/config/constraint"
)

// ErrWrongValueType indicates a type-erased value whose dynamic type does
// not match the platform type of a SerializableType.
var ErrWrongValueType = errors.New("value has wrong platform type")

// Kind identifies the shape of a SerializableType.
type Kind uint8

const (
	// KindBoolean is a true/false value.
	KindBoolean Kind = iota
	// KindNumber is an exact decimal number.
	KindNumber
	// KindString is free-form text.
	KindString
	// KindEnum is a string from a finite set.
	KindEnum
	// KindList is an ordered sequence of one element type.
	KindList
	// KindMap is a string-keyed map of one value type.
	KindMap
	// KindRecord is a fixed set of named, individually typed fields.
	KindRecord
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Type is the type-erased view of a SerializableType.
type Type interface {
	// Kind returns the shape of the type.
	Kind() Kind

	// Equal reports structural equality: same kind and same parameters.
	Equal(other Type) bool

	// Hash returns a hash consistent with Equal.
	Hash() uint64

	// String returns a description of the type and its parameters.
	String() string

	// AcceptsAny is Accepts for a value of unknown static type.
	AcceptsAny(v any) bool

	// TestAny is Test for a value of unknown static type.
	TestAny(v any) TypeCheckResult[any]

	// Serialize describes the type itself to a TypeSerializer.
	Serialize(s TypeSerializer)

	// SerializeAny serializes a value of unknown static type.
	SerializeAny(v any, s ValueSerializer) (any, error)

	// DeserializeAny deserializes into the platform type, boxed.
	DeserializeAny(elem any, s ValueSerializer) (any, error)

	// CopyAny is Copy for a value of unknown static type. Values of the
	// wrong platform type are returned as they are.
	CopyAny(v any) any
}

// SerializableType describes a domain of platform values of type T.
type SerializableType[T any] interface {
	Type

	// Accepts reports whether v is usable without correction.
	Accepts(v T) bool

	// Test checks v and returns whether it passed, was corrected, or failed.
	Test(v T) TypeCheckResult[T]

	// SerializeValue converts v to the serializer's representation.
	SerializeValue(v T, s ValueSerializer) any

	// DeserializeValue converts elem back to a platform value. The result
	// is checked against the type; a rejected value is reported as a
	// *ValueDeserializationError and corrected values are returned
	// corrected.
	DeserializeValue(elem any, s ValueSerializer) (T, error)

	// Copy returns a value equal to v that shares no slices or maps with it.
	Copy(v T) T
}

// TypeCheckResult is the outcome of testing a value against a type.
type TypeCheckResult[T any] struct {
	outcome constraint.Outcome
	value   T
}

// Passed returns a result for a value usable as-is.
func Passed[T any](v T) TypeCheckResult[T] {
	return TypeCheckResult[T]{outcome: constraint.Passed, value: v}
}

// Corrected returns a result carrying a replacement value.
func Corrected[T any](v T) TypeCheckResult[T] {
	return TypeCheckResult[T]{outcome: constraint.Corrected, value: v}
}

// Failed returns a result without a usable value.
func Failed[T any]() TypeCheckResult[T] {
	return TypeCheckResult[T]{outcome: constraint.Failed}
}

// Outcome returns the result category.
func (r TypeCheckResult[T]) Outcome() constraint.Outcome {
	return r.outcome
}

// HasPassed reports whether the tested value is usable unchanged.
func (r TypeCheckResult[T]) HasPassed() bool {
	return r.outcome == constraint.Passed
}

// CorrectedValue returns the replacement value, if any.
func (r TypeCheckResult[T]) CorrectedValue() (T, bool) {
	if r.outcome != constraint.Corrected {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Value returns the usable value for passed or corrected results.
func (r TypeCheckResult[T]) Value() (T, bool) {
	if r.outcome == constraint.Failed {
		var zero T
		return zero, false
	}
	return r.value, true
}

// String describes the result.
func (r TypeCheckResult[T]) String() string {
	if r.outcome == constraint.Failed {
		return "failed"
	}
	return fmt.Sprintf("%s(%v)", r.outcome, r.value)
}

func resultOf[T any](v T, outcome constraint.Outcome) TypeCheckResult[T] {
	return TypeCheckResult[T]{outcome: outcome, value: v}
}

func erase[T any](r TypeCheckResult[T]) TypeCheckResult[any] {
	return TypeCheckResult[any]{outcome: r.outcome, value: r.value}
}

// ValuesEqual reports structural equality of platform values.
func ValuesEqual(a, b any) bool {
	return constraint.Equal(a, b)
}

func acceptsAny[T any](t SerializableType[T], v any) bool {
	tv, ok := v.(T)
	return ok && t.Accepts(tv)
}

func testAny[T any](t SerializableType[T], v any) TypeCheckResult[any] {
	tv, ok := v.(T)
	if !ok {
		return Failed[any]()
	}
	return erase(t.Test(tv))
}

func serializeAny[T any](t SerializableType[T], v any, s ValueSerializer) (any, error) {
	tv, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrWrongValueType, v, t)
	}
	return t.SerializeValue(tv, s), nil
}

func copyAny[T any](t SerializableType[T], v any) any {
	tv, ok := v.(T)
	if !ok {
		return v
	}
	return t.Copy(tv)
}

func deserializeAny[T any](t SerializableType[T], elem any, s ValueSerializer) (any, error) {
	v, err := t.DeserializeValue(elem, s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// checked validates a freshly deserialized value against its type.
func checked[T any](t SerializableType[T], raw any, v T, err error) (T, error) {
	var zero T
	if err != nil {
		var de *ValueDeserializationError
		if errors.As(err, &de) {
			return zero, err
		}
		return zero, NewDeserializationError(raw, t, err)
	}
	usable, ok := t.Test(v).Value()
	if !ok {
		return zero, NewDeserializationError(raw, t, ErrRejected)
	}
	return usable, nil
}

func hashParts(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.WriteString("\x00")
	}
	return d.Sum64()
}

func describe(name string, params ...string) string {
	var kept []string
	for _, p := range params {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return name
	}
	return name + "[" + strings.Join(kept, ", ") + "]"
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
