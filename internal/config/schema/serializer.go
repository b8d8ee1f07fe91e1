package schema

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errors reported through ValueDeserializationError.
var (
	// ErrDeserialization is matched by every ValueDeserializationError.
	ErrDeserialization = errors.New("value deserialization failed")

	// ErrRejected indicates a well-formed value that the type's constraints reject.
	ErrRejected = errors.New("value rejected by type constraints")

	// ErrUnexpectedShape indicates a raw value of the wrong representation.
	ErrUnexpectedShape = errors.New("unexpected representation")
)

// ListDescriptor is the element-type-independent view of a list type.
type ListDescriptor interface {
	Type
	ElementType() Type
	MinSize() int
	MaxSize() int
	Unique() bool
}

// MapDescriptor is the value-type-independent view of a map type.
type MapDescriptor interface {
	Type
	ValueType() Type
	MinSize() int
	MaxSize() int
}

// ValueSerializer converts platform values to and from a backend
// representation, one method pair per kind. Composite methods receive and
// return already-converted elements; element conversion is driven by the
// element type.
type ValueSerializer interface {
	SerializeBoolean(v bool, t *BooleanType) any
	DeserializeBoolean(elem any, t *BooleanType) (bool, error)

	SerializeNumber(v decimal.Decimal, t *NumberType) any
	DeserializeNumber(elem any, t *NumberType) (decimal.Decimal, error)

	SerializeString(v string, t *StringType) any
	DeserializeString(elem any, t *StringType) (string, error)

	SerializeEnum(v string, t *EnumType) any
	DeserializeEnum(elem any, t *EnumType) (string, error)

	SerializeList(elems []any, t ListDescriptor) any
	DeserializeList(elem any, t ListDescriptor) ([]any, error)

	SerializeMap(entries map[string]any, t MapDescriptor) any
	DeserializeMap(elem any, t MapDescriptor) (map[string]any, error)

	SerializeRecord(fields map[string]any, t *RecordType) any
	DeserializeRecord(elem any, t *RecordType) (map[string]any, error)
}

// TypeSerializer receives a description of a type, one method per kind.
type TypeSerializer interface {
	SerializeBoolean(t *BooleanType)
	SerializeNumber(t *NumberType)
	SerializeString(t *StringType)
	SerializeEnum(t *EnumType)
	SerializeList(t ListDescriptor)
	SerializeMap(t MapDescriptor)
	SerializeRecord(t *RecordType)
}

// ValueDeserializationError reports a raw value that could not be turned
// into a value of Type.
type ValueDeserializationError struct {
	// Value is the offending raw value.
	Value any
	// Type is the type that rejected it.
	Type Type
	// Err is the underlying cause.
	Err error
}

// NewDeserializationError creates a deserialization error.
func NewDeserializationError(value any, t Type, cause error) *ValueDeserializationError {
	return &ValueDeserializationError{Value: value, Type: t, Err: cause}
}

// Error implements the error interface.
func (e *ValueDeserializationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot deserialize %v (%T) as %s", e.Value, e.Value, e.Type)
	}
	return fmt.Sprintf("cannot deserialize %v (%T) as %s: %v", e.Value, e.Value, e.Type, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ValueDeserializationError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeserialization.
func (e *ValueDeserializationError) Is(target error) bool {
	return target == ErrDeserialization
}
