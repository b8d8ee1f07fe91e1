// Package types provides converters between Go runtime types and the
// serialized platform types of package schema. Every converter satisfies
// mirror.Converter and can back a leaf through the builder package.
package types

import (
	"errors"
	"fmt"

	"github.com/dshills/settree/internal/config/schema"
)

// ErrConversion is matched by every ConversionError.
var ErrConversion = errors.New("conversion failed")

// ConversionError reports a serialized value with no runtime equivalent.
type ConversionError struct {
	// Value is the serialized value.
	Value any
	// Target names the runtime type.
	Target string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot convert %v to %s", e.Value, e.Target)
	}
	return fmt.Sprintf("cannot convert %v to %s: %v", e.Value, e.Target, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConversionError) Unwrap() error { return e.Err }

// Is matches ErrConversion.
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

func conversionError(value any, target string, cause error) *ConversionError {
	return &ConversionError{Value: value, Target: target, Err: cause}
}

// BoolType converts bool to itself.
type BoolType struct{ typ *schema.BooleanType }

// Bool returns the boolean converter.
func Bool() BoolType { return BoolType{typ: schema.Boolean()} }

// SerializedType returns schema.Boolean.
func (t BoolType) SerializedType() schema.SerializableType[bool] { return t.typ }

// ToSerialized returns b.
func (t BoolType) ToSerialized(b bool) bool { return b }

// ToRuntime returns b.
func (t BoolType) ToRuntime(b bool) (bool, error) { return b, nil }

// StringType converts string to itself.
type StringType struct{ typ *schema.StringType }

// String returns an unconstrained string converter.
func String() StringType { return StringType{typ: schema.String()} }

// WithMinLength returns a copy with a minimum length in characters.
func (t StringType) WithMinLength(n int) StringType { return StringType{typ: t.typ.WithMinLength(n)} }

// WithMaxLength returns a copy with a maximum length in characters.
func (t StringType) WithMaxLength(n int) StringType { return StringType{typ: t.typ.WithMaxLength(n)} }

// WithPattern returns a copy restricted to pattern.
func (t StringType) WithPattern(pattern string) StringType {
	return StringType{typ: t.typ.WithPattern(pattern)}
}

// SerializedType returns the string type.
func (t StringType) SerializedType() schema.SerializableType[string] { return t.typ }

// ToSerialized returns s.
func (t StringType) ToSerialized(s string) string { return s }

// ToRuntime returns s.
func (t StringType) ToRuntime(s string) (string, error) { return s, nil }

// RuneType converts a rune to a one-character string.
type RuneType struct{ typ *schema.StringType }

// Rune returns the rune converter.
func Rune() RuneType {
	return RuneType{typ: schema.String().WithMinLength(1).WithMaxLength(1)}
}

// SerializedType returns a string type of length 1.
func (t RuneType) SerializedType() schema.SerializableType[string] { return t.typ }

// ToSerialized returns r as a string.
func (t RuneType) ToSerialized(r rune) string { return string(r) }

// ToRuntime returns the single rune of s.
func (t RuneType) ToRuntime(s string) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, conversionError(s, "rune", fmt.Errorf("want 1 character, got %d", len(runes)))
	}
	return runes[0], nil
}
