package types

import (
	"fmt"
	"slices"
	"time"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/lucasb-eyer/go-colorful"
)

// durationPattern matches strings accepted by time.ParseDuration.
const durationPattern = `[-+]?(0|(([0-9]+(\.[0-9]*)?|\.[0-9]+)(ns|us|µs|μs|ms|s|m|h))+)`

// DurationType converts time.Duration to its string form, such as "1m30s".
type DurationType struct{ typ *schema.StringType }

// Duration returns the duration converter.
func Duration() DurationType {
	return DurationType{typ: schema.String().WithPattern(durationPattern)}
}

// SerializedType returns a string type restricted to durations.
func (t DurationType) SerializedType() schema.SerializableType[string] { return t.typ }

// ToSerialized formats d.
func (t DurationType) ToSerialized(d time.Duration) string { return d.String() }

// ToRuntime parses s.
func (t DurationType) ToRuntime(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, conversionError(s, "time.Duration", err)
	}
	return d, nil
}

// ColorType converts colorful.Color to "#rrggbb".
type ColorType struct{ typ *schema.StringType }

// Color returns the color converter.
func Color() ColorType {
	return ColorType{typ: schema.String().WithPattern(`#[0-9a-fA-F]{6}`)}
}

// SerializedType returns a string type restricted to hex colors.
func (t ColorType) SerializedType() schema.SerializableType[string] { return t.typ }

// ToSerialized formats c as lowercase hex.
func (t ColorType) ToSerialized(c colorful.Color) string { return c.Clamped().Hex() }

// ToRuntime parses s.
func (t ColorType) ToRuntime(s string) (colorful.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, conversionError(s, "colorful.Color", err)
	}
	return c, nil
}

// Named is the constraint for enum runtime types: comparable values whose
// String method yields the serialized name.
type Named interface {
	comparable
	fmt.Stringer
}

// EnumType converts values of E to their names.
type EnumType[E Named] struct {
	values []E
	typ    *schema.EnumType
}

// Enum returns a converter over the given values. The serialized type
// allows exactly their names.
func Enum[E Named](values ...E) EnumType[E] {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.String()
	}
	return EnumType[E]{values: slices.Clone(values), typ: schema.Enum(names...)}
}

// WithValues returns a copy restricted to subset.
func (t EnumType[E]) WithValues(subset ...E) EnumType[E] {
	return Enum(subset...)
}

// SerializedType returns the enum type.
func (t EnumType[E]) SerializedType() schema.SerializableType[string] { return t.typ }

// ToSerialized returns e's name.
func (t EnumType[E]) ToSerialized(e E) string { return e.String() }

// ToRuntime finds the value named s.
func (t EnumType[E]) ToRuntime(s string) (E, error) {
	for _, v := range t.values {
		if v.String() == s {
			return v, nil
		}
	}
	var zero E
	return zero, conversionError(s, fmt.Sprintf("%T", zero), fmt.Errorf("unknown name %q", s))
}

// StringEnumType converts strings from a fixed set to themselves.
type StringEnumType struct{ typ *schema.EnumType }

// StringEnum returns a converter allowing exactly values.
func StringEnum(values ...string) StringEnumType {
	return StringEnumType{typ: schema.Enum(values...)}
}

// SerializedType returns the enum type.
func (t StringEnumType) SerializedType() schema.SerializableType[string] { return t.typ }

// ToSerialized returns s.
func (t StringEnumType) ToSerialized(s string) string { return s }

// ToRuntime returns s.
func (t StringEnumType) ToRuntime(s string) (string, error) { return s, nil }
