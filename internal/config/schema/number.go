package schema

import (
	"fmt"

	"github.com/dshills/settree/internal/config/constraint"
	"github.com/shopspring/decimal"
)

// NumberType is the type of exact decimal numbers with an optional
// minimum, maximum and increment. Out-of-range values are corrected by
// clamping to the violated bound; off-grid values snap down to the
// previous multiple of the increment above the minimum.
type NumberType struct {
	min   decimal.NullDecimal
	max   decimal.NullDecimal
	step  decimal.NullDecimal
	chain constraint.Chain[decimal.Decimal]
}

// Number returns an unbounded number type.
func Number() *NumberType { return &NumberType{} }

// NewNumberType creates a number type. An increment requires a minimum;
// declaring one without returns constraint.ErrStepWithoutMinimum.
func NewNumberType(min, max, step decimal.NullDecimal) (*NumberType, error) {
	t := &NumberType{min: min, max: max, step: step}

	if min.Valid || max.Valid {
		r, err := constraint.NewRange(min, max)
		if err != nil {
			return nil, err
		}
		t.chain = append(t.chain, r)
	}

	if step.Valid {
		s, err := constraint.NewStep(min, max, step.Decimal)
		if err != nil {
			return nil, err
		}
		t.chain = append(t.chain, s)
	}

	return t, nil
}

// WithMinimum returns a copy with the given minimum.
// It panics if the result would be invalid.
func (t *NumberType) WithMinimum(min decimal.Decimal) *NumberType {
	return must(NewNumberType(decimal.NewNullDecimal(min), t.max, t.step))
}

// WithMaximum returns a copy with the given maximum.
// It panics if the result would be invalid.
func (t *NumberType) WithMaximum(max decimal.Decimal) *NumberType {
	return must(NewNumberType(t.min, decimal.NewNullDecimal(max), t.step))
}

// WithIncrement returns a copy with the given increment. It panics with
// constraint.ErrStepWithoutMinimum if no minimum has been set.
func (t *NumberType) WithIncrement(step decimal.Decimal) *NumberType {
	return must(NewNumberType(t.min, t.max, decimal.NewNullDecimal(step)))
}

// WithValidRange returns a copy with all three parameters replaced.
func (t *NumberType) WithValidRange(min, max, step decimal.Decimal) *NumberType {
	return must(NewNumberType(decimal.NewNullDecimal(min), decimal.NewNullDecimal(max), decimal.NewNullDecimal(step)))
}

// Minimum returns the minimum, if set.
func (t *NumberType) Minimum() (decimal.Decimal, bool) { return t.min.Decimal, t.min.Valid }

// Maximum returns the maximum, if set.
func (t *NumberType) Maximum() (decimal.Decimal, bool) { return t.max.Decimal, t.max.Valid }

// Increment returns the increment, if set.
func (t *NumberType) Increment() (decimal.Decimal, bool) { return t.step.Decimal, t.step.Valid }

// Kind returns KindNumber.
func (t *NumberType) Kind() Kind { return KindNumber }

// Equal compares bounds and increment numerically.
func (t *NumberType) Equal(other Type) bool {
	o, ok := other.(*NumberType)
	if !ok {
		return false
	}
	return nullEqual(t.min, o.min) && nullEqual(t.max, o.max) && nullEqual(t.step, o.step)
}

// Hash returns the type hash.
func (t *NumberType) Hash() uint64 {
	return hashParts(KindNumber.String(), nullString(t.min), nullString(t.max), nullString(t.step))
}

// String describes the type.
func (t *NumberType) String() string {
	return describe("Number",
		nullParam("min", t.min),
		nullParam("max", t.max),
		nullParam("step", t.step))
}

// Accepts reports whether v satisfies every constraint.
func (t *NumberType) Accepts(v decimal.Decimal) bool { return t.chain.Accepts(v) }

// Test checks v, clamping and snapping where possible.
func (t *NumberType) Test(v decimal.Decimal) TypeCheckResult[decimal.Decimal] {
	corrected, outcome := t.chain.Test(v)
	return resultOf(corrected, outcome)
}

// AcceptsAny reports whether v is an acceptable decimal.Decimal.
func (t *NumberType) AcceptsAny(v any) bool { return acceptsAny[decimal.Decimal](t, v) }

// TestAny tests a boxed value.
func (t *NumberType) TestAny(v any) TypeCheckResult[any] { return testAny[decimal.Decimal](t, v) }

// Serialize describes the type.
func (t *NumberType) Serialize(s TypeSerializer) { s.SerializeNumber(t) }

// SerializeValue converts v with s.
func (t *NumberType) SerializeValue(v decimal.Decimal, s ValueSerializer) any {
	return s.SerializeNumber(v, t)
}

// DeserializeValue converts elem with s.
func (t *NumberType) DeserializeValue(elem any, s ValueSerializer) (decimal.Decimal, error) {
	v, err := s.DeserializeNumber(elem, t)
	return checked[decimal.Decimal](t, elem, v, err)
}

// SerializeAny serializes a boxed value.
func (t *NumberType) SerializeAny(v any, s ValueSerializer) (any, error) {
	return serializeAny[decimal.Decimal](t, v, s)
}

// DeserializeAny deserializes into a boxed decimal.Decimal.
func (t *NumberType) DeserializeAny(elem any, s ValueSerializer) (any, error) {
	return deserializeAny[decimal.Decimal](t, elem, s)
}

// Copy returns v.
func (t *NumberType) Copy(v decimal.Decimal) decimal.Decimal { return v }

// CopyAny returns v.
func (t *NumberType) CopyAny(v any) any { return v }

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}

func nullParam(name string, d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return fmt.Sprintf("%s=%s", name, d.Decimal)
}
