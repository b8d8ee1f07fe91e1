package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
)

var (
	errNotInteger = errors.New("not an integer")
	errOverflow   = errors.New("out of range")
)

// DecimalType converts decimal.Decimal to itself.
type DecimalType struct{ typ *schema.NumberType }

// Decimal returns an unbounded decimal converter.
func Decimal() DecimalType { return DecimalType{typ: schema.Number()} }

// WithMinimum returns a copy with a minimum.
func (t DecimalType) WithMinimum(min decimal.Decimal) DecimalType {
	return DecimalType{typ: t.typ.WithMinimum(min)}
}

// WithMaximum returns a copy with a maximum.
func (t DecimalType) WithMaximum(max decimal.Decimal) DecimalType {
	return DecimalType{typ: t.typ.WithMaximum(max)}
}

// WithValidRange returns a copy with bounds and increment.
func (t DecimalType) WithValidRange(min, max, step decimal.Decimal) DecimalType {
	return DecimalType{typ: t.typ.WithValidRange(min, max, step)}
}

// SerializedType returns the number type.
func (t DecimalType) SerializedType() schema.SerializableType[decimal.Decimal] { return t.typ }

// ToSerialized returns d.
func (t DecimalType) ToSerialized(d decimal.Decimal) decimal.Decimal { return d }

// ToRuntime returns d.
func (t DecimalType) ToRuntime(d decimal.Decimal) (decimal.Decimal, error) { return d, nil }

// IntegerType converts a Go integer type to a number with increment 1,
// bounded by the integer type's range unless narrowed further.
type IntegerType[I constraints.Integer] struct {
	typ *schema.NumberType
}

// Integer returns the converter for I.
func Integer[I constraints.Integer]() IntegerType[I] {
	lo, hi := integerBounds[I]()
	return IntegerType[I]{typ: schema.Number().WithValidRange(fromInteger(lo), fromInteger(hi), decimal.NewFromInt(1))}
}

// Natural returns the converter for I restricted to non-negative values.
func Natural[I constraints.Integer]() IntegerType[I] {
	return Integer[I]().WithMinimum(0)
}

// WithMinimum returns a copy with a minimum.
func (t IntegerType[I]) WithMinimum(min I) IntegerType[I] {
	return IntegerType[I]{typ: t.typ.WithMinimum(fromInteger(min))}
}

// WithMaximum returns a copy with a maximum.
func (t IntegerType[I]) WithMaximum(max I) IntegerType[I] {
	return IntegerType[I]{typ: t.typ.WithMaximum(fromInteger(max))}
}

// WithValidRange returns a copy with bounds and increment.
func (t IntegerType[I]) WithValidRange(min, max, step I) IntegerType[I] {
	return IntegerType[I]{typ: t.typ.WithValidRange(fromInteger(min), fromInteger(max), fromInteger(step))}
}

// SerializedType returns the number type.
func (t IntegerType[I]) SerializedType() schema.SerializableType[decimal.Decimal] { return t.typ }

// ToSerialized converts i exactly.
func (t IntegerType[I]) ToSerialized(i I) decimal.Decimal { return fromInteger(i) }

// ToRuntime converts d, failing for fractions and values that overflow I.
func (t IntegerType[I]) ToRuntime(d decimal.Decimal) (I, error) {
	target := fmt.Sprintf("%T", *new(I))
	if !d.IsInteger() {
		return 0, conversionError(d, target, errNotInteger)
	}

	lo, hi := integerBounds[I]()
	if d.LessThan(fromInteger(lo)) || d.GreaterThan(fromInteger(hi)) {
		return 0, conversionError(d, target, errOverflow)
	}

	b := d.BigInt()
	if isSigned[I]() {
		return I(b.Int64()), nil
	}
	return I(b.Uint64()), nil
}

// FloatType converts a Go float type to an unbounded number.
type FloatType[F constraints.Float] struct {
	typ *schema.NumberType
}

// Float returns the converter for F.
func Float[F constraints.Float]() FloatType[F] {
	return FloatType[F]{typ: schema.Number()}
}

// WithMinimum returns a copy with a minimum.
func (t FloatType[F]) WithMinimum(min F) FloatType[F] {
	return FloatType[F]{typ: t.typ.WithMinimum(decimal.NewFromFloat(float64(min)))}
}

// WithMaximum returns a copy with a maximum.
func (t FloatType[F]) WithMaximum(max F) FloatType[F] {
	return FloatType[F]{typ: t.typ.WithMaximum(decimal.NewFromFloat(float64(max)))}
}

// WithValidRange returns a copy with bounds and increment.
func (t FloatType[F]) WithValidRange(min, max, step F) FloatType[F] {
	return FloatType[F]{typ: t.typ.WithValidRange(
		decimal.NewFromFloat(float64(min)),
		decimal.NewFromFloat(float64(max)),
		decimal.NewFromFloat(float64(step)))}
}

// SerializedType returns the number type.
func (t FloatType[F]) SerializedType() schema.SerializableType[decimal.Decimal] { return t.typ }

// ToSerialized converts f using its shortest decimal representation.
func (t FloatType[F]) ToSerialized(f F) decimal.Decimal { return decimal.NewFromFloat(float64(f)) }

// ToRuntime converts d to the nearest F.
func (t FloatType[F]) ToRuntime(d decimal.Decimal) (F, error) {
	return F(d.InexactFloat64()), nil
}

func isSigned[I constraints.Integer]() bool {
	var zero I
	return ^zero < 0
}

func integerBounds[I constraints.Integer]() (lo, hi I) {
	hi = 1
	for next := hi<<1 | 1; next > hi; next = hi<<1 | 1 {
		hi = next
	}
	if isSigned[I]() {
		lo = -hi - 1
	}
	return lo, hi
}

func fromInteger[I constraints.Integer](i I) decimal.Decimal {
	if isSigned[I]() {
		return decimal.NewFromInt(int64(i))
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(i)), 0)
}
