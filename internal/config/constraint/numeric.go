package constraint

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Range bounds a number. Values outside the range are clamped to the
// violated bound.
type Range struct {
	Min decimal.NullDecimal
	Max decimal.NullDecimal
}

// NewRange creates a range checker. Either bound may be invalid (absent).
func NewRange(min, max decimal.NullDecimal) (Range, error) {
	if min.Valid && max.Valid && max.Decimal.LessThan(min.Decimal) {
		return Range{}, fmt.Errorf("%w: %s < %s", ErrInvalidBounds, max.Decimal, min.Decimal)
	}
	return Range{Min: min, Max: max}, nil
}

// Name returns "range".
func (r Range) Name() string { return "range" }

// Check reports whether v lies within the bounds.
func (r Range) Check(v decimal.Decimal) bool {
	if r.Min.Valid && v.LessThan(r.Min.Decimal) {
		return false
	}
	if r.Max.Valid && v.GreaterThan(r.Max.Decimal) {
		return false
	}
	return true
}

// Correct clamps v to the nearest bound.
func (r Range) Correct(v decimal.Decimal) (decimal.Decimal, bool) {
	if r.Min.Valid && v.LessThan(r.Min.Decimal) {
		return r.Min.Decimal, true
	}
	if r.Max.Valid && v.GreaterThan(r.Max.Decimal) {
		return r.Max.Decimal, true
	}
	return v, true
}

// Step restricts a number to multiples of a fixed increment. Off-grid
// values snap down to the previous multiple, or up to the first multiple
// at or above Min when snapping down would leave the range.
type Step struct {
	Min       decimal.Decimal
	Max       decimal.NullDecimal
	Increment decimal.Decimal
}

// NewStep creates a step checker. The minimum is mandatory since it is the
// floor for corrections; max may be absent.
func NewStep(min, max decimal.NullDecimal, increment decimal.Decimal) (Step, error) {
	if !min.Valid {
		return Step{}, ErrStepWithoutMinimum
	}
	if !increment.IsPositive() {
		return Step{}, fmt.Errorf("%w: %s", ErrInvalidStep, increment)
	}
	return Step{Min: min.Decimal, Max: max, Increment: increment}, nil
}

// Name returns "step".
func (s Step) Name() string { return "step" }

// Check reports whether v is an exact multiple of the increment.
func (s Step) Check(v decimal.Decimal) bool {
	return v.Mod(s.Increment).IsZero()
}

// Correct snaps v down to the grid, staying at or above Min. It fails when
// no grid point lies between Min and Max.
func (s Step) Correct(v decimal.Decimal) (decimal.Decimal, bool) {
	snapped := s.floor(v)
	if snapped.LessThan(s.Min) {
		snapped = s.floor(s.Min)
		if snapped.LessThan(s.Min) {
			snapped = snapped.Add(s.Increment)
		}
	}
	if s.Max.Valid && snapped.GreaterThan(s.Max.Decimal) {
		return v, false
	}
	return snapped, true
}

func (s Step) floor(v decimal.Decimal) decimal.Decimal {
	rem := v.Mod(s.Increment)
	if rem.IsNegative() {
		rem = rem.Add(s.Increment)
	}
	return v.Sub(rem)
}
