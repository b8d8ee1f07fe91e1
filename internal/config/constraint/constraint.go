// Package constraint provides composable value checkers for settree types.
//
// A checker is a predicate with an optional corrector. Types compose
// checkers into a Chain: a value is accepted only if every checker accepts
// it, and correction runs checker by checker in declaration order.
package constraint

import "errors"

// Errors returned when constructing checkers.
var (
	// ErrStepWithoutMinimum indicates an increment was declared without a minimum to count from.
	ErrStepWithoutMinimum = errors.New("increment requires a minimum")

	// ErrInvalidStep indicates a zero or negative increment.
	ErrInvalidStep = errors.New("increment must be positive")

	// ErrInvalidBounds indicates a maximum below its minimum.
	ErrInvalidBounds = errors.New("maximum is less than minimum")
)

// Unbounded marks an absent upper bound on lengths and sizes.
const Unbounded = -1

// Outcome is the result category of testing a value against a Chain.
type Outcome uint8

const (
	// Passed means the value is usable as-is.
	Passed Outcome = iota

	// Corrected means the value is usable only after replacement.
	Corrected

	// Failed means no usable value exists.
	Failed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Corrected:
		return "corrected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Checker is a single constraint over values of type T.
type Checker[T any] interface {
	// Name identifies the constraint in diagnostics.
	Name() string

	// Check reports whether v satisfies the constraint.
	Check(v T) bool

	// Correct returns a replacement for a value that failed Check.
	// The second result is false when the constraint has no correction.
	Correct(v T) (T, bool)
}

// Chain is an ordered list of checkers combined with logical AND.
type Chain[T any] []Checker[T]

// Accepts reports whether every checker accepts v.
func (c Chain[T]) Accepts(v T) bool {
	for _, checker := range c {
		if !checker.Check(v) {
			return false
		}
	}
	return true
}

// Test runs v through every checker in order. A checker that rejects the
// working value may replace it; later checkers see the replacement. If any
// checker cannot correct, the zero value and Failed are returned.
func (c Chain[T]) Test(v T) (T, Outcome) {
	current := v
	outcome := Passed

	for _, checker := range c {
		if checker.Check(current) {
			continue
		}
		corrected, ok := checker.Correct(current)
		if !ok {
			var zero T
			return zero, Failed
		}
		current = corrected
		outcome = Corrected
	}

	return current, outcome
}

// Failing returns the names of checkers that reject v.
func (c Chain[T]) Failing(v T) []string {
	var names []string
	for _, checker := range c {
		if !checker.Check(v) {
			names = append(names, checker.Name())
		}
	}
	return names
}

// Func adapts a predicate into a Checker without correction.
type Func[T any] struct {
	Label     string
	Predicate func(T) bool
}

// Name returns the label.
func (f Func[T]) Name() string { return f.Label }

// Check calls the predicate.
func (f Func[T]) Check(v T) bool { return f.Predicate(v) }

// Correct always fails.
func (f Func[T]) Correct(v T) (T, bool) { return v, false }
