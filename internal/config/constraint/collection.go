package constraint

import "fmt"

// Size bounds the number of items in a collection. Max may be Unbounded.
type Size struct {
	Min int
	Max int
}

// NewSize creates a size bound.
func NewSize(min, max int) (Size, error) {
	if min < 0 {
		min = 0
	}
	if max != Unbounded && max < min {
		return Size{}, fmt.Errorf("%w: %d < %d", ErrInvalidBounds, max, min)
	}
	return Size{Min: min, Max: max}, nil
}

// Contains reports whether n lies within the bounds.
func (s Size) Contains(n int) bool {
	if n < s.Min {
		return false
	}
	return s.Max == Unbounded || n <= s.Max
}

// SliceSize checks the length of a slice.
type SliceSize[E any] struct{ Size }

// Name returns "size".
func (s SliceSize[E]) Name() string { return "size" }

// Check reports whether len(v) lies within the bounds.
func (s SliceSize[E]) Check(v []E) bool { return s.Contains(len(v)) }

// Correct always fails: lists are never truncated.
func (s SliceSize[E]) Correct(v []E) ([]E, bool) { return v, false }

// MapSize checks the number of entries in a map.
type MapSize[V any] struct{ Size }

// Name returns "size".
func (s MapSize[V]) Name() string { return "size" }

// Check reports whether len(v) lies within the bounds.
func (s MapSize[V]) Check(v map[string]V) bool { return s.Contains(len(v)) }

// Correct always fails.
func (s MapSize[V]) Correct(v map[string]V) (map[string]V, bool) { return v, false }

// Unique rejects slices containing two structurally equal elements.
type Unique[E any] struct{}

// Name returns "unique".
func (Unique[E]) Name() string { return "unique" }

// Check reports whether all elements are pairwise distinct.
func (Unique[E]) Check(v []E) bool {
	for i := 1; i < len(v); i++ {
		for j := 0; j < i; j++ {
			if Equal(v[i], v[j]) {
				return false
			}
		}
	}
	return true
}

// Correct always fails: duplicates are never dropped silently.
func (Unique[E]) Correct(v []E) ([]E, bool) { return v, false }
