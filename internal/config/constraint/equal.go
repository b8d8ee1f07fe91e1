package constraint

import (
	"reflect"

	"github.com/shopspring/decimal"
)

// Equal reports whether two values are structurally equal. Decimals are
// compared numerically, so 1.0 equals 1; slices and maps are compared
// element by element with the same rules.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if da, ok := a.(decimal.Decimal); ok {
		db, ok := b.(decimal.Decimal)
		return ok && da.Equal(db)
	}
	return equalValue(reflect.ValueOf(a), reflect.ValueOf(b))
}

func equalValue(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}

	// Unwrap interfaces so []any holding decimals compares numerically.
	if a.Kind() == reflect.Interface {
		if a.IsNil() || b.Kind() != reflect.Interface || b.IsNil() {
			return a.Kind() == b.Kind() && a.IsNil() && b.IsNil()
		}
		return Equal(a.Elem().Interface(), b.Elem().Interface())
	}

	if a.Type() != b.Type() {
		return false
	}
	if a.Type() == reflect.TypeOf(decimal.Decimal{}) {
		return a.Interface().(decimal.Decimal).Equal(b.Interface().(decimal.Decimal))
	}

	switch a.Kind() {
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !equalValue(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			other := b.MapIndex(iter.Key())
			if !other.IsValid() || !equalValue(iter.Value(), other) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
}
