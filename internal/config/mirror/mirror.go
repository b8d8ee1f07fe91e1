// Package mirror provides cached, runtime-typed views over tree properties
// whose stored representation is a serialized platform type.
package mirror

import (
	"errors"
	"fmt"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/tree"
)

// ErrUnbound is the panic value for using a mirror before Bind.
var ErrUnbound = errors.New("mirror has no delegate property")

// Converter maps between a runtime type R and a serialized type S.
type Converter[R, S any] interface {
	// SerializedType returns the type of the serialized representation.
	SerializedType() schema.SerializableType[S]

	// ToSerialized converts a runtime value.
	ToSerialized(r R) S

	// ToRuntime converts a serialized value back. It fails for serialized
	// values with no runtime equivalent.
	ToRuntime(s S) (R, error)
}

// TypeMismatchError reports a delegate whose type differs from the
// converter's serialized type.
type TypeMismatchError struct {
	Expected schema.Type
	Actual   schema.Type
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("unsupported delegate type %s, should be %s", e.Actual, e.Expected)
}

// Mode is the cache invalidation strategy of a bound mirror.
type Mode uint8

const (
	// Unbound means no delegate has been bound yet.
	Unbound Mode = iota

	// Passive mirrors are invalidated by a change listener on their leaf.
	Passive

	// Active mirrors compare the delegate's value on every read.
	Active
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Unbound:
		return "unbound"
	case Passive:
		return "passive"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// listenable is satisfied by leaves.
type listenable[S any] interface {
	AddChangeListener(fn tree.Listener[S]) *tree.Registration
}

// Mirror is a Property of runtime type R backed by a Property of
// serialized type S.
type Mirror[R, S any] struct {
	converter Converter[R, S]
	delegate  tree.Property[S]
	mode      Mode
	reg       *tree.Registration

	cached R
	valid  bool
	last   S
}

// New creates an unbound mirror.
func New[R, S any](converter Converter[R, S]) *Mirror[R, S] {
	return &Mirror[R, S]{converter: converter}
}

// Bind makes delegate the mirrored property, replacing any previous one.
// The delegate's type must equal the converter's serialized type.
// Delegates with change listeners are mirrored passively; any other
// property is mirrored actively.
func (m *Mirror[R, S]) Bind(delegate tree.Property[S]) error {
	want := m.converter.SerializedType()
	if !want.Equal(delegate.Type()) {
		return &TypeMismatchError{Expected: want, Actual: delegate.Type()}
	}

	m.reg.Remove()
	m.reg = nil
	m.delegate = delegate
	m.valid = false

	var zero R
	m.cached = zero

	if l, ok := delegate.(listenable[S]); ok {
		m.mode = Passive
		m.reg = l.AddChangeListener(func(S, S) { m.valid = false })
		return nil
	}

	m.mode = Active
	m.last = delegate.Value()
	return nil
}

// Delegate returns the bound property, or nil.
func (m *Mirror[R, S]) Delegate() tree.Property[S] { return m.delegate }

// Mode returns the invalidation strategy.
func (m *Mirror[R, S]) Mode() Mode { return m.mode }

// Converter returns the mirror's converter.
func (m *Mirror[R, S]) Converter() Converter[R, S] { return m.converter }

// Get returns the runtime value, converting only when the delegate has
// changed since the last conversion.
func (m *Mirror[R, S]) Get() (R, error) {
	m.mustBeBound()

	switch m.mode {
	case Passive:
		if m.valid {
			return m.cached, nil
		}
		return m.refresh(m.delegate.Value())
	default:
		current := m.delegate.Value()
		if m.valid && schema.ValuesEqual(current, m.last) {
			return m.cached, nil
		}
		return m.refresh(current)
	}
}

// Value returns the runtime value. It panics if the stored value cannot be
// converted; use Get to handle that case.
func (m *Mirror[R, S]) Value() R {
	v, err := m.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// SetValue converts r and stores it through the delegate's SetValue.
func (m *Mirror[R, S]) SetValue(r R) bool {
	m.mustBeBound()
	return m.delegate.SetValue(m.converter.ToSerialized(r))
}

// Accepts converts r and asks the delegate without storing anything.
func (m *Mirror[R, S]) Accepts(r R) bool {
	m.mustBeBound()
	return m.delegate.Accepts(m.converter.ToSerialized(r))
}

// Type returns the converter's serialized type.
func (m *Mirror[R, S]) Type() schema.Type { return m.converter.SerializedType() }

func (m *Mirror[R, S]) refresh(s S) (R, error) {
	r, err := m.converter.ToRuntime(s)
	if err != nil {
		var zero R
		return zero, err
	}
	m.cached = r
	m.last = s
	m.valid = true
	return r, nil
}

func (m *Mirror[R, S]) mustBeBound() {
	if m.delegate == nil {
		panic(ErrUnbound)
	}
}
