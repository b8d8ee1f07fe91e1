package tree

import (
	"fmt"

	"github.com/dshills/settree/internal/config/schema"
)

// Property is the minimal read/write contract over a typed value. Leaves,
// attributes and mirrors satisfy it.
type Property[T any] interface {
	// Value returns the current value.
	Value() T

	// SetValue stores v if its type accepts it, possibly after correction.
	// It reports whether a value was stored.
	SetValue(v T) bool

	// Accepts reports whether v would be stored unchanged.
	Accepts(v T) bool

	// Type returns the value's type.
	Type() schema.Type
}

// NodeAttribute is the type-erased view of an Attribute.
type NodeAttribute interface {
	ID() ID
	Type() schema.Type
	AnyValue() any
}

// Attribute is typed metadata attached to a node. It is a Property without
// listeners.
type Attribute[T any] struct {
	id    ID
	typ   schema.SerializableType[T]
	value T
}

// NewAttribute creates an attribute holding value. A value the type
// rejects outright is an error; a correctable value is stored corrected.
func NewAttribute[T any](id ID, typ schema.SerializableType[T], value T) (*Attribute[T], error) {
	usable, ok := typ.Test(value).Value()
	if !ok {
		return nil, fmt.Errorf("%w: attribute %s: %v is not a valid %s", ErrInvalidDefault, id, value, typ)
	}
	return &Attribute[T]{id: id, typ: typ, value: typ.Copy(usable)}, nil
}

// ID returns the attribute id.
func (a *Attribute[T]) ID() ID { return a.id }

// Value returns a copy of the current value.
func (a *Attribute[T]) Value() T { return a.typ.Copy(a.value) }

// AnyValue returns a copy of the current value boxed.
func (a *Attribute[T]) AnyValue() any { return a.Value() }

// SetValue stores v if accepted or correctable.
func (a *Attribute[T]) SetValue(v T) bool {
	usable, ok := a.typ.Test(v).Value()
	if !ok {
		return false
	}
	a.value = a.typ.Copy(usable)
	return true
}

// Accepts reports whether v passes the attribute's type unchanged.
func (a *Attribute[T]) Accepts(v T) bool { return a.typ.Accepts(v) }

// Type returns the attribute's type.
func (a *Attribute[T]) Type() schema.Type { return a.typ }

// ConfigType returns the typed attribute type.
func (a *Attribute[T]) ConfigType() schema.SerializableType[T] { return a.typ }
