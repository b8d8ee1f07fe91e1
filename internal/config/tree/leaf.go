package tree

import (
	"fmt"
	"slices"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/rs/zerolog/log"
)

// MaxReentrantWrites bounds how deeply listeners may write back into the
// leaf that is notifying them. A write beyond the bound is refused.
const MaxReentrantWrites = 8

// Listener receives the previous and the new value of a leaf.
type Listener[T any] func(oldValue, newValue T)

// Registration is the handle of an attached listener.
type Registration struct {
	remove func()
}

// Remove detaches the listener. It is safe to call more than once, and
// from inside the listener itself.
func (r *Registration) Remove() {
	if r == nil || r.remove == nil {
		return
	}
	r.remove()
	r.remove = nil
}

type listenerEntry[T any] struct {
	fn      Listener[T]
	removed bool
}

// LeafNode is the type-erased view of a Leaf.
type LeafNode interface {
	Node

	// Type returns the leaf's value type.
	Type() schema.Type

	// AnyValue returns the current value boxed.
	AnyValue() any

	// AnyDefault returns the default value boxed.
	AnyDefault() any

	// SetAnyValue is SetValue for a boxed value. Values of the wrong
	// platform type are rejected.
	SetAnyValue(v any) bool

	// AcceptsAny is Accepts for a boxed value.
	AcceptsAny(v any) bool

	// OnChange attaches a type-erased listener.
	OnChange(fn func(oldValue, newValue any)) *Registration

	// Reset restores the default value.
	Reset() bool
}

// Leaf is a node holding one value of type T. The stored value always
// satisfies the leaf's type; it is copied on the way in and out so callers
// never share its slices or maps.
type Leaf[T any] struct {
	nodeBase
	typ       schema.SerializableType[T]
	value     T
	def       T
	listeners []*listenerEntry[T]
	depth     int
}

// NewLeaf creates a leaf. The default is checked exactly like a later
// SetValue: a rejected default returns ErrInvalidDefault, a correctable one
// is stored corrected and becomes the default. listener may be nil.
// Construction does not notify the listener.
func NewLeaf[T any](name string, typ schema.SerializableType[T], comment string, def T, listener Listener[T], attrs ...NodeAttribute) (*Leaf[T], error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: leaf %q has no type", ErrInvalidDefault, name)
	}
	usable, ok := typ.Test(def).Value()
	if !ok {
		return nil, fmt.Errorf("%w: leaf %q: %v is not a valid %s", ErrInvalidDefault, name, def, typ)
	}

	l := &Leaf[T]{
		nodeBase: newNodeBase(name, comment, attrs),
		typ:      typ,
		value:    typ.Copy(usable),
		def:      typ.Copy(usable),
	}
	if listener != nil {
		l.AddChangeListener(listener)
	}
	return l, nil
}

// NodeKind returns KindLeaf.
func (l *Leaf[T]) NodeKind() NodeKind { return KindLeaf }

// Value returns a copy of the current value.
func (l *Leaf[T]) Value() T { return l.typ.Copy(l.value) }

// DefaultValue returns a copy of the value fixed at construction.
func (l *Leaf[T]) DefaultValue() T { return l.typ.Copy(l.def) }

// AnyValue returns a copy of the current value boxed.
func (l *Leaf[T]) AnyValue() any { return l.Value() }

// AnyDefault returns a copy of the default boxed.
func (l *Leaf[T]) AnyDefault() any { return l.DefaultValue() }

// ConfigType returns the typed value type.
func (l *Leaf[T]) ConfigType() schema.SerializableType[T] { return l.typ }

// Type returns the value type.
func (l *Leaf[T]) Type() schema.Type { return l.typ }

// Accepts reports whether v would be stored unchanged.
func (l *Leaf[T]) Accepts(v T) bool { return l.typ.Accepts(v) }

// AcceptsAny reports whether the boxed v would be stored unchanged.
func (l *Leaf[T]) AcceptsAny(v any) bool { return l.typ.AcceptsAny(v) }

// Test checks v against the leaf's type without storing it.
func (l *Leaf[T]) Test(v T) schema.TypeCheckResult[T] { return l.typ.Test(v) }

// SetValue stores a copy of v, corrected if necessary, and then calls every
// listener in attachment order with the old and new value, even when they
// are equal. A rejected value leaves the leaf unchanged and returns false.
//
// Listeners run inline. A listener may write to this or another leaf; such
// nested writes complete, listeners included, before the outer write
// resumes with its remaining listeners. Writes nested deeper than
// MaxReentrantWrites on one leaf are refused.
func (l *Leaf[T]) SetValue(v T) bool {
	usable, ok := l.typ.Test(v).Value()
	if !ok {
		log.Debug().Str("leaf", l.name).Stringer("type", l.typ).Msg("rejected value")
		return false
	}
	if l.depth >= MaxReentrantWrites {
		log.Warn().Str("leaf", l.name).Int("depth", l.depth).Msg("refusing re-entrant write")
		return false
	}

	old := l.value
	l.value = l.typ.Copy(usable)
	usable = l.typ.Copy(usable)

	l.depth++
	defer func() { l.depth-- }()

	for _, e := range slices.Clone(l.listeners) {
		if !e.removed {
			e.fn(old, usable)
		}
	}
	return true
}

// SetAnyValue stores a boxed value.
func (l *Leaf[T]) SetAnyValue(v any) bool {
	tv, ok := v.(T)
	if !ok {
		return false
	}
	return l.SetValue(tv)
}

// Reset restores the default value, notifying listeners.
func (l *Leaf[T]) Reset() bool {
	return l.SetValue(l.def)
}

// AddChangeListener appends fn after the existing listeners.
func (l *Leaf[T]) AddChangeListener(fn Listener[T]) *Registration {
	e := &listenerEntry[T]{fn: fn}
	l.listeners = append(l.listeners, e)
	return &Registration{remove: func() {
		e.removed = true
		l.listeners = slices.DeleteFunc(l.listeners, func(x *listenerEntry[T]) bool { return x == e })
	}}
}

// OnChange attaches a listener receiving boxed values.
func (l *Leaf[T]) OnChange(fn func(oldValue, newValue any)) *Registration {
	return l.AddChangeListener(func(oldValue, newValue T) { fn(oldValue, newValue) })
}

// ListenerCount returns the number of attached listeners.
func (l *Leaf[T]) ListenerCount() int { return len(l.listeners) }

// String returns "name = value".
func (l *Leaf[T]) String() string {
	return fmt.Sprintf("%s = %v", l.name, l.value)
}
