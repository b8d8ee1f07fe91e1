package schema

// BooleanType is the type of true/false values. It has no parameters, so
// every BooleanType is equal to every other.
type BooleanType struct{}

// Boolean returns the boolean type.
func Boolean() *BooleanType { return &BooleanType{} }

// Kind returns KindBoolean.
func (t *BooleanType) Kind() Kind { return KindBoolean }

// Equal reports whether other is a BooleanType.
func (t *BooleanType) Equal(other Type) bool {
	_, ok := other.(*BooleanType)
	return ok
}

// Hash returns the type hash.
func (t *BooleanType) Hash() uint64 { return hashParts(KindBoolean.String()) }

// String returns "Boolean".
func (t *BooleanType) String() string { return "Boolean" }

// Accepts always returns true.
func (t *BooleanType) Accepts(bool) bool { return true }

// Test always passes.
func (t *BooleanType) Test(v bool) TypeCheckResult[bool] { return Passed(v) }

// AcceptsAny reports whether v is a bool.
func (t *BooleanType) AcceptsAny(v any) bool { return acceptsAny[bool](t, v) }

// TestAny tests a boxed value.
func (t *BooleanType) TestAny(v any) TypeCheckResult[any] { return testAny[bool](t, v) }

// Serialize describes the type.
func (t *BooleanType) Serialize(s TypeSerializer) { s.SerializeBoolean(t) }

// SerializeValue converts v with s.
func (t *BooleanType) SerializeValue(v bool, s ValueSerializer) any {
	return s.SerializeBoolean(v, t)
}

// DeserializeValue converts elem with s.
func (t *BooleanType) DeserializeValue(elem any, s ValueSerializer) (bool, error) {
	v, err := s.DeserializeBoolean(elem, t)
	return checked[bool](t, elem, v, err)
}

// SerializeAny serializes a boxed value.
func (t *BooleanType) SerializeAny(v any, s ValueSerializer) (any, error) {
	return serializeAny[bool](t, v, s)
}

// DeserializeAny deserializes into a boxed bool.
func (t *BooleanType) DeserializeAny(elem any, s ValueSerializer) (any, error) {
	return deserializeAny[bool](t, elem, s)
}

// Copy returns v.
func (t *BooleanType) Copy(v bool) bool { return v }

// CopyAny returns v.
func (t *BooleanType) CopyAny(v any) any { return v }
