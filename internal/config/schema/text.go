package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dshills/settree/internal/config/constraint"
)

// StringType is the type of text values with optional length bounds
// (in user-perceived characters) and a pattern the whole value must match.
// Strings are never corrected.
type StringType struct {
	minLen  int
	maxLen  int
	pattern string
	chain   constraint.Chain[string]
}

// String returns an unconstrained string type.
func String() *StringType {
	return &StringType{maxLen: constraint.Unbounded}
}

// NewStringType creates a string type. maxLen may be constraint.Unbounded
// and pattern may be empty.
func NewStringType(minLen, maxLen int, pattern string) (*StringType, error) {
	t := &StringType{minLen: max(minLen, 0), maxLen: maxLen, pattern: pattern}

	if t.minLen > 0 || maxLen != constraint.Unbounded {
		l, err := constraint.NewLength(minLen, maxLen)
		if err != nil {
			return nil, err
		}
		t.chain = append(t.chain, l)
	}

	if pattern != "" {
		p, err := constraint.NewPattern(pattern)
		if err != nil {
			return nil, err
		}
		t.chain = append(t.chain, p)
	}

	return t, nil
}

// WithMinLength returns a copy with the given minimum length.
func (t *StringType) WithMinLength(n int) *StringType {
	return must(NewStringType(n, t.maxLen, t.pattern))
}

// WithMaxLength returns a copy with the given maximum length.
func (t *StringType) WithMaxLength(n int) *StringType {
	return must(NewStringType(t.minLen, n, t.pattern))
}

// WithPattern returns a copy with the given pattern.
// It panics if the pattern does not compile.
func (t *StringType) WithPattern(pattern string) *StringType {
	return must(NewStringType(t.minLen, t.maxLen, pattern))
}

// MinLength returns the minimum length.
func (t *StringType) MinLength() int { return t.minLen }

// MaxLength returns the maximum length or constraint.Unbounded.
func (t *StringType) MaxLength() int { return t.maxLen }

// Pattern returns the pattern source, or "".
func (t *StringType) Pattern() string { return t.pattern }

// Kind returns KindString.
func (t *StringType) Kind() Kind { return KindString }

// Equal compares lengths and pattern source.
func (t *StringType) Equal(other Type) bool {
	o, ok := other.(*StringType)
	return ok && t.minLen == o.minLen && t.maxLen == o.maxLen && t.pattern == o.pattern
}

// Hash returns the type hash.
func (t *StringType) Hash() uint64 {
	return hashParts(KindString.String(), strconv.Itoa(t.minLen), strconv.Itoa(t.maxLen), t.pattern)
}

// String describes the type.
func (t *StringType) String() string {
	var minP, maxP, patP string
	if t.minLen > 0 {
		minP = fmt.Sprintf("minLength=%d", t.minLen)
	}
	if t.maxLen != constraint.Unbounded {
		maxP = fmt.Sprintf("maxLength=%d", t.maxLen)
	}
	if t.pattern != "" {
		patP = fmt.Sprintf("pattern=%q", t.pattern)
	}
	return describe("String", minP, maxP, patP)
}

// Accepts reports whether v satisfies every constraint.
func (t *StringType) Accepts(v string) bool { return t.chain.Accepts(v) }

// Test checks v. Strings either pass or fail.
func (t *StringType) Test(v string) TypeCheckResult[string] {
	corrected, outcome := t.chain.Test(v)
	return resultOf(corrected, outcome)
}

// AcceptsAny reports whether v is an acceptable string.
func (t *StringType) AcceptsAny(v any) bool { return acceptsAny[string](t, v) }

// TestAny tests a boxed value.
func (t *StringType) TestAny(v any) TypeCheckResult[any] { return testAny[string](t, v) }

// Serialize describes the type.
func (t *StringType) Serialize(s TypeSerializer) { s.SerializeString(t) }

// SerializeValue converts v with s.
func (t *StringType) SerializeValue(v string, s ValueSerializer) any {
	return s.SerializeString(v, t)
}

// DeserializeValue converts elem with s.
func (t *StringType) DeserializeValue(elem any, s ValueSerializer) (string, error) {
	v, err := s.DeserializeString(elem, t)
	return checked[string](t, elem, v, err)
}

// SerializeAny serializes a boxed value.
func (t *StringType) SerializeAny(v any, s ValueSerializer) (any, error) {
	return serializeAny[string](t, v, s)
}

// DeserializeAny deserializes into a boxed string.
func (t *StringType) DeserializeAny(elem any, s ValueSerializer) (any, error) {
	return deserializeAny[string](t, elem, s)
}

// Copy returns v.
func (t *StringType) Copy(v string) string { return v }

// CopyAny returns v.
func (t *StringType) CopyAny(v any) any { return v }

// EnumType is the type of strings drawn from a finite, ordered set.
// Values outside the set are always rejected.
type EnumType struct {
	values []string
	chain  constraint.Chain[string]
}

// Enum creates an enum type over values. Duplicates are dropped, keeping
// the first occurrence.
func Enum(values ...string) *EnumType {
	var uniq []string
	for _, v := range values {
		if !slices.Contains(uniq, v) {
			uniq = append(uniq, v)
		}
	}
	return &EnumType{
		values: uniq,
		chain:  constraint.Chain[string]{constraint.NewMembership(uniq)},
	}
}

// Values returns the allowed values in declaration order.
func (t *EnumType) Values() []string { return slices.Clone(t.values) }

// Kind returns KindEnum.
func (t *EnumType) Kind() Kind { return KindEnum }

// Equal compares the value sets, ignoring order.
func (t *EnumType) Equal(other Type) bool {
	o, ok := other.(*EnumType)
	if !ok || len(t.values) != len(o.values) {
		return false
	}
	for _, v := range t.values {
		if !slices.Contains(o.values, v) {
			return false
		}
	}
	return true
}

// Hash returns a hash of the sorted value set.
func (t *EnumType) Hash() uint64 {
	sorted := slices.Clone(t.values)
	slices.Sort(sorted)
	return hashParts(append([]string{KindEnum.String()}, sorted...)...)
}

// String describes the type.
func (t *EnumType) String() string {
	return describe("Enum", "values=["+strings.Join(t.values, ", ")+"]")
}

// Accepts reports whether v is a member.
func (t *EnumType) Accepts(v string) bool { return t.chain.Accepts(v) }

// Test passes members and fails everything else.
func (t *EnumType) Test(v string) TypeCheckResult[string] {
	corrected, outcome := t.chain.Test(v)
	return resultOf(corrected, outcome)
}

// AcceptsAny reports whether v is a member string.
func (t *EnumType) AcceptsAny(v any) bool { return acceptsAny[string](t, v) }

// TestAny tests a boxed value.
func (t *EnumType) TestAny(v any) TypeCheckResult[any] { return testAny[string](t, v) }

// Serialize describes the type.
func (t *EnumType) Serialize(s TypeSerializer) { s.SerializeEnum(t) }

// SerializeValue converts v with s.
func (t *EnumType) SerializeValue(v string, s ValueSerializer) any {
	return s.SerializeEnum(v, t)
}

// DeserializeValue converts elem with s.
func (t *EnumType) DeserializeValue(elem any, s ValueSerializer) (string, error) {
	v, err := s.DeserializeEnum(elem, t)
	return checked[string](t, elem, v, err)
}

// SerializeAny serializes a boxed value.
func (t *EnumType) SerializeAny(v any, s ValueSerializer) (any, error) {
	return serializeAny[string](t, v, s)
}

// DeserializeAny deserializes into a boxed string.
func (t *EnumType) DeserializeAny(elem any, s ValueSerializer) (any, error) {
	return deserializeAny[string](t, elem, s)
}

// Copy returns v.
func (t *EnumType) Copy(v string) string { return v }

// CopyAny returns v.
func (t *EnumType) CopyAny(v any) any { return v }
