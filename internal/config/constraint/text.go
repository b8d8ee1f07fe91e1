package constraint

import (
	"fmt"
	"regexp"

	"github.com/rivo/uniseg"
)

// Length bounds the number of user-perceived characters (grapheme
// clusters) in a string. Max may be Unbounded.
type Length struct {
	Min int
	Max int
}

// NewLength creates a length checker.
func NewLength(min, max int) (Length, error) {
	if min < 0 {
		min = 0
	}
	if max != Unbounded && max < min {
		return Length{}, fmt.Errorf("%w: %d < %d", ErrInvalidBounds, max, min)
	}
	return Length{Min: min, Max: max}, nil
}

// Name returns "length".
func (l Length) Name() string { return "length" }

// Check reports whether the character count of s lies within the bounds.
func (l Length) Check(s string) bool {
	n := uniseg.GraphemeClusterCount(s)
	if n < l.Min {
		return false
	}
	return l.Max == Unbounded || n <= l.Max
}

// Correct always fails: strings are never truncated or padded.
func (l Length) Correct(s string) (string, bool) { return s, false }

// Pattern requires a string to match a regular expression in full.
type Pattern struct {
	Source string
	re     *regexp.Regexp
}

// NewPattern compiles source, anchored at both ends.
func NewPattern(source string) (Pattern, error) {
	re, err := regexp.Compile(`^(?:` + source + `)$`)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", source, err)
	}
	return Pattern{Source: source, re: re}, nil
}

// Name returns "pattern".
func (p Pattern) Name() string { return "pattern" }

// Check reports whether s matches.
func (p Pattern) Check(s string) bool {
	return p.re != nil && p.re.MatchString(s)
}

// Correct always fails.
func (p Pattern) Correct(s string) (string, bool) { return s, false }

// Membership restricts a string to a finite set. Values outside the set
// are always rejected.
type Membership struct {
	set map[string]struct{}
}

// NewMembership creates a membership checker over values.
func NewMembership(values []string) Membership {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Membership{set: set}
}

// Name returns "membership".
func (m Membership) Name() string { return "membership" }

// Check reports whether s is a member.
func (m Membership) Check(s string) bool {
	_, ok := m.set[s]
	return ok
}

// Correct always fails.
func (m Membership) Correct(s string) (string, bool) { return s, false }
