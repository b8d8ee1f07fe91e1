package types

import (
	"math"
	"testing"
	"time"

	"github.com/dshills/settree/internal/config/mirror"
	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/tree"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNatural_Constraints(t *testing.T) {
	typ := Natural[int]().WithMinimum(10).WithMaximum(20).SerializedType()
	accepts := func(i int64) bool { return typ.Accepts(decimal.NewFromInt(i)) }

	assert.False(t, accepts(-2))
	assert.False(t, accepts(4))
	assert.True(t, accepts(15))
	assert.False(t, accepts(25))
	assert.False(t, typ.Accepts(decimal.RequireFromString("0.5")))

	nt := typ.(*schema.NumberType)
	min, ok := nt.Minimum()
	require.True(t, ok)
	assert.True(t, min.Equal(decimal.NewFromInt(10)))
}

func TestInteger_Bounds(t *testing.T) {
	tests := []struct {
		name string
		typ  schema.SerializableType[decimal.Decimal]
		lo   string
		hi   string
	}{
		{"int8", Integer[int8]().SerializedType(), "-128", "127"},
		{"uint8", Integer[uint8]().SerializedType(), "0", "255"},
		{"int32", Integer[int32]().SerializedType(), "-2147483648", "2147483647"},
		{"uint64", Integer[uint64]().SerializedType(), "0", "18446744073709551615"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nt := tt.typ.(*schema.NumberType)
			lo, _ := nt.Minimum()
			hi, _ := nt.Maximum()
			assert.Equal(t, tt.lo, lo.String())
			assert.Equal(t, tt.hi, hi.String())
		})
	}
}

func TestInteger_Conversion(t *testing.T) {
	conv := Integer[int32]()

	v, err := conv.ToRuntime(decimal.NewFromInt(-42))
	require.NoError(t, err)
	assert.Equal(t, int32(-42), v)

	_, err = conv.ToRuntime(decimal.NewFromInt(2 * math.MaxInt32))
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrConversion)
	assert.Equal(t, "int32", ce.Target)

	_, err = conv.ToRuntime(decimal.RequireFromString("1.5"))
	assert.ErrorIs(t, err, errNotInteger)

	u, err := Integer[uint64]().ToRuntime(decimal.RequireFromString("18446744073709551615"))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u)
}

func TestIntList_Overflow(t *testing.T) {
	conv := List[int32, decimal.Decimal](Integer[int32]())

	in := []int32{1, 2, 3, 4}
	ser := conv.ToSerialized(in)
	require.Len(t, ser, 4)
	assert.True(t, ser[3].Equal(decimal.NewFromInt(4)))

	back, err := conv.ToRuntime(ser)
	require.NoError(t, err)
	assert.Equal(t, in, back)

	_, err = conv.ToRuntime([]decimal.Decimal{decimal.NewFromInt(2 * math.MaxInt32)})
	assert.ErrorIs(t, err, ErrConversion)
}

func TestRuneList(t *testing.T) {
	conv := List[rune, string](Rune())

	assert.Equal(t, []string{"a", "b", "c", "d"}, conv.ToSerialized([]rune("abcd")))

	back, err := conv.ToRuntime([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []rune("ab"), back)

	_, err = conv.ToRuntime([]string{"", "aa"})
	assert.ErrorIs(t, err, ErrConversion)
	assert.False(t, conv.SerializedType().Accepts([]string{"aa"}))
}

func TestBoolAndStringLists(t *testing.T) {
	bools := List[bool, bool](Bool())
	assert.Equal(t, []bool{false, true}, bools.ToSerialized([]bool{false, true}))

	strs := List[string, string](String())
	got, err := strs.ToRuntime([]string{"string1", "string2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"string1", "string2"}, got)
}

func TestFloat(t *testing.T) {
	conv := Float[float64]().WithMinimum(0).WithMaximum(1)

	assert.True(t, conv.SerializedType().Accepts(conv.ToSerialized(0.25)))
	assert.False(t, conv.SerializedType().Accepts(conv.ToSerialized(1.5)))

	f, err := conv.ToRuntime(decimal.RequireFromString("0.1"))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, f, 1e-12)
}

type level int

const (
	levelA level = iota
	levelB
)

func (l level) String() string { return [...]string{"A", "B"}[l] }

func TestEnum(t *testing.T) {
	conv := Enum(levelA, levelB)
	accepts := func(c EnumType[level], l level) bool {
		return c.SerializedType().Accepts(conv.ToSerialized(l))
	}

	assert.True(t, accepts(conv, levelA))
	assert.True(t, accepts(conv, levelB))

	onlyA := conv.WithValues(levelA)
	assert.True(t, accepts(onlyA, levelA))
	assert.False(t, accepts(onlyA, levelB))

	onlyB := conv.WithValues(levelB)
	assert.False(t, accepts(onlyB, levelA))

	v, err := conv.ToRuntime("B")
	require.NoError(t, err)
	assert.Equal(t, levelB, v)

	_, err = onlyA.ToRuntime("B")
	assert.ErrorIs(t, err, ErrConversion)
}

func TestStringEnum(t *testing.T) {
	conv := StringEnum("dark", "light")
	assert.True(t, conv.SerializedType().Accepts("dark"))
	assert.False(t, conv.SerializedType().Accepts("blue"))
}

func TestDuration(t *testing.T) {
	conv := Duration()

	tests := []struct {
		in   string
		want bool
	}{
		{"1m30s", true},
		{"0", true},
		{"-1.5h", true},
		{"250ms", true},
		{"soon", false},
		{"10", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, conv.SerializedType().Accepts(tt.in))
		})
	}

	assert.Equal(t, "1m30s", conv.ToSerialized(90*time.Second))
	d, err := conv.ToRuntime("2h")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, d)
	assert.True(t, conv.SerializedType().Accepts(conv.ToSerialized(0)))
}

func TestColor(t *testing.T) {
	conv := Color()

	c, err := conv.ToRuntime("#ff0000")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", conv.ToSerialized(c))

	assert.False(t, conv.SerializedType().Accepts("red"))
	_, err = conv.ToRuntime("red")
	assert.ErrorIs(t, err, ErrConversion)

	assert.Equal(t, "#00ff00", conv.ToSerialized(colorful.Color{R: 0, G: 1, B: 0}))
}

func TestMap(t *testing.T) {
	conv := Map[time.Duration, string](Duration())

	ser := conv.ToSerialized(map[string]time.Duration{"poll": time.Second})
	assert.Equal(t, map[string]string{"poll": "1s"}, ser)

	_, err := conv.ToRuntime(map[string]string{"poll": "never"})
	assert.ErrorIs(t, err, ErrConversion)
}

func TestConverter_WithMirror(t *testing.T) {
	conv := List[int, decimal.Decimal](Integer[int]().WithMinimum(3).WithMaximum(10)).WithMaxSize(3)

	leaf, err := tree.NewLeaf("items", conv.SerializedType(), "", []decimal.Decimal{}, nil)
	require.NoError(t, err)

	m := mirror.New[[]int, []decimal.Decimal](conv)
	require.NoError(t, m.Bind(leaf))

	assert.True(t, leaf.Accepts(nil))
	assert.True(t, m.Accepts([]int{}))
	assert.True(t, m.Accepts([]int{4, 5, 6}))
	assert.False(t, m.Accepts([]int{1, 2}))
	assert.False(t, m.Accepts([]int{5, 6, 7, 8}))
	assert.False(t, m.Accepts([]int{9, 10, 11}))

	require.True(t, m.SetValue([]int{4, 5}))
	assert.Equal(t, []int{4, 5}, m.Value())

	assert.True(t, conv.Element().SerializedType().Equal(conv.SerializedType().(*schema.ListType[decimal.Decimal]).ElementType()))
}
