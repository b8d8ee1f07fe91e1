package builder

import (
	"testing"
	"time"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/tree"
	"github.com/dshills/settree/internal/config/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func integer() schema.SerializableType[decimal.Decimal] {
	return types.Integer[int]().SerializedType()
}

func TestTree_ForkFinish(t *testing.T) {
	b := Tree().Comment("root")
	Value(b, "debug", schema.Boolean(), true)

	server := b.Fork("server").Comment("Network settings").SerializeSeparately(true)
	Value(server, "host", schema.String(), "localhost")
	ConvertedValue[time.Duration, string](server, "timeout", types.Duration(), 5*time.Second)
	server.Finish()

	root, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "root", root.Comment())
	assert.Equal(t, 2, root.Len())

	sb, err := tree.BranchQuery("server").Run(root)
	require.NoError(t, err)
	assert.True(t, sb.IsSerializedSeparately())
	assert.Equal(t, "Network settings", sb.Comment())

	timeout, err := tree.LeafQuery[string](types.Duration().SerializedType(), "server", "timeout").Run(root)
	require.NoError(t, err)
	assert.Equal(t, "5s", timeout.Value())
}

func TestBuild_CollectsErrors(t *testing.T) {
	b := Tree()
	Value(b, "mode", schema.Enum("a", "b"), "c")
	b.Fork("inner").Add(nil).Finish()

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, tree.ErrInvalidDefault)
	assert.ErrorIs(t, err, tree.ErrUnnamedChild)

	dup := Tree()
	Value(dup, "a", schema.Boolean(), true)
	Value(dup, "a", schema.Boolean(), false)
	_, err = dup.Build()
	assert.ErrorIs(t, err, tree.ErrDuplicateChild)
}

func TestFinish_WithoutParent(t *testing.T) {
	assert.PanicsWithValue(t, ErrNoParent, func() { Tree().Finish() })
}

func TestLeafBuilder(t *testing.T) {
	var calls []string
	attr, err := tree.NewAttribute(tree.NewID("test", "hint"), schema.String(), "x")
	require.NoError(t, err)

	leaf, err := Leaf("count", integer()).
		Comment("How many").
		Default(decimal.NewFromInt(3)).
		Listener(func(_, _ decimal.Decimal) { calls = append(calls, "first") }).
		Listener(func(_, _ decimal.Decimal) { calls = append(calls, "second") }).
		Attribute(attr).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "How many", leaf.Comment())
	assert.True(t, leaf.DefaultValue().Equal(decimal.NewFromInt(3)))
	_, ok := leaf.Attribute(attr.ID())
	assert.True(t, ok)

	leaf.SetValue(decimal.NewFromInt(4))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestMoveChildren(t *testing.T) {
	one := Tree()
	Value(one, "A", integer(), decimal.NewFromInt(10))
	treeOne, err := one.Build()
	require.NoError(t, err)

	two := MoveChildren(treeOne, Tree())
	treeTwo, err := two.Build()
	require.NoError(t, err)

	a, err := tree.LeafQuery(integer(), "A").Run(treeTwo)
	require.NoError(t, err)
	assert.True(t, a.Value().Equal(decimal.NewFromInt(10)))
}

func TestMoveNode(t *testing.T) {
	leaf, err := Leaf("A", integer()).Default(decimal.NewFromInt(10)).Build()
	require.NoError(t, err)

	root, err := MoveNode(leaf, Tree()).Build()
	require.NoError(t, err)

	n, err := root.Lookup("A")
	require.NoError(t, err)
	assert.Same(t, leaf, n)
}

func TestCopyValue(t *testing.T) {
	one, err := Leaf("A", integer()).Default(decimal.NewFromInt(10)).Build()
	require.NoError(t, err)
	two, err := Leaf("A", integer()).Default(decimal.NewFromInt(20)).Build()
	require.NoError(t, err)

	assert.True(t, CopyValue(one, two))
	assert.True(t, two.Value().Equal(decimal.NewFromInt(10)))
	assert.True(t, two.DefaultValue().Equal(decimal.NewFromInt(20)))
}
