package tree

import (
	"errors"
	"testing"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type change[T any] struct{ old, new T }

func bounded() *schema.NumberType {
	return schema.Number().WithMinimum(dec(10)).WithMaximum(dec(20))
}

func TestNewLeaf_Default(t *testing.T) {
	tests := []struct {
		name    string
		def     int64
		want    int64
		wantErr bool
	}{
		{"accepted", 15, 15, false},
		{"corrected", 25, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLeaf("size", bounded(), "", dec(tt.def), nil)
			require.NoError(t, err)
			assert.True(t, l.Value().Equal(dec(tt.want)))
			assert.True(t, l.DefaultValue().Equal(dec(tt.want)))
		})
	}

	_, err := NewLeaf("mode", schema.Enum("a", "b"), "", "c", nil)
	assert.ErrorIs(t, err, ErrInvalidDefault)
}

func TestNewLeaf_DoesNotNotify(t *testing.T) {
	called := false
	_, err := NewLeaf("on", schema.Boolean(), "", true, func(bool, bool) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
}

func TestLeaf_SetValue(t *testing.T) {
	var changes []change[decimal.Decimal]
	l, err := NewLeaf("size", bounded(), "comment", dec(15), func(o, n decimal.Decimal) {
		changes = append(changes, change[decimal.Decimal]{o, n})
	})
	require.NoError(t, err)

	assert.True(t, l.SetValue(dec(12)))
	assert.True(t, l.Value().Equal(dec(12)))

	assert.True(t, l.SetValue(dec(30)), "correctable values are stored")
	assert.True(t, l.Value().Equal(dec(20)))

	assert.True(t, l.SetValue(dec(20)), "equal values still notify")

	require.Len(t, changes, 3)
	assert.True(t, changes[0].old.Equal(dec(15)) && changes[0].new.Equal(dec(12)))
	assert.True(t, changes[1].old.Equal(dec(12)) && changes[1].new.Equal(dec(20)))
	assert.True(t, changes[2].old.Equal(dec(20)) && changes[2].new.Equal(dec(20)))

	assert.True(t, l.DefaultValue().Equal(dec(15)))
	assert.Equal(t, "comment", l.Comment())
}

func TestLeaf_SetValueRejected(t *testing.T) {
	calls := 0
	l, err := NewLeaf("mode", schema.Enum("a", "b"), "", "a", func(string, string) { calls++ })
	require.NoError(t, err)

	assert.False(t, l.SetValue("c"))
	assert.Equal(t, "a", l.Value())
	assert.Equal(t, "a", l.DefaultValue())
	assert.Zero(t, calls)
}

func TestLeaf_ListenerOrder(t *testing.T) {
	var order []int
	l, err := NewLeaf("on", schema.Boolean(), "", false, func(bool, bool) { order = append(order, 1) })
	require.NoError(t, err)
	l.AddChangeListener(func(bool, bool) { order = append(order, 2) })
	l.OnChange(func(o, n any) {
		assert.Equal(t, false, o)
		assert.Equal(t, true, n)
		order = append(order, 3)
	})

	l.SetValue(true)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRegistration_Remove(t *testing.T) {
	l, err := NewLeaf("on", schema.Boolean(), "", false, nil)
	require.NoError(t, err)

	calls := 0
	reg := l.AddChangeListener(func(bool, bool) { calls++ })
	l.SetValue(true)
	reg.Remove()
	reg.Remove()
	l.SetValue(false)

	assert.Equal(t, 1, calls)
	assert.Zero(t, l.ListenerCount())
}

func TestRegistration_RemoveDuringNotify(t *testing.T) {
	l, err := NewLeaf("on", schema.Boolean(), "", false, nil)
	require.NoError(t, err)

	var second *Registration
	secondCalls := 0
	l.AddChangeListener(func(bool, bool) { second.Remove() })
	second = l.AddChangeListener(func(bool, bool) { secondCalls++ })

	l.SetValue(true)
	assert.Zero(t, secondCalls)
}

func TestLeaf_ReentrantWrites(t *testing.T) {
	l, err := NewLeaf("n", schema.Number(), "", dec(0), nil)
	require.NoError(t, err)

	calls := 0
	l.AddChangeListener(func(_, n decimal.Decimal) {
		calls++
		l.SetValue(n.Add(dec(1)))
	})

	assert.True(t, l.SetValue(dec(1)))
	assert.Equal(t, MaxReentrantWrites, calls)
	assert.True(t, l.Value().Equal(dec(MaxReentrantWrites)))

	// The depth counter unwinds, so later writes work again.
	calls = 0
	assert.True(t, l.SetValue(dec(100)))
	assert.Equal(t, MaxReentrantWrites, calls)
}

func TestLeaf_ReentrantOtherLeaf(t *testing.T) {
	a, err := NewLeaf("a", schema.Boolean(), "", false, nil)
	require.NoError(t, err)
	b, err := NewLeaf("b", schema.Boolean(), "", false, nil)
	require.NoError(t, err)

	var seen []string
	a.AddChangeListener(func(_, n bool) {
		seen = append(seen, "a")
		b.SetValue(n)
	})
	b.AddChangeListener(func(bool, bool) { seen = append(seen, "b") })
	a.AddChangeListener(func(bool, bool) { seen = append(seen, "a2") })

	a.SetValue(true)
	assert.True(t, b.Value())
	assert.Equal(t, []string{"a", "b", "a2"}, seen)
}

func TestLeaf_Reset(t *testing.T) {
	l, err := NewLeaf("name", schema.String(), "", "x", nil)
	require.NoError(t, err)
	l.SetValue("y")
	assert.True(t, l.Reset())
	assert.Equal(t, "x", l.Value())
}

func TestLeaf_Erased(t *testing.T) {
	l, err := NewLeaf("name", schema.String(), "", "x", nil)
	require.NoError(t, err)

	var n LeafNode = l
	assert.False(t, n.SetAnyValue(1))
	assert.True(t, n.SetAnyValue("y"))
	assert.Equal(t, "y", n.AnyValue())
	assert.Equal(t, "x", n.AnyDefault())
	assert.Equal(t, KindLeaf, n.NodeKind())
}

func TestLeaf_CollectionsAreCopied(t *testing.T) {
	typ := schema.ListOf[decimal.Decimal](schema.Number().WithMinimum(dec(3)).WithMaximum(dec(10))).WithMaxSize(3)
	l, err := NewLeaf("sizes", typ, "", []decimal.Decimal{dec(3)}, nil)
	require.NoError(t, err)

	var fired int
	l.AddChangeListener(func(_, newValue []decimal.Decimal) {
		fired++
		newValue[0] = dec(42)
	})

	in := []decimal.Decimal{dec(4), dec(5)}
	require.True(t, l.SetValue(in))
	assert.Equal(t, 1, fired)

	in[0] = dec(99)
	out := l.Value()
	out[1] = dec(-7)

	got := l.Value()
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(dec(4)))
	assert.True(t, got[1].Equal(dec(5)))
	assert.True(t, l.Accepts(got))
	assert.Equal(t, 1, fired)

	l.DefaultValue()[0] = dec(8)
	require.True(t, l.Reset())
	assert.True(t, l.Value()[0].Equal(dec(3)))
}

func TestLeaf_MapIsCopied(t *testing.T) {
	l, err := NewLeaf("limits", schema.MapOf[bool](schema.Boolean()), "", map[string]bool{"a": true}, nil)
	require.NoError(t, err)

	l.Value()["b"] = false
	l.AnyValue().(map[string]bool)["c"] = true
	assert.Equal(t, map[string]bool{"a": true}, l.Value())
}

func TestAttribute(t *testing.T) {
	id, err := ParseID("settree:min_version")
	require.NoError(t, err)
	assert.Equal(t, NewID("settree", "min_version"), id)
	assert.Equal(t, "settree:min_version", id.String())

	_, err = ParseID("nonamespace")
	assert.ErrorIs(t, err, ErrInvalidID)

	attr, err := NewAttribute(id, schema.Number().WithMinimum(dec(1)), dec(2))
	require.NoError(t, err)
	assert.True(t, attr.SetValue(dec(0)))
	assert.True(t, attr.Value().Equal(dec(1)))

	_, err = NewAttribute(id, schema.Enum("a"), "b")
	assert.ErrorIs(t, err, ErrInvalidDefault)

	l, err := NewLeaf("x", schema.Boolean(), "", true, nil, attr)
	require.NoError(t, err)
	got, ok := l.Attribute(id)
	require.True(t, ok)
	assert.Same(t, attr, got)
	assert.Len(t, l.Attributes(), 1)
}

func mustLeaf[T any](t *testing.T, name string, typ schema.SerializableType[T], def T) *Leaf[T] {
	t.Helper()
	l, err := NewLeaf(name, typ, "", def, nil)
	require.NoError(t, err)
	return l
}

func mustBranch(t *testing.T, name string, children ...Node) *Branch {
	t.Helper()
	b, err := NewBranch(name, "", children, false)
	require.NoError(t, err)
	return b
}

func TestNewBranch(t *testing.T) {
	b := mustBranch(t, "root",
		mustLeaf(t, "zeta", schema.Boolean(), true),
		mustLeaf(t, "alpha", schema.Boolean(), false),
	)

	items := b.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "alpha", items[0].Name())
	assert.Equal(t, "zeta", items[1].Name())
	assert.Equal(t, KindBranch, b.NodeKind())

	_, err := NewBranch("root", "", []Node{
		mustLeaf(t, "a", schema.Boolean(), true),
		mustLeaf(t, "a", schema.String(), ""),
	}, false)
	assert.ErrorIs(t, err, ErrDuplicateChild)

	_, err = NewBranch("root", "", []Node{mustLeaf(t, "", schema.Boolean(), true)}, false)
	assert.ErrorIs(t, err, ErrUnnamedChild)
}

func TestBranch_Lookup(t *testing.T) {
	b := mustBranch(t, "root", mustLeaf(t, "a", schema.Boolean(), true))

	n, err := b.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "a", n.Name())

	_, err = b.Lookup("missing")
	var mc *MissingChildError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "missing", mc.Name)
	assert.Same(t, b, mc.Parent)
	assert.ErrorIs(t, err, ErrQuery)
}

func sampleTree(t *testing.T) *Branch {
	return mustBranch(t, "",
		mustBranch(t, "server",
			mustLeaf(t, "port", schema.Number().WithMinimum(dec(1)), dec(80)),
			mustLeaf(t, "host", schema.String(), "localhost"),
		),
		mustLeaf(t, "debug", schema.Boolean(), false),
	)
}

func TestQuery_Run(t *testing.T) {
	root := sampleTree(t)
	server := root.Child("server").(*Branch)

	l, err := LeafQuery[string](schema.String(), ParsePath("server.host")...).Run(root)
	require.NoError(t, err)
	assert.Equal(t, "localhost", l.Value())

	b, err := BranchQuery("server").Run(root)
	require.NoError(t, err)
	assert.Same(t, server, b)

	self, err := BranchQuery().Run(root)
	require.NoError(t, err)
	assert.Same(t, root, self)

	tests := []struct {
		name  string
		run   func() error
		check func(t *testing.T, err error)
	}{
		{
			name: "missing intermediate",
			run: func() error {
				_, err := LeafQuery[string](schema.String(), "client", "host").Run(root)
				return err
			},
			check: func(t *testing.T, err error) {
				var mc *MissingChildError
				require.ErrorAs(t, err, &mc)
				assert.Equal(t, "client", mc.Name)
				assert.Same(t, root, mc.Parent)
			},
		},
		{
			name: "missing terminal",
			run: func() error {
				_, err := LeafQuery[string](schema.String(), "server", "user").Run(root)
				return err
			},
			check: func(t *testing.T, err error) {
				var mc *MissingChildError
				require.ErrorAs(t, err, &mc)
				assert.Equal(t, "user", mc.Name)
				assert.Same(t, server, mc.Parent)
				assert.Equal(t, []string{"server", "user"}, mc.Path)
			},
		},
		{
			name: "leaf type differs",
			run: func() error {
				_, err := LeafQuery[decimal.Decimal](schema.Number(), "server", "port").Run(root)
				return err
			},
			check: func(t *testing.T, err error) {
				var wt *WrongTypeError
				require.ErrorAs(t, err, &wt)
				assert.Equal(t, "port", wt.Node.Name())
				assert.Equal(t, KindLeaf, wt.ExpectedKind)
				assert.True(t, schema.Number().Equal(wt.ExpectedType))
				assert.Same(t, server, wt.Parent)
			},
		},
		{
			name: "branch where leaf expected",
			run: func() error {
				_, err := LeafQuery[bool](schema.Boolean(), "server").Run(root)
				return err
			},
			check: func(t *testing.T, err error) {
				var wt *WrongTypeError
				require.ErrorAs(t, err, &wt)
				assert.Equal(t, KindBranch, wt.Node.NodeKind())
				assert.Equal(t, KindLeaf, wt.ExpectedKind)
			},
		},
		{
			name: "leaf where branch expected",
			run: func() error {
				_, err := BranchQuery("debug").Run(root)
				return err
			},
			check: func(t *testing.T, err error) {
				var wt *WrongTypeError
				require.ErrorAs(t, err, &wt)
				assert.Equal(t, KindBranch, wt.ExpectedKind)
				assert.Nil(t, wt.ExpectedType)
			},
		},
		{
			name: "leaf as intermediate",
			run: func() error {
				_, err := LeafQuery[bool](schema.Boolean(), "debug", "x").Run(root)
				return err
			},
			check: func(t *testing.T, err error) {
				var wt *WrongTypeError
				require.ErrorAs(t, err, &wt)
				assert.Equal(t, "debug", wt.Node.Name())
				assert.Equal(t, KindBranch, wt.ExpectedKind)
				assert.Nil(t, wt.ExpectedType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrQuery))
			var qe *QueryError
			assert.ErrorAs(t, err, &qe)
			tt.check(t, err)
		})
	}
}

func TestQuery_StructuralTypeMatch(t *testing.T) {
	root := sampleTree(t)

	// An independently built but equal type matches.
	l, ok := LeafQuery[decimal.Decimal](schema.Number().WithMinimum(dec(1)), "server", "port").Search(root)
	require.True(t, ok)
	assert.True(t, l.Value().Equal(dec(80)))

	_, ok = LeafQuery[decimal.Decimal](schema.Number().WithMinimum(dec(2)), "server", "port").Search(root)
	assert.False(t, ok)
}

func TestApplyLeaf(t *testing.T) {
	root := sampleTree(t)
	q := LeafQuery[bool](schema.Boolean(), "debug")

	ok, err := ApplyLeaf(root, q, true)
	require.NoError(t, err)
	assert.True(t, ok)

	l, _ := q.Search(root)
	assert.True(t, l.Value())

	_, err = ApplyLeaf(root, LeafQuery[bool](schema.Boolean(), "nope"), true)
	assert.ErrorIs(t, err, ErrQuery)
}

func TestParsePath(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParsePath("a.b.c"))
	assert.Equal(t, []string{"a"}, ParsePath(".a."))
	assert.Nil(t, ParsePath(""))
}

func TestWalk(t *testing.T) {
	root := sampleTree(t)

	var visited []string
	err := Walk(root, func(path []string, n Node) error {
		visited = append(visited, JoinPath(path))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"debug", "server", "server.host", "server.port"}, visited)

	visited = nil
	err = Walk(root, func(path []string, n Node) error {
		visited = append(visited, JoinPath(path))
		if n.NodeKind() == KindBranch {
			return SkipBranch
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"debug", "server"}, visited)

	leaves := Leaves(root)
	assert.Len(t, leaves, 3)
	assert.Contains(t, leaves, "server.port")
}
