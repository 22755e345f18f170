// Created by Yanjunhui

package nestedset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monolite/monotree/internal/testkit"
	"github.com/monolite/monotree/nestedset"
)

func TestMovePlacements(t *testing.T) {
	type want struct {
		shape     string
		intervals map[string][3]int64
	}
	cases := []struct {
		name string
		move func(f *fixture) error
		want want
	}{
		{
			name: "before earlier sibling",
			move: func(f *fixture) error { return f.tree.MoveBefore(context.Background(), f.c, f.a) },
			want: want{"R(C A B(D))", map[string][3]int64{
				"C": {2, 3, 1}, "A": {4, 5, 1}, "B": {6, 9, 1}, "D": {7, 8, 2},
			}},
		},
		{
			name: "first child of a deeper node",
			move: func(f *fixture) error { return f.tree.MoveAsFirst(context.Background(), f.a, f.d) },
			want: want{"R(B(D(A)) C)", map[string][3]int64{
				"B": {2, 7, 1}, "D": {3, 6, 2}, "A": {4, 5, 3}, "C": {8, 9, 1},
			}},
		},
		{
			name: "subtree under a later sibling",
			move: func(f *fixture) error { return f.tree.MoveAsLast(context.Background(), f.b, f.c) },
			want: want{"R(A C(B(D)))", map[string][3]int64{
				"A": {2, 3, 1}, "C": {4, 9, 1}, "B": {5, 8, 2}, "D": {6, 7, 3},
			}},
		},
		{
			name: "grandchild up to first child of root",
			move: func(f *fixture) error { return f.tree.MoveAsFirst(context.Background(), f.d, f.root) },
			want: want{"R(D A B C)", map[string][3]int64{
				"D": {2, 3, 1}, "A": {4, 5, 1}, "B": {6, 7, 1}, "C": {8, 9, 1},
			}},
		},
		{
			name: "leaf out of its parent after the parent",
			move: func(f *fixture) error { return f.tree.MoveAfter(context.Background(), f.d, f.b) },
			want: want{"R(A B D C)", map[string][3]int64{
				"A": {2, 3, 1}, "B": {4, 5, 1}, "D": {6, 7, 1}, "C": {8, 9, 1},
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := buildFixture(t, nestedset.DefaultConfig())
			require.NoError(t, tc.move(f))

			assert.Equal(t, tc.want.shape, testkit.Shape(t, f.tree, byTitle))
			byName := map[string]*item{"A": f.a, "B": f.b, "C": f.c, "D": f.d}
			for name, iv := range tc.want.intervals {
				n := byName[name]
				assert.Equal(t, iv, [3]int64{n.Left, n.Right, n.Level}, "node %s", name)
			}
			requireInterval(t, &f.root.Node, 1, 10, 0)
			testkit.AssertInvariants(t, f.tree)
			testkit.AssertCacheMatchesStorage(t, f.tree, f.all()...)
		})
	}
}

func TestRepeatedMoveKeepsShape(t *testing.T) {
	f := buildFixture(t, nestedset.DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.tree.MoveAfter(ctx, f.a, f.b))
	once := testkit.Shape(t, f.tree, byTitle)

	require.NoError(t, f.tree.MoveAfter(ctx, f.a, f.b))
	testkit.RequireSameShape(t, once, testkit.Shape(t, f.tree, byTitle))

	// 移到紧邻自己的位置不改变任何区间
	// EN: Moving next to where it already sits changes no interval.
	require.NoError(t, f.tree.MoveBefore(ctx, f.a, f.c))
	testkit.RequireSameShape(t, once, testkit.Shape(t, f.tree, byTitle))
	requireInterval(t, &f.a.Node, 6, 7, 1)

	testkit.AssertInvariants(t, f.tree)
	testkit.AssertCacheMatchesStorage(t, f.tree, f.all()...)
}

func TestInsertPlacements(t *testing.T) {
	f := buildFixture(t, nestedset.DefaultConfig())
	ctx := context.Background()

	first := newItem("F")
	require.NoError(t, f.tree.PrependTo(ctx, first, f.b))
	requireInterval(t, &first.Node, 5, 6, 2)

	before := newItem("X")
	require.NoError(t, f.tree.InsertBefore(ctx, before, f.a))
	after := newItem("Y")
	require.NoError(t, f.tree.InsertAfter(ctx, after, f.c))

	assert.Equal(t, "R(X A B(F D) C Y)", testkit.Shape(t, f.tree, byTitle))
	requireInterval(t, &f.root.Node, 1, 16, 0)
	requireInterval(t, &after.Node, 14, 15, 1)

	testkit.AssertInvariants(t, f.tree)
	testkit.AssertCacheMatchesStorage(t, f.tree,
		append(f.all(), &first.Node, &before.Node, &after.Node)...)
}

// buildForest 两棵树：R(A B(D) C) 与 S(X)
func buildForest(t *testing.T) (*fixture, *item, *item) {
	t.Helper()
	f := buildFixture(t, nestedset.ForestConfig())
	ctx := context.Background()

	s, x := newItem("S"), newItem("X")
	require.NoError(t, f.tree.Create(ctx, s))
	require.NoError(t, f.tree.AppendTo(ctx, x, s))
	return f, s, x
}

func TestForestCreateAndRoots(t *testing.T) {
	f, s, x := buildForest(t)
	ctx := context.Background()

	assert.Equal(t, f.root.ID, f.root.Root)
	assert.Equal(t, f.root.ID, f.d.Root)
	assert.Equal(t, s.ID, s.Root)
	assert.Equal(t, s.ID, x.Root)
	requireInterval(t, &s.Node, 1, 4, 0)
	requireInterval(t, &f.root.Node, 1, 10, 0)

	roots, err := f.tree.Roots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, f.root.ID, roots[0].ID)
	assert.Equal(t, s.ID, roots[1].ID)

	children, err := f.tree.Children(ctx, s)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, x.ID, children[0].ID)

	assert.Equal(t, "R(A B(D) C) | S(X)", testkit.Shape(t, f.tree, byTitle))
	testkit.AssertInvariants(t, f.tree)
}

func TestForestMoveStaysInsideTree(t *testing.T) {
	f, s, x := buildForest(t)
	ctx := context.Background()

	require.NoError(t, f.tree.MoveAfter(ctx, f.a, f.b))
	requireInterval(t, &f.a.Node, 6, 7, 1)
	requireInterval(t, &s.Node, 1, 4, 0)
	requireInterval(t, &x.Node, 2, 3, 1)

	testkit.AssertInvariants(t, f.tree)
	testkit.AssertCacheMatchesStorage(t, f.tree, append(f.all(), &s.Node, &x.Node)...)
}

func TestForestMoveAcrossTrees(t *testing.T) {
	f, s, x := buildForest(t)
	ctx := context.Background()

	require.NoError(t, f.tree.MoveAsLast(ctx, f.b, x))

	assert.Equal(t, "R(A C) | S(X(B(D)))", testkit.Shape(t, f.tree, byTitle))
	requireInterval(t, &f.root.Node, 1, 6, 0)
	requireInterval(t, &f.c.Node, 4, 5, 1)
	requireInterval(t, &s.Node, 1, 8, 0)
	requireInterval(t, &x.Node, 2, 7, 1)
	requireInterval(t, &f.b.Node, 3, 6, 2)
	requireInterval(t, &f.d.Node, 4, 5, 3)
	assert.Equal(t, s.ID, f.b.Root)
	assert.Equal(t, s.ID, f.d.Root)

	testkit.AssertInvariants(t, f.tree)
	testkit.AssertCacheMatchesStorage(t, f.tree, append(f.all(), &s.Node, &x.Node)...)

	// 跨树移动回去
	// EN: And back again, before the first child.
	require.NoError(t, f.tree.MoveBefore(ctx, f.b, f.a))
	assert.Equal(t, "R(B(D) A C) | S(X)", testkit.Shape(t, f.tree, byTitle))
	assert.Equal(t, f.root.ID, f.d.Root)
	testkit.AssertInvariants(t, f.tree)
	testkit.AssertCacheMatchesStorage(t, f.tree, append(f.all(), &s.Node, &x.Node)...)
}

func TestForestMoveWholeTreeUnderAnother(t *testing.T) {
	f, s, x := buildForest(t)
	ctx := context.Background()

	require.NoError(t, f.tree.MoveAsFirst(ctx, s, f.d))
	assert.Equal(t, "R(A B(D(S(X))) C)", testkit.Shape(t, f.tree, byTitle))
	requireInterval(t, &s.Node, 6, 9, 3)
	requireInterval(t, &x.Node, 7, 8, 4)
	assert.Equal(t, f.root.ID, x.Root)

	roots, err := f.tree.Roots(ctx)
	require.NoError(t, err)
	assert.Len(t, roots, 1)
	testkit.AssertInvariants(t, f.tree)
	testkit.AssertCacheMatchesStorage(t, f.tree, append(f.all(), &s.Node, &x.Node)...)
}

func TestMoveAsRoot(t *testing.T) {
	f, s, x := buildForest(t)
	ctx := context.Background()

	require.NoError(t, f.tree.MoveAsRoot(ctx, f.b))

	requireInterval(t, &f.b.Node, 1, 4, 0)
	requireInterval(t, &f.d.Node, 2, 3, 1)
	assert.Equal(t, f.b.ID, f.b.Root)
	assert.Equal(t, f.b.ID, f.d.Root)
	requireInterval(t, &f.root.Node, 1, 6, 0)
	requireInterval(t, &f.c.Node, 4, 5, 1)
	assert.Equal(t, "R(A C) | B(D) | S(X)", testkit.Shape(t, f.tree, byTitle))

	err := f.tree.MoveAsRoot(ctx, f.b)
	assert.ErrorIs(t, err, nestedset.ErrInvalidOperation)

	testkit.AssertInvariants(t, f.tree)
	testkit.AssertCacheMatchesStorage(t, f.tree, append(f.all(), &s.Node, &x.Node)...)

	// 新树与其他树一样可以删除
	// EN: The detached tree deletes like any other.
	removed, err := f.tree.Delete(ctx, f.b)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
	assert.Equal(t, "R(A C) | S(X)", testkit.Shape(t, f.tree, byTitle))
	testkit.AssertInvariants(t, f.tree)
}

func TestForestRejectsSiblingOfRoot(t *testing.T) {
	f, s, _ := buildForest(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.tree.MoveAfter(ctx, f.a, s), nestedset.ErrInvalidOperation)
	assert.ErrorIs(t, f.tree.InsertBefore(ctx, newItem("Z"), s), nestedset.ErrInvalidOperation)
	assert.ErrorIs(t, f.tree.MoveAsFirst(ctx, f.root, f.d), nestedset.ErrInvalidOperation)
	testkit.AssertInvariants(t, f.tree)
}
