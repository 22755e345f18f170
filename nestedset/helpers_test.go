// Created by Yanjunhui

package nestedset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monolite/monotree/docstore"
	"github.com/monolite/monotree/logging"
	"github.com/monolite/monotree/nestedset"
)

const testTable = "categories"

// item 测试用实体
type item struct {
	nestedset.Node
	Title string
}

func (i *item) Attributes() nestedset.Row {
	return nestedset.Row{"title": i.Title}
}

func newItem(title string) *item {
	return &item{Node: *nestedset.NewNode(), Title: title}
}

var byTitle = func(n *nestedset.Node) string {
	if s, ok := n.Attrs["title"].(string); ok {
		return s
	}
	return "?"
}

func setupTree(t *testing.T, cfg nestedset.Config, opts ...nestedset.Option) (*nestedset.Tree, *docstore.Store) {
	t.Helper()

	db := docstore.NewDatabase(&docstore.Options{Logger: logging.Nop()})
	store := docstore.NewStore(db)
	opts = append([]nestedset.Option{nestedset.WithConfig(cfg), nestedset.WithLogger(logging.Nop())}, opts...)
	tree, err := nestedset.New(store, testTable, opts...)
	require.NoError(t, err)
	return tree, store
}

// fixture 五节点树：R(A B(D) C)
type fixture struct {
	tree             *nestedset.Tree
	store            *docstore.Store
	root, a, b, c, d *item
}

func (f *fixture) all() []*nestedset.Node {
	return []*nestedset.Node{&f.root.Node, &f.a.Node, &f.b.Node, &f.c.Node, &f.d.Node}
}

func buildFixture(t *testing.T, cfg nestedset.Config) *fixture {
	t.Helper()
	ctx := context.Background()

	tree, store := setupTree(t, cfg)
	f := &fixture{
		tree:  tree,
		store: store,
		root:  newItem("R"),
		a:     newItem("A"),
		b:     newItem("B"),
		c:     newItem("C"),
		d:     newItem("D"),
	}
	require.NoError(t, tree.Create(ctx, f.root))
	require.NoError(t, tree.AppendTo(ctx, f.a, f.root))
	require.NoError(t, tree.AppendTo(ctx, f.b, f.root))
	require.NoError(t, tree.AppendTo(ctx, f.c, f.root))
	require.NoError(t, tree.AppendTo(ctx, f.d, f.b))
	return f
}

func requireInterval(t *testing.T, n *nestedset.Node, left, right, level int64) {
	t.Helper()
	require.Equal(t, [3]int64{left, right, level}, [3]int64{n.Left, n.Right, n.Level},
		"node %d interval/level", n.ID)
}

// storedRows 读取整张表的原始行，用于逐字节比较
func storedRows(t *testing.T, store *docstore.Store) []nestedset.Row {
	t.Helper()
	rows, err := store.SelectWhere(context.Background(), testTable, nil)
	require.NoError(t, err)
	return rows
}
