// Created by Yanjunhui

package nestedset_test

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monolite/monotree/docstore"
	"github.com/monolite/monotree/internal/testkit"
	"github.com/monolite/monotree/logging"
	"github.com/monolite/monotree/nestedset"
)

func TestRegistryBookkeeping(t *testing.T) {
	reg := nestedset.NewRegistry(testTable)
	assert.Equal(t, testTable, reg.Table())

	a := nestedset.NewPersisted(1, 1, 2, 0, 0)
	b := nestedset.NewPersisted(1, 1, 2, 0, 0)
	reg.Register(a)
	reg.Register(a)
	reg.Register(b)
	reg.Register(nil)
	assert.Equal(t, 2, reg.Len(), "same row, two instances")

	reg.Forget(a)
	assert.False(t, reg.Contains(a))
	assert.True(t, reg.Contains(b))

	reg.Clear()
	assert.Zero(t, reg.Len())
}

func TestUnregisteredNodeIsNotCorrected(t *testing.T) {
	f := buildFixture(t, nestedset.DefaultConfig())
	ctx := context.Background()

	c, err := f.tree.Load(ctx, f.c.ID)
	require.NoError(t, err)
	f.tree.Registry().Forget(c)

	require.NoError(t, f.tree.MoveBefore(ctx, f.c, f.a))
	requireInterval(t, c, 8, 9, 1)
	requireInterval(t, &f.c.Node, 2, 3, 1)
}

func TestSessionSharesRegistryBetweenHandles(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewStore(docstore.NewDatabase(&docstore.Options{Logger: logging.Nop()}))
	session := nestedset.NewSession()

	first, err := session.Tree(store, testTable, nestedset.WithLogger(logging.Nop()))
	require.NoError(t, err)
	second, err := session.Tree(store, testTable, nestedset.WithLogger(logging.Nop()))
	require.NoError(t, err)
	assert.Same(t, first.Registry(), second.Registry())
	assert.Same(t, session.Registry(testTable), first.Registry())
	assert.NotSame(t, session.Registry("other"), first.Registry())

	root, a := newItem("R"), newItem("A")
	require.NoError(t, first.Create(ctx, root))
	require.NoError(t, first.AppendTo(ctx, a, root))

	// 通过第二个句柄插入，第一个句柄加载的实例同样被校正
	// EN: A mutation through the second handle corrects instances loaded through the first.
	loaded, err := first.Load(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, second.InsertBefore(ctx, newItem("Z"), a))
	requireInterval(t, loaded, 4, 5, 1)
	requireInterval(t, &root.Node, 1, 6, 0)
	testkit.AssertCacheMatchesStorage(t, first, &root.Node, &a.Node, loaded)

	session.Close()
	assert.Zero(t, first.Registry().Len())
	_, err = session.Tree(store, testTable)
	assert.ErrorIs(t, err, nestedset.ErrInvalidOperation)
}

func TestDeleteForgetsRemovedInstances(t *testing.T) {
	f := buildFixture(t, nestedset.DefaultConfig())
	reg := f.tree.Registry()
	require.Equal(t, 5, reg.Len())

	_, err := f.tree.Delete(context.Background(), f.b)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	assert.False(t, reg.Contains(&f.b.Node))
	assert.False(t, reg.Contains(&f.d.Node))
}

func TestValueCopyIsASeparateInstance(t *testing.T) {
	f := buildFixture(t, nestedset.DefaultConfig())
	reg := f.tree.Registry()

	cp := *f.c
	reg.Register(&cp.Node)
	require.True(t, reg.Contains(&f.c.Node), "registering a copy must not evict the original")
	require.True(t, reg.Contains(&cp.Node))

	require.NoError(t, f.tree.MoveBefore(context.Background(), f.c, f.a))
	requireInterval(t, &f.c.Node, 2, 3, 1)
	requireInterval(t, &cp.Node, 2, 3, 1)
	testkit.AssertCacheMatchesStorage(t, f.tree, &f.c.Node, &cp.Node, &f.a.Node)
}

func TestRegistryDropsUnreachableInstances(t *testing.T) {
	f := buildFixture(t, nestedset.DefaultConfig())
	ctx := context.Background()
	reg := f.tree.Registry()

	for i := 0; i < 10; i++ {
		_, err := f.tree.Load(ctx, f.d.ID)
		require.NoError(t, err)
	}
	assert.Eventually(t, func() bool {
		runtime.GC()
		return reg.Len() == 5
	}, 2*time.Second, 10*time.Millisecond, "loaded instances nobody holds must leave the registry")

	// 仍被持有的实例继续被校正
	// EN: Instances still held keep being corrected.
	require.NoError(t, f.tree.MoveAfter(ctx, f.a, f.b))
	requireInterval(t, &f.a.Node, 6, 7, 1)
	testkit.AssertCacheMatchesStorage(t, f.tree, f.all()...)
}

func TestSessionTagsMutationLog(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewLogger(&buf)
	log.SetLevel(logging.LogLevelDebug)

	store := docstore.NewStore(docstore.NewDatabase(&docstore.Options{Logger: logging.Nop()}))
	session := nestedset.NewSession()
	defer session.Close()
	tree, err := session.Tree(store, testTable, nestedset.WithLogger(log))
	require.NoError(t, err)

	require.NoError(t, tree.Create(context.Background(), newItem("R")))
	assert.Contains(t, buf.String(), session.ID().String())
	assert.NotEqual(t, session.ID(), nestedset.NewSession().ID())
}
