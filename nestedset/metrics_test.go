// Created by Yanjunhui

package nestedset_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monolite/monotree/logging"
	"github.com/monolite/monotree/nestedset"
)

func TestMetricsRecordMutations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := nestedset.NewMetrics(reg)
	require.NoError(t, err)

	tree, store := setupTree(t, nestedset.DefaultConfig(), nestedset.WithMetrics(m))
	ctx := context.Background()

	root, a, b := newItem("R"), newItem("A"), newItem("B")
	require.NoError(t, tree.Create(ctx, root))
	require.NoError(t, tree.AppendTo(ctx, a, root))
	require.NoError(t, tree.AppendTo(ctx, b, root))
	require.NoError(t, tree.MoveBefore(ctx, b, a))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("create", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Mutations.WithLabelValues("insert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("move", "ok")))
	assert.Positive(t, testutil.ToFloat64(m.CorrectedNodes.WithLabelValues("insert")))
	assert.Positive(t, testutil.ToFloat64(m.CorrectedNodes.WithLabelValues("move")))

	// 前置条件错误不进入事务，不计数
	// EN: Precondition failures never reach a transaction and are not counted.
	require.Error(t, tree.MoveAfter(ctx, a, root))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("move", "ok")))

	// 加入外部事务的变更同样计数
	// EN: Mutations joining a caller-managed transaction are counted too.
	txn, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tree.AppendTo(ctx, newItem("C"), a))
	require.NoError(t, store.Commit(ctx, txn))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Mutations.WithLabelValues("insert", "ok")))

	count, err := testutil.GatherAndCount(reg, "monotree_mutation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = nestedset.NewMetrics(reg)
	assert.Error(t, err, "collectors are already registered")
}

func TestMetricsCountStorageFailures(t *testing.T) {
	m, err := nestedset.NewMetrics(nil)
	require.NoError(t, err)

	f := buildFixture(t, nestedset.DefaultConfig())
	spy := newSpyStore(f.store)
	spy.failMethod, spy.failAt = "UpdateRange", 1
	tree, err := nestedset.New(spy, testTable, nestedset.WithMetrics(m), nestedset.WithRegistry(f.tree.Registry()))
	require.NoError(t, err)

	require.Error(t, tree.MoveAfter(context.Background(), f.a, f.b))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("move", "StorageFailure")))
	assert.Zero(t, testutil.ToFloat64(m.CorrectedNodes.WithLabelValues("move")))
}

func TestPanickingMutationIsRecordedAsFailure(t *testing.T) {
	m, err := nestedset.NewMetrics(nil)
	require.NoError(t, err)
	var buf bytes.Buffer

	f := buildFixture(t, nestedset.DefaultConfig())
	spy := newSpyStore(f.store)
	spy.panicMethod = "UpdateRange"
	tree, err := nestedset.New(spy, testTable,
		nestedset.WithMetrics(m),
		nestedset.WithRegistry(f.tree.Registry()),
		nestedset.WithLogger(logging.NewLogger(&buf)),
	)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = tree.AppendTo(context.Background(), newItem("X"), f.b)
	})
	assert.Zero(t, testutil.ToFloat64(m.Mutations.WithLabelValues("insert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("insert", "StorageFailure")))
	assert.Contains(t, buf.String(), "mutation failed")
	assert.NotContains(t, buf.String(), "mutation applied")
}

func TestNilMetricsAreSafe(t *testing.T) {
	f := buildFixture(t, nestedset.DefaultConfig())
	tree, err := nestedset.New(f.store, testTable, nestedset.WithMetrics(nil), nestedset.WithRegistry(f.tree.Registry()))
	require.NoError(t, err)
	require.NoError(t, tree.MoveAfter(context.Background(), f.a, f.b))
}
