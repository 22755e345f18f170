// Created by Yanjunhui

package nestedset_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monolite/monotree/logging"
	"github.com/monolite/monotree/nestedset"
)

var errInjected = errors.New("injected storage failure")

// spyStore 记录调用次数，并可在第 N 次调用某方法时注入失败或 panic
type spyStore struct {
	nestedset.Store
	calls map[string]int

	failMethod  string
	failAt      int
	panicMethod string
	beginErr    error
}

func newSpyStore(inner nestedset.Store) *spyStore {
	return &spyStore{Store: inner, calls: map[string]int{}}
}

func (s *spyStore) hit(method string) error {
	s.calls[method]++
	if method == s.panicMethod {
		panic("injected panic in " + method)
	}
	if method == s.failMethod && s.calls[method] == s.failAt {
		return errInjected
	}
	return nil
}

func (s *spyStore) writes() int {
	return s.calls["UpdateRange"] + s.calls["DeleteWhere"] + s.calls["InsertRow"] + s.calls["UpdateRow"]
}

func (s *spyStore) SelectWhere(ctx context.Context, table string, where nestedset.Predicate) ([]nestedset.Row, error) {
	if err := s.hit("SelectWhere"); err != nil {
		return nil, err
	}
	return s.Store.SelectWhere(ctx, table, where)
}

func (s *spyStore) UpdateRange(ctx context.Context, table string, where nestedset.Predicate, adj ...nestedset.Adjustment) (int64, error) {
	if err := s.hit("UpdateRange"); err != nil {
		return 0, err
	}
	return s.Store.UpdateRange(ctx, table, where, adj...)
}

func (s *spyStore) DeleteWhere(ctx context.Context, table string, where nestedset.Predicate) (int64, error) {
	if err := s.hit("DeleteWhere"); err != nil {
		return 0, err
	}
	return s.Store.DeleteWhere(ctx, table, where)
}

func (s *spyStore) InsertRow(ctx context.Context, table string, fields nestedset.Row) (int64, error) {
	if err := s.hit("InsertRow"); err != nil {
		return 0, err
	}
	return s.Store.InsertRow(ctx, table, fields)
}

func (s *spyStore) UpdateRow(ctx context.Context, table string, id int64, fields nestedset.Row) (int64, error) {
	if err := s.hit("UpdateRow"); err != nil {
		return 0, err
	}
	return s.Store.UpdateRow(ctx, table, id, fields)
}

func (s *spyStore) BeginIfNoneActive(ctx context.Context) (nestedset.Tx, error) {
	s.calls["BeginIfNoneActive"]++
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.Store.BeginIfNoneActive(ctx)
}

func (s *spyStore) Commit(ctx context.Context, tx nestedset.Tx) error {
	if err := s.hit("Commit"); err != nil {
		return err
	}
	return s.Store.Commit(ctx, tx)
}

func (s *spyStore) Rollback(ctx context.Context, tx nestedset.Tx) error {
	if err := s.hit("Rollback"); err != nil {
		return err
	}
	return s.Store.Rollback(ctx, tx)
}

// spyOn 在 fixture 的存储之上打开第二个句柄，共享同一个注册表
func spyOn(t *testing.T, f *fixture) (*nestedset.Tree, *spyStore) {
	t.Helper()
	spy := newSpyStore(f.store)
	tree, err := nestedset.New(spy, testTable,
		nestedset.WithConfig(f.tree.Config()),
		nestedset.WithRegistry(f.tree.Registry()),
		nestedset.WithLogger(logging.Nop()),
	)
	require.NoError(t, err)
	return tree, spy
}
