// Created by Yanjunhui

package docstore

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/monolite/monotree/nestedset"
)

// Store 将 Database 适配为树引擎所需的行存储与事务管理接口
// EN: Store adapts a Database to nestedset.Store. Each table is a collection;
// predicates become filter documents and adjustments become $inc/$set updates.
type Store struct {
	db *Database
}

var _ nestedset.Store = (*Store)(nil)

// NewStore 创建适配器
// EN: NewStore wraps db.
func NewStore(db *Database) *Store {
	return &Store{db: db}
}

// Database 返回底层数据库
// EN: Database returns the wrapped database.
func (s *Store) Database() *Database {
	return s.db
}

// SelectWhere 实现 nestedset.RowStore
func (s *Store) SelectWhere(ctx context.Context, table string, where nestedset.Predicate) ([]nestedset.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.db.Collection(table).Find(filterFromPredicate(where))
	if err != nil {
		return nil, err
	}
	rows := make([]nestedset.Row, len(docs))
	for i, doc := range docs {
		rows[i] = docToRow(doc)
	}
	return rows, nil
}

// UpdateRange 实现 nestedset.RowStore
func (s *Store) UpdateRange(ctx context.Context, table string, where nestedset.Predicate, adj ...nestedset.Adjustment) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(adj) == 0 {
		return 0, nil
	}
	res, err := s.db.Collection(table).Update(filterFromPredicate(where), updateFromAdjustments(adj))
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// DeleteWhere 实现 nestedset.RowStore
func (s *Store) DeleteWhere(ctx context.Context, table string, where nestedset.Predicate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.db.Collection(table).Delete(filterFromPredicate(where))
}

// InsertRow 实现 nestedset.RowStore
func (s *Store) InsertRow(ctx context.Context, table string, fields nestedset.Row) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.db.Collection(table).Insert(rowToDoc(fields))
}

// UpdateRow 实现 nestedset.RowStore
func (s *Store) UpdateRow(ctx context.Context, table string, id int64, fields nestedset.Row) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	filter := bson.D{{Key: s.db.idField, Value: id}}
	res, err := s.db.Collection(table).Update(filter, bson.D{{Key: "$set", Value: rowToDoc(fields)}})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// BeginIfNoneActive 实现 nestedset.TxManager：已有活动事务时返回 nil
func (s *Store) BeginIfNoneActive(ctx context.Context) (nestedset.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db.txnManager.Active() != nil {
		return nil, nil
	}
	txn, err := s.db.txnManager.Begin()
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Begin 由调用方显式开启事务；之后的树操作都会加入该事务
// EN: Begin opens a caller-managed transaction; tree operations join it until the
// caller commits or aborts.
func (s *Store) Begin(ctx context.Context) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.db.txnManager.Begin()
}

// Commit 实现 nestedset.TxManager
func (s *Store) Commit(_ context.Context, tx nestedset.Tx) error {
	txn, err := asTxn(tx)
	if err != nil {
		return err
	}
	return s.db.txnManager.Commit(txn)
}

// Rollback 实现 nestedset.TxManager
func (s *Store) Rollback(_ context.Context, tx nestedset.Tx) error {
	txn, err := asTxn(tx)
	if err != nil {
		return err
	}
	return s.db.txnManager.Abort(txn)
}

func asTxn(tx nestedset.Tx) (*Transaction, error) {
	txn, ok := tx.(*Transaction)
	if !ok || txn == nil {
		return nil, ErrNoSuchTransaction(fmt.Sprintf("unexpected transaction handle %T", tx))
	}
	return txn, nil
}

// filterFromPredicate 将谓词转换为过滤文档；同一字段的多个条件合并为一个操作符文档
func filterFromPredicate(where nestedset.Predicate) bson.D {
	filter := bson.D{}
	index := map[string]int{}
	for _, c := range where {
		var op string
		switch c.Op {
		case nestedset.OpEq:
			op = "$eq"
		case nestedset.OpNe:
			op = "$ne"
		case nestedset.OpGte:
			op = "$gte"
		case nestedset.OpLte:
			op = "$lte"
		}
		i, ok := index[c.Field]
		if !ok {
			index[c.Field] = len(filter)
			filter = append(filter, bson.E{Key: c.Field, Value: bson.D{{Key: op, Value: c.Value}}})
			continue
		}
		ops := filter[i].Value.(bson.D)
		filter[i].Value = append(ops, bson.E{Key: op, Value: c.Value})
	}
	return filter
}

// updateFromAdjustments 将调整转换为 $inc/$set 更新文档
func updateFromAdjustments(adj []nestedset.Adjustment) bson.D {
	inc, set := bson.D{}, bson.D{}
	for _, a := range adj {
		if a.Kind == nestedset.AdjustSet {
			set = append(set, bson.E{Key: a.Field, Value: a.Value})
		} else {
			inc = append(inc, bson.E{Key: a.Field, Value: a.Value})
		}
	}
	update := bson.D{}
	if len(inc) > 0 {
		update = append(update, bson.E{Key: "$inc", Value: inc})
	}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	return update
}

// rowToDoc 按列名排序，保证编码结果稳定
func rowToDoc(row nestedset.Row) bson.D {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: row[k]})
	}
	return doc
}

func docToRow(doc bson.D) nestedset.Row {
	row := make(nestedset.Row, len(doc))
	for _, e := range doc {
		row[e.Key] = e.Value
	}
	return row
}
