// Created by Yanjunhui

package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/monolite/monotree/logging"
	"github.com/monolite/monotree/nestedset"
)

// ErrClosed 存储已关闭
// EN: ErrClosed is returned by every call after Close.
var ErrClosed = errors.New("badgerstore: store is closed")

// ErrNotActive 事务句柄不是当前活动事务
// EN: ErrNotActive is returned when committing or rolling back a handle that is
// not the store's active transaction.
var ErrNotActive = errors.New("badgerstore: transaction is not active")

// errFinished 句柄已经结束（包装 ErrNotActive）
var errFinished = fmt.Errorf("%w: already finished", ErrNotActive)

// sequenceBandwidth 每次从 badger 租用的 id 数量
const sequenceBandwidth = 64

// Store 基于 BadgerDB 的 nestedset.Store 实现
// EN: Store implements nestedset.Store on BadgerDB. A Store models one connection:
// at most one read-write transaction is active at a time, and every call made while
// it is active runs inside it. Outside a transaction each call commits on its own.
type Store struct {
	db  *badger.DB
	log *logging.Logger

	mu     sync.Mutex
	active *Txn
	seqs   map[string]*badger.Sequence
	closed bool

	stopGC chan struct{}
	gcDone chan struct{}
}

// Txn 事务句柄
// EN: Txn is the transaction handle returned by BeginIfNoneActive and Begin.
type Txn struct {
	txn     *badger.Txn
	started time.Time
	done    bool // 已提交、已回滚或随 Close 丢弃 (EN: committed, rolled back or discarded by Close)
}

var _ nestedset.Store = (*Store)(nil)

// Open 打开（必要时创建）数据库
// EN: Open opens or creates the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.NumVersionsToKeep > 0 {
		opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	}

	log := cfg.Logger
	if log == nil {
		log = logging.GetLogger()
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(&badgerLogger{logger: log.WithComponent("BADGER")})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{
		db:   db,
		log:  log.WithComponent("BADGERSTORE"),
		seqs: make(map[string]*badger.Sequence),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// Close 释放 id 序列并关闭数据库；未提交的事务被丢弃
// EN: Close discards any open transaction, releases the id sequences and closes
// the database. Calling it twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.active != nil {
		s.active.txn.Discard()
		s.active.done = true
		s.active = nil
	}
	var errs []error
	for table, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release sequence %s: %w", table, err))
		}
	}
	s.seqs = nil
	s.mu.Unlock()

	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Store) startGC(interval time.Duration, ratio float64) {
	s.stopGC = make(chan struct{})
	s.gcDone = make(chan struct{})
	go func() {
		defer close(s.gcDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopGC:
				return
			case <-ticker.C:
				// ErrNoRewrite 表示无需回收
				if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					s.log.Warn("value log GC failed", map[string]interface{}{"error": err.Error()})
				}
			}
		}
	}()
}

func rowPrefix(table string) []byte {
	return []byte("t/" + table + "/r/")
}

// rowKey id 定长编码，使前缀迭代按 id 有序
func rowKey(table string, id int64) []byte {
	return []byte(fmt.Sprintf("t/%s/r/%020d", table, id))
}

func seqKey(table string) []byte {
	return []byte("t/" + table + "/seq")
}

// read 在活动事务中执行，没有活动事务时使用只读事务
func (s *Store) read(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.active != nil {
		return fn(s.active.txn)
	}
	return s.db.View(fn)
}

// write 在活动事务中执行，没有活动事务时单独提交
func (s *Store) write(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.active != nil {
		return fn(s.active.txn)
	}
	return s.db.Update(fn)
}

type storedRow struct {
	key []byte
	row nestedset.Row
}

// scan 读取表中所有满足谓词的行（先收集再返回，调用方可以在之后写入）
func scan(txn *badger.Txn, table string, where nestedset.Predicate) ([]storedRow, error) {
	prefix := rowPrefix(table)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []storedRow
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		data, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		row, err := decodeRow(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
		}
		if where.Matches(row) {
			out = append(out, storedRow{key: item.KeyCopy(nil), row: row})
		}
	}
	return out, nil
}

func decodeRow(data []byte) (nestedset.Row, error) {
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return nestedset.Row(m), nil
}

func encodeRow(row nestedset.Row) ([]byte, error) {
	return bson.Marshal(bson.M(row))
}

// SelectWhere 实现 nestedset.RowStore
func (s *Store) SelectWhere(ctx context.Context, table string, where nestedset.Predicate) ([]nestedset.Row, error) {
	var rows []nestedset.Row
	err := s.read(ctx, func(txn *badger.Txn) error {
		matched, err := scan(txn, table, where)
		if err != nil {
			return err
		}
		rows = make([]nestedset.Row, len(matched))
		for i, m := range matched {
			rows[i] = m.row
		}
		return nil
	})
	return rows, err
}

// UpdateRange 实现 nestedset.RowStore
func (s *Store) UpdateRange(ctx context.Context, table string, where nestedset.Predicate, adj ...nestedset.Adjustment) (int64, error) {
	var count int64
	err := s.write(ctx, func(txn *badger.Txn) error {
		matched, err := scan(txn, table, where)
		if err != nil {
			return err
		}
		for _, m := range matched {
			for _, a := range adj {
				cur, _ := m.row.Int64(a.Field)
				m.row[a.Field] = a.Apply(cur)
			}
			data, err := encodeRow(m.row)
			if err != nil {
				return err
			}
			if err := txn.Set(m.key, data); err != nil {
				return err
			}
		}
		count = int64(len(matched))
		return nil
	})
	return count, err
}

// DeleteWhere 实现 nestedset.RowStore
func (s *Store) DeleteWhere(ctx context.Context, table string, where nestedset.Predicate) (int64, error) {
	var count int64
	err := s.write(ctx, func(txn *badger.Txn) error {
		matched, err := scan(txn, table, where)
		if err != nil {
			return err
		}
		for _, m := range matched {
			if err := txn.Delete(m.key); err != nil {
				return err
			}
		}
		count = int64(len(matched))
		return nil
	})
	return count, err
}

// InsertRow 实现 nestedset.RowStore；id 列由引擎配置决定，这里固定为 "id"
// EN: InsertRow implements nestedset.RowStore. The generated id is stored in the
// "id" column unless the row already carries one.
func (s *Store) InsertRow(ctx context.Context, table string, fields nestedset.Row) (int64, error) {
	var id int64
	err := s.write(ctx, func(txn *badger.Txn) error {
		row := make(nestedset.Row, len(fields)+1)
		for k, v := range fields {
			row[k] = v
		}
		if given, ok := row.Int64(IDColumn); ok {
			id = given
		} else {
			seq, err := s.sequenceLocked(table)
			if err != nil {
				return err
			}
			next, err := seq.Next()
			if err != nil {
				return err
			}
			id = int64(next) + 1
			row[IDColumn] = id
		}

		key := rowKey(table, id)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("badgerstore: duplicate id %d in table %s", id, table)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := encodeRow(row)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	return id, err
}

// UpdateRow 实现 nestedset.RowStore
func (s *Store) UpdateRow(ctx context.Context, table string, id int64, fields nestedset.Row) (int64, error) {
	var count int64
	err := s.write(ctx, func(txn *badger.Txn) error {
		key := rowKey(table, id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		row, err := decodeRow(data)
		if err != nil {
			return err
		}
		for k, v := range fields {
			if k == IDColumn {
				continue
			}
			row[k] = v
		}
		if data, err = encodeRow(row); err != nil {
			return err
		}
		count = 1
		return txn.Set(key, data)
	})
	return count, err
}

// IDColumn 主键列名
// EN: IDColumn is the primary key column; trees over this store must use it as
// their IDAttribute.
const IDColumn = "id"

// sequenceLocked 获取表的 id 序列（调用方持有 s.mu）
func (s *Store) sequenceLocked(table string) (*badger.Sequence, error) {
	if seq, ok := s.seqs[table]; ok {
		return seq, nil
	}
	seq, err := s.db.GetSequence(seqKey(table), sequenceBandwidth)
	if err != nil {
		return nil, err
	}
	s.seqs[table] = seq
	return seq, nil
}

// BeginIfNoneActive 实现 nestedset.TxManager
func (s *Store) BeginIfNoneActive(ctx context.Context) (nestedset.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.active != nil {
		return nil, nil
	}
	s.active = &Txn{txn: s.db.NewTransaction(true), started: time.Now()}
	return s.active, nil
}

// Begin 由调用方开启事务；之后的树操作加入该事务，由调用方提交或回滚
// EN: Begin opens a caller-managed transaction. Tree operations join it; the caller
// finishes it with Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.active != nil {
		return nil, errors.New("badgerstore: a transaction is already active")
	}
	s.active = &Txn{txn: s.db.NewTransaction(true), started: time.Now()}
	return s.active, nil
}

// Commit 实现 nestedset.TxManager；badger.ErrConflict 原样返回
func (s *Store) Commit(_ context.Context, tx nestedset.Tx) error {
	t, err := s.finish(tx)
	if err != nil {
		return err
	}
	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("transaction committed", map[string]interface{}{
		"durationMs": float64(time.Since(t.started).Microseconds()) / 1000,
	})
	return nil
}

// Rollback 实现 nestedset.TxManager；对已结束的句柄（例如提交失败后）什么也不做
// EN: Rollback implements nestedset.TxManager. Rolling back a handle that already
// finished, e.g. after a failed Commit, is a no-op.
func (s *Store) Rollback(_ context.Context, tx nestedset.Tx) error {
	t, err := s.finish(tx)
	if errors.Is(err, errFinished) {
		return nil
	}
	if err != nil {
		return err
	}
	t.txn.Discard()
	return nil
}

func (s *Store) finish(tx nestedset.Tx) (*Txn, error) {
	t, ok := tx.(*Txn)
	if !ok || t == nil {
		return nil, fmt.Errorf("badgerstore: unexpected transaction handle %T", tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return nil, errFinished
	}
	if s.active != t {
		return nil, ErrNotActive
	}
	t.done = true
	s.active = nil
	return t, nil
}
