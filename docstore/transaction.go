// Created by Yanjunhui

package docstore

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// 事务状态
const (
	TxnStateActive    = iota // 活跃
	TxnStateCommitted        // 已提交
	TxnStateAborted          // 已中止
)

// TxnID 事务 ID
type TxnID uint64

// Transaction 事务
// 同一时刻一个数据库只有一个活动事务（单连接模型），写操作自动加入该事务
type Transaction struct {
	ID        TxnID
	State     int
	StartTime time.Time

	// 事务操作日志（用于回滚）
	undoLog []UndoRecord
	undoMu  sync.Mutex
}

// UndoRecord 回滚记录
type UndoRecord struct {
	Operation  string // insert, update, delete
	Collection string // 集合名
	DocID      int64  // 文档 id
	OldDoc     bson.D // 原始文档（用于回滚）
}

// TransactionManager 事务管理器
type TransactionManager struct {
	nextTxnID uint64
	active    *Transaction
	mu        sync.Mutex
	db        *Database
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *Database) *TransactionManager {
	return &TransactionManager{db: db}
}

// Begin 开始新事务；已有活动事务时返回错误
func (tm *TransactionManager) Begin() (*Transaction, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.active != nil {
		return nil, ErrBadValue(fmt.Sprintf("transaction %d already in progress", tm.active.ID))
	}
	txn := &Transaction{
		ID:        TxnID(atomic.AddUint64(&tm.nextTxnID, 1)),
		State:     TxnStateActive,
		StartTime: time.Now(),
		undoLog:   make([]UndoRecord, 0),
	}
	tm.active = txn
	return txn, nil
}

// Active 返回当前活动事务，没有则返回 nil
func (tm *TransactionManager) Active() *Transaction {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.active
}

// Commit 提交事务
func (tm *TransactionManager) Commit(txn *Transaction) error {
	if err := tm.finish(txn); err != nil {
		return err
	}

	txn.undoMu.Lock()
	txn.State = TxnStateCommitted
	txn.undoLog = nil
	txn.undoMu.Unlock()
	return nil
}

// Abort 中止事务并回滚
func (tm *TransactionManager) Abort(txn *Transaction) error {
	if err := tm.finish(txn); err != nil {
		return err
	}

	err := tm.rollback(txn)
	if err != nil {
		// 回滚失败，记录错误但继续清理
		tm.db.logger.Error("rollback failed", map[string]interface{}{
			"txnID": txn.ID,
			"error": err.Error(),
		})
	}
	txn.undoMu.Lock()
	txn.State = TxnStateAborted
	txn.undoMu.Unlock()
	return err
}

// finish 将 txn 从活动位置移除
func (tm *TransactionManager) finish(txn *Transaction) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if txn == nil || txn.State != TxnStateActive {
		return ErrNoSuchTransaction("transaction is not active")
	}
	if tm.active != txn {
		return ErrNoSuchTransaction(fmt.Sprintf("transaction %d is not the active transaction", txn.ID))
	}
	tm.active = nil
	return nil
}

// rollback 逆序执行回滚操作
func (tm *TransactionManager) rollback(txn *Transaction) error {
	txn.undoMu.Lock()
	records := txn.undoLog
	txn.undoLog = nil
	txn.undoMu.Unlock()

	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		col := tm.db.GetCollection(record.Collection)
		if col == nil {
			continue
		}
		if err := col.restore(record); err != nil {
			return err
		}
	}

	tm.db.logger.Debug("transaction rolled back", map[string]interface{}{
		"txnID":   txn.ID,
		"records": len(records),
	})
	return nil
}

// AddUndoRecord 添加回滚记录
func (txn *Transaction) AddUndoRecord(rec UndoRecord) {
	txn.undoMu.Lock()
	defer txn.undoMu.Unlock()
	txn.undoLog = append(txn.undoLog, rec)
}

// UndoLen 当前回滚记录数
func (txn *Transaction) UndoLen() int {
	txn.undoMu.Lock()
	defer txn.undoMu.Unlock()
	return len(txn.undoLog)
}
