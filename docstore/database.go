// Created by Yanjunhui

package docstore

import (
	"sort"
	"sync"

	"github.com/monolite/monotree/logging"
)

// Database 内存文档数据库：一组集合加一个事务管理器
// EN: Database is an in-memory document database: a set of collections plus one
// transaction manager. Documents are kept BSON-encoded, so readers never share
// memory with the stored copy.
type Database struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	idField     string
	txnManager  *TransactionManager
	logger      *logging.Logger
}

// Options 数据库选项
// EN: Options configures a Database.
type Options struct {
	// IDField 主键字段名，默认 "id"
	// EN: IDField names the integer primary key column, "id" by default.
	IDField string
	Logger  *logging.Logger
}

// NewDatabase 创建内存数据库
// EN: NewDatabase creates an empty in-memory database.
func NewDatabase(opts *Options) *Database {
	db := &Database{
		collections: make(map[string]*Collection),
		idField:     "id",
		logger:      logging.GetLogger(),
	}
	if opts != nil {
		if opts.IDField != "" {
			db.idField = opts.IDField
		}
		if opts.Logger != nil {
			db.logger = opts.Logger
		}
	}
	db.logger = db.logger.WithComponent("DOCSTORE")
	db.txnManager = NewTransactionManager(db)
	return db
}

// Collection 获取集合，不存在时创建
// EN: Collection returns the named collection, creating it on first use.
func (db *Database) Collection(name string) *Collection {
	db.mu.Lock()
	defer db.mu.Unlock()
	col, ok := db.collections[name]
	if !ok {
		col = newCollection(db, name, db.idField)
		db.collections[name] = col
	}
	return col
}

// GetCollection 获取已存在的集合，不存在返回 nil
// EN: GetCollection returns an existing collection or nil.
func (db *Database) GetCollection(name string) *Collection {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.collections[name]
}

// DropCollection 删除集合
// EN: DropCollection removes a collection and its documents. It is not transactional.
func (db *Database) DropCollection(name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.collections, name)
}

// ListCollections 列出集合名称
// EN: ListCollections returns the collection names in order.
func (db *Database) ListCollections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TxnManager 返回事务管理器
// EN: TxnManager returns the transaction manager.
func (db *Database) TxnManager() *TransactionManager {
	return db.txnManager
}

// recordUndo 当前有活动事务时记录回滚信息
func (db *Database) recordUndo(rec UndoRecord) {
	if txn := db.txnManager.Active(); txn != nil {
		txn.AddUndoRecord(rec)
	}
}
