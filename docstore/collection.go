// Created by Yanjunhui

package docstore

import (
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/monolite/monotree/internal/failpoint"
)

// Collection 文档集合：以 BSON 编码保存，主键为自增整数 id
type Collection struct {
	name    string
	idField string
	db      *Database

	mu     sync.RWMutex
	docs   map[int64][]byte // id -> BSON
	nextID int64
}

// UpdateResult 更新结果
type UpdateResult struct {
	MatchedCount  int64 // 匹配的文档数
	ModifiedCount int64 // 实际修改的文档数
}

func newCollection(db *Database, name, idField string) *Collection {
	return &Collection{
		name:    name,
		idField: idField,
		db:      db,
		docs:    make(map[int64][]byte),
		nextID:  1,
	}
}

// Name 返回集合名称
func (c *Collection) Name() string {
	return c.name
}

// Count 返回文档数量
func (c *Collection) Count() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.docs))
}

// Insert 插入一个文档，返回其 id
// 没有 id 字段时自动分配；已有 id 时必须为整数且不重复
func (c *Collection) Insert(doc bson.D) (int64, error) {
	if err := failpoint.Hit("docstore/insert"); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	doc = copyDoc(doc)
	id, err := c.ensureID(&doc)
	if err != nil {
		return 0, err
	}
	if _, exists := c.docs[id]; exists {
		return 0, ErrDuplicateKey(c.name, id)
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return 0, ErrBadValue(fmt.Sprintf("failed to encode document: %v", err))
	}
	c.docs[id] = data
	c.db.recordUndo(UndoRecord{Operation: "insert", Collection: c.name, DocID: id})
	return id, nil
}

// ensureID 读取或分配 id（id 放在文档首位）
func (c *Collection) ensureID(doc *bson.D) (int64, error) {
	if v, ok := lookup(*doc, c.idField); ok {
		id, ok := toInt64(v)
		if !ok {
			return 0, ErrTypeMismatch(fmt.Sprintf("%s must be an integer, got %T", c.idField, v))
		}
		if id >= c.nextID {
			c.nextID = id + 1
		}
		setField(doc, c.idField, id)
		return id, nil
	}
	id := c.nextID
	c.nextID++
	*doc = append(bson.D{{Key: c.idField, Value: id}}, *doc...)
	return id, nil
}

// Find 查询匹配的文档，按 id 升序返回副本
func (c *Collection) Find(filter bson.D) ([]bson.D, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]bson.D, 0)
	for _, id := range c.sortedIDs() {
		doc, err := decode(c.docs[id])
		if err != nil {
			return nil, err
		}
		ok, err := matchesFilter(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// FindByID 按 id 读取文档；不存在时返回 nil
func (c *Collection) FindByID(id int64) (bson.D, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.docs[id]
	if !ok {
		return nil, nil
	}
	return decode(data)
}

// Update 对所有匹配文档应用更新操作符
// 先在副本上计算全部结果，全部成功后才写回，因此一次调用要么全部生效要么全不生效
func (c *Collection) Update(filter bson.D, update bson.D) (*UpdateResult, error) {
	if err := failpoint.Hit("docstore/update"); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	type change struct {
		id   int64
		old  bson.D
		data []byte
	}
	result := &UpdateResult{}
	var changes []change

	for _, id := range c.sortedIDs() {
		doc, err := decode(c.docs[id])
		if err != nil {
			return nil, err
		}
		ok, err := matchesFilter(doc, filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		result.MatchedCount++

		updated := copyDoc(doc)
		if err := applyUpdate(&updated, update); err != nil {
			return nil, err
		}
		if v, _ := lookup(updated, c.idField); compareValues(v, id) != 0 {
			return nil, ErrBadValue(fmt.Sprintf("cannot modify %s", c.idField))
		}
		data, err := bson.Marshal(updated)
		if err != nil {
			return nil, ErrBadValue(fmt.Sprintf("failed to encode document: %v", err))
		}
		if string(data) == string(c.docs[id]) {
			continue
		}
		changes = append(changes, change{id: id, old: doc, data: data})
	}

	for _, ch := range changes {
		c.docs[ch.id] = ch.data
		c.db.recordUndo(UndoRecord{Operation: "update", Collection: c.name, DocID: ch.id, OldDoc: ch.old})
	}
	result.ModifiedCount = int64(len(changes))
	return result, nil
}

// Delete 删除所有匹配文档，返回删除数量
func (c *Collection) Delete(filter bson.D) (int64, error) {
	if err := failpoint.Hit("docstore/delete"); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	type victim struct {
		id  int64
		old bson.D
	}
	var victims []victim
	for _, id := range c.sortedIDs() {
		doc, err := decode(c.docs[id])
		if err != nil {
			return 0, err
		}
		ok, err := matchesFilter(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			victims = append(victims, victim{id: id, old: doc})
		}
	}

	for _, v := range victims {
		delete(c.docs, v.id)
		c.db.recordUndo(UndoRecord{Operation: "delete", Collection: c.name, DocID: v.id, OldDoc: v.old})
	}
	return int64(len(victims)), nil
}

// restore 回滚使用：不经过 failpoint，也不记录 undo
func (c *Collection) restore(rec UndoRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch rec.Operation {
	case "insert":
		delete(c.docs, rec.DocID)
	case "update", "delete":
		data, err := bson.Marshal(rec.OldDoc)
		if err != nil {
			return err
		}
		c.docs[rec.DocID] = data
	default:
		return NewStoreError(ErrorCodeInternalError, fmt.Sprintf("unknown undo operation %q", rec.Operation))
	}
	return nil
}

func (c *Collection) sortedIDs() []int64 {
	ids := make([]int64, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func decode(data []byte) (bson.D, error) {
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, NewStoreError(ErrorCodeInternalError, fmt.Sprintf("corrupt document: %v", err))
	}
	return doc, nil
}

// copyDoc 浅拷贝顶层字段
func copyDoc(doc bson.D) bson.D {
	out := make(bson.D, len(doc))
	copy(out, doc)
	return out
}
