// Created by Yanjunhui

package nestedset

import (
	"context"
	"fmt"
	"strings"
)

// Row 一行原始数据（列名 -> 值）
// EN: Row is one raw row, column name to value.
type Row map[string]any

// Int64 读取整数列，兼容存储层返回的各种数字类型
// EN: Int64 reads an integer column, accepting whatever numeric type the store returns.
func (r Row) Int64(field string) (int64, bool) {
	switch v := r[field].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

// Op 比较操作符
// EN: Op is a comparison operator in a Cond.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpGte
	OpLte
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Cond 单个条件 field op value
// EN: Cond is a single "field op value" condition.
type Cond struct {
	Field string
	Op    Op
	Value int64
}

// Eq, Ne, Gte, Lte 构造条件
// EN: Condition constructors.
func Eq(field string, v int64) Cond  { return Cond{Field: field, Op: OpEq, Value: v} }
func Ne(field string, v int64) Cond  { return Cond{Field: field, Op: OpNe, Value: v} }
func Gte(field string, v int64) Cond { return Cond{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v int64) Cond { return Cond{Field: field, Op: OpLte, Value: v} }

// Match 判断整数值是否满足条件
// EN: Match reports whether v satisfies the condition.
func (c Cond) Match(v int64) bool {
	switch c.Op {
	case OpEq:
		return v == c.Value
	case OpNe:
		return v != c.Value
	case OpGte:
		return v >= c.Value
	case OpLte:
		return v <= c.Value
	}
	return false
}

// Predicate 条件的合取（AND）；空谓词匹配所有行
// EN: Predicate is a conjunction of conditions; an empty predicate matches every row.
type Predicate []Cond

// Matches 判断一行是否满足谓词；缺失的列视为不匹配
// EN: Matches evaluates the predicate against a row. Missing columns never match.
func (p Predicate) Matches(row Row) bool {
	for _, c := range p {
		v, ok := row.Int64(c.Field)
		if !ok || !c.Match(v) {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = fmt.Sprintf("%s %s %d", c.Field, c.Op, c.Value)
	}
	return strings.Join(parts, " AND ")
}

// AdjustKind 字段调整方式
// EN: AdjustKind says whether an Adjustment adds to a field or overwrites it.
type AdjustKind int

const (
	AdjustAdd AdjustKind = iota
	AdjustSet
)

// Adjustment 对匹配行的单个字段调整
// EN: Adjustment is one field change applied to every matching row.
type Adjustment struct {
	Field string
	Kind  AdjustKind
	Value int64
}

// Add 构造增量调整
// EN: Add builds "field = field + n".
func Add(field string, n int64) Adjustment {
	return Adjustment{Field: field, Kind: AdjustAdd, Value: n}
}

// Set 构造赋值调整
// EN: Set builds "field = v".
func Set(field string, v int64) Adjustment {
	return Adjustment{Field: field, Kind: AdjustSet, Value: v}
}

// Apply 计算调整后的值
// EN: Apply returns the adjusted value.
func (a Adjustment) Apply(current int64) int64 {
	if a.Kind == AdjustSet {
		return a.Value
	}
	return current + a.Value
}

// RowStore 行存储协作者接口。方言、序列化都由实现负责。
// EN: RowStore is the persistent row store the engine drives. Dialect and
// serialization concerns belong to the implementation.
type RowStore interface {
	SelectWhere(ctx context.Context, table string, where Predicate) ([]Row, error)
	// UpdateRange 对所有匹配行原子地应用调整，返回受影响行数
	// EN: UpdateRange applies adj atomically to every matching row and returns the count.
	UpdateRange(ctx context.Context, table string, where Predicate, adj ...Adjustment) (int64, error)
	DeleteWhere(ctx context.Context, table string, where Predicate) (int64, error)
	// InsertRow 插入一行并返回存储生成的 id
	// EN: InsertRow inserts a row and returns the id generated by storage.
	InsertRow(ctx context.Context, table string, fields Row) (int64, error)
	UpdateRow(ctx context.Context, table string, id int64, fields Row) (int64, error)
}

// Tx 不透明的事务句柄
// EN: Tx is an opaque transaction handle.
type Tx interface{}

// TxManager 事务管理协作者接口
// EN: TxManager is the transaction collaborator.
type TxManager interface {
	// BeginIfNoneActive 无活动事务时开启事务；已有外部事务时返回 nil 句柄，
	// 此时引擎既不提交也不回滚。
	// EN: BeginIfNoneActive starts a transaction unless one is already active. A nil
	// handle means the caller owns the transaction; the engine then neither commits
	// nor rolls back.
	BeginIfNoneActive(ctx context.Context) (Tx, error)
	Commit(ctx context.Context, tx Tx) error
	Rollback(ctx context.Context, tx Tx) error
}

// Store 引擎需要的全部存储能力
// EN: Store is everything the engine needs from storage.
type Store interface {
	RowStore
	TxManager
}

// HasAttributes 实体可选实现：插入/保存时附带的非树字段
// EN: HasAttributes is implemented by entities that carry non-tree columns to be
// written on insert and Save.
type HasAttributes interface {
	Attributes() Row
}
