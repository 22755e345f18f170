// Created by Yanjunhui

package nestedset

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/monolite/monotree/logging"
)

// Tree 一张表上的嵌套集合树（或森林）
// EN: Tree drives nested-set mutations for one table through a Store. It is not safe
// for concurrent use; open one handle per request and share a Session between handles
// that must see each other's changes.
type Tree struct {
	store   Store
	table   string
	cfg     Config
	reg     *Registry
	log     *logging.Logger
	metrics *Metrics
	session uuid.UUID
}

// Option 树的构造选项
// EN: Option configures a Tree.
type Option func(*Tree)

// WithConfig 设置表布局与模式
// EN: WithConfig sets the table layout and tree mode.
func WithConfig(cfg Config) Option {
	return func(t *Tree) { t.cfg = cfg }
}

// WithRegistry 使用给定的注册表（通常来自 Session）
// EN: WithRegistry shares a live-node registry, usually a Session's.
func WithRegistry(reg *Registry) Option {
	return func(t *Tree) { t.reg = reg }
}

// WithLogger 设置日志器
// EN: WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tree) { t.log = l }
}

// WithMetrics 设置指标
// EN: WithMetrics sets the prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(t *Tree) { t.metrics = m }
}

func withSession(id uuid.UUID) Option {
	return func(t *Tree) { t.session = id }
}

// New 创建树句柄
// EN: New opens a tree handle over store for table.
func New(store Store, table string, opts ...Option) (*Tree, error) {
	if store == nil {
		return nil, errConfiguration("store is required")
	}
	if table == "" {
		return nil, errConfiguration("table name is required")
	}
	t := &Tree{
		store: store,
		table: table,
		cfg:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}
	if t.reg == nil {
		t.reg = NewRegistry(table)
	} else if t.reg.Table() != table {
		return nil, errConfiguration("registry belongs to table %q, not %q", t.reg.Table(), table)
	}
	if t.log == nil {
		t.log = logging.GetLogger()
	}
	t.log = t.log.WithComponent("NESTEDSET")
	if t.cfg.SlowMutationThreshold > 0 {
		t.log.SetSlowThreshold(t.cfg.SlowMutationThreshold)
	}
	return t, nil
}

// Table 返回表名
// EN: Table returns the table name.
func (t *Tree) Table() string { return t.table }

// Config 返回配置
// EN: Config returns the tree configuration.
func (t *Tree) Config() Config { return t.cfg }

// Registry 返回活动节点注册表
// EN: Registry returns the live-node registry.
func (t *Tree) Registry() *Registry { return t.reg }

func (t *Tree) corrector() corrector {
	return corrector{reg: t.reg, forest: t.cfg.HasManyRoots}
}

// withTx 在事务中执行一次变更：无外部事务时自己开启并负责提交/回滚。
// 失败时先回滚再返回原始错误（包装为 StorageFailure）。
// EN: withTx runs one mutation inside a transaction. When the store reports a
// caller-managed transaction (nil handle) the engine joins it and leaves the
// commit/rollback decision to the caller. Any failure rolls back first and then
// surfaces the original error.
func (t *Tree) withTx(ctx context.Context, op string, fn func(ctx context.Context) error) (err error) {
	start := time.Now()
	defer func() {
		d := time.Since(start)
		var logCtx map[string]interface{}
		if t.session != uuid.Nil {
			logCtx = map[string]interface{}{"session": t.session.String()}
		}
		t.log.LogMutation(op, t.table, d, err, logCtx)
		t.metrics.observe(op, d, err)
	}()

	tx, err := t.store.BeginIfNoneActive(ctx)
	if err != nil {
		return errStorage("begin transaction", err)
	}

	rollback := func(cause error) {
		if tx == nil {
			return
		}
		if rbErr := t.store.Rollback(ctx, tx); rbErr != nil {
			t.log.Error("rollback failed", map[string]interface{}{
				"table": t.table,
				"op":    op,
				"cause": cause.Error(),
				"error": rbErr.Error(),
			})
			return
		}
		t.log.Warn("mutation rolled back", map[string]interface{}{
			"table": t.table,
			"op":    op,
			"cause": cause.Error(),
		})
	}

	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("panic: %v", r)
			rollback(cause)
			// 重新抛出前记录失败，日志与指标不能记为成功
			// EN: Record the failure for the log and metrics hook before re-panicking.
			err = errStorage(op, cause)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		rollback(err)
		return errStorage(op, err)
	}

	if tx != nil {
		if err := t.store.Commit(ctx, tx); err != nil {
			rollback(err)
			return errStorage("commit "+op, err)
		}
	}
	return nil
}

// rootScope 多根模式下限定到某棵树的条件
// EN: rootScope returns the condition that keeps a statement inside one tree.
func (t *Tree) rootScope(root int64) Predicate {
	if !t.cfg.HasManyRoots {
		return nil
	}
	return Predicate{Eq(t.cfg.RootAttribute, root)}
}

// shiftLeftRight 将 scope 内所有 >= key 的 left/right 加 delta（两条语句，分别针对左右边界）
// EN: shiftLeftRight moves every left and right boundary >= key by delta within
// scope. It issues one statement per boundary column; touching zero rows is fine.
func (t *Tree) shiftLeftRight(ctx context.Context, key, delta int64, scope Predicate, extra ...Cond) error {
	for _, attr := range []string{t.cfg.LeftAttribute, t.cfg.RightAttribute} {
		where := append(Predicate{Gte(attr, key)}, scope...)
		where = append(where, extra...)
		if _, err := t.store.UpdateRange(ctx, t.table, where, Add(attr, delta)); err != nil {
			return err
		}
	}
	return nil
}

// attributes 合并实体的非树字段（树字段由引擎写入）
// EN: attributes collects the entity's non-tree columns; tree columns are the
// engine's to write.
func (t *Tree) attributes(e HasInterval) Row {
	n := e.TreeNode()
	out := Row{}
	for k, v := range n.Attrs {
		if !t.cfg.isTreeColumn(k) {
			out[k] = v
		}
	}
	if ha, ok := e.(HasAttributes); ok {
		for k, v := range ha.Attributes() {
			if !t.cfg.isTreeColumn(k) {
				out[k] = v
			}
		}
	}
	return out
}

// hydrate 将一行数据转为已登记的节点实例
// EN: hydrate turns a row into a registered node instance.
func (t *Tree) hydrate(row Row) (*Node, error) {
	n, err := t.rowToNode(row)
	if err != nil {
		return nil, errStorage("hydrate", err)
	}
	n.Attrs = Row{}
	for k, v := range row {
		if !t.cfg.isTreeColumn(k) {
			n.Attrs[k] = v
		}
	}
	t.reg.Register(n)
	return n, nil
}

// selectNodes 查询并按 left（多根模式先按 root）排序
// EN: selectNodes runs a query and returns hydrated nodes ordered by root, then left.
func (t *Tree) selectNodes(ctx context.Context, where Predicate) ([]*Node, error) {
	rows, err := t.store.SelectWhere(ctx, t.table, where)
	if err != nil {
		return nil, errStorage("select", err)
	}
	nodes := make([]*Node, 0, len(rows))
	for _, row := range rows {
		n, err := t.hydrate(row)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Root != nodes[j].Root {
			return nodes[i].Root < nodes[j].Root
		}
		return nodes[i].Left < nodes[j].Left
	})
	return nodes, nil
}

// Load 按 id 读取节点
// EN: Load reads one node by id.
func (t *Tree) Load(ctx context.Context, id int64) (*Node, error) {
	nodes, err := t.selectNodes(ctx, Predicate{Eq(t.cfg.IDAttribute, id)})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errNodeNotFound(id)
	}
	return nodes[0], nil
}

// Refresh 从存储重新读取节点区间；行已不存在时标记为已删除
// EN: Refresh re-reads the node's interval from storage. A vanished row flags the
// node deleted and returns AlreadyDeleted.
func (t *Tree) Refresh(ctx context.Context, e HasInterval) error {
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return err
	}
	rows, err := t.store.SelectWhere(ctx, t.table, Predicate{Eq(t.cfg.IDAttribute, n.ID)})
	if err != nil {
		return errStorage("refresh", err)
	}
	if len(rows) == 0 {
		n.markDeleted()
		t.reg.Forget(n)
		return errAlreadyDeleted("node %d no longer exists", n.ID)
	}
	row := rows[0]
	n.Left, _ = row.Int64(t.cfg.LeftAttribute)
	n.Right, _ = row.Int64(t.cfg.RightAttribute)
	n.Level, _ = row.Int64(t.cfg.LevelAttribute)
	if t.cfg.HasManyRoots {
		n.Root, _ = row.Int64(t.cfg.RootAttribute)
	}
	t.reg.Register(n)
	return nil
}

// Save 只更新非树字段，不改变树结构
// EN: Save writes the entity's non-tree columns without touching the tree structure.
func (t *Tree) Save(ctx context.Context, e HasInterval) error {
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return err
	}
	fields := t.attributes(e)
	if len(fields) == 0 {
		return nil
	}
	return t.withTx(ctx, "save", func(ctx context.Context) error {
		_, err := t.store.UpdateRow(ctx, t.table, n.ID, fields)
		return err
	})
}

// checkUsable 节点必须已持久化且未删除
// EN: checkUsable requires a persisted, non-deleted node.
func (t *Tree) checkUsable(n *Node, role string) error {
	if n == nil {
		return errInvalidOperation("%s is nil", role)
	}
	if n.IsDeleted() {
		return errAlreadyDeleted("%s %d has been deleted", role, n.ID)
	}
	if n.IsNew() {
		return errInvalidOperation("%s is not persisted", role)
	}
	return nil
}
