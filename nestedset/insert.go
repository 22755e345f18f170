// Created by Yanjunhui

package nestedset

import (
	"context"
)

// Create 将新节点作为根插入
// EN: Create inserts a new node as a root at [1, 2]. In forest mode the root marker
// is the node's own id, written right after the insert. In single-root mode a second
// root is rejected.
func (t *Tree) Create(ctx context.Context, e HasInterval) error {
	n := e.TreeNode()
	if err := t.checkNew(n); err != nil {
		return err
	}

	if !t.cfg.HasManyRoots {
		// 整表检查：单根模式下一张表只有一棵树
		// EN: Table-wide check: single-root mode means one tree per table.
		rows, err := t.store.SelectWhere(ctx, t.table, Predicate{Eq(t.cfg.LeftAttribute, 1)})
		if err != nil {
			return errStorage("check existing root", err)
		}
		if len(rows) > 0 {
			return errInvalidOperation("table %q already has a root; single-root mode allows one", t.table)
		}
	}

	fields := t.attributes(e)
	fields[t.cfg.LeftAttribute] = int64(1)
	fields[t.cfg.RightAttribute] = int64(2)
	fields[t.cfg.LevelAttribute] = t.cfg.RootLevel
	if t.cfg.HasManyRoots {
		fields[t.cfg.RootAttribute] = int64(0)
	}

	var id int64
	err := t.withTx(ctx, "create", func(ctx context.Context) error {
		var err error
		if id, err = t.store.InsertRow(ctx, t.table, fields); err != nil {
			return err
		}
		if t.cfg.HasManyRoots {
			_, err = t.store.UpdateRow(ctx, t.table, id, Row{t.cfg.RootAttribute: id})
		}
		return err
	})
	if err != nil {
		return err
	}

	var root int64
	if t.cfg.HasManyRoots {
		root = id
	}
	n.SetInterval(id, 1, 2, t.cfg.RootLevel, root)
	t.reg.Register(n)
	return nil
}

// InsertRelative 将新节点插入到 target 的相对位置
// EN: InsertRelative inserts a new node next to or under target. The node's row is
// written first with its final interval, then every other boundary >= key in the
// tree moves right by 2.
func (t *Tree) InsertRelative(ctx context.Context, e, target HasInterval, p Placement) error {
	n := e.TreeNode()
	if err := t.checkNew(n); err != nil {
		return err
	}
	tg, err := t.checkTarget(n, target, p)
	if err != nil {
		return err
	}

	key, levelUp := insertionPoint(tg, p)
	level := tg.Level + levelUp
	root := tg.Root

	fields := t.attributes(e)
	fields[t.cfg.LeftAttribute] = key
	fields[t.cfg.RightAttribute] = key + 1
	fields[t.cfg.LevelAttribute] = level
	if t.cfg.HasManyRoots {
		fields[t.cfg.RootAttribute] = root
	}

	var id int64
	err = t.withTx(ctx, "insert", func(ctx context.Context) error {
		var err error
		if id, err = t.store.InsertRow(ctx, t.table, fields); err != nil {
			return err
		}
		return t.shiftLeftRight(ctx, key, 2, t.rootScope(root), Ne(t.cfg.IDAttribute, id))
	})
	if err != nil {
		return err
	}

	n.SetInterval(id, key, key+1, level, root)
	t.reg.Register(n)
	fixed := t.corrector().onInsert(n, key, 2)
	t.metrics.corrected("insert", fixed)
	return nil
}

// PrependTo 作为 target 的第一个子节点插入
// EN: PrependTo inserts the node as target's first child.
func (t *Tree) PrependTo(ctx context.Context, e, target HasInterval) error {
	return t.InsertRelative(ctx, e, target, Prepend)
}

// AppendTo 作为 target 的最后一个子节点插入
// EN: AppendTo inserts the node as target's last child.
func (t *Tree) AppendTo(ctx context.Context, e, target HasInterval) error {
	return t.InsertRelative(ctx, e, target, Append)
}

// InsertBefore 作为 target 的前一个兄弟插入
// EN: InsertBefore inserts the node as target's previous sibling.
func (t *Tree) InsertBefore(ctx context.Context, e, target HasInterval) error {
	return t.InsertRelative(ctx, e, target, Before)
}

// InsertAfter 作为 target 的后一个兄弟插入
// EN: InsertAfter inserts the node as target's next sibling.
func (t *Tree) InsertAfter(ctx context.Context, e, target HasInterval) error {
	return t.InsertRelative(ctx, e, target, After)
}

// checkNew 插入的节点必须是新节点
// EN: checkNew guards against overwriting an already positioned node.
func (t *Tree) checkNew(n *Node) error {
	if n == nil {
		return errInvalidOperation("node is nil")
	}
	if n.IsDeleted() {
		return errAlreadyDeleted("node %d has been deleted", n.ID)
	}
	if !n.IsNew() {
		return errInvalidOperation("node %d is already persisted at [%d,%d]", n.ID, n.Left, n.Right)
	}
	return nil
}

// checkTarget 校验目标节点与放置方式，返回目标节点并将其登记
// EN: checkTarget validates the target and placement and registers the target so
// the corrector keeps it in step.
func (t *Tree) checkTarget(n *Node, target HasInterval, p Placement) (*Node, error) {
	if target == nil {
		return nil, errInvalidOperation("target is nil")
	}
	tg := target.TreeNode()
	if err := t.checkUsable(tg, "target"); err != nil {
		return nil, err
	}
	if n == tg || (!n.IsNew() && n.ID == tg.ID) {
		return nil, errInvalidOperation("node %d cannot be placed relative to itself", tg.ID)
	}
	if !p.valid() {
		return nil, errInvalidOperation("unknown placement %s", p)
	}
	if p.sibling() && tg.IsRoot() {
		return nil, errInvalidOperation("cannot place a node %s root %d", p, tg.ID)
	}
	t.reg.Register(tg)
	return tg, nil
}
