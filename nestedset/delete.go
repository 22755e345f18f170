// Created by Yanjunhui

package nestedset

import (
	"context"
)

// Delete 删除节点及其全部后代，并合上留下的区间
// EN: Delete removes the node and every descendant, then closes the gap. It returns
// the number of rows removed, which is Width()/2. Every live instance inside the
// removed range is flagged deleted.
func (t *Tree) Delete(ctx context.Context, e HasInterval) (int64, error) {
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return 0, err
	}
	t.reg.Register(n)

	left, right, root := n.Left, n.Right, n.Root
	width := n.Width()
	scope := t.rootScope(root)

	var removed int64
	err := t.withTx(ctx, "delete", func(ctx context.Context) error {
		var where Predicate
		if n.IsLeaf() {
			where = Predicate{Eq(t.cfg.IDAttribute, n.ID)}
		} else {
			where = append(Predicate{Gte(t.cfg.LeftAttribute, left), Lte(t.cfg.RightAttribute, right)}, scope...)
		}
		var err error
		if removed, err = t.store.DeleteWhere(ctx, t.table, where); err != nil {
			return err
		}
		return t.shiftLeftRight(ctx, right+1, -width, scope)
	})
	if err != nil {
		return 0, err
	}

	fixed := t.corrector().onDelete(left, right, root)
	n.markDeleted()
	t.reg.Forget(n)
	t.metrics.corrected("delete", fixed)
	return removed, nil
}
