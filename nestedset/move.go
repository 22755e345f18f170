// Created by Yanjunhui

package nestedset

import (
	"context"
)

// Move 将已存在的节点（连同子树）移动到 target 的相对位置
// EN: Move relocates a persisted node and its subtree relative to target. Inside one
// tree this is the three-region shift; across trees (forest mode) the subtree is
// re-homed into the target's tree.
func (t *Tree) Move(ctx context.Context, e, target HasInterval, p Placement) error {
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return err
	}
	tg, err := t.checkTarget(n, target, p)
	if err != nil {
		return err
	}
	if tg.IsDescendantOf(n, t.cfg.HasManyRoots) {
		return errInvalidOperation("cannot move node %d into its own descendant %d", n.ID, tg.ID)
	}
	t.reg.Register(n)

	key, levelUp := insertionPoint(tg, p)
	levelDelta := tg.Level + levelUp - n.Level

	if t.cfg.HasManyRoots && n.Root != tg.Root {
		return t.moveAcross(ctx, "move", n, key, levelDelta, tg.Root, true)
	}
	return t.moveWithin(ctx, n, key, levelDelta)
}

// moveWithin 同一棵树内的移动：开口、搬移子树、调整层级、合口
// EN: moveWithin opens a gap at key, slides the subtree into it, adjusts its levels
// and closes the gap left at the old position.
func (t *Tree) moveWithin(ctx context.Context, n *Node, key, levelDelta int64) error {
	left, right, root := n.Left, n.Right, n.Root
	width := n.Width()
	scope := t.rootScope(root)

	// 开口之后子树的位置
	// EN: Subtree position once the gap is open.
	l, r := left, right
	if l >= key {
		l += width
		r += width
	}

	err := t.withTx(ctx, "move", func(ctx context.Context) error {
		if err := t.shiftLeftRight(ctx, key, width, scope); err != nil {
			return err
		}

		subtree := append(Predicate{Gte(t.cfg.LeftAttribute, l), Lte(t.cfg.RightAttribute, r)}, scope...)
		if levelDelta != 0 {
			if _, err := t.store.UpdateRange(ctx, t.table, subtree, Add(t.cfg.LevelAttribute, levelDelta)); err != nil {
				return err
			}
		}

		for _, attr := range []string{t.cfg.LeftAttribute, t.cfg.RightAttribute} {
			where := append(Predicate{Gte(attr, l), Lte(attr, r)}, scope...)
			if _, err := t.store.UpdateRange(ctx, t.table, where, Add(attr, key-l)); err != nil {
				return err
			}
		}

		return t.shiftLeftRight(ctx, r+1, -width, scope)
	})
	if err != nil {
		return err
	}

	fixed := t.corrector().onMove(left, right, root, key, levelDelta)
	t.metrics.corrected("move", fixed)
	return nil
}

// moveAcross 跨树移动（森林模式）：目标树开口、子树换根、源树合口。
// openGap 为 false 时目标是一棵新树（MoveAsRoot）。
// EN: moveAcross re-homes the subtree into dstRoot at key: open a gap in the
// destination tree, rewrite the subtree's interval, level and root marker, then close
// the gap in the source tree. openGap is false when the destination is a brand new
// tree rooted at the node itself.
func (t *Tree) moveAcross(ctx context.Context, op string, n *Node, key, levelDelta, dstRoot int64, openGap bool) error {
	left, right, srcRoot := n.Left, n.Right, n.Root
	width := n.Width()
	offset := key - left

	err := t.withTx(ctx, op, func(ctx context.Context) error {
		if openGap {
			if err := t.shiftLeftRight(ctx, key, width, t.rootScope(dstRoot)); err != nil {
				return err
			}
		}

		subtree := Predicate{
			Eq(t.cfg.RootAttribute, srcRoot),
			Gte(t.cfg.LeftAttribute, left),
			Lte(t.cfg.RightAttribute, right),
		}
		_, err := t.store.UpdateRange(ctx, t.table, subtree,
			Add(t.cfg.LeftAttribute, offset),
			Add(t.cfg.RightAttribute, offset),
			Add(t.cfg.LevelAttribute, levelDelta),
			Set(t.cfg.RootAttribute, dstRoot),
		)
		if err != nil {
			return err
		}

		return t.shiftLeftRight(ctx, right+1, -width, t.rootScope(srcRoot))
	})
	if err != nil {
		return err
	}

	fixed := t.corrector().onCrossTreeMove(left, right, srcRoot, key, levelDelta, dstRoot, openGap)
	t.metrics.corrected(op, fixed)
	return nil
}

// MoveAsRoot 将节点（连同子树）分离为一棵新树的根，仅多根模式可用
// EN: MoveAsRoot detaches the node with its subtree and makes it the root of a new
// tree whose root marker is the node's id. Forest mode only. The new root's level is
// Config.RootLevel.
func (t *Tree) MoveAsRoot(ctx context.Context, e HasInterval) error {
	if !t.cfg.HasManyRoots {
		return errConfiguration("MoveAsRoot requires forest mode (HasManyRoots)")
	}
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return err
	}
	if n.IsRoot() {
		return errInvalidOperation("node %d is already a root", n.ID)
	}
	t.reg.Register(n)

	return t.moveAcross(ctx, "make-root", n, 1, t.cfg.RootLevel-n.Level, n.ID, false)
}

// MoveBefore 移动为 target 的前一个兄弟
// EN: MoveBefore moves the node to be target's previous sibling.
func (t *Tree) MoveBefore(ctx context.Context, e, target HasInterval) error {
	return t.Move(ctx, e, target, Before)
}

// MoveAfter 移动为 target 的后一个兄弟
// EN: MoveAfter moves the node to be target's next sibling.
func (t *Tree) MoveAfter(ctx context.Context, e, target HasInterval) error {
	return t.Move(ctx, e, target, After)
}

// MoveAsFirst 移动为 target 的第一个子节点
// EN: MoveAsFirst moves the node to be target's first child.
func (t *Tree) MoveAsFirst(ctx context.Context, e, target HasInterval) error {
	return t.Move(ctx, e, target, Prepend)
}

// MoveAsLast 移动为 target 的最后一个子节点
// EN: MoveAsLast moves the node to be target's last child.
func (t *Tree) MoveAsLast(ctx context.Context, e, target HasInterval) error {
	return t.Move(ctx, e, target, Append)
}
