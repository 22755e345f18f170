// Created by Yanjunhui

package nestedset

// corrector 在一次变更提交后，把同样的区间运算应用到内存中的其他节点实例上，
// 使其与存储保持一致而无需重新读取。
// EN: corrector replays a committed mutation's arithmetic on every live instance in
// the registry so open object graphs match storage without a re-read. Each method
// mirrors the storage updates step by step, evaluating the same conditions against
// the instance's cached fields; the results are identical to re-reading the rows.
type corrector struct {
	reg    *Registry
	forest bool
}

// scope 返回平移的根范围；单根模式为 nil（整表）
// EN: scope returns the root scope of a shift, nil in single-root mode.
func (c corrector) scope(root int64) *int64 {
	if !c.forest {
		return nil
	}
	r := root
	return &r
}

func (c corrector) sameRoot(n *Node, root int64) bool {
	return !c.forest || n.Root == root
}

// onInsert 新节点 inserted 占据 [key, key+1] 后，其他实例中 >= key 的边界 +width
// EN: onInsert shifts every other instance's boundaries >= key by width after
// inserted took [key, key+1].
func (c corrector) onInsert(inserted *Node, key, width int64) int {
	shift := Delta{Key: key, Delta: width, Root: c.scope(inserted.Root)}
	corrected := 0
	for _, n := range c.reg.live() {
		if n == inserted || n.ID == inserted.ID {
			continue
		}
		if shift.apply(n) {
			corrected++
		}
	}
	return corrected
}

// onDelete 区间 [left, right] 被删除：被包含的实例标记为已删除，其余平移 -width
// EN: onDelete flags every instance inside [left, right] deleted and closes the gap
// for the rest.
func (c corrector) onDelete(left, right, root int64) int {
	width := right - left + 1
	closeGap := Delta{Key: right + 1, Delta: -width, Root: c.scope(root)}
	corrected := 0
	for _, n := range c.reg.live() {
		if !c.sameRoot(n, root) {
			continue
		}
		if n.within(left, right) {
			n.markDeleted()
			c.reg.Forget(n)
			corrected++
			continue
		}
		if closeGap.apply(n) {
			corrected++
		}
	}
	return corrected
}

// onMove 同一棵树内移动子树 [left, right] 到 key，层级变化 levelDelta
// EN: onMove mirrors a same-tree move of subtree [left, right] to key: open a gap,
// relocate the subtree, adjust its levels, close the old gap.
func (c corrector) onMove(left, right, root, key, levelDelta int64) int {
	width := right - left + 1
	scope := c.scope(root)
	open := Delta{Key: key, Delta: width, Root: scope}

	l, r := left, right
	if l >= key {
		l += width
		r += width
	}
	offset := key - l
	closeGap := Delta{Key: r + 1, Delta: -width, Root: scope}

	corrected := 0
	for _, n := range c.reg.live() {
		if !c.sameRoot(n, root) {
			continue
		}
		before := *n

		open.apply(n)
		if n.within(l, r) {
			n.Level += levelDelta
		}
		if n.Left >= l && n.Left <= r {
			n.Left += offset
		}
		if n.Right >= l && n.Right <= r {
			n.Right += offset
		}
		closeGap.apply(n)

		if n.Left != before.Left || n.Right != before.Right || n.Level != before.Level {
			corrected++
		}
	}
	return corrected
}

// onCrossTreeMove 子树 [left, right] 从 srcRoot 移到 dstRoot 的 key 处
// EN: onCrossTreeMove mirrors moving subtree [left, right] of srcRoot into dstRoot at
// key. openGap is false when the destination tree is brand new (make-root).
func (c corrector) onCrossTreeMove(left, right, srcRoot, key, levelDelta, dstRoot int64, openGap bool) int {
	width := right - left + 1
	open := Delta{Key: key, Delta: width, Root: &dstRoot}
	closeGap := Delta{Key: right + 1, Delta: -width, Root: &srcRoot}
	offset := key - left

	corrected := 0
	for _, n := range c.reg.live() {
		before := *n

		if openGap {
			open.apply(n)
		}
		if n.Root == srcRoot && n.within(left, right) {
			n.Left += offset
			n.Right += offset
			n.Level += levelDelta
			n.Root = dstRoot
		}
		closeGap.apply(n)

		if n.Left != before.Left || n.Right != before.Right || n.Level != before.Level || n.Root != before.Root {
			corrected++
		}
	}
	return corrected
}
