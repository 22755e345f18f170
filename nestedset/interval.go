// Created by Yanjunhui

package nestedset

import (
	"fmt"
	"strings"
)

// Placement 相对目标节点的放置方式
// EN: Placement says where a node goes relative to a target node.
type Placement int

const (
	// Prepend 作为目标的第一个子节点
	// EN: Prepend makes the node the target's first child.
	Prepend Placement = iota
	// Append 作为目标的最后一个子节点
	// EN: Append makes the node the target's last child.
	Append
	// Before 作为目标的前一个兄弟
	// EN: Before makes the node the target's previous sibling.
	Before
	// After 作为目标的后一个兄弟
	// EN: After makes the node the target's next sibling.
	After
)

var placementNames = map[Placement]string{
	Prepend: "prepend",
	Append:  "append",
	Before:  "before",
	After:   "after",
}

func (p Placement) String() string {
	if name, ok := placementNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Placement(%d)", int(p))
}

// ParsePlacement 解析放置方式名称
// EN: ParsePlacement parses "prepend", "append", "before" or "after".
func ParsePlacement(s string) (Placement, error) {
	for p, name := range placementNames {
		if strings.EqualFold(name, s) {
			return p, nil
		}
	}
	return 0, errInvalidOperation("unknown placement %q", s)
}

func (p Placement) valid() bool {
	_, ok := placementNames[p]
	return ok
}

// sibling 放置为兄弟（不改变层级）
// EN: sibling reports whether the placement keeps the target's level.
func (p Placement) sibling() bool {
	return p == Before || p == After
}

// insertionPoint 计算插入键与层级增量
// EN: insertionPoint returns the boundary where the node's interval will start and
// the level offset relative to the target.
func insertionPoint(target *Node, p Placement) (key int64, levelUp int64) {
	switch p {
	case Prepend:
		return target.Left + 1, 1
	case Append:
		return target.Right, 1
	case Before:
		return target.Left, 0
	default:
		return target.Right + 1, 0
	}
}

// Delta 一次区间平移：rootScope 内所有 >= Key 的边界加上 Delta
// EN: Delta is one range shift: every boundary >= Key inside the root scope
// moves by Delta.
type Delta struct {
	Key   int64
	Delta int64
	// Root 为 nil 表示单根模式下的整表
	// EN: Root nil means the whole table (single-root mode).
	Root *int64
}

// shiftBoundary 对单个边界值应用平移
// EN: shiftBoundary applies the delta to one boundary value.
func (d Delta) shiftBoundary(v int64) int64 {
	if v >= d.Key {
		return v + d.Delta
	}
	return v
}

// inScope 节点是否落在平移的根范围内
func (d Delta) inScope(n *Node) bool {
	return d.Root == nil || n.Root == *d.Root
}

// apply 将平移应用到一个缓存节点，返回是否发生变化
// EN: apply shifts a cached node's boundaries; it reports whether anything changed.
func (d Delta) apply(n *Node) bool {
	if !d.inScope(n) {
		return false
	}
	left, right := d.shiftBoundary(n.Left), d.shiftBoundary(n.Right)
	changed := left != n.Left || right != n.Right
	n.Left, n.Right = left, right
	return changed
}

func (d Delta) String() string {
	if d.Root == nil {
		return fmt.Sprintf(">=%d by %+d", d.Key, d.Delta)
	}
	return fmt.Sprintf(">=%d by %+d in root %d", d.Key, d.Delta, *d.Root)
}
