// Created by Yanjunhui

package nestedset

import "fmt"

// 节点生命周期状态
// EN: Node lifecycle states.
type nodeState int

const (
	stateNew       nodeState = iota // 尚未持久化 (EN: not yet persisted)
	statePersisted                  // 已持久化 (EN: persisted)
	stateDeleted                    // 已删除，不可再用 (EN: deleted, unusable)
)

// Node 一个树节点的区间编码 (left, right, level, root)
// EN: Node is the interval encoding of one tree element. Entity types embed it
// (by value or pointer) to take part in tree operations. A node's address is its
// instance identity: a value copy of an entity is a separate instance.
type Node struct {
	ID    int64
	Left  int64
	Right int64
	Level int64
	// Root 所属树根的 id，仅多根模式有意义
	// EN: Root is the id of the tree's root row; meaningful in forest mode only.
	Root int64
	// Attrs 存储读出的非树字段
	// EN: Attrs holds the non-tree columns read from storage.
	Attrs Row

	state nodeState
}

// HasInterval 任何参与树操作的实体都实现此接口
// EN: HasInterval is the capability every tree entity implements. Embedding Node
// provides it.
type HasInterval interface {
	TreeNode() *Node
}

// TreeNode 实现 HasInterval
// EN: TreeNode implements HasInterval.
func (n *Node) TreeNode() *Node {
	return n
}

// NewNode 创建一个新（未持久化）节点
// EN: NewNode returns a fresh, unpersisted node.
func NewNode() *Node {
	return &Node{}
}

// NewPersisted 由映射层根据已存储的数据构造节点
// EN: NewPersisted builds a node the caller's mapping layer has already read from storage.
func NewPersisted(id, left, right, level, root int64) *Node {
	n := &Node{}
	n.SetInterval(id, left, right, level, root)
	return n
}

// SetInterval 写入区间并标记为已持久化（用于嵌入式实体的水合）
// EN: SetInterval hydrates the interval fields and marks the node persisted.
func (n *Node) SetInterval(id, left, right, level, root int64) {
	n.ID = id
	n.Left = left
	n.Right = right
	n.Level = level
	n.Root = root
	n.state = statePersisted
}

// IsNew 是否尚未持久化
// EN: IsNew reports whether the node has never been persisted.
func (n *Node) IsNew() bool {
	return n.state == stateNew
}

// IsDeleted 是否已被删除（直接删除或被缓存校正标记）
// EN: IsDeleted reports whether the node was deleted, directly or by the corrector.
func (n *Node) IsDeleted() bool {
	return n.state == stateDeleted
}

// IsLeaf 是否叶子节点
// EN: IsLeaf reports right - left == 1.
func (n *Node) IsLeaf() bool {
	return n.Right-n.Left == 1
}

// IsRoot 是否根节点
// EN: IsRoot reports left == 1.
func (n *Node) IsRoot() bool {
	return n.Left == 1
}

// Width 子树占用的区间宽度
// EN: Width is right - left + 1, twice the subtree's node count.
func (n *Node) Width() int64 {
	return n.Right - n.Left + 1
}

// IsDescendantOf 判断 n 是否为 subject 的后代；多根模式下还要求同一棵树
// EN: IsDescendantOf reports strict interval containment; in forest mode both
// nodes must also share a root.
func (n *Node) IsDescendantOf(subject *Node, forest bool) bool {
	if forest && n.Root != subject.Root {
		return false
	}
	return n.Left > subject.Left && n.Right < subject.Right
}

// within 判断区间 [left, right] 是否包含 n（含端点）
func (n *Node) within(left, right int64) bool {
	return n.Left >= left && n.Right <= right
}

func (n *Node) markPersisted() {
	n.state = statePersisted
}

func (n *Node) markDeleted() {
	n.state = stateDeleted
}

func (n *Node) String() string {
	state := "persisted"
	switch n.state {
	case stateNew:
		state = "new"
	case stateDeleted:
		state = "deleted"
	}
	return fmt.Sprintf("node(id=%d [%d,%d] level=%d root=%d %s)", n.ID, n.Left, n.Right, n.Level, n.Root, state)
}
