// Created by Yanjunhui

package nestedset

import (
	"context"
)

// Roots 返回所有根节点（单根模式至多一个）
// EN: Roots returns every root ordered by root id. Single-root mode has at most one.
func (t *Tree) Roots(ctx context.Context) ([]*Node, error) {
	return t.selectNodes(ctx, Predicate{Eq(t.cfg.LeftAttribute, 1)})
}

// Descendants 返回后代，depth 为 0 表示不限深度
// EN: Descendants returns the node's descendants in document order. depth 0 means
// unlimited; 1 means children only.
func (t *Tree) Descendants(ctx context.Context, e HasInterval, depth int64) ([]*Node, error) {
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return nil, err
	}
	where := append(Predicate{
		Gte(t.cfg.LeftAttribute, n.Left+1),
		Lte(t.cfg.RightAttribute, n.Right-1),
	}, t.rootScope(n.Root)...)
	if depth > 0 {
		where = append(where, Lte(t.cfg.LevelAttribute, n.Level+depth))
	}
	return t.selectNodes(ctx, where)
}

// Children 返回直接子节点
// EN: Children returns the node's direct children in order.
func (t *Tree) Children(ctx context.Context, e HasInterval) ([]*Node, error) {
	return t.Descendants(ctx, e, 1)
}

// Ancestors 返回祖先（从根到父），depth 为 0 表示全部
// EN: Ancestors returns the node's ancestors from the root down to the parent. depth
// limits how many levels up to go; 0 means all of them.
func (t *Tree) Ancestors(ctx context.Context, e HasInterval, depth int64) ([]*Node, error) {
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return nil, err
	}
	where := append(Predicate{
		Lte(t.cfg.LeftAttribute, n.Left-1),
		Gte(t.cfg.RightAttribute, n.Right+1),
	}, t.rootScope(n.Root)...)
	if depth > 0 {
		where = append(where, Gte(t.cfg.LevelAttribute, n.Level-depth))
	}
	return t.selectNodes(ctx, where)
}

// Parent 返回父节点；根节点返回 nil
// EN: Parent returns the node's parent, or nil for a root.
func (t *Tree) Parent(ctx context.Context, e HasInterval) (*Node, error) {
	ancestors, err := t.Ancestors(ctx, e, 1)
	if err != nil || len(ancestors) == 0 {
		return nil, err
	}
	return ancestors[len(ancestors)-1], nil
}

// PrevSibling 返回前一个兄弟；没有则返回 nil
// EN: PrevSibling returns the previous sibling, or nil.
func (t *Tree) PrevSibling(ctx context.Context, e HasInterval) (*Node, error) {
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return nil, err
	}
	return t.selectOne(ctx, append(Predicate{Eq(t.cfg.RightAttribute, n.Left-1)}, t.rootScope(n.Root)...))
}

// NextSibling 返回后一个兄弟；没有则返回 nil
// EN: NextSibling returns the next sibling, or nil.
func (t *Tree) NextSibling(ctx context.Context, e HasInterval) (*Node, error) {
	n := e.TreeNode()
	if err := t.checkUsable(n, "node"); err != nil {
		return nil, err
	}
	return t.selectOne(ctx, append(Predicate{Eq(t.cfg.LeftAttribute, n.Right+1)}, t.rootScope(n.Root)...))
}

func (t *Tree) selectOne(ctx context.Context, where Predicate) (*Node, error) {
	nodes, err := t.selectNodes(ctx, where)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}
