// Created by Yanjunhui

package nestedset

import (
	"context"
	"fmt"
	"sort"
)

// ValidationResult 校验结果
type ValidationResult struct {
	Valid    bool     // 是否有效
	Errors   []string // 错误列表
	Warnings []string // 警告列表
	Stats    ValidationStats
}

// ValidationStats 校验统计
type ValidationStats struct {
	Roots    int   // 树的数量
	Nodes    int   // 节点总数
	MaxDepth int64 // 最大深度（根为 0）
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Verify 读取整张表并校验区间编码
// 检查：right > left、无部分重叠、编号连续 1..2n、level 与祖先数一致、根标记
func (t *Tree) Verify(ctx context.Context) (*ValidationResult, error) {
	rows, err := t.store.SelectWhere(ctx, t.table, nil)
	if err != nil {
		return nil, errStorage("verify", err)
	}

	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}
	if len(rows) == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("table %q is empty", t.table))
		return result, nil
	}

	groups := make(map[int64][]*Node)
	for _, row := range rows {
		n, err := t.rowToNode(row)
		if err != nil {
			result.fail("%v", err)
			continue
		}
		groups[n.Root] = append(groups[n.Root], n)
	}

	roots := make([]int64, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	for _, root := range roots {
		t.verifyGroup(root, groups[root], result)
	}

	if !t.cfg.HasManyRoots && result.Stats.Roots > 1 {
		result.fail("single-root table has %d roots", result.Stats.Roots)
	}
	return result, nil
}

// verifyGroup 校验一棵树（森林模式下一个 root 分组）
func (t *Tree) verifyGroup(root int64, nodes []*Node, result *ValidationResult) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Left < nodes[j].Left })
	result.Stats.Nodes += len(nodes)

	// 边界编号必须恰好为 1..2n 且各出现一次
	seen := make(map[int64]int64, 2*len(nodes))
	for _, n := range nodes {
		if n.Right <= n.Left {
			result.fail("node %d has right %d <= left %d", n.ID, n.Right, n.Left)
		}
		for _, b := range []int64{n.Left, n.Right} {
			if other, dup := seen[b]; dup {
				result.fail("boundary %d used by nodes %d and %d", b, other, n.ID)
			}
			seen[b] = n.ID
		}
	}
	for b := int64(1); b <= int64(2*len(nodes)); b++ {
		if _, ok := seen[b]; !ok {
			result.fail("tree %d has a gap at boundary %d", root, b)
			break
		}
	}

	var stack []*Node
	for _, n := range nodes {
		for len(stack) > 0 && stack[len(stack)-1].Right < n.Left {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && n.Right > stack[len(stack)-1].Right {
			parent := stack[len(stack)-1]
			result.fail("node %d [%d,%d] partially overlaps node %d [%d,%d]",
				n.ID, n.Left, n.Right, parent.ID, parent.Left, parent.Right)
		}
		depth := int64(len(stack))
		if n.Level != t.cfg.RootLevel+depth {
			result.fail("node %d has level %d, expected %d", n.ID, n.Level, t.cfg.RootLevel+depth)
		}
		if depth > result.Stats.MaxDepth {
			result.Stats.MaxDepth = depth
		}
		if n.IsRoot() {
			result.Stats.Roots++
			if t.cfg.HasManyRoots && n.ID != root {
				result.fail("root node %d carries root marker %d", n.ID, root)
			}
		}
		stack = append(stack, n)
	}

	if len(nodes) > 0 && !nodes[0].IsRoot() {
		result.fail("tree %d has no node at left = 1", root)
	}
}

// Snapshot 读取整张表的区间（不登记到注册表），按 root、left 排序
// EN: Snapshot reads every row as an unregistered node, ordered by root then left.
// It is a read-only view for tooling; mutating the returned nodes has no effect.
func (t *Tree) Snapshot(ctx context.Context) ([]*Node, error) {
	rows, err := t.store.SelectWhere(ctx, t.table, nil)
	if err != nil {
		return nil, errStorage("snapshot", err)
	}
	nodes := make([]*Node, 0, len(rows))
	for _, row := range rows {
		n, err := t.rowToNode(row)
		if err != nil {
			return nil, errStorage("snapshot", err)
		}
		n.Attrs = Row{}
		for k, v := range row {
			if !t.cfg.isTreeColumn(k) {
				n.Attrs[k] = v
			}
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

// rowToNode 只读转换，不登记到注册表
func (t *Tree) rowToNode(row Row) (*Node, error) {
	id, ok := row.Int64(t.cfg.IDAttribute)
	if !ok {
		return nil, fmt.Errorf("row without %q column", t.cfg.IDAttribute)
	}
	left, okL := row.Int64(t.cfg.LeftAttribute)
	right, okR := row.Int64(t.cfg.RightAttribute)
	level, okV := row.Int64(t.cfg.LevelAttribute)
	if !okL || !okR || !okV {
		return nil, fmt.Errorf("row %d is missing interval columns", id)
	}
	var root int64
	if t.cfg.HasManyRoots {
		if root, ok = row.Int64(t.cfg.RootAttribute); !ok {
			return nil, fmt.Errorf("row %d is missing %q", id, t.cfg.RootAttribute)
		}
	}
	return NewPersisted(id, left, right, level, root), nil
}
