// Package testkit provides testing utilities for monotree.
package testkit

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/monolite/monotree/nestedset"
)

// AssertInvariants runs all invariant checks on a tree table.
func AssertInvariants(t *testing.T, tree *nestedset.Tree) {
	t.Helper()

	AssertValidatePasses(t, tree)
	AssertLevels(t, tree)
}

// AssertValidatePasses fails the test when Tree.Verify reports errors.
func AssertValidatePasses(t *testing.T, tree *nestedset.Tree) {
	t.Helper()

	result, err := tree.Verify(context.Background())
	if err != nil {
		t.Fatalf("verify %s: %v", tree.Table(), err)
	}
	if !result.Valid {
		t.Errorf("tree %s is not well formed:\n  %s", tree.Table(), strings.Join(result.Errors, "\n  "))
	}
}

// AssertLevels recomputes every level by pairwise interval containment and
// compares it with the stored level. It does not share code with Verify.
func AssertLevels(t *testing.T, tree *nestedset.Tree) {
	t.Helper()

	nodes := snapshot(t, tree)
	forest := tree.Config().HasManyRoots
	rootLevel := tree.Config().RootLevel

	for _, n := range nodes {
		var ancestors int64
		for _, other := range nodes {
			if n.IsDescendantOf(other, forest) {
				ancestors++
			}
		}
		if n.Level != rootLevel+ancestors {
			t.Errorf("node %d [%d,%d] has level %d, %d ancestors say %d",
				n.ID, n.Left, n.Right, n.Level, ancestors, rootLevel+ancestors)
		}
	}
}

// AssertCacheMatchesStorage checks that each live instance carries exactly what a
// fresh read returns, and that instances flagged deleted no longer exist.
func AssertCacheMatchesStorage(t *testing.T, tree *nestedset.Tree, nodes ...*nestedset.Node) {
	t.Helper()

	byID := make(map[int64]*nestedset.Node)
	for _, n := range snapshot(t, tree) {
		byID[n.ID] = n
	}

	for _, n := range nodes {
		stored, exists := byID[n.ID]
		if n.IsDeleted() {
			if exists {
				t.Errorf("node %d is flagged deleted but still stored at [%d,%d]", n.ID, stored.Left, stored.Right)
			}
			continue
		}
		if !exists {
			t.Errorf("live node %d [%d,%d] is missing from storage", n.ID, n.Left, n.Right)
			continue
		}
		if n.Left != stored.Left || n.Right != stored.Right || n.Level != stored.Level || n.Root != stored.Root {
			t.Errorf("cached %v differs from stored %v", n, stored)
		}
	}
}

// AssertWidthConserved checks that removing a subtree of the given width left
// exactly width/2 fewer rows.
func AssertWidthConserved(t *testing.T, before, after int, width int64, removed int64) {
	t.Helper()

	if removed != width/2 {
		t.Errorf("removed %d rows, subtree width %d says %d", removed, width, width/2)
	}
	if int64(before-after) != removed {
		t.Errorf("row count went from %d to %d, expected %d removed", before, after, removed)
	}
}

func snapshot(t *testing.T, tree *nestedset.Tree) []*nestedset.Node {
	t.Helper()

	nodes, err := tree.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot %s: %v", tree.Table(), err)
	}
	return nodes
}

// Label extracts the display name of a node for Shape.
type Label func(n *nestedset.Node) string

// AttrLabel labels nodes by a string attribute, falling back to the id.
func AttrLabel(attr string) Label {
	return func(n *nestedset.Node) string {
		if s, ok := n.Attrs[attr].(string); ok {
			return s
		}
		return fmt.Sprintf("#%d", n.ID)
	}
}

// Shape renders the parent/child/sibling structure of every tree as nested
// parentheses, e.g. "R(B(D) A C)". Trees of a forest are separated by " | ".
// Interval numbers do not appear, so two tables with the same structure render
// identically.
func Shape(t *testing.T, tree *nestedset.Tree, label Label) string {
	t.Helper()

	type item struct {
		node     *nestedset.Node
		children []*item
	}

	var roots []*item
	var stack []*item
	for _, n := range snapshot(t, tree) {
		for len(stack) > 0 {
			top := stack[len(stack)-1].node
			if top.Root == n.Root && top.Right > n.Left {
				break
			}
			stack = stack[:len(stack)-1]
		}
		it := &item{node: n}
		if len(stack) == 0 {
			roots = append(roots, it)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, it)
		}
		stack = append(stack, it)
	}

	var render func(it *item) string
	render = func(it *item) string {
		s := label(it.node)
		if len(it.children) == 0 {
			return s
		}
		parts := make([]string, len(it.children))
		for i, c := range it.children {
			parts[i] = render(c)
		}
		return s + "(" + strings.Join(parts, " ") + ")"
	}

	parts := make([]string, len(roots))
	for i, r := range roots {
		parts[i] = render(r)
	}
	return strings.Join(parts, " | ")
}

// RequireSameShape fails the test when the two shapes differ.
func RequireSameShape(t *testing.T, want, got string) {
	t.Helper()

	if want != got {
		t.Fatalf("tree shape mismatch:\n  want %s\n  got  %s", want, got)
	}
}
