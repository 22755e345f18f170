// Created by Yanjunhui

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monolite/monotree/nestedset"
)

// item 带标题的树节点
// EN: item is a titled tree entity; embedding nestedset.Node makes it usable by
// every tree operation.
type item struct {
	nestedset.Node
	Title string
}

// Attributes 实现 nestedset.HasAttributes
func (i *item) Attributes() nestedset.Row {
	return nestedset.Row{"title": i.Title}
}

func newItem(title string) *item {
	return &item{Node: *nestedset.NewNode(), Title: title}
}

// 子命令参数
// EN: Subcommand flags.
var (
	targetID  int64
	placement string
	depth     int64
)

var initCmd = &cobra.Command{
	Use:   "init <title>",
	Short: "Create a root node",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		root := newItem(args[0])
		if err := a.tree.Create(ctx, root); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "created root %d %q\n", root.ID, root.Title)
		return nil
	}),
}

var addCmd = &cobra.Command{
	Use:   "add <title> --to <id>",
	Short: "Insert a node relative to an existing node",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		p, err := nestedset.ParsePlacement(placement)
		if err != nil {
			return err
		}
		target, err := a.tree.Load(ctx, targetID)
		if err != nil {
			return err
		}
		n := newItem(args[0])
		if err := a.tree.InsertRelative(ctx, n, target, p); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "added %d %q %s %d at [%d,%d]\n", n.ID, n.Title, p, target.ID, n.Left, n.Right)
		return nil
	}),
}

var moveCmd = &cobra.Command{
	Use:   "move <id> --to <id>",
	Short: "Move a node and its subtree relative to another node",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		p, err := nestedset.ParsePlacement(placement)
		if err != nil {
			return err
		}
		n, err := loadArg(ctx, a, args[0])
		if err != nil {
			return err
		}
		target, err := a.tree.Load(ctx, targetID)
		if err != nil {
			return err
		}
		if err := a.tree.Move(ctx, n, target, p); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "moved %d %s %d, now at [%d,%d] level %d\n", n.ID, p, target.ID, n.Left, n.Right, n.Level)
		return nil
	}),
}

var makeRootCmd = &cobra.Command{
	Use:   "make-root <id>",
	Short: "Detach a node with its subtree into a new tree (forest mode)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		n, err := loadArg(ctx, a, args[0])
		if err != nil {
			return err
		}
		if err := a.tree.MoveAsRoot(ctx, n); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "node %d is now the root of its own tree\n", n.ID)
		return nil
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a node and all of its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		n, err := loadArg(ctx, a, args[0])
		if err != nil {
			return err
		}
		removed, err := a.tree.Delete(ctx, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted %d node(s)\n", removed)
		return nil
	}),
}

var printCmd = &cobra.Command{
	Use:   "print [id]",
	Short: "Print the tree, or the subtree under id",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		var tops []*nestedset.Node
		if len(args) == 1 {
			n, err := loadArg(ctx, a, args[0])
			if err != nil {
				return err
			}
			tops = []*nestedset.Node{n}
		} else {
			roots, err := a.tree.Roots(ctx)
			if err != nil {
				return err
			}
			tops = roots
		}
		for _, top := range tops {
			desc, err := a.tree.Descendants(ctx, top, depth)
			if err != nil {
				return err
			}
			printTree(a.out, top, desc)
		}
		return nil
	}),
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the interval encoding of the whole table",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		result, err := a.tree.Verify(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "roots=%d nodes=%d maxDepth=%d\n",
			result.Stats.Roots, result.Stats.Nodes, result.Stats.MaxDepth)
		for _, w := range result.Warnings {
			fmt.Fprintf(a.out, "warning: %s\n", w)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(a.out, "error: %s\n", e)
		}
		if !result.Valid {
			return fmt.Errorf("table %q failed verification with %d error(s)", a.tree.Table(), len(result.Errors))
		}
		fmt.Fprintln(a.out, "ok")
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{addCmd, moveCmd} {
		c.Flags().Int64Var(&targetID, "to", 0, "target node id")
		c.Flags().StringVar(&placement, "placement", "append", "prepend, append, before or after")
		_ = c.MarkFlagRequired("to")
	}
	printCmd.Flags().Int64Var(&depth, "depth", 0, "levels below the top node to print (0 = all)")
}

func loadArg(ctx context.Context, a *app, arg string) (*nestedset.Node, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid node id %q", arg)
	}
	return a.tree.Load(ctx, id)
}

// printTree 按层级缩进输出
// EN: printTree writes one line per node indented by level.
func printTree(w io.Writer, top *nestedset.Node, desc []*nestedset.Node) {
	for _, n := range append([]*nestedset.Node{top}, desc...) {
		title, _ := n.Attrs["title"].(string)
		indent := strings.Repeat("  ", int(n.Level-top.Level))
		fmt.Fprintf(w, "%s%s (id=%d [%d,%d] level=%d)\n", indent, title, n.ID, n.Left, n.Right, n.Level)
	}
}
