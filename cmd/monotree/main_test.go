// Created by Yanjunhui

package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/monolite/monotree/nestedset"
)

// run 执行一次命令并返回其标准输出
// EN: run executes one command line and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("monotree %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCommands(t *testing.T) {
	db := t.TempDir()

	out := mustRun(t, "--db", db, "--forest=false", "init", "R")
	if out != "created root 1 \"R\"\n" {
		t.Fatalf("init: unexpected output %q", out)
	}
	mustRun(t, "--db", db, "add", "A", "--to", "1", "--placement", "append")
	out = mustRun(t, "--db", db, "add", "B", "--to", "1", "--placement", "append")
	if out != "added 3 \"B\" append 1 at [4,5]\n" {
		t.Fatalf("add: unexpected output %q", out)
	}

	out = mustRun(t, "--db", db, "move", "3", "--to", "2", "--placement", "before")
	if out != "moved 3 before 2, now at [2,3] level 1\n" {
		t.Fatalf("move: unexpected output %q", out)
	}

	out = mustRun(t, "--db", db, "print", "--depth", "0")
	want := "R (id=1 [1,6] level=0)\n" +
		"  B (id=3 [2,3] level=1)\n" +
		"  A (id=2 [4,5] level=1)\n"
	if out != want {
		t.Fatalf("print:\nwant %q\ngot  %q", want, out)
	}

	out = mustRun(t, "--db", db, "check")
	if !strings.Contains(out, "roots=1 nodes=3 maxDepth=1") || !strings.HasSuffix(out, "ok\n") {
		t.Fatalf("check: unexpected output %q", out)
	}

	// 不存在的目标返回树错误（退出码 2）
	// EN: A missing target is a tree error (exit status 2).
	_, err := run(t, "--db", db, "add", "X", "--to", "99", "--placement", "append")
	if !nestedset.IsTreeError(err) {
		t.Fatalf("expected a tree error, got %v", err)
	}

	out = mustRun(t, "--db", db, "delete", "1")
	if out != "deleted 3 node(s)\n" {
		t.Fatalf("delete: unexpected output %q", out)
	}
}
