// Created by Yanjunhui

package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/monolite/monotree/logging"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.LogLevel() != logging.LogLevelInfo {
		t.Fatalf("expected info level, got %d", cfg.LogLevel())
	}
}

func TestParse(t *testing.T) {
	input := `
tree:
  hasManyRoots: true
  rootLevel: 1
  slowMutationThreshold: 250ms
storage:
  path: /var/lib/monotree
  gcInterval: 1m
log:
  level: debug
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cfg.Tree.HasManyRoots || cfg.Tree.RootLevel != 1 {
		t.Errorf("tree section not applied: %+v", cfg.Tree)
	}
	if cfg.Tree.SlowMutationThreshold != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Tree.SlowMutationThreshold)
	}
	// 未出现的字段保留默认值
	// EN: Keys absent from the file keep their defaults.
	if cfg.Tree.LeftAttribute != "lft" || !cfg.Storage.SyncWrites {
		t.Errorf("defaults lost: %+v %+v", cfg.Tree, cfg.Storage)
	}
	if cfg.Storage.Path != "/var/lib/monotree" || cfg.Storage.GCInterval != time.Minute {
		t.Errorf("storage section not applied: %+v", cfg.Storage)
	}
	if cfg.LogLevel() != logging.LogLevelDebug {
		t.Errorf("expected debug level, got %d", cfg.LogLevel())
	}

	empty, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty input must yield defaults: %v", err)
	}
	if empty.Storage.Path != Default().Storage.Path {
		t.Errorf("expected default path, got %q", empty.Storage.Path)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown key", "tree:\n  leftColumn: l\n"},
		{"id attribute mismatch", "tree:\n  idAttribute: uid\n"},
		{"forest without root column", "tree:\n  hasManyRoots: true\n  rootAttribute: \"\"\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"discard ratio", "storage:\n  gcDiscardRatio: 2\n"},
		{"missing path", "storage:\n  path: \"\"\n"},
		{"not yaml", "tree: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.input)); err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Tree.IDAttribute != "id" {
		t.Fatalf("expected defaults, got %+v", cfg.Tree)
	}

	path := filepath.Join(t.TempDir(), "conf", "monotree.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Tree != Default().Tree || loaded.Storage.Path != Default().Storage.Path ||
		loaded.Storage.GCInterval != Default().Storage.GCInterval {
		t.Fatalf("written defaults do not load back: %+v", loaded)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}
