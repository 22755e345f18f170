// Created by Yanjunhui

// monotree 命令行工具：在 BadgerDB 上维护一棵（或一片）嵌套集合树
// EN: monotree is a command-line tool that maintains a nested-set tree (or forest)
// stored in BadgerDB.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/monolite/monotree/internal/config"
	"github.com/monolite/monotree/logging"
	"github.com/monolite/monotree/nestedset"
	"github.com/monolite/monotree/storage/badgerstore"
)

// 退出码
// EN: Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitInvalid = 2
)

// 全局参数
// EN: Global flags.
var (
	configPath string
	dbPath     string
	tableName  string
	forestMode bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "monotree",
	Short: "Maintain a nested-set tree stored in BadgerDB",
	Long: "monotree creates, reshapes and checks hierarchies kept in the (left, right, level, root)\n" +
		"interval encoding. Every command runs as a single transaction.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.StringVar(&dbPath, "db", "", "data directory (overrides storage.path)")
	pf.StringVar(&tableName, "table", "nodes", "table holding the tree")
	pf.BoolVar(&forestMode, "forest", false, "enable forest mode (overrides tree.hasManyRoots)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(initCmd, addCmd, moveCmd, makeRootCmd, deleteCmd, printCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if nestedset.IsTreeError(err) {
			os.Exit(exitInvalid)
		}
		os.Exit(exitError)
	}
	os.Exit(exitOK)
}

// app 一次命令执行所需的全部对象
// EN: app bundles what one command invocation needs.
type app struct {
	cfg   config.File
	store *badgerstore.Store
	tree  *nestedset.Tree
	log   *logging.Logger
	out   io.Writer
}

// openApp 加载配置、打开存储并创建树句柄
// EN: openApp loads the configuration, opens the store and builds the tree handle.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
		cfg.Storage.InMemory = false
	}
	if cmd.Flags().Changed("forest") {
		cfg.Tree.HasManyRoots = forestMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.NewLogger(os.Stderr)
	log.SetLevel(cfg.LogLevel())
	if verbose {
		log.SetLevel(logging.LogLevelDebug)
	}

	cfg.Storage.Logger = log
	store, err := badgerstore.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}

	tree, err := nestedset.New(store, tableName,
		nestedset.WithConfig(cfg.Tree),
		nestedset.WithLogger(log),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{cfg: cfg, store: store, tree: tree, log: log, out: cmd.OutOrStdout()}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("close store failed", map[string]interface{}{"error": err.Error()})
	}
}

// withApp 包装子命令：打开、执行、关闭
// EN: withApp wraps a subcommand body with open and close.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}
