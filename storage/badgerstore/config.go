// Created by Yanjunhui

// Package badgerstore 在 BadgerDB 上实现树引擎的行存储与事务管理
// EN: Package badgerstore implements the tree engine's row store and transaction
// manager on BadgerDB. Each row is a BSON document under t/<table>/r/<id>; ids come
// from a per-table badger.Sequence.
package badgerstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/monolite/monotree/logging"
)

// Config BadgerDB 配置
// EN: Config holds configuration for the BadgerDB backing store.
type Config struct {
	// Path 数据目录；InMemory 时忽略
	// EN: Path is the data directory. Ignored when InMemory is true.
	Path string `yaml:"path"`

	// InMemory 纯内存模式（测试用）
	// EN: InMemory keeps everything in RAM; data is lost on Close.
	InMemory bool `yaml:"inMemory"`

	// SyncWrites 每次提交都 fsync
	// EN: SyncWrites fsyncs on every commit.
	SyncWrites bool `yaml:"syncWrites"`

	// NumVersionsToKeep 每个键保留的版本数
	// EN: NumVersionsToKeep is the number of versions kept per key.
	NumVersionsToKeep int `yaml:"numVersionsToKeep" validate:"gte=0"`

	// GCInterval value log 垃圾回收间隔，0 表示关闭
	// EN: GCInterval is how often value log GC runs; 0 disables it.
	GCInterval time.Duration `yaml:"gcInterval" validate:"gte=0"`

	// GCDiscardRatio 触发回收的最小垃圾比例
	// EN: GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64 `yaml:"gcDiscardRatio" validate:"gte=0,lte=1"`

	// Logger 为 nil 时关闭 badger 内部日志
	// EN: Logger receives badger's internal log; nil disables it.
	Logger *logging.Logger `yaml:"-"`
}

// DefaultConfig 生产环境默认配置
// EN: DefaultConfig returns production defaults: synchronous writes, one version per
// key, GC every five minutes.
func DefaultConfig() Config {
	return Config{
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
		GCDiscardRatio:    0.5,
	}
}

// InMemoryConfig 测试用配置
// EN: InMemoryConfig returns a configuration for tests: in memory, no fsync, no GC.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		NumVersionsToKeep: 1,
	}
}

// Validate 校验配置
// EN: Validate checks the settings Open depends on.
func (c Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return errors.New("badgerstore: path is required for a persistent database")
	}
	if c.GCDiscardRatio < 0 || c.GCDiscardRatio > 1 {
		return fmt.Errorf("badgerstore: gc discard ratio %v must be between 0 and 1", c.GCDiscardRatio)
	}
	return nil
}

// badgerLogger 将 logging.Logger 适配为 badger.Logger
type badgerLogger struct {
	logger *logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
