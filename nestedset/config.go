// Created by Yanjunhui

package nestedset

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config 树的存储布局与行为配置
// EN: Config describes the table layout and the tree mode.
type Config struct {
	// HasManyRoots 多根（森林）模式
	// EN: HasManyRoots enables forest mode: many trees in one table keyed by Root.
	HasManyRoots bool `yaml:"hasManyRoots"`

	IDAttribute    string `yaml:"idAttribute" validate:"required"`
	LeftAttribute  string `yaml:"leftAttribute" validate:"required"`
	RightAttribute string `yaml:"rightAttribute" validate:"required"`
	LevelAttribute string `yaml:"levelAttribute" validate:"required"`
	RootAttribute  string `yaml:"rootAttribute" validate:"required_if=HasManyRoots true"`

	// RootLevel 根节点的层级。默认 0（不是经典实现中的 1），其余层级运算都以它为基准。
	// EN: RootLevel is the level assigned to roots. It defaults to 0, not the textbook 1,
	// and all level arithmetic is relative to it.
	RootLevel int64 `yaml:"rootLevel" validate:"gte=0"`

	// SlowMutationThreshold 超过该耗时的变更记为慢操作
	// EN: SlowMutationThreshold marks mutations slower than this as slow operations.
	SlowMutationThreshold time.Duration `yaml:"slowMutationThreshold" validate:"gte=0"`
}

// DefaultConfig 返回默认配置（单根模式，列名 id/lft/rgt/level/root）
// EN: DefaultConfig returns single-root mode with columns id/lft/rgt/level/root.
func DefaultConfig() Config {
	return Config{
		IDAttribute:           "id",
		LeftAttribute:         "lft",
		RightAttribute:        "rgt",
		LevelAttribute:        "level",
		RootAttribute:         "root",
		RootLevel:             0,
		SlowMutationThreshold: 100 * time.Millisecond,
	}
}

// ForestConfig 返回多根模式的默认配置
// EN: ForestConfig returns DefaultConfig with forest mode enabled.
func ForestConfig() Config {
	cfg := DefaultConfig()
	cfg.HasManyRoots = true
	return cfg
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置；失败返回 ConfigurationError
// EN: Validate checks the config and returns a ConfigurationError on failure.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return errConfiguration("invalid config: %s", strings.Join(msgs, "; "))
		}
		return errConfiguration("invalid config: %v", err)
	}

	// 列名必须互不相同
	// EN: Column names must be distinct.
	seen := map[string]string{}
	for name, col := range c.columns() {
		if other, dup := seen[col]; dup {
			return errConfiguration("attributes %s and %s both map to column %q", other, name, col)
		}
		seen[col] = name
	}
	return nil
}

// columns 参与树编码的列（单根模式不含 root）
func (c Config) columns() map[string]string {
	cols := map[string]string{
		"IDAttribute":    c.IDAttribute,
		"LeftAttribute":  c.LeftAttribute,
		"RightAttribute": c.RightAttribute,
		"LevelAttribute": c.LevelAttribute,
	}
	if c.HasManyRoots {
		cols["RootAttribute"] = c.RootAttribute
	}
	return cols
}

// isTreeColumn 判断列是否由引擎维护（Save 时不可写）
// EN: isTreeColumn reports whether the engine owns the column.
func (c Config) isTreeColumn(name string) bool {
	for _, col := range c.columns() {
		if col == name {
			return true
		}
	}
	return false
}
