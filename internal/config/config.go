// Created by Yanjunhui

// Package config loads the monotree YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/monolite/monotree/logging"
	"github.com/monolite/monotree/nestedset"
	"github.com/monolite/monotree/storage/badgerstore"
)

// File 配置文件结构
// EN: File is the on-disk configuration.
type File struct {
	Tree    nestedset.Config   `yaml:"tree"`
	Storage badgerstore.Config `yaml:"storage"`
	Log     LogConfig          `yaml:"log"`
}

// LogConfig 日志配置
// EN: LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default 默认配置：单根树，数据目录 ./monotree-data
// EN: Default returns a single-root tree stored under ./monotree-data.
func Default() File {
	storage := badgerstore.DefaultConfig()
	storage.Path = "monotree-data"
	return File{
		Tree:    nestedset.DefaultConfig(),
		Storage: storage,
		Log:     LogConfig{Level: "info"},
	}
}

var fileValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置
// EN: Validate checks every section of the file.
func (f File) Validate() error {
	if err := f.Tree.Validate(); err != nil {
		return err
	}
	if f.Tree.IDAttribute != badgerstore.IDColumn {
		return fmt.Errorf("tree.idAttribute must be %q for the badger store, got %q",
			badgerstore.IDColumn, f.Tree.IDAttribute)
	}
	if err := fileValidator.Struct(f.Storage); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := f.Storage.Validate(); err != nil {
		return err
	}
	if err := fileValidator.Struct(f.Log); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// LogLevel 返回 logging 包的级别常量
// EN: LogLevel maps the configured level to a logging level.
func (f File) LogLevel() int {
	return logging.ParseLevel(f.Log.Level)
}

// Parse 从 YAML 解析；未出现的字段保留默认值，未知字段报错
// EN: Parse decodes YAML on top of Default. Unknown keys are an error.
func Parse(r io.Reader) (File, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Load 读取配置文件；path 为空时返回默认配置
// EN: Load reads the file at path. An empty path yields the defaults.
func Load(path string) (File, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// WriteDefault 写出默认配置文件
// EN: WriteDefault writes the default configuration to path, creating its directory.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
