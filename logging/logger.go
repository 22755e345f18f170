// Created by Yanjunhui

// Package logging 提供结构化日志器。
// EN: Package logging provides the structured logger shared by the tree engine,
// the document store and the badger store.
package logging

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 日志级别
// EN: Log levels.
const (
	LogLevelDebug = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// 日志级别名称
// EN: Log level names.
var logLevelNames = map[int]string{
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
}

var zapLevels = map[int]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// ParseLevel 解析日志级别名称（不区分大小写），未知名称返回 INFO
// EN: ParseLevel parses a level name case-insensitively; unknown names map to INFO.
func ParseLevel(name string) int {
	for level, n := range logLevelNames {
		if strings.EqualFold(n, name) {
			return level
		}
	}
	return LogLevelInfo
}

// Logger 日志器
// EN: Logger writes structured JSON logs through zap.
type Logger struct {
	mu            sync.Mutex
	output        io.Writer
	level         zap.AtomicLevel
	component     string
	slowThreshold time.Duration // 慢操作阈值 (EN: slow operation threshold)
	z             *zap.Logger
}

// 全局日志器
// EN: Global default logger.
var defaultLogger = NewLogger(os.Stdout)

// NewLogger 创建新的日志器
// EN: NewLogger creates a new logger.
func NewLogger(output io.Writer) *Logger {
	l := &Logger{
		output:        output,
		level:         zap.NewAtomicLevelAt(zapcore.InfoLevel),
		component:     "MONOTREE",
		slowThreshold: 100 * time.Millisecond,
	}
	l.z = buildZap(output, l.level)
	return l
}

// Nop 返回丢弃所有输出的日志器（测试用）
// EN: Nop returns a logger that discards everything.
func Nop() *Logger {
	l := NewLogger(io.Discard)
	l.z = zap.NewNop()
	return l
}

func buildZap(output io.Writer, level zap.AtomicLevel) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(output), level)
	return zap.New(core)
}

// SetLevel 设置日志级别
// EN: SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level int) {
	if zl, ok := zapLevels[level]; ok {
		l.level.SetLevel(zl)
	}
}

// SetSlowThreshold 设置慢操作阈值
// EN: SetSlowThreshold sets the slow-operation threshold.
func (l *Logger) SetSlowThreshold(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slowThreshold = d
}

// SetOutput 设置输出目标
// EN: SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.z = buildZap(w, l.level)
}

// WithComponent 创建带组件名的日志器副本
// EN: WithComponent returns a logger copy with a different component name.
// The copy shares the level with its parent.
func (l *Logger) WithComponent(name string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		output:        l.output,
		level:         l.level,
		component:     name,
		slowThreshold: l.slowThreshold,
		z:             l.z,
	}
}

// Zap 返回底层 zap 日志器
// EN: Zap exposes the underlying zap logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.z.With(zap.String("component", l.component))
}

// log 写入日志
// EN: log writes a log entry.
func (l *Logger) log(level int, msg string, ctx map[string]interface{}, duration time.Duration) {
	l.mu.Lock()
	z := l.z
	component := l.component
	l.mu.Unlock()

	zl := zapLevels[level]
	ce := z.Check(zl, msg)
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, len(ctx)+2)
	fields = append(fields, zap.String("component", component))
	if duration > 0 {
		fields = append(fields, zap.Int64("durationMs", duration.Milliseconds()))
	}

	// 字段按键排序，保证输出稳定
	// EN: Sort keys so output is stable.
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, ctx[k]))
	}

	ce.Write(fields...)
}

func firstCtx(ctx []map[string]interface{}) map[string]interface{} {
	if len(ctx) > 0 {
		return ctx[0]
	}
	return nil
}

// Debug 调试日志
// EN: Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, ctx ...map[string]interface{}) {
	l.log(LogLevelDebug, msg, firstCtx(ctx), 0)
}

// Info 信息日志
// EN: Info logs at INFO level.
func (l *Logger) Info(msg string, ctx ...map[string]interface{}) {
	l.log(LogLevelInfo, msg, firstCtx(ctx), 0)
}

// Warn 警告日志
// EN: Warn logs at WARN level.
func (l *Logger) Warn(msg string, ctx ...map[string]interface{}) {
	l.log(LogLevelWarn, msg, firstCtx(ctx), 0)
}

// Error 错误日志
// EN: Error logs at ERROR level.
func (l *Logger) Error(msg string, ctx ...map[string]interface{}) {
	l.log(LogLevelError, msg, firstCtx(ctx), 0)
}

// LogSlowOperation 记录慢操作
// EN: LogSlowOperation records slow operations (duration >= threshold).
func (l *Logger) LogSlowOperation(op string, duration time.Duration, ctx map[string]interface{}) {
	l.mu.Lock()
	threshold := l.slowThreshold
	l.mu.Unlock()

	if duration < threshold {
		return
	}

	if ctx == nil {
		ctx = make(map[string]interface{})
	}
	ctx["operation"] = op
	ctx["slowThreshold"] = threshold.String()

	l.log(LogLevelWarn, "slow operation detected", ctx, duration)
}

// LogMutation 记录一次树结构变更（失败记为 WARN，超过阈值记为慢操作）
// EN: LogMutation records one tree mutation: failures log at WARN, slow ones as slow
// operations, everything else at DEBUG.
func (l *Logger) LogMutation(op, table string, duration time.Duration, err error, ctx map[string]interface{}) {
	if ctx == nil {
		ctx = make(map[string]interface{})
	}
	ctx["mutation"] = op
	ctx["table"] = table
	ctx["success"] = err == nil

	l.mu.Lock()
	threshold := l.slowThreshold
	l.mu.Unlock()

	level := LogLevelDebug
	msg := "mutation applied"
	if err != nil {
		ctx["error"] = err.Error()
		level = LogLevelWarn
		msg = "mutation failed"
	} else if duration >= threshold {
		level = LogLevelWarn
		msg = "slow mutation"
	}

	l.log(level, msg, ctx, duration)
}

// 全局日志函数
// EN: Global logging helpers.

// GetLogger 获取默认日志器
// EN: GetLogger returns the default logger.
func GetLogger() *Logger {
	return defaultLogger
}

// SetLogLevel 设置全局日志级别
// EN: SetLogLevel sets the global log level.
func SetLogLevel(level int) {
	defaultLogger.SetLevel(level)
}

// LogInfo 全局信息日志
// EN: LogInfo writes an INFO log using the default logger.
func LogInfo(msg string, ctx ...map[string]interface{}) {
	defaultLogger.Info(msg, ctx...)
}

// LogWarn 全局警告日志
// EN: LogWarn writes a WARN log using the default logger.
func LogWarn(msg string, ctx ...map[string]interface{}) {
	defaultLogger.Warn(msg, ctx...)
}

// LogError 全局错误日志
// EN: LogError writes an ERROR log using the default logger.
func LogError(msg string, ctx ...map[string]interface{}) {
	defaultLogger.Error(msg, ctx...)
}

// LogDebug 全局调试日志
// EN: LogDebug writes a DEBUG log using the default logger.
func LogDebug(msg string, ctx ...map[string]interface{}) {
	defaultLogger.Debug(msg, ctx...)
}
