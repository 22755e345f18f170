// Created by Yanjunhui

package nestedset

import (
	"errors"
	"fmt"
)

// 树操作错误码定义
// EN: Tree operation error codes.
const (
	ErrorCodeOK                 = 0
	ErrorCodeInvalidOperation   = 20
	ErrorCodeAlreadyDeleted     = 21
	ErrorCodeStorageFailure     = 22
	ErrorCodeConfigurationError = 23
	ErrorCodeNodeNotFound       = 24
)

// 错误码名称映射
// EN: Error code name mapping.
var errorCodeNames = map[int]string{
	ErrorCodeOK:                 "OK",
	ErrorCodeInvalidOperation:   "InvalidOperation",
	ErrorCodeAlreadyDeleted:     "AlreadyDeleted",
	ErrorCodeStorageFailure:     "StorageFailure",
	ErrorCodeConfigurationError: "ConfigurationError",
	ErrorCodeNodeNotFound:       "NodeNotFound",
}

// 按错误类别匹配的哨兵错误，配合 errors.Is 使用
// EN: Sentinels matched by category through errors.Is.
var (
	ErrInvalidOperation = &TreeError{Code: ErrorCodeInvalidOperation, CodeName: "InvalidOperation"}
	ErrAlreadyDeleted   = &TreeError{Code: ErrorCodeAlreadyDeleted, CodeName: "AlreadyDeleted"}
	ErrStorageFailure   = &TreeError{Code: ErrorCodeStorageFailure, CodeName: "StorageFailure"}
	ErrConfiguration    = &TreeError{Code: ErrorCodeConfigurationError, CodeName: "ConfigurationError"}
	ErrNodeNotFound     = &TreeError{Code: ErrorCodeNodeNotFound, CodeName: "NodeNotFound"}
)

// TreeError 树操作错误
// EN: TreeError is the error returned by every tree operation.
type TreeError struct {
	Code     int    // 错误码 (EN: error code)
	CodeName string // 错误码名称 (EN: error code name)
	Message  string // 错误消息 (EN: error message)
	Err      error  // 底层原因，仅 StorageFailure 使用 (EN: underlying cause, StorageFailure only)
}

// Error 实现 error 接口
// EN: Error implements the error interface.
func (e *TreeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.CodeName, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%d): %s", e.CodeName, e.Code, e.Message)
}

// Unwrap 返回底层存储错误
// EN: Unwrap returns the underlying storage error.
func (e *TreeError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配，使 errors.Is(err, ErrInvalidOperation) 成立
// EN: Is matches by code so errors.Is(err, ErrInvalidOperation) holds for any
// InvalidOperation error.
func (e *TreeError) Is(target error) bool {
	t, ok := target.(*TreeError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrorCode 返回错误码
// EN: ErrorCode returns the error code.
func (e *TreeError) ErrorCode() int {
	return e.Code
}

// ErrorCodeName 返回错误码名称
// EN: ErrorCodeName returns the error code name.
func (e *TreeError) ErrorCodeName() string {
	return e.CodeName
}

// Retryable 只有存储失败可能值得重试（由调用方决定）
// EN: Retryable reports whether the failure came from storage; only those are worth
// a caller-level retry.
func (e *TreeError) Retryable() bool {
	return e.Code == ErrorCodeStorageFailure
}

// NewTreeError 创建新的树操作错误
// EN: NewTreeError creates a new TreeError.
func NewTreeError(code int, message string) *TreeError {
	codeName, ok := errorCodeNames[code]
	if !ok {
		codeName = "UnknownError"
	}
	return &TreeError{
		Code:     code,
		CodeName: codeName,
		Message:  message,
	}
}

func errInvalidOperation(format string, args ...interface{}) *TreeError {
	return NewTreeError(ErrorCodeInvalidOperation, fmt.Sprintf(format, args...))
}

func errAlreadyDeleted(format string, args ...interface{}) *TreeError {
	return NewTreeError(ErrorCodeAlreadyDeleted, fmt.Sprintf(format, args...))
}

func errNodeNotFound(id int64) *TreeError {
	return NewTreeError(ErrorCodeNodeNotFound, fmt.Sprintf("node %d not found", id))
}

func errConfiguration(format string, args ...interface{}) *TreeError {
	return NewTreeError(ErrorCodeConfigurationError, fmt.Sprintf(format, args...))
}

// errStorage 包装存储层错误；已是 TreeError 的原样返回
// EN: errStorage wraps a collaborator error; TreeErrors pass through untouched.
func errStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TreeError
	if errors.As(err, &te) {
		return err
	}
	e := NewTreeError(ErrorCodeStorageFailure, op)
	e.Err = err
	return e
}

// IsTreeError 检查是否为 TreeError
// EN: IsTreeError reports whether err is or wraps a *TreeError.
func IsTreeError(err error) bool {
	var te *TreeError
	return errors.As(err, &te)
}

// AsTreeError 将 error 转换为 TreeError（未知错误包装为存储失败）
// EN: AsTreeError converts err to *TreeError, wrapping unknown errors as StorageFailure.
func AsTreeError(err error) *TreeError {
	if err == nil {
		return nil
	}
	var te *TreeError
	if errors.As(err, &te) {
		return te
	}
	e := NewTreeError(ErrorCodeStorageFailure, "storage failure")
	e.Err = err
	return e
}
