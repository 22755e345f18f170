// Created by Yanjunhui

package docstore

import (
	"errors"
	"fmt"
)

// 文档存储错误码（与 MongoDB 错误码保持一致）
// EN: Store error codes, numbered like their MongoDB counterparts.
const (
	ErrorCodeOK                   = 0
	ErrorCodeInternalError        = 1
	ErrorCodeBadValue             = 2
	ErrorCodeTypeMismatch         = 14
	ErrorCodeNamespaceNotFound    = 26
	ErrorCodeDuplicateKey         = 11000
	ErrorCodeNoSuchTransaction    = 251
	ErrorCodeTransactionCommitted = 256
	ErrorCodeTransactionAborted   = 263
)

var errorCodeNames = map[int]string{
	ErrorCodeOK:                   "OK",
	ErrorCodeInternalError:        "InternalError",
	ErrorCodeBadValue:             "BadValue",
	ErrorCodeTypeMismatch:         "TypeMismatch",
	ErrorCodeNamespaceNotFound:    "NamespaceNotFound",
	ErrorCodeDuplicateKey:         "DuplicateKey",
	ErrorCodeNoSuchTransaction:    "NoSuchTransaction",
	ErrorCodeTransactionCommitted: "TransactionCommitted",
	ErrorCodeTransactionAborted:   "TransactionAborted",
}

// StoreError 文档存储错误
// EN: StoreError is a coded document store error.
type StoreError struct {
	Code     int
	CodeName string
	Message  string
}

// Error 实现 error 接口
// EN: Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.CodeName, e.Code, e.Message)
}

// ErrorCode 返回错误码
// EN: ErrorCode returns the error code.
func (e *StoreError) ErrorCode() int {
	return e.Code
}

// ErrorCodeName 返回错误码名称
// EN: ErrorCodeName returns the error code name.
func (e *StoreError) ErrorCodeName() string {
	return e.CodeName
}

// NewStoreError 创建新的存储错误
// EN: NewStoreError creates a new StoreError.
func NewStoreError(code int, message string) *StoreError {
	codeName, ok := errorCodeNames[code]
	if !ok {
		codeName = "UnknownError"
	}
	return &StoreError{
		Code:     code,
		CodeName: codeName,
		Message:  message,
	}
}

// ErrBadValue 参数值错误
// EN: ErrBadValue constructs a BadValue error.
func ErrBadValue(msg string) *StoreError {
	return NewStoreError(ErrorCodeBadValue, msg)
}

// ErrTypeMismatch 类型不匹配
// EN: ErrTypeMismatch constructs a TypeMismatch error.
func ErrTypeMismatch(msg string) *StoreError {
	return NewStoreError(ErrorCodeTypeMismatch, msg)
}

// ErrDuplicateKey 重复键错误
// EN: ErrDuplicateKey constructs a DuplicateKey error.
func ErrDuplicateKey(collection string, id int64) *StoreError {
	return NewStoreError(ErrorCodeDuplicateKey, fmt.Sprintf(
		"E11000 duplicate key error collection: %s dup key: { id: %d }", collection, id))
}

// ErrNoSuchTransaction 事务不存在或已结束
// EN: ErrNoSuchTransaction constructs a NoSuchTransaction error.
func ErrNoSuchTransaction(msg string) *StoreError {
	return NewStoreError(ErrorCodeNoSuchTransaction, msg)
}

// AsStoreError 提取 StoreError
// EN: AsStoreError reports whether err is or wraps a *StoreError and returns it.
func AsStoreError(err error) (*StoreError, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
