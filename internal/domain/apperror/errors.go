// Package apperror はドメインエラーの分類を提供する。
package apperror

import "errors"

// Code 機械可読なエラーコード
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodePreconditionFailed Code = "PRECONDITION_FAILED"
	CodeCapacityRaceLost   Code = "CAPACITY_RACE_LOST"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeConflict           Code = "CONFLICT"
)

// Error コード付きのドメインエラー
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is コードが一致すれば同じエラーとみなす
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// 分類用のセンチネル（errors.Is で比較する）
var (
	ErrNotFound           = New(CodeNotFound, "not found")
	ErrInvalidArgument    = New(CodeInvalidArgument, "invalid argument")
	ErrPreconditionFailed = New(CodePreconditionFailed, "precondition failed")
	ErrCapacityRaceLost   = New(CodeCapacityRaceLost, "capacity race lost")
	ErrPermissionDenied   = New(CodePermissionDenied, "permission denied")
	ErrAlreadyExists      = New(CodeAlreadyExists, "already exists")
	ErrConflict           = New(CodeConflict, "conflict")
)

// New コードとメッセージからエラーを作成
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap 原因エラーを包んだドメインエラーを作成
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NotFound NotFound エラーを作成
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// InvalidArgument InvalidArgument エラーを作成
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// PreconditionFailed PreconditionFailed エラーを作成
func PreconditionFailed(message string) *Error {
	return New(CodePreconditionFailed, message)
}

// CodeOf エラーチェーンから最初のドメインエラーのコードを取得
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsRetryable 呼び出し側で再試行すれば成功し得るエラーか
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCapacityRaceLost)
}
