package pkg

import "errors"

// 错误分类：handler 层按分类映射状态码
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// AppError 面向调用方的错误信息 + 所属分类
type AppError struct {
	Kind error
	Msg  string
}

func (e *AppError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

func (e *AppError) Unwrap() error { return e.Kind }

func Validation(msg string) error   { return &AppError{Kind: ErrValidation, Msg: msg} }
func Unauthorized(msg string) error { return &AppError{Kind: ErrUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AppError{Kind: ErrForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AppError{Kind: ErrNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AppError{Kind: ErrConflict, Msg: msg} }

// KindOf 返回错误分类；基础设施错误返回 nil
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
