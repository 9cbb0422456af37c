package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 错误分类：
//   - NOT_READY：索引/向量未加载，调用方降级为空结果
//   - UNAVAILABLE：上游（事件日志、缓存、解释生成）不可用，降级为默认值
//   - DATA_INCONSISTENCY：加载期数据不一致（行数不匹配、重复 ID），启动失败
//   - NOT_FOUND：直接请求了不存在的商品，需要显式返回给调用方
//
// 支持 errors.Is / errors.As，Err 保存底层原因。
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "NOT_READY"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "vector", "catalog"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 按 Module + Code 比较，使 errors.Is(err, ErrIndexNotReady) 对 Wrap 出来的新实例同样成立。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Module == t.Module
}

// IsDomainError 检查错误链中是否有 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建带底层原因的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound          = "NOT_FOUND"          // 资源不存在
	ErrorCodeNotSupported      = "NOT_SUPPORTED"      // 操作不支持
	ErrorCodeUnavailable       = "UNAVAILABLE"        // 服务不可用
	ErrorCodeInvalidInput      = "INVALID_INPUT"      // 输入无效
	ErrorCodeInternalError     = "INTERNAL_ERROR"     // 内部错误
	ErrorCodeNotReady          = "NOT_READY"          // 索引未加载
	ErrorCodeDataInconsistency = "DATA_INCONSISTENCY" // 数据不一致
)

// 模块名称常量
const (
	ModuleStore    = "store"
	ModuleVector   = "vector"
	ModuleCatalog  = "catalog"
	ModuleEventLog = "eventlog"
	ModuleExplain  = "explain"
	ModuleEngine   = "engine"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsNotReady 检查错误是否为 NOT_READY
func IsNotReady(err error) bool { return hasCode(err, ErrorCodeNotReady) }

// IsDataInconsistency 检查错误是否为 DATA_INCONSISTENCY
func IsDataInconsistency(err error) bool { return hasCode(err, ErrorCodeDataInconsistency) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }
