package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 可以包装底层错误（Err），支持 errors.Is / errors.As
//
// 使用场景：
//   - Catalog 错误：MISSING_RESOURCE, INVALID_INPUT
//   - Schema 错误：SCHEMA_MISMATCH, MISSING_RESOURCE
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "SCHEMA_MISMATCH"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "schema", "catalog"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按 Module + Code 判等，便于 errors.Is(err, ErrSchemaMismatch)。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Module == "" || e.Module == t.Module)
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链上的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	for err != nil {
		if domainErr, ok := err.(*DomainError); ok {
			return domainErr
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
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

// WrapDomainError 创建包装了底层错误的领域错误
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
	ErrorCodeNotFound        = "NOT_FOUND"        // 资源不存在
	ErrorCodeNotSupported    = "NOT_SUPPORTED"    // 操作不支持
	ErrorCodeInvalidInput    = "INVALID_INPUT"    // 输入无效
	ErrorCodeSchemaMismatch  = "SCHEMA_MISMATCH"  // 特征向量与 schema 不一致
	ErrorCodeMissingResource = "MISSING_RESOURCE" // 前置资源（schema / catalog）缺失
	ErrorCodeInternalError   = "INTERNAL_ERROR"   // 内部错误
)

// 模块名称常量
const (
	ModuleCatalog  = "catalog"
	ModuleSchema   = "schema"
	ModuleDataset  = "dataset"
	ModuleStore    = "store"
	ModulePipeline = "pipeline"
	ModuleConfig   = "config"
)

var (
	// ErrSchemaMismatch 特征数量或顺序与 schema 声明不一致，必须中止
	ErrSchemaMismatch = NewDomainError("", ErrorCodeSchemaMismatch, "schema mismatch")

	// ErrMissingResource schema 或 catalog 不存在，必须在开始前报告
	ErrMissingResource = NewDomainError("", ErrorCodeMissingResource, "missing resource")
)

// NewSchemaMismatch 创建 schema 不一致错误
func NewSchemaMismatch(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeSchemaMismatch, message)
}

// NewMissingResource 创建前置资源缺失错误
func NewMissingResource(module, resource string, err error) *DomainError {
	return WrapDomainError(module, ErrorCodeMissingResource, "missing "+resource, err)
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsSchemaMismatch 检查错误是否为 SCHEMA_MISMATCH
func IsSchemaMismatch(err error) bool {
	return hasCode(err, ErrorCodeSchemaMismatch)
}

// IsMissingResource 检查错误是否为 MISSING_RESOURCE
func IsMissingResource(err error) bool {
	return hasCode(err, ErrorCodeMissingResource)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
