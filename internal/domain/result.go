package domain

// ErrorCode 字段错误类别
type ErrorCode string

const (
	CodeMissingField    ErrorCode = "missing_field"
	CodeInvalidEmail    ErrorCode = "invalid_email"
	CodeConsentRequired ErrorCode = "consent_required"
	CodeMissingFile     ErrorCode = "missing_file"
	CodeUploadError     ErrorCode = "upload_error"
)

// FieldError 单条校验失败，Message 原样返回给客户端
type FieldError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error 实现 error 接口
func (e FieldError) Error() string {
	return e.Message
}

// Messages 提取客户端可见的错误消息列表
func Messages(errs []FieldError) []string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return messages
}

// ValidationResult 校验结果：Valid(record) 与 Invalid(errors) 二选一
type ValidationResult struct {
	record *Record
	errs   []FieldError
}

// Valid 构造成功结果
func Valid(record *Record) ValidationResult {
	return ValidationResult{record: record}
}

// Invalid 构造失败结果
func Invalid(errs []FieldError) ValidationResult {
	return ValidationResult{errs: errs}
}

// IsValid 是否通过校验
func (r ValidationResult) IsValid() bool {
	return len(r.errs) == 0 && r.record != nil
}

// Record 成功时返回清洗后的记录，否则为 nil
func (r ValidationResult) Record() *Record {
	if !r.IsValid() {
		return nil
	}
	return r.record
}

// Errors 失败时返回按检查顺序累积的全部错误
func (r ValidationResult) Errors() []FieldError {
	return r.errs
}
