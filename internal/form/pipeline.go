package form

import (
	"fmt"
	"strings"

	"infrasalama/backend/internal/domain"
)

// MissingFieldMessage 必填字段缺失时的消息
func MissingFieldMessage(field string) string {
	return fmt.Sprintf("Le champ '%s' est requis", field)
}

// Check 按固定顺序检查提交并返回全部错误，无错误时返回 nil
func (d Definition) Check(sub *domain.Submission) []domain.FieldError {
	var errs []domain.FieldError

	for _, field := range d.Required {
		if !sub.Present(field) {
			errs = append(errs, domain.FieldError{
				Code:    domain.CodeMissingField,
				Field:   field,
				Message: MissingFieldMessage(field),
			})
		}
	}

	if d.EmailField != "" && sub.Present(d.EmailField) {
		raw, _ := sub.Raw(d.EmailField)
		if !domain.IsValidEmail(strings.TrimSpace(raw)) {
			errs = append(errs, domain.FieldError{
				Code:    domain.CodeInvalidEmail,
				Field:   d.EmailField,
				Message: MsgInvalidEmail,
			})
		}
	}

	for _, consent := range d.Consents {
		if value, ok := sub.Raw(consent.Field); !ok || value != CheckboxOn {
			errs = append(errs, domain.FieldError{
				Code:    domain.CodeConsentRequired,
				Field:   consent.Field,
				Message: consent.Message,
			})
		}
	}

	if d.FileField != "" {
		switch {
		case sub == nil || sub.File == nil || sub.File.Status == domain.UploadMissing:
			errs = append(errs, domain.FieldError{
				Code:    domain.CodeMissingFile,
				Field:   d.FileField,
				Message: MsgMissingFile,
			})
		case sub.File.Status != domain.UploadOK:
			errs = append(errs, domain.FieldError{
				Code:    domain.CodeUploadError,
				Field:   d.FileField,
				Message: MsgUploadError,
			})
		}
	}

	return errs
}

// Sanitize 清洗已通过检查的提交
//
// 自由文本字段去除首尾空白后做 HTML 转义，邮箱字段使用邮箱过滤器，
// 缺失的可选字段不出现在记录中，服务复选框组折叠为勾选项的标签列表。
func (d Definition) Sanitize(sub *domain.Submission) *domain.Record {
	record := domain.NewRecord(d.Kind)

	clean := func(field string) {
		if !sub.Present(field) {
			return
		}
		raw, _ := sub.Raw(field)
		value := strings.TrimSpace(raw)
		if field == d.EmailField {
			record.Values[field] = domain.SanitizeEmail(value)
			return
		}
		record.Values[field] = domain.EscapeHTML(value)
	}

	for _, field := range d.Required {
		clean(field)
	}
	for _, field := range d.Optional {
		clean(field)
	}

	for _, service := range d.Services {
		if value, ok := sub.Raw(service.Field); ok && value == CheckboxOn {
			record.Services = append(record.Services, service.Label)
		}
	}

	return record
}

// Validate 检查并清洗提交
func (d Definition) Validate(sub *domain.Submission) domain.ValidationResult {
	if errs := d.Check(sub); len(errs) > 0 {
		return domain.Invalid(errs)
	}
	return domain.Valid(d.Sanitize(sub))
}
