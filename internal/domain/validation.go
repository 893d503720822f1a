package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// 邮箱验证相关的错误定义
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmailTooLong     = errors.New("email address too long")
	ErrLocalPartTooLong = errors.New("local part too long (max 64 chars)")
	ErrInvalidLocalPart = errors.New("invalid local part format")
	ErrInvalidDomain    = errors.New("invalid domain format")
)

// RFC 5321/5322 长度限制
const (
	MaxEmailLength     = 254 // 整个邮箱地址最大长度
	MaxLocalPartLength = 64  // 本地部分最大长度(@前面)
	MaxDomainLength    = 253 // 域名最大长度
	maxLabelLength     = 63
)

var (
	// 本地部分：RFC 5322 dot-atom，点号不能位于首尾或连续出现
	localPartRegex = regexp.MustCompile("^[a-zA-Z0-9!#$%&'*+/=?^_`{|}~-]+(\\.[a-zA-Z0-9!#$%&'*+/=?^_`{|}~-]+)*$")

	// 域名标签：字母数字开头结尾，中间允许连字符
	labelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)
)

// ValidateEmail 校验邮箱地址格式
//
// 只接受裸地址（不带显示名和尖括号），域名至少包含两个标签。
func ValidateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return ErrInvalidEmail
	}

	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	localPart, domain := email[:at], email[at+1:]

	if len(localPart) > MaxLocalPartLength {
		return ErrLocalPartTooLong
	}
	if !localPartRegex.MatchString(localPart) {
		return ErrInvalidLocalPart
	}

	return validateDomain(domain)
}

// IsValidEmail ValidateEmail 的布尔形式
func IsValidEmail(email string) bool {
	return ValidateEmail(email) == nil
}

func validateDomain(domain string) error {
	if domain == "" || len(domain) > MaxDomainLength {
		return ErrInvalidDomain
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return ErrInvalidDomain
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > maxLabelLength || !labelRegex.MatchString(label) {
			return ErrInvalidDomain
		}
	}

	return nil
}
