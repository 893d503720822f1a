package mailer

import (
	"errors"
	"strings"
)

// ErrNoRecipientConfigured 既没有表单专用收件人也没有通用收件人
var ErrNoRecipientConfigured = errors.New("no recipient configured")

// SplitAddresses 拆分逗号分隔的地址串，去除空白和空项
func SplitAddresses(value string) []string {
	parts := strings.Split(value, ",")
	addrs := make([]string, 0, len(parts))
	for _, part := range parts {
		if addr := strings.TrimSpace(part); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// ResolveRecipients 按优先级选择收件人：专用地址 > 通用地址
func ResolveRecipients(override, fallback string) ([]string, error) {
	if addrs := SplitAddresses(override); len(addrs) > 0 {
		return addrs, nil
	}
	if addrs := SplitAddresses(fallback); len(addrs) > 0 {
		return addrs, nil
	}
	return nil, ErrNoRecipientConfigured
}
