package domain

import (
	"html"
	"regexp"
	"strings"
)

// entityPattern 匹配已存在的 HTML 字符实体，如 &amp; &#039; &#x27;
var entityPattern = regexp.MustCompile(`^&(#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)

// EscapeHTML 转义 & < > " '，已有的字符实体保持不变
//
// 对同一字符串重复调用结果不变：EscapeHTML(EscapeHTML(s)) == EscapeHTML(s)。
func EscapeHTML(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if loc := entityPattern.FindStringIndex(s[i:]); loc != nil {
				b.WriteString(s[i : i+loc[1]])
				i += loc[1] - 1
				continue
			}
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#039;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// UnescapeHTML 还原字符实体，用于纯文本正文和邮件主题
func UnescapeHTML(s string) string {
	return html.UnescapeString(s)
}

var nl2brReplacer = strings.NewReplacer(
	"\r\n", "<br />\r\n",
	"\n", "<br />\n",
	"\r", "<br />\r",
)

// NL2BR 在每个换行前插入 <br />
func NL2BR(s string) string {
	return nl2brReplacer.Replace(s)
}

// SanitizeEmail 删除邮箱地址中不允许出现的字符
//
// 保留字母、数字以及 !#$%&'*+-=?^_`{|}~@.[]
func SanitizeEmail(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("!#$%&'*+-=?^_`{|}~@.[]", r):
			return r
		default:
			return -1
		}
	}, s)
}

// StripHeaderBreaks 删除 CR/LF，防止邮件头注入
func StripHeaderBreaks(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '\r' || r == '\n'
	}), " ")
}
