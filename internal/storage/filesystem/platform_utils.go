package filesystem

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxExtensionLength 保存文件时保留的扩展名最大长度（含点号）
const maxExtensionLength = 10

// PlatformUtils 平台兼容性工具
type PlatformUtils struct{}

// NewPlatformUtils 创建平台工具实例
func NewPlatformUtils() *PlatformUtils {
	return &PlatformUtils{}
}

// SanitizeFilename 清理客户端提供的文件名，确保跨平台兼容
//
// 去掉目录部分、非法字符和控制字符，限制长度，结果不会为空。
func (p *PlatformUtils) SanitizeFilename(filename string) string {
	// 客户端可能发送 Windows 风格路径
	filename = filename[strings.LastIndexAny(filename, `/\`)+1:]

	for _, char := range p.getInvalidChars() {
		filename = strings.ReplaceAll(filename, char, "_")
	}

	filename = p.removeControlChars(filename)
	filename = p.limitLength(filename, 200)
	filename = strings.Trim(filename, " .")

	if filename == "" {
		filename = "unnamed"
	}

	return filename
}

// Extension 返回清理后的小写扩展名（含点号）
//
// 扩展名只允许字母和数字，不满足时返回空串。
func (p *PlatformUtils) Extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(p.SanitizeFilename(filename)))
	if len(ext) < 2 || len(ext) > maxExtensionLength {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// getInvalidChars 获取当前平台不允许的字符
func (p *PlatformUtils) getInvalidChars() []string {
	switch runtime.GOOS {
	case "darwin", "linux":
		return []string{"/", "\x00"}
	default:
		// Windows 及其它平台保守处理
		return []string{"<", ">", ":", "\"", "|", "?", "*", "\\", "/", "\x00"}
	}
}

// removeControlChars 移除控制字符
func (p *PlatformUtils) removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// limitLength 按字节限制长度，保留扩展名
func (p *PlatformUtils) limitLength(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	ext := filepath.Ext(s)
	nameWithoutExt := strings.TrimSuffix(s, ext)

	availableLen := maxLen - len(ext)
	if availableLen <= 0 {
		return ext
	}

	truncated := nameWithoutExt[:availableLen]
	// 避免截断在多字节字符中间
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + ext
}

// ValidatePath 验证路径是否安全
func (p *PlatformUtils) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}

	if len(path) > 2000 {
		return fmt.Errorf("path too long: %d characters", len(path))
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("path traversal detected: %s", path)
		}
	}

	return nil
}

// NormalizePath 转换为清理后的绝对路径
func (p *PlatformUtils) NormalizePath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return absPath
}
