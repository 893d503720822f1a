package filesystem

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPlatformUtils 测试平台兼容性工具
func TestPlatformUtils(t *testing.T) {
	utils := NewPlatformUtils()

	t.Run("sanitize filename", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected string
		}{
			// 正常文件名
			{"cv.pdf", "cv.pdf"},
			{"Mon CV 2024.docx", "Mon CV 2024.docx"},
			{"curriculum-vitæ.pdf", "curriculum-vitæ.pdf"},

			// 路径分隔符
			{"../cv.pdf", "cv.pdf"},
			{"C:\\Users\\nadia\\cv.pdf", "cv.pdf"},
			{"path/to/cv.pdf", "cv.pdf"},

			// 控制字符
			{"cv\r\n.pdf", "cv.pdf"},
			{"cv\tname.pdf", "cvname.pdf"},

			// 空文件名
			{"", "unnamed"},
			{"   ", "unnamed"},
			{"...", "unnamed"},

			// 超长文件名
			{strings.Repeat("a", 300) + ".pdf", strings.Repeat("a", 196) + ".pdf"},
		}

		for _, tc := range testCases {
			result := utils.SanitizeFilename(tc.input)
			assert.Equal(t, tc.expected, result, "Input: %q", tc.input)
		}
	})

	t.Run("truncation keeps utf8 valid", func(t *testing.T) {
		result := utils.SanitizeFilename(strings.Repeat("é", 150) + ".pdf")

		assert.True(t, strings.HasSuffix(result, ".pdf"))
		assert.LessOrEqual(t, len(result), 200)
		assert.NotContains(t, result, "\uFFFD")
	})

	t.Run("sanitize filename with platform specific characters", func(t *testing.T) {
		if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
			t.Skip("unix only")
		}
		assert.Equal(t, "cv<1>.pdf", utils.SanitizeFilename("cv<1>.pdf"))
	})

	t.Run("extension", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected string
		}{
			{"cv.pdf", ".pdf"},
			{"CV.PDF", ".pdf"},
			{"cv.final.docx", ".docx"},
			{"cv", ""},
			{"cv.", ""},
			{"cv.p df", ""},
			{"cv.verylongextension", ""},
			{"archive.tar.gz", ".gz"},
		}

		for _, tc := range testCases {
			assert.Equal(t, tc.expected, utils.Extension(tc.input), "Input: %q", tc.input)
		}
	})

	t.Run("validate path", func(t *testing.T) {
		assert.NoError(t, utils.ValidatePath("uploads/cv"))
		assert.NoError(t, utils.ValidatePath("/var/lib/infrasalama/cv"))
		assert.NoError(t, utils.ValidatePath("uploads/cv..old"))
		assert.Error(t, utils.ValidatePath("../etc"))
		assert.Error(t, utils.ValidatePath("uploads/../../etc"))
		assert.Error(t, utils.ValidatePath(""))
		assert.Error(t, utils.ValidatePath(strings.Repeat("a", 2001)))
	})
}
