package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeEnv 在临时目录中写入 .env 文件并返回路径
func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("加载默认配置成功", func(t *testing.T) {
		path := writeEnv(t, "MAIL_FROM_ADDRESS=noreply@infrasalama.dz\n")

		cfg, err := Load(path)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, DriverSMTP, cfg.Mail.Driver)
		assert.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
		assert.Equal(t, 587, cfg.Mail.Port)
		assert.Equal(t, EncryptionTLS, cfg.Mail.Encryption)
		assert.Equal(t, "plain", cfg.Mail.Auth)
		assert.Equal(t, 30*time.Second, cfg.Mail.Timeout)
		assert.Equal(t, "Infra Salama", cfg.Mail.FromName)
		assert.Equal(t, "uploads/cv", cfg.Upload.Dir)
		assert.Equal(t, "logs/mail.log", cfg.Audit.File)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.False(t, cfg.App.IsLocal())
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		path := writeEnv(t, `APP_ENV=local
SERVER_PORT=9090
MAIL_HOST=smtp.example.com
MAIL_PORT=465
MAIL_ENCRYPTION=ssl
MAIL_USERNAME=relay@example.com
MAIL_PASSWORD="s3cr3t with spaces"
MAIL_FROM_ADDRESS=noreply@example.com
MAIL_FROM_NAME="Infra Salama Site"
MAIL_TO_ADDRESS=a@example.com, b@example.com
MAIL_TO_DEVIS=sales@example.com
CORS_ALLOWED_ORIGINS=https://infrasalama.dz, https://www.infrasalama.dz
`)

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
		assert.Equal(t, 465, cfg.Mail.Port)
		assert.Equal(t, EncryptionSSL, cfg.Mail.Encryption)
		assert.Equal(t, "relay@example.com", cfg.Mail.Username)
		assert.Equal(t, "s3cr3t with spaces", cfg.Mail.Password)
		assert.Equal(t, "Infra Salama Site", cfg.Mail.FromName)
		assert.Equal(t, []string{"https://infrasalama.dz", "https://www.infrasalama.dz"}, cfg.CORS.AllowedOrigins)
		assert.True(t, cfg.App.IsLocal())
		assert.True(t, cfg.Log.Development)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("环境变量优先于文件", func(t *testing.T) {
		path := writeEnv(t, "MAIL_FROM_ADDRESS=noreply@example.com\nMAIL_HOST=from-file.example.com\n")
		t.Setenv("MAIL_HOST", "from-env.example.com")

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "from-env.example.com", cfg.Mail.Host)
	})

	t.Run("文件不存在时失败", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

		assert.ErrorIs(t, err, ErrEnvFileNotFound)
		assert.Nil(t, cfg)
	})

	t.Run("缺少发件人地址时失败", func(t *testing.T) {
		path := writeEnv(t, "MAIL_HOST=smtp.example.com\n")

		_, err := Load(path)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "MAIL_FROM_ADDRESS")
	})

	t.Run("非法取值时失败", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			want    string
		}{
			{"未知驱动", "MAIL_DRIVER=pigeon\n", "MAIL_DRIVER"},
			{"未知加密方式", "MAIL_ENCRYPTION=rot13\n", "MAIL_ENCRYPTION"},
			{"未知认证方式", "MAIL_AUTH=xoauth9\n", "MAIL_AUTH"},
			{"端口非法", "MAIL_PORT=0\n", "MAIL_PORT"},
			{"超时非法", "MAIL_TIMEOUT=soon\n", "MAIL_TIMEOUT"},
			{"SES 缺少区域", "MAIL_DRIVER=ses\n", "SES_REGION"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				path := writeEnv(t, "MAIL_FROM_ADDRESS=noreply@example.com\n"+tt.content)

				_, err := Load(path)

				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.want)
			})
		}
	})
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"单个项目", "item1", []string{"item1"}},
		{"多个项目", "item1,item2,item3", []string{"item1", "item2", "item3"}},
		{"包含空格", " item1 , item2 , item3 ", []string{"item1", "item2", "item3"}},
		{"包含空项", "item1,,item2,", []string{"item1", "item2"}},
		{"空字符串", "", []string{}},
		{"只有逗号", ",,,", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseList(tt.input))
		})
	}
}
