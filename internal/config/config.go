package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrEnvFileNotFound 表示配置文件不存在，服务拒绝启动
var ErrEnvFileNotFound = errors.New("env file not found")

// 邮件投递驱动
const (
	DriverSMTP = "smtp" // 通过 SMTP 服务器发送
	DriverSES  = "ses"  // 通过 AWS SES v2 发送
	DriverLog  = "log"  // 仅写入日志（本地开发）
)

// SMTP 加密方式
const (
	EncryptionTLS  = "tls"  // STARTTLS
	EncryptionSSL  = "ssl"  // 隐式 TLS（SMTPS）
	EncryptionNone = "none" // 明文
)

// AppConfig 应用级配置
type AppConfig struct {
	Env string // 运行环境: local / production
}

// IsLocal 是否为本地开发环境
func (a AppConfig) IsLocal() bool {
	return a.Env == "local"
}

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// SESConfig AWS SES 投递配置
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// MailConfig 定义邮件发送配置
type MailConfig struct {
	Driver      string        // 投递驱动: smtp / ses / log
	Host        string        // SMTP 主机
	Port        int           // SMTP 端口
	Username    string        // SMTP 用户名，留空表示不认证
	Password    string        // SMTP 密码
	Encryption  string        // tls / ssl / none
	Auth        string        // plain / login / cram-md5
	Timeout     time.Duration // 连接与会话超时
	FromAddress string        // 发件人地址
	FromName    string        // 发件人名称
	ToAddress   string        // 通用收件人（逗号分隔）

	// Recipients 各表单专用收件人，优先于 ToAddress
	Recipients map[string]string

	SES SESConfig
}

// UploadConfig 简历上传配置
type UploadConfig struct {
	Dir string // 简历保存目录
}

// AuditConfig 投递审计日志配置
type AuditConfig struct {
	File string // 审计日志文件路径
}

// HealthMailConfig 邮件自检端点配置
type HealthMailConfig struct {
	Token string // 访问令牌，为空时端点始终返回 401
	To    string // 测试邮件收件人，为空时回落到 ToAddress
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件，为空时只输出到控制台
}

// SinkConfig 本地 SMTP 接收器配置
type SinkConfig struct {
	Addr string
}

// Config 是系统核心配置的根结构体，启动时构建一次，之后只读
type Config struct {
	App        AppConfig
	Server     ServerConfig
	Mail       MailConfig
	Upload     UploadConfig
	Audit      AuditConfig
	HealthMail HealthMailConfig
	CORS       CORSConfig
	Log        LogConfig
	Sink       SinkConfig
}

// recipientKeys 表单名到专用收件人配置键的映射
var recipientKeys = map[string]string{
	"contact":     "mail_to_contact",
	"devis":       "mail_to_devis",
	"demo":        "mail_to_demo",
	"recrutement": "mail_to_recrutement",
}

// Load 从 .env 文件和环境变量加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件
//  3. 默认值
//
// .env 文件必须存在，否则返回 ErrEnvFileNotFound。
func Load(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrEnvFileNotFound, path)
		}
		return nil, fmt.Errorf("stat env file: %w", err)
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse env file: %w", err)
	}

	v := viper.New()
	settings := make(map[string]any, len(values))
	for key, value := range values {
		settings[strings.ToLower(strings.TrimSpace(key))] = value
	}
	if err := v.MergeConfigMap(settings); err != nil {
		return nil, fmt.Errorf("merge env file: %w", err)
	}
	v.AutomaticEnv()

	setDefaults(v)

	return build(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "production")
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("mail_driver", DriverSMTP)
	v.SetDefault("mail_host", "smtp.gmail.com")
	v.SetDefault("mail_port", 587)
	v.SetDefault("mail_username", "")
	v.SetDefault("mail_password", "")
	v.SetDefault("mail_encryption", EncryptionTLS)
	v.SetDefault("mail_auth", "plain")
	v.SetDefault("mail_timeout", "30s")
	v.SetDefault("mail_from_address", "")
	v.SetDefault("mail_from_name", "Infra Salama")
	v.SetDefault("mail_to_address", "")
	for _, key := range recipientKeys {
		v.SetDefault(key, "")
	}
	v.SetDefault("ses_region", "")
	v.SetDefault("ses_access_key_id", "")
	v.SetDefault("ses_secret_access_key", "")
	v.SetDefault("upload_dir", "uploads/cv")
	v.SetDefault("audit_log_file", "logs/mail.log")
	v.SetDefault("log_file", "")
	v.SetDefault("health_mail_token", "")
	v.SetDefault("health_mail_to", "")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("sink_addr", "127.0.0.1:1025")
}

func build(v *viper.Viper) (*Config, error) {
	appEnv := strings.ToLower(strings.TrimSpace(v.GetString("app_env")))

	driver := strings.ToLower(strings.TrimSpace(v.GetString("mail_driver")))
	switch driver {
	case DriverSMTP, DriverSES, DriverLog:
	default:
		return nil, fmt.Errorf("invalid MAIL_DRIVER %q", driver)
	}

	encryption := normalizeEncryption(v.GetString("mail_encryption"))
	if encryption == "" {
		return nil, fmt.Errorf("invalid MAIL_ENCRYPTION %q", v.GetString("mail_encryption"))
	}

	auth := strings.ToLower(strings.TrimSpace(v.GetString("mail_auth")))
	switch auth {
	case "plain", "login", "cram-md5":
	default:
		return nil, fmt.Errorf("invalid MAIL_AUTH %q", auth)
	}

	port := v.GetInt("mail_port")
	if port <= 0 {
		return nil, fmt.Errorf("MAIL_PORT must be positive")
	}

	timeout, err := time.ParseDuration(v.GetString("mail_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAIL_TIMEOUT: %w", err)
	}

	from := strings.TrimSpace(v.GetString("mail_from_address"))
	if from == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS must not be empty")
	}

	if driver == DriverSES && strings.TrimSpace(v.GetString("ses_region")) == "" {
		return nil, fmt.Errorf("SES_REGION is required when MAIL_DRIVER=ses")
	}

	recipients := make(map[string]string, len(recipientKeys))
	for form, key := range recipientKeys {
		recipients[form] = strings.TrimSpace(v.GetString(key))
	}

	corsOrigins := ParseList(v.GetString("cors_allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	// 未设置 LOG_LEVEL 时本地环境默认 debug
	logLevel := strings.TrimSpace(v.GetString("log_level"))
	if logLevel == "" {
		logLevel = "info"
		if appEnv == "local" {
			logLevel = "debug"
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env: appEnv,
		},
		Server: ServerConfig{
			Host: v.GetString("server_host"),
			Port: v.GetInt("server_port"),
		},
		Mail: MailConfig{
			Driver:      driver,
			Host:        strings.TrimSpace(v.GetString("mail_host")),
			Port:        port,
			Username:    v.GetString("mail_username"),
			Password:    v.GetString("mail_password"),
			Encryption:  encryption,
			Auth:        auth,
			Timeout:     timeout,
			FromAddress: from,
			FromName:    v.GetString("mail_from_name"),
			ToAddress:   strings.TrimSpace(v.GetString("mail_to_address")),
			Recipients:  recipients,
			SES: SESConfig{
				Region:          v.GetString("ses_region"),
				AccessKeyID:     v.GetString("ses_access_key_id"),
				SecretAccessKey: v.GetString("ses_secret_access_key"),
			},
		},
		Upload: UploadConfig{
			Dir: v.GetString("upload_dir"),
		},
		Audit: AuditConfig{
			File: v.GetString("audit_log_file"),
		},
		HealthMail: HealthMailConfig{
			Token: v.GetString("health_mail_token"),
			To:    strings.TrimSpace(v.GetString("health_mail_to")),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       logLevel,
			Development: appEnv == "local",
			File:        v.GetString("log_file"),
		},
		Sink: SinkConfig{
			Addr: v.GetString("sink_addr"),
		},
	}

	return cfg, nil
}

// normalizeEncryption 兼容 PHPMailer 风格的取值（tls / ssl / 空）
func normalizeEncryption(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "tls", "starttls":
		return EncryptionTLS
	case "ssl", "smtps":
		return EncryptionSSL
	case "none", "false", "off":
		return EncryptionNone
	default:
		return ""
	}
}

// ParseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符和空项
func ParseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
