package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"infrasalama/backend/internal/config"
)

// SMTPTransport 通过 SMTP 服务器投递，每次发送单独拨号
type SMTPTransport struct {
	host string
	opts []mail.Option
}

// NewSMTPTransport 根据配置创建 SMTP 投递方式
//
// 加密方式：tls 强制 STARTTLS，ssl 使用隐式 TLS，none 不加密。
// 用户名为空时不做认证。
func NewSMTPTransport(cfg config.MailConfig, debug bool) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is empty")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts = append(opts, mail.WithTimeout(timeout))

	switch cfg.Encryption {
	case config.EncryptionSSL:
		opts = append(opts, mail.WithSSL())
	case config.EncryptionNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(authType(cfg.Auth)),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if debug {
		opts = append(opts, mail.WithDebugLog())
	}

	// 提前校验选项，避免在第一个请求时才发现配置错误
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPTransport{host: cfg.Host, opts: opts}, nil
}

func authType(name string) mail.SMTPAuthType {
	switch name {
	case "login":
		return mail.SMTPAuthLogin
	case "cram-md5":
		return mail.SMTPAuthCramMD5
	default:
		return mail.SMTPAuthPlain
	}
}

// Send 拨号、发送并断开
func (t *SMTPTransport) Send(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(t.host, t.opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Name 返回驱动名称
func (t *SMTPTransport) Name() string {
	return config.DriverSMTP
}
