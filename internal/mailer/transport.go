package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
)

// Transport 投递一封已构建的邮件
//
// 每次调用都会收到全新的 *mail.Msg，实现不应保留对它的引用。
type Transport interface {
	Send(ctx context.Context, msg *mail.Msg) error
	Name() string
}

// NewTransport 根据 MAIL_DRIVER 创建投递方式
func NewTransport(ctx context.Context, cfg config.MailConfig, debug bool, logger *zap.Logger) (Transport, error) {
	switch cfg.Driver {
	case config.DriverSMTP:
		return NewSMTPTransport(cfg, debug)
	case config.DriverSES:
		return NewSESTransport(ctx, cfg.SES)
	case config.DriverLog:
		return NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}
