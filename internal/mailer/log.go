package mailer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
)

// LogTransport 不投递，只把邮件摘要写入应用日志（本地开发）
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport 创建日志投递方式
func NewLogTransport(logger *zap.Logger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{logger: logger.Named("mail")}
}

// Send 记录收件人、主题与序列化后的大小
func (t *LogTransport) Send(_ context.Context, msg *mail.Msg) error {
	rcpts, err := msg.GetRecipients()
	if err != nil {
		return fmt.Errorf("log recipients: %w", err)
	}

	size, err := msg.WriteTo(io.Discard)
	if err != nil {
		return fmt.Errorf("render message: %w", err)
	}

	t.logger.Info("Mail captured by log driver",
		zap.Strings("to", rcpts),
		zap.String("subject", strings.Join(msg.GetGenHeader(mail.HeaderSubject), " ")),
		zap.Int64("bytes", size),
	)
	return nil
}

// Name 返回驱动名称
func (t *LogTransport) Name() string {
	return config.DriverLog
}
