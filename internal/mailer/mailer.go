// Package mailer 负责构建并投递表单通知邮件
//
// 每次调用 Dispatch 都会构建一封全新的邮件，不在请求之间共享任何可变状态；
// 每次投递尝试恰好写入一条审计记录。
package mailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
	"infrasalama/backend/internal/domain"
)

// ErrNoRecipients 请求中没有收件人
var ErrNoRecipients = errors.New("no recipients")

// Status 投递结果
type Status int

const (
	StatusSent Status = iota
	StatusFailed
)

// String 实现 fmt.Stringer
func (s Status) String() string {
	if s == StatusSent {
		return AuditSuccess
	}
	return AuditError
}

// Result 投递结果：Sent 或 Failed(reason)
type Result struct {
	Status Status
	Reason error
}

// Sent 构造成功结果
func Sent() Result {
	return Result{Status: StatusSent}
}

// Failed 构造失败结果
func Failed(reason error) Result {
	return Result{Status: StatusFailed, Reason: reason}
}

// OK 是否投递成功
func (r Result) OK() bool {
	return r.Status == StatusSent
}

// Attachment 随邮件发送的磁盘文件
type Attachment struct {
	Path        string
	Name        string // 邮件中显示的文件名
	ContentType string
}

// Request 一次投递请求
type Request struct {
	Endpoint   domain.FormKind
	To         []string
	Subject    string
	HTML       string
	Text       string
	ReplyTo    string
	Attachment *Attachment
}

// Recorder 投递指标
type Recorder interface {
	ObserveDispatch(endpoint, driver, status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDispatch(string, string, string, time.Duration) {}

// Service 邮件投递服务
type Service struct {
	transport Transport
	audit     *AuditLog
	metrics   Recorder
	logger    *zap.Logger

	fromAddress string
	fromName    string
	host        string
	username    string
}

// NewService 创建投递服务，发件人与审计中的主机信息取自配置
func NewService(cfg config.MailConfig, transport Transport, audit *AuditLog, metrics Recorder, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	host := cfg.Host
	switch cfg.Driver {
	case config.DriverSES:
		host = "ses:" + cfg.SES.Region
	case config.DriverLog:
		host = config.DriverLog
	}

	return &Service{
		transport:   transport,
		audit:       audit,
		metrics:     metrics,
		logger:      logger.Named("mailer"),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		host:        host,
		username:    cfg.Username,
	}
}

// FromName 发件人名称
func (s *Service) FromName() string {
	return s.fromName
}

// Dispatch 构建并投递一封邮件
//
// 投递错误和 panic 都转换为 Failed(reason)，审计写入失败不影响结果。
func (s *Service) Dispatch(ctx context.Context, req Request) Result {
	start := time.Now()
	err := s.send(ctx, req)
	duration := time.Since(start)

	result := Sent()
	entry := AuditEntry{
		Time:     start,
		Endpoint: req.Endpoint.String(),
		Status:   AuditSuccess,
		To:       req.To,
		From:     s.fromAddress,
		Host:     s.host,
		Username: s.username,
	}
	if err != nil {
		result = Failed(err)
		entry.Status = AuditError
		entry.Error = err.Error()
		s.logger.Error("Mail dispatch failed",
			zap.String("endpoint", req.Endpoint.String()),
			zap.String("driver", s.transport.Name()),
			zap.Strings("to", req.To),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		s.logger.Info("Mail dispatched",
			zap.String("endpoint", req.Endpoint.String()),
			zap.String("driver", s.transport.Name()),
			zap.Strings("to", req.To),
			zap.Duration("duration", duration),
		)
	}

	s.audit.Record(entry)
	s.metrics.ObserveDispatch(req.Endpoint.String(), s.transport.Name(), result.Status.String(), duration)

	return result
}

func (s *Service) send(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during dispatch: %v", r)
		}
	}()

	msg, err := s.buildMessage(req)
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, msg)
}

// buildMessage 构建全新的多部分邮件：纯文本正文 + HTML 备选 + 可选附件
func (s *Service) buildMessage(req Request) (*mail.Msg, error) {
	if len(req.To) == 0 {
		return nil, ErrNoRecipients
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromAddress); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(req.To...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	if req.ReplyTo != "" {
		if err := msg.ReplyTo(req.ReplyTo); err != nil {
			s.logger.Warn("Ignoring invalid reply-to", zap.String("reply_to", req.ReplyTo), zap.Error(err))
		}
	}

	msg.Subject(domain.StripHeaderBreaks(req.Subject))
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, req.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, req.HTML)

	if att := req.Attachment; att != nil {
		if _, err := os.Stat(att.Path); err != nil {
			return nil, fmt.Errorf("attachment: %w", err)
		}
		opts := []mail.FileOption{mail.WithFileName(att.Name)}
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		msg.AttachFile(att.Path, opts...)
	}

	return msg, nil
}
