// Package smtpsink 提供一个只接收不转发的 SMTP 服务器
//
// 本地开发时把 MAIL_HOST 指向它即可查看表单邮件；测试中用它接收
// SMTP 驱动发出的真实报文。
package smtpsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// maxMessageBytes 单封邮件上限，简历 5MB 经 base64 编码后仍在范围内
const maxMessageBytes = 15 << 20

// Message 接收到的一封邮件
type Message struct {
	From       string
	Recipients []string
	Raw        []byte
	Parsed     *ParsedEmail
	ReceivedAt time.Time
}

// Sink 在内存中保存接收到的邮件
type Sink struct {
	mu       sync.Mutex
	messages []*Message
	notify   chan struct{}
	logger   *zap.Logger
	server   *gosmtp.Server
}

// New 创建接收器
func New(domain string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sink{
		notify: make(chan struct{}, 1),
		logger: logger.Named("smtpsink"),
	}

	server := gosmtp.NewServer(&backend{sink: s})
	server.Domain = domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = maxMessageBytes
	server.MaxRecipients = 50
	server.AllowInsecureAuth = true
	s.server = server

	return s
}

// Serve 在给定监听器上接收连接，直到 Close 被调用
func (s *Sink) Serve(ln net.Listener) error {
	s.logger.Info("SMTP sink listening", zap.String("addr", ln.Addr().String()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe 监听地址并接收连接
func (s *Sink) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Shutdown 优雅关闭
func (s *Sink) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Close 立即关闭
func (s *Sink) Close() error {
	return s.server.Close()
}

// Messages 返回已接收邮件的快照
func (s *Sink) Messages() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// WaitFor 等待至少 n 封邮件，超时返回错误
func (s *Sink) WaitFor(ctx context.Context, n int) ([]*Message, error) {
	for {
		if msgs := s.Messages(); len(msgs) >= n {
			return msgs, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %d messages: %w", n, ctx.Err())
		case <-s.notify:
		}
	}
}

func (s *Sink) add(msg *Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}

	attachments := make([]string, 0, len(msg.Parsed.Attachments))
	for _, att := range msg.Parsed.Attachments {
		attachments = append(attachments, fmt.Sprintf("%s (%s, %d bytes)", att.Filename, att.ContentType, len(att.Content)))
	}
	s.logger.Info("Message received",
		zap.String("from", msg.From),
		zap.Strings("to", msg.Recipients),
		zap.String("subject", msg.Parsed.Subject),
		zap.String("reply_to", msg.Parsed.ReplyTo),
		zap.Strings("attachments", attachments),
		zap.Int("bytes", len(msg.Raw)),
	)
}

// backend 实现 go-smtp 的 Backend 接口，接受任何收件人
type backend struct {
	sink *Sink
}

// NewSession 创建新的 SMTP 会话。
func (b *backend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{sink: b.sink}, nil
}

type session struct {
	sink        *Sink
	fromAddress string
	recipients  []string
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.fromAddress = from
	return nil
}

// Rcpt 处理 RCPT 命令。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)
	if !strings.Contains(addr, "@") {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}
	s.recipients = append(s.recipients, addr)
	return nil
}

// Data 处理邮件内容。
func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(r, maxMessageBytes))
	if err != nil {
		return err
	}

	parsed, err := ParseEmail(raw)
	if err != nil {
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      "message could not be parsed",
		}
	}

	s.sink.add(&Message{
		From:       s.fromAddress,
		Recipients: append([]string(nil), s.recipients...),
		Raw:        raw,
		Parsed:     parsed,
		ReceivedAt: time.Now(),
	})
	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
