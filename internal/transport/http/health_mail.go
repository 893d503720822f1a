package httptransport

import (
	"crypto/subtle"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
	"infrasalama/backend/internal/domain"
	"infrasalama/backend/internal/mailer"
)

// HealthMailHandler 邮件自检端点
//
// 令牌来自查询串或表单，必须与 HEALTH_MAIL_TOKEN 完全一致；未配置令牌时端点始终拒绝。
type HealthMailHandler struct {
	cfg      *config.Config
	mailer   *mailer.Service
	composer *mailer.Composer
	logger   *zap.Logger
	now      func() time.Time
}

// NewHealthMailHandler 创建邮件自检处理器
func NewHealthMailHandler(cfg *config.Config, mailService *mailer.Service, composer *mailer.Composer, logger *zap.Logger) *HealthMailHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthMailHandler{
		cfg:      cfg,
		mailer:   mailService,
		composer: composer,
		logger:   logger.Named("health-mail"),
		now:      time.Now,
	}
}

// Send 校验令牌并发送测试邮件
func (h *HealthMailHandler) Send(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Unhandled error in health-mail", zap.Any("panic", r), zap.Stack("stack"))
			if !c.Writer.Written() {
				InternalError(c, MsgHealthServerFail)
			}
			c.Abort()
		}
	}()

	if !h.authorized(param(c, "token")) {
		h.logger.Warn("Health-mail token rejected", zap.String("ip", c.ClientIP()))
		Unauthorized(c, MsgUnauthorized)
		return
	}

	override := param(c, "to")
	if override == "" {
		override = h.cfg.HealthMail.To
	}
	to, err := mailer.ResolveRecipients(override, h.cfg.Mail.ToAddress)
	if err != nil {
		h.logger.Error("No recipient configured for health-mail", zap.Error(err))
		InternalError(c, MsgHealthServerFail)
		return
	}

	msg, err := h.composer.HealthCheck(h.now(), h.cfg.Mail.Driver, h.serverName())
	if err != nil {
		h.logger.Error("Failed to compose health-mail", zap.Error(err))
		InternalError(c, MsgHealthServerFail)
		return
	}

	result := h.mailer.Dispatch(c.Request.Context(), mailer.Request{
		Endpoint: domain.FormHealthMail,
		To:       to,
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		Text:     msg.Text,
	})
	if !result.OK() {
		InternalError(c, MsgHealthFailed)
		return
	}

	Success(c, MsgHealthSent)
}

// authorized 常量时间比较令牌
func (h *HealthMailHandler) authorized(token string) bool {
	expected := h.cfg.HealthMail.Token
	if expected == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

func (h *HealthMailHandler) serverName() string {
	switch h.cfg.Mail.Driver {
	case config.DriverSES:
		return "ses:" + h.cfg.Mail.SES.Region
	case config.DriverLog:
		return config.DriverLog
	default:
		return h.cfg.Mail.Host
	}
}

// param 先取查询串，再取表单
func param(c *gin.Context, name string) string {
	if value, ok := c.GetQuery(name); ok {
		return value
	}
	return c.PostForm(name)
}
