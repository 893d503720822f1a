package httptransport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
	"infrasalama/backend/internal/domain"
	"infrasalama/backend/internal/form"
	"infrasalama/backend/internal/mailer"
	"infrasalama/backend/internal/middleware"
	"infrasalama/backend/internal/monitoring"
	"infrasalama/backend/internal/security"
	"infrasalama/backend/internal/storage/filesystem"
)

// maxMultipartMemory 解析 multipart 时保存在内存中的上限，超出部分写入临时文件
const maxMultipartMemory = 8 << 20

// 提交结果（指标标签）
const (
	outcomeInvalid  = "invalid"
	outcomeRejected = "rejected"
	outcomeSent     = "sent"
	outcomeFailed   = "failed"
	outcomeError    = "error"
)

// FormHandler 表单端点处理器
//
// 每个请求独立同步处理：校验 → （招聘）文件检查与保存 → 组装 → 投递 → 响应。
type FormHandler struct {
	cfg      *config.Config
	mailer   *mailer.Service
	composer *mailer.Composer
	guard    *security.UploadGuard
	uploads  *filesystem.Store
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewFormHandler 创建表单处理器
func NewFormHandler(
	cfg *config.Config,
	mailService *mailer.Service,
	composer *mailer.Composer,
	guard *security.UploadGuard,
	uploads *filesystem.Store,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *FormHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	return &FormHandler{
		cfg:      cfg,
		mailer:   mailService,
		composer: composer,
		guard:    guard,
		uploads:  uploads,
		metrics:  metrics,
		logger:   logger.Named("forms"),
	}
}

// Handle 返回某个表单的处理函数
func (h *FormHandler) Handle(def form.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.handle(c, def)
	}
}

func (h *FormHandler) handle(c *gin.Context, def form.Definition) {
	kind := def.Kind.String()

	// stored 在保存简历后赋值；投递失败或 panic 时删除
	var stored *domain.StoredFile
	defer func() {
		if r := recover(); r != nil {
			h.metrics.RecordPanic()
			h.metrics.RecordSubmission(kind, outcomeError)
			h.logger.Error("Unhandled error in form handler",
				zap.String("form", kind),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			h.removeUpload(stored)
			if !c.Writer.Written() {
				InternalError(c, MsgServerError)
			}
			c.Abort()
		}
	}()

	sub, err := h.readSubmission(c, def)
	if err != nil {
		h.metrics.RecordSubmission(kind, outcomeRejected)
		Error(c, http.StatusRequestEntityTooLarge, MsgBodyTooLarge)
		return
	}

	if errs := def.Check(sub); len(errs) > 0 {
		h.metrics.RecordSubmission(kind, outcomeInvalid)
		for _, e := range errs {
			h.metrics.RecordValidationError(kind, string(e.Code))
		}
		ValidationFailed(c, domain.Messages(errs))
		return
	}

	if def.FileField != "" {
		stored, err = h.storeUpload(c, sub.File)
		if err != nil {
			return
		}
	}

	record := def.Sanitize(sub)
	record.File = stored

	to, err := mailer.ResolveRecipients(h.cfg.Mail.Recipients[kind], h.cfg.Mail.ToAddress)
	if err != nil {
		h.metrics.RecordSubmission(kind, outcomeError)
		h.logger.Error("No recipient configured", zap.String("form", kind), zap.Error(err))
		h.removeUpload(stored)
		InternalError(c, MsgServerError)
		return
	}

	msg, err := h.composer.Compose(record)
	if err != nil {
		h.metrics.RecordSubmission(kind, outcomeError)
		h.logger.Error("Failed to compose message", zap.String("form", kind), zap.Error(err))
		h.removeUpload(stored)
		InternalError(c, MsgServerError)
		return
	}

	req := mailer.Request{
		Endpoint: def.Kind,
		To:       to,
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		Text:     msg.Text,
	}
	if def.EmailField != "" {
		req.ReplyTo, _ = record.Get(def.EmailField)
	}
	if stored != nil {
		req.Attachment = &mailer.Attachment{
			Path:        stored.Path,
			Name:        stored.OriginalName,
			ContentType: stored.ContentType,
		}
	}

	result := h.mailer.Dispatch(c.Request.Context(), req)
	if !result.OK() {
		h.metrics.RecordSubmission(kind, outcomeFailed)
		h.removeUpload(stored)
		InternalError(c, MsgSendFailed)
		return
	}

	h.metrics.RecordSubmission(kind, outcomeSent)
	Success(c, successMessages[def.Kind])
}

// storeUpload 检查并保存简历，失败时已写出响应
func (h *FormHandler) storeUpload(c *gin.Context, upload *domain.Upload) (*domain.StoredFile, error) {
	kind := domain.FormRecrutement.String()

	if err := h.guard.Check(upload); err != nil {
		var rejection *security.RejectionError
		if errors.As(err, &rejection) {
			reason := "type"
			if errors.Is(err, security.ErrTooLarge) {
				reason = "size"
			}
			h.metrics.RecordUploadRejection(reason)
			h.metrics.RecordSubmission(kind, outcomeRejected)
			h.logger.Info("Upload rejected",
				zap.String("filename", upload.Filename),
				zap.String("content_type", upload.ContentType),
				zap.Int64("size", upload.Size),
				zap.String("detail", rejection.Detail),
			)
			BadRequest(c, rejection.Message)
			return nil, err
		}

		h.metrics.RecordSubmission(kind, outcomeError)
		h.logger.Error("Failed to inspect upload", zap.Error(err))
		InternalError(c, MsgUploadSave)
		return nil, err
	}

	if err := h.uploads.EnsureDir(); err != nil {
		h.metrics.RecordSubmission(kind, outcomeError)
		h.logger.Error("Upload directory unavailable", zap.String("dir", h.uploads.Dir()), zap.Error(err))
		InternalError(c, storageMessage(err))
		return nil, err
	}

	stored, err := h.uploads.Save(upload)
	if err != nil {
		h.metrics.RecordSubmission(kind, outcomeError)
		h.logger.Error("Failed to save upload", zap.Error(err))
		InternalError(c, storageMessage(err))
		return nil, err
	}

	h.metrics.RecordResumeSize(stored.Size)
	return stored, nil
}

func (h *FormHandler) removeUpload(stored *domain.StoredFile) {
	if stored == nil {
		return
	}
	if err := h.uploads.Remove(stored); err != nil {
		h.logger.Error("Failed to remove upload", zap.String("path", stored.Path), zap.Error(err))
	}
}

// readSubmission 读取请求体中的表单字段和文件
//
// 只读取请求体，不读取查询串。请求体格式错误时按空提交处理，由校验报告缺失字段；
// 只有请求体超限时返回错误。
func (h *FormHandler) readSubmission(c *gin.Context, def form.Definition) (*domain.Submission, error) {
	req := c.Request

	var err error
	multipart := strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/")
	if multipart {
		err = req.ParseMultipartForm(maxMultipartMemory)
	} else {
		err = req.ParseForm()
	}
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			return nil, err
		}
		h.logger.Warn("Malformed form body", zap.String("form", def.Kind.String()), zap.Error(err))
	}

	fields := make(map[string]string, len(req.PostForm))
	for key, values := range req.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	sub := domain.NewSubmission(fields)

	if def.FileField != "" {
		if multipart && err != nil {
			// 请求体在文件中途截断或损坏
			sub.File = &domain.Upload{Status: domain.UploadFailed}
		} else {
			sub.File = readUpload(req, def.FileField)
		}
	}
	return sub, nil
}

// readUpload 读取上传文件并转换为传输层状态
func readUpload(req *http.Request, field string) *domain.Upload {
	if req.MultipartForm == nil || len(req.MultipartForm.File[field]) == 0 {
		return &domain.Upload{Status: domain.UploadMissing}
	}

	header := req.MultipartForm.File[field][0]
	if header.Filename == "" {
		return &domain.Upload{Status: domain.UploadMissing}
	}

	return &domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Status:      domain.UploadOK,
		Open: func() (io.ReadCloser, error) {
			f, err := header.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", header.Filename, err)
			}
			return f, nil
		},
	}
}
