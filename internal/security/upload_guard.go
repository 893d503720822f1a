package security

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"infrasalama/backend/internal/domain"
)

// MaxResumeSize 简历大小上限
const MaxResumeSize int64 = 5 * 1024 * 1024

// 客户端可见的拒绝消息
const (
	MsgTypeNotAllowed = "Format de CV non autorisé. Utilisez PDF, DOC ou DOCX"
	MsgTooLarge       = "Le CV ne doit pas dépasser 5MB"
)

// 拒绝原因
var (
	ErrTypeNotAllowed = errors.New("upload type not allowed")
	ErrTooLarge       = errors.New("upload too large")
)

// RejectionError 上传被拒绝，Message 返回给客户端，Detail 只写日志
type RejectionError struct {
	Reason  error
	Message string
	Detail  string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// 可执行文件魔数
var executableSignatures = [][]byte{
	{0x4D, 0x5A},             // PE executable
	{0x7F, 0x45, 0x4C, 0x46}, // ELF executable
	{0xFE, 0xED, 0xFA, 0xCE}, // Mach-O executable
	{0xCE, 0xFA, 0xED, 0xFE}, // Mach-O executable (reverse)
}

// UploadGuard 简历上传检查器
type UploadGuard struct {
	allowedMimeTypes map[string]bool
	maxFileSize      int64
}

// NewUploadGuard 创建简历上传检查器，只允许 PDF、DOC、DOCX
func NewUploadGuard() *UploadGuard {
	return &UploadGuard{
		allowedMimeTypes: map[string]bool{
			"application/pdf":    true,
			"application/msword": true,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		},
		maxFileSize: MaxResumeSize,
	}
}

// MaxFileSize 返回大小上限
func (g *UploadGuard) MaxFileSize() int64 {
	return g.maxFileSize
}

// Check 依次检查声明类型、大小和文件头
//
// 返回 *RejectionError 表示文件被拒绝，其它错误表示读取失败。
func (g *UploadGuard) Check(upload *domain.Upload) error {
	if upload == nil {
		return &RejectionError{Reason: ErrTypeNotAllowed, Message: MsgTypeNotAllowed, Detail: "no file"}
	}

	if !g.allowedType(upload.ContentType) {
		return &RejectionError{
			Reason:  ErrTypeNotAllowed,
			Message: MsgTypeNotAllowed,
			Detail:  "declared type " + upload.ContentType,
		}
	}

	if upload.Size > g.maxFileSize {
		return &RejectionError{
			Reason:  ErrTooLarge,
			Message: MsgTooLarge,
			Detail:  fmt.Sprintf("%d bytes", upload.Size),
		}
	}

	if upload.Open == nil {
		return nil
	}

	f, err := upload.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	header := make([]byte, 512)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("read upload header: %w", err)
	}

	if isExecutable(header[:n]) {
		return &RejectionError{
			Reason:  ErrTypeNotAllowed,
			Message: MsgTypeNotAllowed,
			Detail:  "executable content",
		}
	}

	return nil
}

func (g *UploadGuard) allowedType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return g.allowedMimeTypes[strings.ToLower(mediaType)]
}

func isExecutable(header []byte) bool {
	for _, sig := range executableSignatures {
		if bytes.HasPrefix(header, sig) {
			return true
		}
	}
	return false
}
