package mailer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 审计状态
const (
	AuditSuccess = "success"
	AuditError   = "error"
)

// auditMaxSizeMB 单个审计文件的大小上限，超过后轮转，旧文件永不删除
const auditMaxSizeMB = 100

// AuditEntry 一次投递尝试的审计记录
type AuditEntry struct {
	Time     time.Time
	Endpoint string
	Status   string
	To       []string
	From     string
	Host     string
	Username string
	Error    string
}

// AuditLog 只追加的投递审计日志，每条记录一行 logfmt
//
// 写入失败只记录到应用日志，从不影响投递结果。
type AuditLog struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	logger *zap.Logger
}

// OpenAuditLog 打开审计日志文件，必要时创建目录
func OpenAuditLog(path string, logger *zap.Logger) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    auditMaxSizeMB,
		MaxBackups: 0,
		MaxAge:     0,
		LocalTime:  true,
	}

	audit := NewAuditLog(rotator, logger)
	audit.closer = rotator
	return audit, nil
}

// NewAuditLog 基于任意 writer 创建审计日志
func NewAuditLog(w io.Writer, logger *zap.Logger) *AuditLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLog{w: w, logger: logger}
}

// Record 追加一条记录
func (a *AuditLog) Record(entry AuditEntry) {
	if a == nil || a.w == nil {
		return
	}

	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	var buf bytes.Buffer
	enc := logfmt.NewEncoder(&buf)
	err := enc.EncodeKeyvals(
		"time", entry.Time.Format(time.RFC3339),
		"endpoint", entry.Endpoint,
		"status", entry.Status,
		"to", strings.Join(entry.To, ","),
		"from", entry.From,
		"host", entry.Host,
		"username", entry.Username,
	)
	if err == nil && entry.Error != "" {
		err = enc.EncodeKeyval("error", entry.Error)
	}
	if err == nil {
		err = enc.EndRecord()
	}
	if err != nil {
		a.logger.Error("Failed to encode audit entry", zap.String("endpoint", entry.Endpoint), zap.Error(err))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.w.Write(buf.Bytes()); err != nil {
		a.logger.Error("Failed to write audit entry", zap.String("endpoint", entry.Endpoint), zap.Error(err))
	}
}

// Close 关闭底层文件
func (a *AuditLog) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
