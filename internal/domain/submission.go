package domain

import (
	"io"
	"strings"
)

// FormKind 表单类型，同时用作审计日志中的 endpoint 名称
type FormKind string

const (
	FormContact     FormKind = "contact"
	FormDevis       FormKind = "devis"
	FormDemo        FormKind = "demo"
	FormRecrutement FormKind = "recrutement"
	FormHealthMail  FormKind = "health-mail"
)

// String 实现 fmt.Stringer
func (k FormKind) String() string {
	return string(k)
}

// UploadStatus 传输层报告的上传状态
type UploadStatus int

const (
	UploadMissing UploadStatus = iota // 请求中没有文件
	UploadOK                          // 文件完整接收
	UploadFailed                      // 传输层报告上传失败
)

// Upload 请求中携带的文件（仅招聘表单）
type Upload struct {
	Filename    string // 客户端提供的原始文件名
	ContentType string // 客户端声明的 MIME 类型
	Size        int64
	Status      UploadStatus

	// Open 打开上传内容，调用方负责关闭
	Open func() (io.ReadCloser, error)
}

// Submission 单次请求的表单提交：字段名到原始字符串的映射，外加可选文件
//
// 仅在请求范围内存在，不跨请求共享。
type Submission struct {
	Fields map[string]string
	File   *Upload
}

// NewSubmission 创建提交
func NewSubmission(fields map[string]string) *Submission {
	if fields == nil {
		fields = make(map[string]string)
	}
	return &Submission{Fields: fields}
}

// Raw 返回字段原始值
func (s *Submission) Raw(name string) (string, bool) {
	if s == nil || s.Fields == nil {
		return "", false
	}
	value, ok := s.Fields[name]
	return value, ok
}

// Present 字段存在且去除空白后非空
func (s *Submission) Present(name string) bool {
	value, ok := s.Raw(name)
	return ok && strings.TrimSpace(value) != ""
}

// StoredFile 已保存到磁盘的简历
type StoredFile struct {
	Path         string // 服务器上的保存路径，从不出现在邮件正文中
	OriginalName string // 客户端提供的原始文件名
	ContentType  string
	Size         int64
}

// Record 通过校验并清洗后的表单数据
type Record struct {
	Kind     FormKind
	Values   map[string]string // 已去除首尾空白并 HTML 转义
	Services []string          // 报价表单勾选的服务标签
	File     *StoredFile       // 招聘表单保存的简历
}

// NewRecord 创建空记录
func NewRecord(kind FormKind) *Record {
	return &Record{
		Kind:   kind,
		Values: make(map[string]string),
	}
}

// Get 返回字段值；可选字段缺失时 ok 为 false
func (r *Record) Get(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	value, ok := r.Values[name]
	return value, ok
}

// Value 返回字段值，缺失时返回 fallback
func (r *Record) Value(name, fallback string) string {
	if value, ok := r.Get(name); ok && value != "" {
		return value
	}
	return fallback
}
