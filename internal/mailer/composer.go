package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"infrasalama/backend/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// NotAvailable 字段缺失时的占位文本
const NotAvailable = "N/A"

// Message 组装好的邮件内容
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Composer 按表单类型渲染 HTML 与纯文本正文
//
// 记录中的值已经转义；HTML 模板再次经过幂等转义，纯文本模板还原字符实体。
type Composer struct {
	templates *template.Template
	fromName  string
}

// NewComposer 解析内置模板
func NewComposer(fromName string) (*Composer, error) {
	funcs := template.FuncMap{
		"esc":   domain.EscapeHTML,
		"plain": domain.UnescapeHTML,
		"nl2br": domain.NL2BR,
		"pair": func(label, value string) []string {
			return []string{label, value}
		},
	}

	tmpl, err := template.New("mail").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &Composer{templates: tmpl, fromName: fromName}, nil
}

// recordView 模板访问记录的视图
type recordView struct {
	record *domain.Record
}

// F 返回字段值，缺失时为 N/A
func (v recordView) F(name string) string {
	return v.record.Value(name, NotAvailable)
}

// Or 返回字段值，缺失时为 fallback
func (v recordView) Or(name, fallback string) string {
	return v.record.Value(name, fallback)
}

// Has 可选字段是否存在
func (v recordView) Has(name string) bool {
	value, ok := v.record.Get(name)
	return ok && value != ""
}

// Services 勾选的服务，未勾选时为 "Aucun"
func (v recordView) Services() string {
	if len(v.record.Services) == 0 {
		return "Aucun"
	}
	return strings.Join(v.record.Services, ", ")
}

// FileName 简历原始文件名，从不暴露保存路径
func (v recordView) FileName() string {
	if v.record.File == nil || v.record.File.OriginalName == "" {
		return NotAvailable
	}
	return v.record.File.OriginalName
}

// Compose 渲染表单记录
func (c *Composer) Compose(record *domain.Record) (Message, error) {
	if record == nil {
		return Message{}, fmt.Errorf("compose: nil record")
	}

	switch record.Kind {
	case domain.FormContact, domain.FormDevis, domain.FormDemo, domain.FormRecrutement:
	default:
		return Message{}, fmt.Errorf("compose: unsupported form %q", record.Kind)
	}

	view := recordView{record: record}
	html, err := c.render(string(record.Kind)+".html.tmpl", view)
	if err != nil {
		return Message{}, err
	}
	text, err := c.render(string(record.Kind)+".txt.tmpl", view)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Subject: Subject(record),
		HTML:    html,
		Text:    text,
	}, nil
}

// Subject 邮件主题，已还原字符实体并去除换行
func Subject(record *domain.Record) string {
	v := recordView{record: record}
	var subject string
	switch record.Kind {
	case domain.FormContact:
		subject = "Nouveau message depuis le formulaire de contact"
	case domain.FormDevis:
		subject = "Nouvelle demande de devis - " + v.F("establishmentName")
	case domain.FormDemo:
		subject = "Demande de démo EduPilot - " + v.F("nomEtablissement")
	case domain.FormRecrutement:
		subject = fmt.Sprintf("Nouvelle candidature - %s - %s %s", v.F("position"), v.F("firstName"), v.F("lastName"))
	default:
		subject = "Nouveau message"
	}
	return domain.StripHeaderBreaks(domain.UnescapeHTML(subject))
}

// healthView 自检邮件的模板数据
type healthView struct {
	FromName string
	Date     string
	Driver   string
	Host     string
}

// HealthCheck 渲染自检邮件
func (c *Composer) HealthCheck(now time.Time, driver, host string) (Message, error) {
	view := healthView{
		FromName: c.fromName,
		Date:     now.Format("02/01/2006 15:04:05 MST"),
		Driver:   driver,
		Host:     host,
	}

	html, err := c.render("health.html.tmpl", view)
	if err != nil {
		return Message{}, err
	}
	text, err := c.render("health.txt.tmpl", view)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Subject: domain.StripHeaderBreaks("Test de configuration email - " + c.fromName),
		HTML:    html,
		Text:    text,
	}, nil
}

func (c *Composer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
