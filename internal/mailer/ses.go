package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/wneessen/go-mail"

	"infrasalama/backend/internal/config"
)

// SendEmailAPI SES v2 SendEmail 操作，测试中可替换
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport 通过 AWS SES v2 投递原始 MIME 邮件
//
// 邮件由 go-mail 构建，因此附件与多部分正文和 SMTP 驱动完全一致。
type SESTransport struct {
	client SendEmailAPI
}

// NewSESTransport 使用默认凭证链创建 SES 投递方式，配置了静态密钥时优先使用
func NewSESTransport(ctx context.Context, cfg config.SESConfig) (*SESTransport, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewSESTransportWithClient(sesv2.NewFromConfig(awsCfg)), nil
}

// NewSESTransportWithClient 使用指定客户端创建 SES 投递方式
func NewSESTransportWithClient(client SendEmailAPI) *SESTransport {
	return &SESTransport{client: client}
}

// Send 将邮件序列化为 MIME 后提交给 SES
func (t *SESTransport) Send(ctx context.Context, msg *mail.Msg) error {
	var raw bytes.Buffer
	if _, err := msg.WriteTo(&raw); err != nil {
		return fmt.Errorf("build raw message: %w", err)
	}

	rcpts, err := msg.GetRecipients()
	if err != nil {
		return fmt.Errorf("ses recipients: %w", err)
	}
	from, err := msg.GetSender(false)
	if err != nil {
		return fmt.Errorf("ses sender: %w", err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: rcpts,
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{
				Data: raw.Bytes(),
			},
		},
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// Name 返回驱动名称
func (t *SESTransport) Name() string {
	return config.DriverSES
}
