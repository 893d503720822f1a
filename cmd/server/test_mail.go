package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"infrasalama/backend/internal/config"
	"infrasalama/backend/internal/domain"
	"infrasalama/backend/internal/form"
	"infrasalama/backend/internal/mailer"
)

var testMailTo string

var testMailCmd = &cobra.Command{
	Use:   "test-mail",
	Short: "Send a sample contact message through the configured driver",
	RunE:  runTestMail,
}

func init() {
	testMailCmd.Flags().StringVar(&testMailTo, "to", "", "recipient (default: MAIL_TO_CONTACT or MAIL_TO_ADDRESS)")
}

// sampleContact 示例联系表单提交
func sampleContact() *domain.Submission {
	return domain.NewSubmission(map[string]string{
		"name":    "Test Infra Salama",
		"email":   "test@infrasalama.dz",
		"phone":   "+213 555 00 00 00",
		"subject": "Test de configuration",
		"message": "Ceci est un message de test envoyé depuis la ligne de commande.\nSi vous le recevez, la configuration fonctionne.",
		"privacy": form.CheckboxOn,
	})
}

func runTestMail(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Mail.Timeout+10*time.Second)
	defer cancel()

	service, cleanup, err := newMailService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	composer, err := mailer.NewComposer(cfg.Mail.FromName)
	if err != nil {
		return err
	}

	result := form.Contact.Validate(sampleContact())
	if !result.IsValid() {
		return fmt.Errorf("sample submission rejected: %v", domain.Messages(result.Errors()))
	}
	record := result.Record()

	msg, err := composer.Compose(record)
	if err != nil {
		return err
	}

	to, err := mailer.ResolveRecipients(firstNonEmpty(testMailTo, cfg.Mail.Recipients[domain.FormContact.String()]), cfg.Mail.ToAddress)
	if err != nil {
		return err
	}

	replyTo, _ := record.Get(form.Contact.EmailField)
	out := service.Dispatch(ctx, mailer.Request{
		Endpoint: domain.FormContact,
		To:       to,
		ReplyTo:  replyTo,
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		Text:     msg.Text,
	})
	if !out.OK() {
		fmt.Fprintf(cmd.OutOrStdout(), "FAILED via %s to %v: %v\n", cfg.Mail.Driver, to, out.Reason)
		return out.Reason
	}

	fmt.Fprintf(cmd.OutOrStdout(), "OK: sent via %s to %v\n", cfg.Mail.Driver, to)
	return nil
}

// newMailService 创建投递服务及其审计日志
func newMailService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*mailer.Service, func(), error) {
	audit, err := mailer.OpenAuditLog(cfg.Audit.File, log)
	if err != nil {
		return nil, nil, err
	}

	transport, err := mailer.NewTransport(ctx, cfg.Mail, cfg.App.IsLocal(), log)
	if err != nil {
		audit.Close()
		return nil, nil, fmt.Errorf("failed to initialize mail transport: %w", err)
	}

	return mailer.NewService(cfg.Mail, transport, audit, nil, log), func() { audit.Close() }, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
