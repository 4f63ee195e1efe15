// Package notify renders outbox messages and hands them to a mail provider.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Mailer delivers one rendered message.
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type MailerConfig struct {
	Provider    string // ses | noop
	FromAddress string
	FromName    string
	SES         SESConfig
}

// NewMailer returns an SES mailer for provider "ses" and a no-op mailer otherwise.
func NewMailer(cfg MailerConfig) Mailer {
	switch cfg.Provider {
	case "ses":
		awsCfg := aws.Config{
			Region: cfg.SES.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, ""),
			),
		}
		return &sesMailer{
			client:      ses.NewFromConfig(awsCfg),
			fromAddress: cfg.FromAddress,
			fromName:    cfg.FromName,
		}
	case "noop", "":
		return NoopMailer{}
	default:
		slog.Warn("Unknown email provider, using noop", "provider", cfg.Provider)
		return NoopMailer{}
	}
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type sesMailer struct {
	client      sesAPI
	fromAddress string
	fromName    string
}

func (s *sesMailer) Send(ctx context.Context, to, subject, html, text string) error {
	source := s.fromAddress
	if s.fromName != "" {
		source = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(source),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: utf8Content(subject),
			Body:    &types.Body{},
		},
	}
	if html != "" {
		input.Message.Body.Html = utf8Content(html)
	}
	if text != "" {
		input.Message.Body.Text = utf8Content(text)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	slog.Debug("Email sent via SES", "message_id", aws.ToString(result.MessageId))
	return nil
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

// NoopMailer logs instead of sending.
type NoopMailer struct{}

func (NoopMailer) Send(_ context.Context, to, subject, _, _ string) error {
	slog.Info("Email would be sent (noop)", "to", to, "subject", subject)
	return nil
}
