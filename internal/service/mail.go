package service

import (
	"context"
	"fmt"

	"ticketline/internal/logger"
	"ticketline/internal/models"
	"ticketline/internal/notify"
)

const (
	DefaultMailBatchSize   = 100
	DefaultMailMaxAttempts = 5
)

type MailDispatchConfig struct {
	BatchSize   int
	MaxAttempts int
	Mailer      notify.Mailer
}

// MailDispatchService delivers queued outbox mail through the configured Mailer.
type MailDispatchService struct {
	outbox   OutboxStore
	mailer   notify.Mailer
	renderer *notify.Renderer
	cfg      MailDispatchConfig
}

func NewMailDispatchService(outbox OutboxStore, cfg MailDispatchConfig) *MailDispatchService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultMailBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMailMaxAttempts
	}
	if cfg.Mailer == nil {
		cfg.Mailer = notify.NoopMailer{}
	}
	return &MailDispatchService{
		outbox:   outbox,
		mailer:   cfg.Mailer,
		renderer: notify.NewRenderer(),
		cfg:      cfg,
	}
}

// DispatchBatch sends one batch of unsent mail and returns how many were delivered.
func (s *MailDispatchService) DispatchBatch(ctx context.Context) (int, error) {
	pending, err := s.outbox.ClaimUnsent(ctx, s.cfg.BatchSize, s.cfg.MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("claim unsent mail: %w", err)
	}

	sent := 0
	for i := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		msg := &pending[i]
		if err := s.deliver(ctx, msg); err != nil {
			logger.WithContext(ctx).Warn("Mail delivery failed",
				"mail_id", msg.ID,
				"template", msg.Template,
				"attempt", msg.Attempts+1,
				"error", err)
			if markErr := s.outbox.MarkFailed(ctx, msg.ID, err); markErr != nil {
				return sent, fmt.Errorf("mark mail %s failed: %w", msg.ID, markErr)
			}
			continue
		}
		if err := s.outbox.MarkSent(ctx, msg.ID); err != nil {
			return sent, fmt.Errorf("mark mail %s sent: %w", msg.ID, err)
		}
		sent++
	}

	if len(pending) > 0 {
		logger.WithContext(ctx).Info("Mail batch dispatched", "claimed", len(pending), "sent", sent)
	}
	return sent, nil
}

func (s *MailDispatchService) deliver(ctx context.Context, msg *models.MailMessage) error {
	subject, html, text, err := s.renderer.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg.To, subject, html, text)
}
