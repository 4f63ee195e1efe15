package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ticketline/internal/cache"
	apperrors "ticketline/internal/errors"
	"ticketline/internal/logger"
	"ticketline/internal/metrics"
	"ticketline/internal/models"
	"ticketline/internal/notify"
	"ticketline/internal/retry"
)

// UserService provisions profiles for accounts created in the auth provider.
type UserService struct {
	rt     Runtime
	users  UserStore
	outbox EventOutboxStore
	newID  func() string
}

func NewUserService(rt Runtime, users UserStore, outbox EventOutboxStore) *UserService {
	return &UserService{
		rt:     rt,
		users:  users,
		outbox: outbox,
		newID:  func() string { return uuid.New().String() },
	}
}

// Announce stores user.created for an account reported by the auth provider
// and publishes it. Once stored, the trigger reaches the consumers even if
// publishing fails now.
func (s *UserService) Announce(ctx context.Context, hook models.AuthUserHook) error {
	uid := strings.TrimSpace(hook.UID)
	email := strings.TrimSpace(hook.Email)
	if uid == "" || email == "" {
		return apperrors.ErrMissingArguments
	}

	evt := models.UserCreatedEvent{
		UID:         uid,
		Email:       email,
		DisplayName: strings.TrimSpace(hook.DisplayName),
		Timestamp:   s.rt.now(),
	}
	id := s.newID()
	if err := retry.Do(ctx, func(ctx context.Context) error {
		return s.outbox.Enqueue(ctx, id, models.EventUserCreated, evt)
	}, s.rt.Retry...); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "failed to announce user", err)
	}
	if err := s.rt.publishNow(ctx, s.outbox, id, models.EventUserCreated, evt); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish user created event, left for relay", "user_id", uid, "error", err)
	}
	logger.WithContext(ctx).Info("User creation announced", "user_id", uid)
	return nil
}

// OnUserCreated stores the profile and its welcome mail in one transaction.
// Redelivery of an existing user is a no-op.
func (s *UserService) OnUserCreated(ctx context.Context, evt models.UserCreatedEvent) error {
	user := &models.User{
		ID:          evt.UID,
		Email:       evt.Email,
		DisplayName: evt.DisplayName,
		Role:        models.RoleUser,
		IsActive:    true,
	}
	welcome := &models.MailMessage{
		To:       evt.Email,
		Template: notify.TemplateWelcome,
		Data:     map[string]string{"displayName": displayNameOrDefault(evt.DisplayName)},
	}

	created, err := retry.Value(ctx, func(ctx context.Context) (bool, error) {
		return s.users.CreateWithWelcome(ctx, user, welcome)
	}, s.rt.Retry...)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to create user profile", "user_id", evt.UID, "error", err)
		s.rt.logError(ctx, models.ErrorLog{
			Type:   models.ErrorTypeUserCreation,
			UserID: evt.UID,
			Error:  err.Error(),
		})
		return err
	}

	if created {
		s.rt.invalidate(ctx, cache.UserKey(evt.UID))
		s.rt.Recorder.Record(ctx, metrics.UserCreated, 1, map[string]string{"userId": evt.UID})
		logger.WithContext(ctx).Info("User profile created", "user_id", evt.UID)
	}
	return nil
}
