package service

import (
	"context"
	"time"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/audit"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/repository"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/router"
)

type notificationService struct {
	notifications repository.NotificationRepository
	messages      repository.MessageRepository
	events        router.EventRouter
}

// NewNotificationService creates the notification service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	messages repository.MessageRepository,
	events router.EventRouter,
) NotificationService {
	return &notificationService{
		notifications: notifications,
		messages:      messages,
		events:        events,
	}
}

// Notify is called by domain operations (like, comment, follow) after
// their own write commits. It persists the notification, then pushes
// it with the referenced message populated when one exists.
func (s *notificationService) Notify(ctx context.Context, recipient, sender, kind, payloadRef string) (*domain.Notification, error) {
	if recipient == "" || recipient == sender {
		return nil, domain.ErrInvalidRecipient
	}

	notif := domain.NewNotification(recipient, sender, kind, payloadRef)
	if err := s.notifications.Insert(ctx, notif); err != nil {
		return nil, err
	}

	event := &domain.NotificationEvent{Notification: notif}
	if kind == domain.NotificationKindMessage && payloadRef != "" {
		if msg, err := s.messages.Get(ctx, payloadRef); err == nil {
			event.Message = msg
		}
	}
	s.events.Route(ctx, recipient, domain.EventNotificationDelivered, event)

	audit.LogWithTarget(ctx, audit.ActionNotify, sender, notif.ID, "notification created")
	return notif, nil
}

func (s *notificationService) List(ctx context.Context, recipient string, limit int64, before time.Time) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.ListByRecipient(ctx, recipient, limit, before)
}

func (s *notificationService) MarkRead(ctx context.Context, recipient, id string) error {
	if err := s.notifications.MarkRead(ctx, recipient, id); err != nil {
		return err
	}
	audit.LogWithTarget(ctx, audit.ActionMarkRead, recipient, id, "notification read")
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	updated, err := s.notifications.MarkAllRead(ctx, recipient)
	if err != nil {
		return 0, err
	}
	audit.Log(ctx, audit.ActionMarkAllRead, recipient, "all notifications read")
	return updated, nil
}

func (s *notificationService) CountUnread(ctx context.Context, recipient string) (int64, error) {
	return s.notifications.CountUnread(ctx, recipient)
}
