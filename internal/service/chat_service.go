package service

import (
	"context"
	"strings"
	"time"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/audit"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/repository"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/router"
	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/log"
)

type chatService struct {
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	events        router.EventRouter
}

// NewChatService creates the chat service.
func NewChatService(
	messages repository.MessageRepository,
	notifications repository.NotificationRepository,
	events router.EventRouter,
) ChatService {
	return &chatService{
		messages:      messages,
		notifications: notifications,
		events:        events,
	}
}

// SendMessage persists first and pushes second. A persistence failure
// returns before any route call, so an event can never be observable
// in memory without its durable record.
func (s *chatService) SendMessage(ctx context.Context, sender, recipient, text, imageRef string) (*domain.Message, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || recipient == sender {
		return nil, domain.ErrInvalidRecipient
	}
	if strings.TrimSpace(text) == "" && imageRef == "" {
		return nil, domain.ErrEmptyMessage
	}

	msg := domain.NewMessage(sender, recipient, text, imageRef)
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	s.events.Route(ctx, recipient, domain.EventMessageDelivered, msg)

	notif := domain.NewNotification(recipient, sender, domain.NotificationKindMessage, msg.ID)
	if err := s.notifications.Insert(ctx, notif); err != nil {
		// The message itself is committed and pushed; the recipient
		// still finds it by fetching the conversation.
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str(log.FieldRecipientID, recipient).
			Msg("failed to create message notification")
	} else {
		s.events.Route(ctx, recipient, domain.EventNotificationDelivered, &domain.NotificationEvent{
			Notification: notif,
			Message:      msg,
		})
	}

	audit.LogWithTarget(ctx, audit.ActionSendMessage, sender, msg.ID, "message sent")
	return msg, nil
}

func (s *chatService) ListConversation(ctx context.Context, me, peer string, limit int64, before time.Time) ([]*domain.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messages.ListConversation(ctx, me, peer, limit, before)
}

func (s *chatService) ListPartners(ctx context.Context, me string) ([]string, error) {
	return s.messages.ListPartners(ctx, me)
}
