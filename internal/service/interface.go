package service

import (
	"context"
	"time"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
)

// ChatService owns the direct-message operations.
type ChatService interface {
	// SendMessage persists the message, creates its notification, and
	// then — and only then — pushes both to the recipient if online.
	SendMessage(ctx context.Context, sender, recipient, text, imageRef string) (*domain.Message, error)

	// ListConversation returns a newest-first page of the pairwise
	// conversation between me and peer.
	ListConversation(ctx context.Context, me, peer string, limit int64, before time.Time) ([]*domain.Message, error)

	// ListPartners returns everyone me has a conversation with.
	ListPartners(ctx context.Context, me string) ([]string, error)
}

// NotificationService owns notification reads and the notification
// fan-out used by the like/comment/follow collaborators.
type NotificationService interface {
	// Notify persists a notification and pushes it to the recipient if
	// online. The triggering domain write must already be committed.
	Notify(ctx context.Context, recipient, sender, kind, payloadRef string) (*domain.Notification, error)

	List(ctx context.Context, recipient string, limit int64, before time.Time) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, recipient, id string) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
}
