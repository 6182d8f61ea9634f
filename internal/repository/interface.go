package repository

import (
	"context"
	"time"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
)

// MessageRepository persists direct messages. Insert must be durably
// acknowledged before any realtime push is attempted for the record.
type MessageRepository interface {
	// Insert stores a new message.
	Insert(ctx context.Context, msg *domain.Message) error

	// ListConversation returns the newest-first page of messages
	// exchanged between a and b, in either direction. A zero `before`
	// means "from the latest".
	ListConversation(ctx context.Context, a, b string, limit int64, before time.Time) ([]*domain.Message, error)

	// ListPartners returns the distinct identities the user has
	// exchanged messages with.
	ListPartners(ctx context.Context, identity string) ([]string, error)

	// Get returns a message by id.
	Get(ctx context.Context, id string) (*domain.Message, error)
}

// NotificationRepository persists notifications.
type NotificationRepository interface {
	// Insert stores a new notification.
	Insert(ctx context.Context, n *domain.Notification) error

	// ListByRecipient returns the newest-first page of notifications
	// addressed to the recipient.
	ListByRecipient(ctx context.Context, recipient string, limit int64, before time.Time) ([]*domain.Notification, error)

	// MarkRead flips a single notification to read. Recipient-scoped;
	// returns domain.ErrNotFound when the notification does not exist
	// or belongs to someone else.
	MarkRead(ctx context.Context, recipient, id string) error

	// MarkAllRead flips every unread notification for the recipient
	// and returns how many were updated.
	MarkAllRead(ctx context.Context, recipient string) (int64, error)

	// CountUnread returns the recipient's unread notification count.
	CountUnread(ctx context.Context, recipient string) (int64, error)
}
