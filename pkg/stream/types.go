package stream

import (
	"encoding/json"
	"time"
)

// Event categories pushed by the server. Values align with
// internal/domain events.
const (
	EventRosterUpdate          = "roster-update"
	EventMessageDelivered      = "message-delivered"
	EventNotificationDelivered = "notification-delivered"
)

// Event is the wire envelope for every pushed event.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Message aligns with internal/domain.Message.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Text        string    `json:"text,omitempty"`
	ImageRef    string    `json:"image_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification aligns with internal/domain.Notification.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	SenderID    string    `json:"sender_id"`
	Kind        string    `json:"kind"`
	PayloadRef  string    `json:"payload_ref,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationEvent aligns with internal/domain.NotificationEvent.
type NotificationEvent struct {
	Notification *Notification `json:"notification"`
	Message      *Message      `json:"message,omitempty"`
}

func (m *Message) inConversation(a, b string) bool {
	return (m.SenderID == a && m.RecipientID == b) ||
		(m.SenderID == b && m.RecipientID == a)
}
