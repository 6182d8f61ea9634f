package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single direct message between two users. Messages are
// immutable once created; the document store is authoritative and any
// realtime push is a best-effort mirror of the persisted record.
type Message struct {
	ID          string    `json:"id" bson:"_id"`
	SenderID    string    `json:"sender_id" bson:"sender_id"`
	RecipientID string    `json:"recipient_id" bson:"recipient_id"`
	Text        string    `json:"text,omitempty" bson:"text,omitempty"`
	ImageRef    string    `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// NewMessage builds a message with a fresh id and UTC timestamp.
func NewMessage(senderID, recipientID, text, imageRef string) *Message {
	return &Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		ImageRef:    imageRef,
		CreatedAt:   time.Now().UTC(),
	}
}

// InConversation reports whether the message belongs to the pairwise
// conversation between a and b, in either direction.
func (m *Message) InConversation(a, b string) bool {
	return (m.SenderID == a && m.RecipientID == b) ||
		(m.SenderID == b && m.RecipientID == a)
}
