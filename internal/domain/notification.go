package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds mirror the domain operations that create them.
const (
	NotificationKindMessage = "message"
	NotificationKindLike    = "like"
	NotificationKindComment = "comment"
	NotificationKindFollow  = "follow"
)

// Notification records an event addressed to one recipient. Read only
// ever transitions false to true, by the recipient's own action.
type Notification struct {
	ID          string    `json:"id" bson:"_id"`
	RecipientID string    `json:"recipient_id" bson:"recipient_id"`
	SenderID    string    `json:"sender_id" bson:"sender_id"`
	Kind        string    `json:"kind" bson:"kind"`
	PayloadRef  string    `json:"payload_ref,omitempty" bson:"payload_ref,omitempty"`
	Read        bool      `json:"read" bson:"read"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// NewNotification builds an unread notification with a fresh id.
// payloadRef points at the triggering record (message id, post id, ...).
func NewNotification(recipientID, senderID, kind, payloadRef string) *Notification {
	return &Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Kind:        kind,
		PayloadRef:  payloadRef,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
}
