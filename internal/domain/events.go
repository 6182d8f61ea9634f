package domain

import "encoding/json"

// Server-to-client event categories carried over the websocket.
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

// EncodeEvent marshals a payload into a wire-ready envelope.
func EncodeEvent(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Payload: raw})
}

// NotificationEvent is the notification-delivered payload: the
// notification itself with its referenced message populated when the
// kind refers to one.
type NotificationEvent struct {
	Notification *Notification `json:"notification"`
	Message      *Message      `json:"message,omitempty"`
}
