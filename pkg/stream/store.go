package stream

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the client-local cache behind the UI: the active
// conversation's messages, the notification list with its derived
// unread count, and the online-identity set. All mutation flows
// through the push handlers, the optimistic-send path, or the
// REST-driven load/mark operations; readers get snapshots.
type Store struct {
	mu sync.Mutex

	// Active conversation, identified by its two participants. The
	// conversation is implicit — derived from "the other participant",
	// not a stored entity.
	self string
	peer string

	messages      []Message
	notifications []Notification
	unread        int
	online        map[string]struct{}
}

// NewStore creates an empty store for the given session identity.
func NewStore(self string) *Store {
	return &Store{
		self:   self,
		online: make(map[string]struct{}),
	}
}

// SetActiveConversation switches the message cache to the conversation
// with peer, clearing the previous view's entries. The caller loads
// the REST snapshot afterwards.
func (s *Store) SetActiveConversation(peer string) {
	s.mu.Lock()
	s.peer = peer
	s.messages = nil
	s.mu.Unlock()
}

// ActivePeer returns the other participant of the open conversation.
func (s *Store) ActivePeer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// LoadMessages merges a REST-fetched newest-first page into the active
// conversation, oldest first for rendering.
func (s *Store) LoadMessages(page []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]Message, len(page))
	copy(s.messages, page)
	sort.Slice(s.messages, func(i, j int) bool {
		return s.messages[i].CreatedAt.Before(s.messages[j].CreatedAt)
	})
}

// AppendLocalEcho appends a provisional entry for a locally-initiated
// send before its REST call resolves, so the UI feels instantaneous.
// The returned id identifies the entry for rollback; on success the
// entry stays and the pushed canonical record is expected to follow.
func (s *Store) AppendLocalEcho(text, imageRef string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "pending-" + uuid.New().String()
	s.messages = append(s.messages, Message{
		ID:          id,
		SenderID:    s.self,
		RecipientID: s.peer,
		Text:        text,
		ImageRef:    imageRef,
		CreatedAt:   time.Now().UTC(),
	})
	return id
}

// DropLocalEcho rolls back a provisional entry whose REST call failed.
func (s *Store) DropLocalEcho(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// HandleMessageEvent applies a pushed message. The entry joins the
// cache only when its participant pair matches the open conversation;
// events for any other conversation are dropped at this boundary.
func (s *Store) HandleMessageEvent(event Event) {
	var msg Message
	if err := json.Unmarshal(event.Payload, &msg); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.peer == "" || !msg.inConversation(s.self, s.peer) {
		return
	}
	s.messages = append(s.messages, msg)
}

// LoadNotifications replaces the notification cache with a REST-fetched
// snapshot and recomputes the unread count.
func (s *Store) LoadNotifications(page []Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = make([]Notification, len(page))
	copy(s.notifications, page)
	s.recountUnread()
}

// HandleNotificationEvent prepends a pushed notification and
// recomputes the unread count.
func (s *Store) HandleNotificationEvent(event Event) {
	var payload NotificationEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Notification == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append([]Notification{*payload.Notification}, s.notifications...)
	s.recountUnread()
}

// MarkRead mirrors a successful REST mark-read into the cache.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			break
		}
	}
	s.recountUnread()
}

// MarkAllRead mirrors a successful REST mark-all-read into the cache.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.unread = 0
}

// recountUnread derives unread as count(read == false). Caller holds
// the lock.
func (s *Store) recountUnread() {
	n := 0
	for i := range s.notifications {
		if !s.notifications[i].Read {
			n++
		}
	}
	s.unread = n
}

// HandleRosterEvent replaces the online set wholesale. The payload is
// always the full roster, never a diff.
func (s *Store) HandleRosterEvent(event Event) {
	var identities []string
	if err := json.Unmarshal(event.Payload, &identities); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.online = make(map[string]struct{}, len(identities))
	for _, id := range identities {
		s.online[id] = struct{}{}
	}
}

// Messages returns a copy of the active conversation, oldest first.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Notifications returns a copy of the notification list, newest first.
func (s *Store) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns the derived unread notification count.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Online returns the sorted online-identity set.
func (s *Store) Online() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsOnline reports whether the identity is in the online set.
func (s *Store) IsOnline(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[identity]
	return ok
}
