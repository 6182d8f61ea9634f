package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
)

type fakeMessageRepo struct {
	inserted  []*domain.Message
	insertErr error
	byID      map[string]*domain.Message
}

func (r *fakeMessageRepo) Insert(_ context.Context, msg *domain.Message) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, msg)
	return nil
}

func (r *fakeMessageRepo) ListConversation(_ context.Context, a, b string, limit int64, _ time.Time) ([]*domain.Message, error) {
	var out []*domain.Message
	for _, m := range r.inserted {
		if m.InConversation(a, b) {
			out = append(out, m)
		}
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) ListPartners(_ context.Context, identity string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, m := range r.inserted {
		peer := ""
		switch identity {
		case m.SenderID:
			peer = m.RecipientID
		case m.RecipientID:
			peer = m.SenderID
		default:
			continue
		}
		if !seen[peer] {
			seen[peer] = true
			out = append(out, peer)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) Get(_ context.Context, id string) (*domain.Message, error) {
	if m, ok := r.byID[id]; ok {
		return m, nil
	}
	for _, m := range r.inserted {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeNotificationRepo struct {
	inserted    []*domain.Notification
	insertErr   error
	markReadErr error
	markedRead  []string
	markedAll   bool
}

func (r *fakeNotificationRepo) Insert(_ context.Context, n *domain.Notification) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, n)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ context.Context, recipient string, limit int64, _ time.Time) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for _, n := range r.inserted {
		if n.RecipientID == recipient {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, recipient, id string) error {
	if r.markReadErr != nil {
		return r.markReadErr
	}
	r.markedRead = append(r.markedRead, id)
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, recipient string) (int64, error) {
	r.markedAll = true
	var n int64
	for _, notif := range r.inserted {
		if notif.RecipientID == recipient && !notif.Read {
			notif.Read = true
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, recipient string) (int64, error) {
	var n int64
	for _, notif := range r.inserted {
		if notif.RecipientID == recipient && !notif.Read {
			n++
		}
	}
	return n, nil
}

type routedEvent struct {
	recipient string
	eventType string
	payload   interface{}
}

type spyRouter struct {
	routed []routedEvent
}

func (s *spyRouter) Route(_ context.Context, recipientID, eventType string, payload interface{}) {
	s.routed = append(s.routed, routedEvent{recipient: recipientID, eventType: eventType, payload: payload})
}

func TestSendMessagePersistsThenRoutes(t *testing.T) {
	messages := &fakeMessageRepo{}
	notifications := &fakeNotificationRepo{}
	events := &spyRouter{}
	svc := NewChatService(messages, notifications, events)

	msg, err := svc.SendMessage(context.Background(), "alice", "bob", "hello", "")
	require.NoError(t, err)
	require.NotNil(t, msg)

	// Persisted before anything was routed.
	require.Len(t, messages.inserted, 1)
	assert.Equal(t, msg, messages.inserted[0])

	// Message push first, notification push second.
	require.Len(t, events.routed, 2)
	assert.Equal(t, "bob", events.routed[0].recipient)
	assert.Equal(t, domain.EventMessageDelivered, events.routed[0].eventType)
	assert.Equal(t, domain.EventNotificationDelivered, events.routed[1].eventType)

	notifEvent, ok := events.routed[1].payload.(*domain.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, msg, notifEvent.Message)
	assert.Equal(t, domain.NotificationKindMessage, notifEvent.Notification.Kind)
	assert.Equal(t, msg.ID, notifEvent.Notification.PayloadRef)
}

func TestSendMessagePersistFailureRoutesNothing(t *testing.T) {
	messages := &fakeMessageRepo{insertErr: errors.New("write concern not satisfied")}
	events := &spyRouter{}
	svc := NewChatService(messages, &fakeNotificationRepo{}, events)

	_, err := svc.SendMessage(context.Background(), "alice", "bob", "hello", "")
	require.Error(t, err)

	// No event may be observable without its durable record.
	assert.Empty(t, events.routed)
}

func TestSendMessageNotificationFailureStillPushesMessage(t *testing.T) {
	messages := &fakeMessageRepo{}
	notifications := &fakeNotificationRepo{insertErr: errors.New("unavailable")}
	events := &spyRouter{}
	svc := NewChatService(messages, notifications, events)

	msg, err := svc.SendMessage(context.Background(), "alice", "bob", "hello", "")
	require.NoError(t, err)
	require.NotNil(t, msg)

	require.Len(t, events.routed, 1)
	assert.Equal(t, domain.EventMessageDelivered, events.routed[0].eventType)
}

func TestSendMessageValidation(t *testing.T) {
	svc := NewChatService(&fakeMessageRepo{}, &fakeNotificationRepo{}, &spyRouter{})

	_, err := svc.SendMessage(context.Background(), "alice", "", "hello", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRecipient)

	_, err = svc.SendMessage(context.Background(), "alice", "alice", "hello", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRecipient)

	_, err = svc.SendMessage(context.Background(), "alice", "bob", "   ", "")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestSendMessageImageOnlyIsValid(t *testing.T) {
	events := &spyRouter{}
	svc := NewChatService(&fakeMessageRepo{}, &fakeNotificationRepo{}, events)

	msg, err := svc.SendMessage(context.Background(), "alice", "bob", "", "uploads/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "uploads/photo.jpg", msg.ImageRef)
}

func TestListConversationClampsLimit(t *testing.T) {
	messages := &fakeMessageRepo{}
	svc := NewChatService(messages, &fakeNotificationRepo{}, &spyRouter{})

	for i := 0; i < 60; i++ {
		_, err := svc.SendMessage(context.Background(), "alice", "bob", "x", "")
		require.NoError(t, err)
	}

	got, err := svc.ListConversation(context.Background(), "alice", "bob", 0, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 50)

	got, err = svc.ListConversation(context.Background(), "alice", "bob", 500, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 50)
}
