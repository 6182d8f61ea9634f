package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
)

func TestNotifyPersistsThenRoutes(t *testing.T) {
	notifications := &fakeNotificationRepo{}
	events := &spyRouter{}
	svc := NewNotificationService(notifications, &fakeMessageRepo{}, events)

	notif, err := svc.Notify(context.Background(), "bob", "alice", domain.NotificationKindLike, "post-1")
	require.NoError(t, err)
	require.NotNil(t, notif)

	require.Len(t, notifications.inserted, 1)
	require.Len(t, events.routed, 1)
	assert.Equal(t, "bob", events.routed[0].recipient)
	assert.Equal(t, domain.EventNotificationDelivered, events.routed[0].eventType)

	payload, ok := events.routed[0].payload.(*domain.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, notif, payload.Notification)
	assert.Nil(t, payload.Message)
}

func TestNotifyMessageKindPopulatesMessage(t *testing.T) {
	msg := domain.NewMessage("alice", "bob", "hi", "")
	messages := &fakeMessageRepo{byID: map[string]*domain.Message{msg.ID: msg}}
	events := &spyRouter{}
	svc := NewNotificationService(&fakeNotificationRepo{}, messages, events)

	_, err := svc.Notify(context.Background(), "bob", "alice", domain.NotificationKindMessage, msg.ID)
	require.NoError(t, err)

	require.Len(t, events.routed, 1)
	payload, ok := events.routed[0].payload.(*domain.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, msg, payload.Message)
}

func TestNotifyRejectsSelfNotification(t *testing.T) {
	svc := NewNotificationService(&fakeNotificationRepo{}, &fakeMessageRepo{}, &spyRouter{})

	_, err := svc.Notify(context.Background(), "alice", "alice", domain.NotificationKindFollow, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRecipient)
}

func TestMarkReadPropagatesNotFound(t *testing.T) {
	notifications := &fakeNotificationRepo{markReadErr: domain.ErrNotFound}
	svc := NewNotificationService(notifications, &fakeMessageRepo{}, &spyRouter{})

	err := svc.MarkRead(context.Background(), "bob", "missing-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkAllReadReturnsUpdatedCount(t *testing.T) {
	notifications := &fakeNotificationRepo{}
	svc := NewNotificationService(notifications, &fakeMessageRepo{}, &spyRouter{})

	for i := 0; i < 3; i++ {
		_, err := svc.Notify(context.Background(), "bob", "alice", domain.NotificationKindLike, "post-1")
		require.NoError(t, err)
	}

	updated, err := svc.MarkAllRead(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	unread, err := svc.CountUnread(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestListClampsLimit(t *testing.T) {
	notifications := &fakeNotificationRepo{}
	svc := NewNotificationService(notifications, &fakeMessageRepo{}, &spyRouter{})

	got, err := svc.List(context.Background(), "bob", -5, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
