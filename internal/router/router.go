package router

import (
	"context"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/presence"
	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/log"
)

// EventRouter pushes server-originated events to a recipient's live
// connections. Implementations must only be invoked after the
// triggering write has been durably persisted.
type EventRouter interface {
	Route(ctx context.Context, recipientID, eventType string, payload interface{})
}

// RosterBroadcaster pushes the full online-identity list to every
// admitted connection.
type RosterBroadcaster interface {
	BroadcastRoster(ctx context.Context)
}

// Router resolves recipients through the presence registry and pushes
// events over their connections. Delivery is at-most-once and best
// effort: an offline recipient is a silent no-op, and there is no
// retry or confirmation — the persisted record is the durable trace.
type Router struct {
	registry *presence.Registry
}

// New creates a router over the given registry.
func New(registry *presence.Registry) *Router {
	return &Router{registry: registry}
}

// Route delivers payload tagged with eventType to every live handle
// the recipient holds. It never blocks on delivery.
func (r *Router) Route(ctx context.Context, recipientID, eventType string, payload interface{}) {
	handles := r.registry.Lookup(recipientID)
	if len(handles) == 0 {
		// Recipient offline: defined outcome, not an error. The next
		// REST fetch returns the persisted record.
		return
	}

	l := log.Ctx(ctx)

	data, err := domain.EncodeEvent(eventType, payload)
	if err != nil {
		l.Error().Err(err).
			Str(log.FieldEventType, eventType).
			Str(log.FieldRecipientID, recipientID).
			Msg("failed to encode event")
		return
	}

	for _, h := range handles {
		if err := h.Push(data); err != nil {
			l.Warn().Err(err).
				Str(log.FieldEventType, eventType).
				Str(log.FieldRecipientID, recipientID).
				Str(log.FieldConnID, h.ID()).
				Msg("event push failed")
		}
	}

	l.Debug().
		Str(log.FieldEventType, eventType).
		Str(log.FieldRecipientID, recipientID).
		Int("handles", len(handles)).
		Msg("event routed")
}

// BroadcastRoster recomputes the online set and pushes it, in full, to
// every admitted connection. Clients treat the payload as a total
// replacement of their local online set, never a diff.
func (r *Router) BroadcastRoster(ctx context.Context) {
	l := log.Ctx(ctx)
	identities := r.registry.Identities()

	data, err := domain.EncodeEvent(domain.EventRosterUpdate, identities)
	if err != nil {
		l.Error().Err(err).Msg("failed to encode roster")
		return
	}

	r.registry.ForEach(func(identity string, h presence.Handle) {
		if err := h.Push(data); err != nil {
			l.Warn().Err(err).
				Str(log.FieldUserID, identity).
				Str(log.FieldConnID, h.ID()).
				Msg("roster push failed")
		}
	})
}
