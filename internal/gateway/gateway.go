package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/auth"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/config"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/presence"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/router"
	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/log"
)

// Gateway admits websocket connections. Every connection passes
// credential verification before it is visible anywhere; a rejected
// attempt leaves no trace in the presence registry.
type Gateway struct {
	verifier *auth.Verifier
	registry *presence.Registry
	roster   router.RosterBroadcaster
	mirror   presence.Mirror
	upgrader websocket.Upgrader
	wsCfg    config.WebSocketConfig

	mu       sync.Mutex
	clients  map[*Client]struct{}
	shutdown bool
}

// New creates a gateway over the given registry and broadcaster.
func New(verifier *auth.Verifier, registry *presence.Registry, roster router.RosterBroadcaster, mirror presence.Mirror, wsCfg config.WebSocketConfig) *Gateway {
	if mirror == nil {
		mirror = presence.NopMirror{}
	}
	return &Gateway{
		verifier: verifier,
		registry: registry,
		roster:   roster,
		mirror:   mirror,
		wsCfg:    wsCfg,
		clients:  make(map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(wsCfg.AllowedOrigin),
		},
	}
}

func originChecker(allowed string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser client
		}
		if allowed == "" {
			return strings.EqualFold(origin, "http://"+r.Host) ||
				strings.EqualFold(origin, "https://"+r.Host)
		}
		return strings.EqualFold(origin, allowed)
	}
}

// HandleWebSocket upgrades an incoming connection attempt. The bearer
// credential rides the handshake as a `token` query parameter or an
// Authorization header, never per-message.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := log.Ctx(r.Context())

	identity, err := g.verifier.Verify(credentialFrom(r))
	if err != nil {
		l.Info().Err(err).Msg("connection rejected")
		rejectHandshake(w, err)
		return
	}

	g.mu.Lock()
	if g.shutdown {
		g.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	g.mu.Unlock()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(uuid.New().String(), identity, conn, g.wsCfg)
	g.admit(r.Context(), client)

	go client.writePump()
	go client.readPump(func(c *Client) {
		g.drop(context.Background(), c)
	})
}

func credentialFrom(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func rejectHandshake(w http.ResponseWriter, err error) {
	code := "INVALID_CREDENTIAL"
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		code = "MISSING_CREDENTIAL"
	case errors.Is(err, auth.ErrExpiredCredential):
		code = "EXPIRED_CREDENTIAL"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": err.Error()})
}

// admit registers the connection and announces the new roster.
func (g *Gateway) admit(ctx context.Context, c *Client) {
	g.mu.Lock()
	g.clients[c] = struct{}{}
	g.mu.Unlock()

	g.registry.Register(c.UserID(), c)

	if err := g.mirror.Online(ctx, c.UserID()); err != nil {
		presence.LogMirrorError(ctx, "online", c.UserID(), err)
	}

	g.roster.BroadcastRoster(ctx)

	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldUserID, c.UserID()).
		Str(log.FieldConnID, c.ID()).
		Msg("connection admitted")
}

// drop deregisters the connection and announces the shrunken roster.
// Deregistration is handle-scoped, so a stale disconnect can never
// evict a newer connection for the same identity.
func (g *Gateway) drop(ctx context.Context, c *Client) {
	g.mu.Lock()
	if _, ok := g.clients[c]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.clients, c)
	g.mu.Unlock()

	g.registry.Deregister(c.UserID(), c)

	if !g.registry.IsOnline(c.UserID()) {
		if err := g.mirror.Offline(ctx, c.UserID()); err != nil {
			presence.LogMirrorError(ctx, "offline", c.UserID(), err)
		}
	}

	g.roster.BroadcastRoster(ctx)

	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldUserID, c.UserID()).
		Str(log.FieldConnID, c.ID()).
		Msg("connection closed")
}

// ConnectionCount returns the number of admitted connections.
func (g *Gateway) ConnectionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

// Shutdown refuses new admissions and closes every open connection.
func (g *Gateway) Shutdown(ctx context.Context) {
	g.mu.Lock()
	g.shutdown = true
	open := make([]*Client, 0, len(g.clients))
	for c := range g.clients {
		open = append(open, c)
	}
	g.mu.Unlock()

	for _, c := range open {
		g.drop(ctx, c)
		c.close()
	}

	l := log.Ctx(ctx)
	l.Info().Int("connections", len(open)).Msg("gateway shut down")
}
