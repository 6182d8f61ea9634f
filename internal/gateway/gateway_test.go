package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/auth"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/config"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/presence"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/router"
)

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   100 * time.Millisecond,
		PongWait:       time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     16,
	}
}

type gatewayFixture struct {
	gw       *Gateway
	verifier *auth.Verifier
	registry *presence.Registry
	server   *httptest.Server
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	verifier := auth.NewVerifier([]byte("test-secret"), time.Hour, "polaris")
	registry := presence.NewRegistry()
	gw := New(verifier, registry, router.New(registry), nil, testWSConfig())

	server := httptest.NewServer(http.HandlerFunc(gw.HandleWebSocket))
	t.Cleanup(server.Close)

	return &gatewayFixture{gw: gw, verifier: verifier, registry: registry, server: server}
}

func (f *gatewayFixture) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(f.server.URL, "http")
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (f *gatewayFixture) connect(t *testing.T, identity string) *websocket.Conn {
	t.Helper()

	token, err := f.verifier.Issue(identity)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL(token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForRoster reads pushed events until a roster-update matching want
// arrives.
func waitForRoster(t *testing.T, conn *websocket.Conn, want []string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev domain.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type != domain.EventRosterUpdate {
			continue
		}

		var roster []string
		require.NoError(t, json.Unmarshal(ev.Payload, &roster))
		if assert.ObjectsAreEqual(want, roster) {
			return
		}
	}
	t.Fatalf("roster %v never arrived", want)
}

func dialExpectingRejection(t *testing.T, url string) string {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	return body.Code
}

func TestAdmitValidCredential(t *testing.T) {
	f := newGatewayFixture(t)

	conn := f.connect(t, "alice")
	waitForRoster(t, conn, []string{"alice"})

	assert.True(t, f.registry.IsOnline("alice"))
	assert.Equal(t, 1, f.gw.ConnectionCount())
}

func TestRejectMissingCredential(t *testing.T) {
	f := newGatewayFixture(t)

	code := dialExpectingRejection(t, f.wsURL(""))
	assert.Equal(t, "MISSING_CREDENTIAL", code)
	assert.Empty(t, f.registry.Identities())
}

func TestRejectExpiredCredential(t *testing.T) {
	f := newGatewayFixture(t)

	token, err := f.verifier.IssueExpired("alice")
	require.NoError(t, err)

	code := dialExpectingRejection(t, f.wsURL(token))
	assert.Equal(t, "EXPIRED_CREDENTIAL", code)
	assert.Empty(t, f.registry.Identities())
}

func TestRejectInvalidCredential(t *testing.T) {
	f := newGatewayFixture(t)

	code := dialExpectingRejection(t, f.wsURL("garbage"))
	assert.Equal(t, "INVALID_CREDENTIAL", code)
	assert.Empty(t, f.registry.Identities())
	assert.Equal(t, 0, f.gw.ConnectionCount())
}

func TestRosterGrowsAndShrinks(t *testing.T) {
	f := newGatewayFixture(t)

	alice := f.connect(t, "alice")
	waitForRoster(t, alice, []string{"alice"})

	bob := f.connect(t, "bob")
	waitForRoster(t, bob, []string{"alice", "bob"})
	waitForRoster(t, alice, []string{"alice", "bob"})

	bob.Close()
	waitForRoster(t, alice, []string{"alice"})

	require.Eventually(t, func() bool {
		return !f.registry.IsOnline("bob")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSecondConnectionForSameIdentity(t *testing.T) {
	f := newGatewayFixture(t)

	first := f.connect(t, "alice")
	waitForRoster(t, first, []string{"alice"})

	second := f.connect(t, "alice")
	waitForRoster(t, second, []string{"alice"})

	assert.Equal(t, 2, f.gw.ConnectionCount())
	assert.Len(t, f.registry.Lookup("alice"), 2)

	// Dropping one connection keeps the identity online.
	second.Close()
	require.Eventually(t, func() bool {
		return f.gw.ConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.registry.IsOnline("alice"))
}

func TestCredentialInAuthorizationHeader(t *testing.T) {
	f := newGatewayFixture(t)

	token, err := f.verifier.Issue("alice")
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL(""), header)
	require.NoError(t, err)
	defer conn.Close()

	waitForRoster(t, conn, []string{"alice"})
}

func TestRoutedEventReachesAdmittedConnection(t *testing.T) {
	f := newGatewayFixture(t)
	events := router.New(f.registry)

	bob := f.connect(t, "bob")
	waitForRoster(t, bob, []string{"bob"})

	msg := domain.NewMessage("alice", "bob", "hello", "")
	events.Route(context.Background(), "bob", domain.EventMessageDelivered, msg)

	deadline := time.Now().Add(2 * time.Second)
	for {
		bob.SetReadDeadline(deadline)
		_, data, err := bob.ReadMessage()
		require.NoError(t, err)

		var ev domain.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type != domain.EventMessageDelivered {
			continue
		}

		var got domain.Message
		require.NoError(t, json.Unmarshal(ev.Payload, &got))
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, "hello", got.Text)
		return
	}
}

func TestShutdownClosesConnections(t *testing.T) {
	f := newGatewayFixture(t)

	conn := f.connect(t, "alice")
	waitForRoster(t, conn, []string{"alice"})

	f.gw.Shutdown(context.Background())

	assert.Equal(t, 0, f.gw.ConnectionCount())
	assert.Empty(t, f.registry.Identities())

	// New admissions are refused.
	token, err := f.verifier.Issue("bob")
	require.NoError(t, err)
	_, resp, err := websocket.DefaultDialer.Dial(f.wsURL(token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
