package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"wardrobe/internal/domain"
	"wardrobe/internal/events"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) dialStream(t *testing.T, p domain.Principal) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/v1/ws?access_token=" + e.token(t, p)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readStream(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubStreamsOwnEvents(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem(t, "Tuxedo")

	renterConn := env.dialStream(t, testRenter)
	ownerConn := env.dialStream(t, testOwner)
	require.Eventually(t, func() bool { return env.hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	booking := env.createBooking(t, testRenter, item.ID)

	for _, conn := range []*websocket.Conn{renterConn, ownerConn} {
		msg := readStream(t, conn)
		assert.Equal(t, events.EventBookingCreated, msg.Type)

		var payload struct {
			BookingID int64 `json:"booking_id"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, booking.ID, payload.BookingID)
	}
}

func TestHubRejectsAnonymousUpgrade(t *testing.T) {
	env := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/v1/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubHandleEventRejectsBadPayload(t *testing.T) {
	hub := NewHub(nil)
	err := hub.HandleEvent(&events.Event{Type: events.EventBookingCreated, Payload: []byte("not json")})
	assert.Error(t, err)
}

func TestClientVisibility(t *testing.T) {
	parties := eventParties{RenterID: testRenter.ID, OwnerID: testOwner.ID}

	tests := []struct {
		name string
		p    domain.Principal
		want bool
	}{
		{"renter of the rental", testRenter, true},
		{"other renter", otherRenter, false},
		{"owner of the item", testOwner, true},
		{"other owner", domain.Owner{ID: 202}, false},
		{"arbitrator", testArbitrator, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &wsClient{principal: tt.p}
			assert.Equal(t, tt.want, c.canSee(parties))
		})
	}
}
