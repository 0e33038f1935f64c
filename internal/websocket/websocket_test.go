package websocket

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusconfessions/backend/internal/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	_ = logger.Initialize("error", "test.log")
	code := m.Run()
	os.Remove("test.log")
	os.Exit(code)
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.colleges)
	assert.NotNil(t, hub.allClients)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.unicast)
	assert.NotNil(t, hub.collegecast)
	assert.NotNil(t, hub.metrics)
	assert.NotNil(t, hub.handlers)
}

func TestRateLimiter(t *testing.T) {
	// Allow 5 per second with burst of 10
	rl := NewRateLimiter(5, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "Request %d should be allowed", i+1)
	}

	assert.False(t, rl.Allow(), "Request 11 should be denied")

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow(), "Request after wait should be allowed")
}

func TestNewMessage(t *testing.T) {
	payload := map[string]string{"test": "data"}
	msg := NewMessage(MessageTypeNewConfession, payload)

	assert.Equal(t, MessageTypeNewConfession, msg.Type)
	assert.NotNil(t, msg.Payload)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("test_error", "Something went wrong")

	assert.Equal(t, MessageTypeError, msg.Type)

	payload, ok := msg.Payload.(ErrorPayload)
	assert.True(t, ok)
	assert.Equal(t, "test_error", payload.Code)
	assert.Equal(t, "Something went wrong", payload.Message)
}

func TestFlexibleTimeUnmarshal(t *testing.T) {
	// Unix milliseconds
	var ft FlexibleTime
	require.NoError(t, json.Unmarshal([]byte("1700000000000"), &ft))
	assert.Equal(t, int64(1700000000000), ft.UnixMilli())

	// RFC3339
	var ft2 FlexibleTime
	require.NoError(t, json.Unmarshal([]byte(`"2025-01-15T10:30:00Z"`), &ft2))
	assert.Equal(t, 2025, ft2.Year())

	// Garbage
	var ft3 FlexibleTime
	assert.Error(t, json.Unmarshal([]byte(`{"bad": true}`), &ft3))
}

func TestMessageParsePayload(t *testing.T) {
	msg := NewMessage(MessageTypeNotification, NotificationPayload{
		ID:      "n1",
		Type:    "like",
		Title:   "Someone liked your confession",
		Message: "Your confession got a new like",
	})

	var payload NotificationPayload
	require.NoError(t, msg.ParsePayload(&payload))
	assert.Equal(t, "n1", payload.ID)
	assert.Equal(t, "like", payload.Type)
}

// registerTestClient puts a client into the hub maps directly, bypassing
// the network connection.
func registerTestClient(hub *Hub, userID, college string) *Client {
	client := &Client{
		hub:     hub,
		UserID:  userID,
		College: college,
		send:    make(chan []byte, sendBufferSize),
	}
	hub.registerClient(client)
	return client
}

func TestHubUserIndex(t *testing.T) {
	hub := NewHub()

	c1 := registerTestClient(hub, "user-1", "Stanford")
	registerTestClient(hub, "user-1", "Stanford") // second device
	registerTestClient(hub, "user-2", "Berkeley")

	assert.True(t, hub.IsUserOnline("user-1"))
	assert.Equal(t, 2, hub.GetUserConnectionCount("user-1"))
	assert.Equal(t, 1, hub.GetUserConnectionCount("user-2"))
	assert.False(t, hub.IsUserOnline("user-3"))
	assert.Len(t, hub.GetOnlineUsers(), 2)

	hub.unregisterClient(c1)
	assert.Equal(t, 1, hub.GetUserConnectionCount("user-1"))
	assert.True(t, hub.IsUserOnline("user-1"))
}

func TestHubCollegeIndex(t *testing.T) {
	hub := NewHub()

	registerTestClient(hub, "user-1", "Stanford")
	registerTestClient(hub, "user-2", "Stanford")
	c3 := registerTestClient(hub, "user-3", "Berkeley")

	assert.Equal(t, 2, hub.GetCollegeOnlineCount("Stanford"))
	assert.Equal(t, 1, hub.GetCollegeOnlineCount("Berkeley"))
	assert.Equal(t, 0, hub.GetCollegeOnlineCount("MIT"))

	hub.unregisterClient(c3)
	assert.Equal(t, 0, hub.GetCollegeOnlineCount("Berkeley"))
}

func TestHubSendToCollege(t *testing.T) {
	hub := NewHub()

	stanford1 := registerTestClient(hub, "user-1", "Stanford")
	stanford2 := registerTestClient(hub, "user-2", "Stanford")
	berkeley := registerTestClient(hub, "user-3", "Berkeley")

	hub.sendToCollege("Stanford", NewMessage(MessageTypeAnnouncement, SystemPayload{
		Event: "announcement",
	}))

	assert.Len(t, stanford1.send, 1)
	assert.Len(t, stanford2.send, 1)
	assert.Len(t, berkeley.send, 0)

	var msg Message
	require.NoError(t, json.Unmarshal(<-stanford1.send, &msg))
	assert.Equal(t, MessageTypeAnnouncement, msg.Type)
}

func TestHubSendToUser(t *testing.T) {
	hub := NewHub()

	target1 := registerTestClient(hub, "user-1", "Stanford")
	target2 := registerTestClient(hub, "user-1", "Stanford")
	other := registerTestClient(hub, "user-2", "Stanford")

	hub.sendToUser("user-1", NewMessage(MessageTypeNotification, nil))

	assert.Len(t, target1.send, 1)
	assert.Len(t, target2.send, 1)
	assert.Len(t, other.send, 0)
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()

	c1 := registerTestClient(hub, "user-1", "Stanford")
	c2 := registerTestClient(hub, "user-2", "Berkeley")

	hub.broadcastMessage(NewMessage(MessageTypeSystem, nil))

	assert.Len(t, c1.send, 1)
	assert.Len(t, c2.send, 1)
	assert.Equal(t, int64(2), hub.GetMetrics().MessagesSent)
}

func TestHubMetrics(t *testing.T) {
	hub := NewHub()

	c := registerTestClient(hub, "user-1", "Stanford")
	snapshot := hub.GetMetrics()
	assert.Equal(t, int64(1), snapshot.TotalConnections)
	assert.Equal(t, int64(1), snapshot.ActiveConnections)

	hub.unregisterClient(c)
	snapshot = hub.GetMetrics()
	assert.Equal(t, int64(1), snapshot.TotalConnections)
	assert.Equal(t, int64(0), snapshot.ActiveConnections)

	assert.Contains(t, snapshot.String(), "connections=0/1")
}

func TestRegisterHandler(t *testing.T) {
	hub := NewHub()

	called := false
	hub.RegisterHandler("custom_type", func(client *Client, message *Message) error {
		called = true
		return nil
	})

	handler, ok := hub.GetHandler("custom_type")
	require.True(t, ok)
	require.NoError(t, handler(nil, nil))
	assert.True(t, called)

	_, ok = hub.GetHandler("missing_type")
	assert.False(t, ok)
}
