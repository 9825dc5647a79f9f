package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(hub *Hub, roomID, userID string, queueSize int) *Client {
	return NewClient(hub, nil, nil, zap.NewNop(), roomID, userID, userID+"@example.com", models.RoleCustomer, queueSize)
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a1 := testClient(hub, "room-a", "u1", 4)
	a2 := testClient(hub, "room-a", "u2", 4)
	b1 := testClient(hub, "room-b", "u3", 4)
	hub.join("room-a", a1)
	hub.join("room-a", a2)
	hub.join("room-b", b1)

	hub.Broadcast("room-a", []byte("hello"))

	assert.Equal(t, []byte("hello"), <-a1.send)
	assert.Equal(t, []byte("hello"), <-a2.send)
	assert.Empty(t, b1.send)
}

func TestBroadcastPreservesOrderPerClient(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c := testClient(hub, "room-a", "u1", 8)
	hub.join("room-a", c)

	hub.Broadcast("room-a", []byte("one"))
	hub.Broadcast("room-a", []byte("two"))
	hub.Broadcast("room-a", []byte("three"))

	assert.Equal(t, "one", string(<-c.send))
	assert.Equal(t, "two", string(<-c.send))
	assert.Equal(t, "three", string(<-c.send))
}

func TestBroadcastClosesSlowClient(t *testing.T) {
	hub := NewHub(zap.NewNop())

	slow := testClient(hub, "room-a", "u1", 1)
	fast := testClient(hub, "room-a", "u2", 4)
	hub.join("room-a", slow)
	hub.join("room-a", fast)

	hub.Broadcast("room-a", []byte("one"))
	// The slow client's queue is now full; the next frame closes it.
	hub.Broadcast("room-a", []byte("two"))

	select {
	case <-slow.once:
	default:
		t.Fatal("expected slow client to be closed")
	}

	// The fast client got everything.
	assert.Equal(t, "one", string(<-fast.send))
	assert.Equal(t, "two", string(<-fast.send))
}

func TestJoinLeaveRoomSize(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c1 := testClient(hub, "room-a", "u1", 4)
	c2 := testClient(hub, "room-a", "u2", 4)

	hub.join("room-a", c1)
	hub.join("room-a", c2)
	assert.Equal(t, 2, hub.RoomSize("room-a"))

	hub.leave("room-a", c1)
	assert.Equal(t, 1, hub.RoomSize("room-a"))

	hub.leave("room-a", c2)
	assert.Equal(t, 0, hub.RoomSize("room-a"))

	// Leaving an empty room is harmless.
	hub.leave("room-a", c1)
}

func TestHistoryFromModels(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []models.Message{
		{
			ID:         "m1",
			ChatRoomID: "room-a",
			Content:    "hi",
			Seq:        1,
			CreatedAt:  now,
			Sender:     &models.User{Email: "alice@example.com", Role: models.RoleCustomer},
		},
		{
			ID:         "m2",
			ChatRoomID: "room-a",
			Content:    "hello",
			Seq:        2,
			IsRead:     true,
			CreatedAt:  now.Add(time.Minute),
			Sender:     &models.User{Email: "staff@example.com", Role: models.RoleAdmin},
		},
	}

	event := HistoryFromModels(messages)
	assert.Equal(t, TypeMessageHistory, event.Type)
	require.Len(t, event.Messages, 2)

	assert.Equal(t, "alice@example.com", event.Messages[0].Sender)
	assert.Equal(t, "customer", event.Messages[0].SenderRole)
	assert.Equal(t, int64(1), event.Messages[0].Seq)
	assert.Equal(t, "2025-03-01T12:00:00Z", event.Messages[0].Timestamp)
	assert.False(t, event.Messages[0].IsRead)

	assert.Equal(t, "admin", event.Messages[1].SenderRole)
	assert.True(t, event.Messages[1].IsRead)

	// The frame must serialize cleanly for enqueueing.
	_, err := json.Marshal(event)
	require.NoError(t, err)
}
