package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/triki-backend/internal/entity"
	"github.com/rocketscienceinc/triki-backend/testing/suite"
)

var errFull = errors.New("full")

type mockConn struct {
	id       string
	received [][]byte
	closed   bool
	mu       sync.Mutex
	sendErr  error
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) actions(t *testing.T) []string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	actions := make([]string, 0, len(m.received))
	for _, data := range m.received {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		action, _ := frame["action"].(string)
		actions = append(actions, action)
	}
	return actions
}

func newTestHub(t *testing.T, ids ...string) (*Hub, map[string]*mockConn) {
	t.Helper()

	hub := NewHub(suite.NewLogger(t))
	conns := make(map[string]*mockConn, len(ids))
	for _, id := range ids {
		conns[id] = &mockConn{id: id}
		hub.Register(conns[id])
	}

	return hub, conns
}

func TestHub_Publish(t *testing.T) {
	t.Run("Created and joined events bind connections to the room", func(t *testing.T) {
		// Given: two connected clients
		hub, conns := newTestHub(t, "ana", "luis")

		// When: ana creates ROOM1 and luis joins it
		hub.Publish(entity.Event{Kind: entity.EventRoomCreated, RoomCode: "ROOM1", SessionID: "ana", Mark: entity.PlayerX, Starter: entity.PlayerX})
		hub.Publish(entity.Event{Kind: entity.EventRoomJoined, RoomCode: "ROOM1", SessionID: "luis", Mark: entity.PlayerO, Starter: entity.PlayerX})
		hub.Publish(entity.Event{Kind: entity.EventPlayerJoined, RoomCode: "ROOM1", SessionID: "luis", Exclude: true, Mark: entity.PlayerO})
		hub.Publish(entity.Event{Kind: entity.EventPlayerCount, RoomCode: "ROOM1", Count: 2})

		// Then: each gets its own seat message and the room events
		assert.Equal(t, []string{actionGameCreated, actionPlayerJoined, actionPlayerCount}, conns["ana"].actions(t))
		assert.Equal(t, []string{actionJoinedGame, actionUpdateBoard, actionPlayerCount}, conns["luis"].actions(t))
		assert.Equal(t, "ROOM1", hub.RoomOf("ana"))

		rooms, clients := hub.Stats()
		assert.Equal(t, 1, rooms)
		assert.Equal(t, 2, clients)
	})

	t.Run("No cross-room broadcast", func(t *testing.T) {
		hub, conns := newTestHub(t, "ana", "eva")
		hub.Publish(entity.Event{Kind: entity.EventRoomCreated, RoomCode: "ROOM1", SessionID: "ana"})
		hub.Publish(entity.Event{Kind: entity.EventRoomCreated, RoomCode: "ROOM2", SessionID: "eva"})

		hub.Publish(entity.Event{Kind: entity.EventBoardUpdated, RoomCode: "ROOM1"})

		assert.Equal(t, []string{actionGameCreated, actionUpdateBoard}, conns["ana"].actions(t))
		assert.Equal(t, []string{actionGameCreated}, conns["eva"].actions(t))
	})

	t.Run("Direct history goes to the requester only", func(t *testing.T) {
		hub, conns := newTestHub(t, "ana", "luis")
		hub.Publish(entity.Event{Kind: entity.EventRoomCreated, RoomCode: "ROOM1", SessionID: "ana"})
		hub.Publish(entity.Event{Kind: entity.EventRoomJoined, RoomCode: "ROOM1", SessionID: "luis"})

		hub.Publish(entity.Event{Kind: entity.EventHistory, RoomCode: "ROOM1", SessionID: "luis"})

		assert.Equal(t, []string{actionGameCreated}, conns["ana"].actions(t))
		assert.Equal(t, []string{actionJoinedGame, actionUpdateBoard, actionHistory}, conns["luis"].actions(t))
	})

	t.Run("Joining another room moves the binding", func(t *testing.T) {
		hub, conns := newTestHub(t, "ana", "luis")
		hub.Publish(entity.Event{Kind: entity.EventRoomCreated, RoomCode: "ROOM1", SessionID: "ana"})
		hub.Publish(entity.Event{Kind: entity.EventRoomCreated, RoomCode: "ROOM2", SessionID: "luis"})

		// When: ana joins ROOM2
		hub.Publish(entity.Event{Kind: entity.EventRoomJoined, RoomCode: "ROOM2", SessionID: "ana"})
		hub.Publish(entity.Event{Kind: entity.EventBoardReset, RoomCode: "ROOM1"})

		// Then: ROOM1 is gone from the hub and ana misses its events
		assert.Equal(t, "ROOM2", hub.RoomOf("ana"))
		assert.Equal(t, []string{actionGameCreated, actionJoinedGame, actionUpdateBoard}, conns["ana"].actions(t))
		rooms, _ := hub.Stats()
		assert.Equal(t, 1, rooms)
	})

	t.Run("Slow consumers are closed", func(t *testing.T) {
		hub, conns := newTestHub(t, "ana", "luis")
		hub.Publish(entity.Event{Kind: entity.EventRoomCreated, RoomCode: "ROOM1", SessionID: "ana"})
		hub.Publish(entity.Event{Kind: entity.EventRoomJoined, RoomCode: "ROOM1", SessionID: "luis"})
		conns["luis"].sendErr = errFull

		hub.Publish(entity.Event{Kind: entity.EventPlayerCount, RoomCode: "ROOM1", Count: 2})

		assert.True(t, conns["luis"].closed)
		assert.False(t, conns["ana"].closed)
		assert.Equal(t, []string{actionGameCreated, actionPlayerCount}, conns["ana"].actions(t))
	})
}

func TestHub_Unregister(t *testing.T) {
	t.Run("Returns the bound room", func(t *testing.T) {
		// Given: ana bound to ROOM1
		hub, conns := newTestHub(t, "ana")
		hub.Publish(entity.Event{Kind: entity.EventRoomCreated, RoomCode: "ROOM1", SessionID: "ana"})

		// When: she disconnects
		code := hub.Unregister(conns["ana"])

		// Then: the room is reported and the hub is empty
		assert.Equal(t, "ROOM1", code)
		assert.Empty(t, hub.RoomOf("ana"))
		rooms, clients := hub.Stats()
		assert.Zero(t, rooms)
		assert.Zero(t, clients)
	})

	t.Run("Unbound connection has no room", func(t *testing.T) {
		hub, conns := newTestHub(t, "ana")

		assert.Empty(t, hub.Unregister(conns["ana"]))
		assert.Empty(t, hub.Unregister(conns["ana"]))
	})
}

func TestHub_SendTo(t *testing.T) {
	hub, conns := newTestHub(t, "ana")

	hub.SendTo("ana", []byte(`{"error":"x","code":"InvalidInput"}`))
	hub.SendTo("nobody", []byte(`{}`))

	assert.Len(t, conns["ana"].received, 1)
}
