package websocket

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

// Connection is the hub's view of a client connection. Send must not block.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Hub tracks which connection is bound to which room and fans room events out to them.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	conns  map[string]Connection
	rooms  map[string]map[string]Connection
	roomOf map[string]string
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "hub"),
		conns:  make(map[string]Connection),
		rooms:  make(map[string]map[string]Connection),
		roomOf: make(map[string]string),
	}
}

func (that *Hub) Register(conn Connection) {
	that.mu.Lock()
	that.conns[conn.ID()] = conn
	count := len(that.conns)
	that.mu.Unlock()

	that.logger.Debug("client connected", "session", conn.ID(), "clients", count)
}

// Unregister - forgets conn and returns the room it was bound to, empty if none.
func (that *Hub) Unregister(conn Connection) string {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.conns[conn.ID()]; !ok || current != conn {
		return ""
	}

	delete(that.conns, conn.ID())
	code := that.unbind(conn.ID())

	that.logger.Debug("client disconnected", "session", conn.ID(), "room", code)

	return code
}

// RoomOf - the room the session is bound to, empty if none.
func (that *Hub) RoomOf(sessionID string) string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.roomOf[sessionID]
}

func (that *Hub) unbind(sessionID string) string {
	code, ok := that.roomOf[sessionID]
	if !ok {
		return ""
	}

	delete(that.roomOf, sessionID)

	members := that.rooms[code]
	delete(members, sessionID)
	if len(members) == 0 {
		delete(that.rooms, code)
	}

	return code
}

func (that *Hub) bind(sessionID, code string) {
	conn, ok := that.conns[sessionID]
	if !ok {
		return
	}

	if that.roomOf[sessionID] == code {
		return
	}
	that.unbind(sessionID)

	members, ok := that.rooms[code]
	if !ok {
		members = make(map[string]Connection)
		that.rooms[code] = members
	}
	members[sessionID] = conn
	that.roomOf[sessionID] = code
}

// Publish - binds on created and joined events, then enqueues the event's frames
// for its recipients. Connections that cannot keep up are closed.
func (that *Hub) Publish(event entity.Event) {
	log := that.logger.With("method", "Publish", "room", event.RoomCode, "event", event.Kind)

	frames, err := encodeEvent(event)
	if err != nil {
		log.Error("could not encode event", "error", err)
		return
	}

	var slow []Connection

	that.mu.Lock()
	if event.Kind == entity.EventRoomCreated || event.Kind == entity.EventRoomJoined {
		that.bind(event.SessionID, event.RoomCode)
	}

	for _, conn := range that.recipients(event) {
		for _, frame := range frames {
			if err = conn.Send(frame); err != nil {
				slow = append(slow, conn)
				break
			}
		}
	}
	that.mu.Unlock()

	for _, conn := range slow {
		log.Warn("closing slow client", "session", conn.ID())
		_ = conn.Close()
	}
}

// recipients - called with the hub locked.
func (that *Hub) recipients(event entity.Event) []Connection {
	if event.IsDirect() {
		if conn, ok := that.conns[event.SessionID]; ok {
			return []Connection{conn}
		}
		return nil
	}

	members := that.rooms[event.RoomCode]
	recipients := make([]Connection, 0, len(members))
	for id, conn := range members {
		if event.Exclude && id == event.SessionID {
			continue
		}
		recipients = append(recipients, conn)
	}

	return recipients
}

// SendTo - enqueues a frame for a single session.
func (that *Hub) SendTo(sessionID string, data []byte) {
	that.mu.RLock()
	conn, ok := that.conns[sessionID]
	that.mu.RUnlock()

	if !ok {
		return
	}

	if err := conn.Send(data); err != nil {
		that.logger.Warn("closing slow client", "method", "SendTo", "session", sessionID)
		_ = conn.Close()
	}
}

func (that *Hub) Stats() (rooms, clients int) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms), len(that.conns)
}
