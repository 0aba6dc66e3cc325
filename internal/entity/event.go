package entity

type EventKind string

const (
	// Direct events, delivered to Event.SessionID only.
	EventRoomCreated EventKind = "room_created"
	EventRoomJoined  EventKind = "room_joined"

	// Room events, delivered to every connection bound to Event.RoomCode.
	EventPlayerJoined EventKind = "player_joined"
	EventPlayerLeft   EventKind = "player_left"
	EventPlayerCount  EventKind = "player_count"
	EventBoardUpdated EventKind = "board_updated"
	EventBoardReset   EventKind = "board_reset"

	// EventHistory is direct when SessionID is set, room-wide otherwise.
	EventHistory EventKind = "history"
)

// Event is a state change of a room, published while the room is locked.
type Event struct {
	Kind     EventKind
	RoomCode string
	// SessionID addresses a single connection. For room events it names the
	// connection that caused the change, which is skipped when Exclude is set.
	SessionID string
	Exclude   bool

	Mark    string
	Name    string
	Count   int
	Starter string

	Board   Board
	Turn    string
	Status  string
	Outcome Outcome

	History []HistoryEntry
	Wins    map[string]int
}

func (that Event) IsDirect() bool {
	switch that.Kind {
	case EventRoomCreated, EventRoomJoined:
		return true
	case EventHistory:
		return that.SessionID != ""
	default:
		return false
	}
}
