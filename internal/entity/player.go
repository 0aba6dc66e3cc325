package entity

// Participant is a seated player of a room.
type Participant struct {
	Name      string `json:"name"`
	Mark      string `json:"mark"`
	SessionID string `json:"session_id,omitempty"`
	Connected bool   `json:"connected"`
}
