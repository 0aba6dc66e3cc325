package entity

import "time"

// HistoryEntry records one finished game of a room.
type HistoryEntry struct {
	RoomCode string `json:"gameId"`
	// Winner is the winner's display name or ResultDraw.
	Winner     string    `json:"winner"`
	WinnerMark string    `json:"mark,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (that HistoryEntry) IsDraw() bool {
	return that.Winner == ResultDraw
}

// WinCounts - wins per display name, draws count for nobody.
func WinCounts(entries []HistoryEntry) map[string]int {
	wins := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDraw() || entry.Winner == "" {
			continue
		}
		wins[entry.Winner]++
	}

	return wins
}
