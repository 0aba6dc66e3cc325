package entity

import (
	"strings"
	"time"
)

const MaxParticipants = 2

type Room struct {
	Code         string         `json:"code"`
	Participants []*Participant `json:"participants"`
	Board        Board          `json:"board"`
	Turn         string         `json:"turn"`
	Starter      string         `json:"starter"`
	Status       string         `json:"status"`
	Outcome      Outcome        `json:"outcome"`
	Persist      bool           `json:"persist,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	// EmptySince is the moment the last participant disconnected, zero while someone is connected.
	EmptySince time.Time `json:"empty_since,omitempty"`
}

func NewRoom(code, starter string, now time.Time) *Room {
	return &Room{
		Code:       NormalizeCode(code),
		Turn:       starter,
		Starter:    starter,
		Status:     StatusWaiting,
		CreatedAt:  now,
		EmptySince: now,
	}
}

// NormalizeCode - room codes are case-insensitive and stored upper-case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (that *Room) ParticipantBySession(sessionID string) *Participant {
	if sessionID == "" {
		return nil
	}

	for _, participant := range that.Participants {
		if participant.SessionID == sessionID {
			return participant
		}
	}

	return nil
}

func (that *Room) ParticipantByName(name string) *Participant {
	for _, participant := range that.Participants {
		if participant.Name == name {
			return participant
		}
	}

	return nil
}

// ConnectedCount - number of participants with a live connection.
func (that *Room) ConnectedCount() int {
	count := 0
	for _, participant := range that.Participants {
		if participant.Connected {
			count++
		}
	}

	return count
}

func (that *Room) IsFull() bool {
	return len(that.Participants) >= MaxParticipants
}

// FreeMark - the symbol not held by any seated participant.
func (that *Room) FreeMark() string {
	taken := make(map[string]bool, MaxParticipants)
	for _, participant := range that.Participants {
		taken[participant.Mark] = true
	}

	if !taken[PlayerX] {
		return PlayerX
	}
	return PlayerO
}

// RefreshStatus - recomputes Status from seats and outcome.
func (that *Room) RefreshStatus() {
	switch {
	case that.Outcome.IsTerminal():
		that.Status = StatusFinished
	case len(that.Participants) < MaxParticipants:
		that.Status = StatusWaiting
	default:
		that.Status = StatusOngoing
	}
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

// Clone - deep copy safe to hand out of the room lock.
func (that *Room) Clone() *Room {
	clone := *that
	clone.Participants = make([]*Participant, 0, len(that.Participants))
	for _, participant := range that.Participants {
		p := *participant
		clone.Participants = append(clone.Participants, &p)
	}
	clone.Outcome.Line = append([]int(nil), that.Outcome.Line...)

	return &clone
}
