package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/triki-backend/internal/apperror"
	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

// client actions
const (
	actionCreateGame = "createGame"
	actionJoinGame   = "joinGame"
	actionPlay       = "play"
	actionReset      = "reset"
	actionGetHistory = "getHistory"
)

// server actions
const (
	actionGameCreated  = "gameCreated"
	actionJoinedGame   = "joinedGame"
	actionPlayerJoined = "playerJoined"
	actionPlayerLeft   = "playerLeft"
	actionPlayerCount  = "playerCount"
	actionUpdateBoard  = "updateBoard"
	actionResetBoard   = "resetBoard"
	actionHistory      = "history"
)

// Message is a client request. The web client also sends its symbol as
// "player"; it is ignored, the server knows the symbol bound to the connection.
type Message struct {
	Action  string `json:"action"`
	GameID  string `json:"gameId,omitempty"`
	Name    string `json:"name,omitempty"`
	Cell    *int   `json:"cell,omitempty"`
	Persist bool   `json:"persist,omitempty"`
	Player  string `json:"player,omitempty"`
}

type seatMessage struct {
	Action  string `json:"action"`
	GameID  string `json:"gameId"`
	Player  string `json:"player"`
	Starter string `json:"starter"`
}

type playerMessage struct {
	Action string `json:"action"`
	Player string `json:"player"`
	Name   string `json:"name,omitempty"`
}

type playerCountMessage struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

type boardMessage struct {
	Action string       `json:"action"`
	Board  entity.Board `json:"board"`
	Turn   string       `json:"turn"`
	Status string       `json:"status,omitempty"`
	Winner string       `json:"winner,omitempty"`
	Line   []int        `json:"line,omitempty"`
}

type historyMessage struct {
	Action  string                `json:"action"`
	GameID  string                `json:"gameId"`
	History []entity.HistoryEntry `json:"history"`
	Wins    map[string]int        `json:"wins"`
}

type errorMessage struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func newBoardMessage(action string, event entity.Event) boardMessage {
	return boardMessage{
		Action: action,
		Board:  event.Board,
		Turn:   event.Turn,
		Status: event.Status,
		Winner: event.Outcome.Winner,
		Line:   event.Outcome.Line,
	}
}

// encodeEvent - the frames a room event turns into, in delivery order.
func encodeEvent(event entity.Event) ([][]byte, error) {
	var messages []any

	switch event.Kind {
	case entity.EventRoomCreated:
		messages = append(messages, seatMessage{Action: actionGameCreated, GameID: event.RoomCode, Player: event.Mark, Starter: event.Starter})
	case entity.EventRoomJoined:
		messages = append(messages,
			seatMessage{Action: actionJoinedGame, GameID: event.RoomCode, Player: event.Mark, Starter: event.Starter},
			newBoardMessage(actionUpdateBoard, event),
		)
	case entity.EventPlayerJoined:
		messages = append(messages, playerMessage{Action: actionPlayerJoined, Player: event.Mark, Name: event.Name})
	case entity.EventPlayerLeft:
		messages = append(messages, playerMessage{Action: actionPlayerLeft, Player: event.Mark, Name: event.Name})
	case entity.EventPlayerCount:
		messages = append(messages, playerCountMessage{Action: actionPlayerCount, Count: event.Count})
	case entity.EventBoardUpdated:
		messages = append(messages, newBoardMessage(actionUpdateBoard, event))
	case entity.EventBoardReset:
		messages = append(messages, boardMessage{Action: actionResetBoard, Board: event.Board, Turn: event.Turn, Status: event.Status})
	case entity.EventHistory:
		history := event.History
		if history == nil {
			history = []entity.HistoryEntry{}
		}
		wins := event.Wins
		if wins == nil {
			wins = map[string]int{}
		}
		messages = append(messages, historyMessage{Action: actionHistory, GameID: event.RoomCode, History: history, Wins: wins})
	default:
		return nil, fmt.Errorf("unknown event kind %q", event.Kind)
	}

	frames := make([][]byte, 0, len(messages))
	for _, message := range messages {
		data, err := json.Marshal(message)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", event.Kind, err)
		}
		frames = append(frames, data)
	}

	return frames, nil
}

func encodeError(err error) []byte {
	data, _ := json.Marshal(errorMessage{ //nolint: errchkjson // two strings always marshal
		Error: apperror.Message(err),
		Code:  apperror.Code(err),
	})

	return data
}
