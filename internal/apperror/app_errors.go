package apperror

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrPlayerNotInRoom     = errors.New("player is not in this room")
	ErrNotYourTurn         = errors.New("it's not your turn")
	ErrCellOccupied        = errors.New("cell is already occupied")
	ErrGameFinished        = errors.New("game is already finished")
	ErrInsufficientPlayers = errors.New("waiting for the other player")
	ErrInvalidInput        = errors.New("invalid input")
)

const (
	CodeRoomNotFound        = "RoomNotFound"
	CodeRoomFull            = "RoomFull"
	CodePlayerNotInRoom     = "PlayerNotInRoom"
	CodeNotYourTurn         = "NotYourTurn"
	CodeCellOccupied        = "CellOccupied"
	CodeGameFinished        = "GameAlreadyFinished"
	CodeInsufficientPlayers = "InsufficientPlayers"
	CodeInvalidInput        = "InvalidInput"
	CodeInternal            = "Internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrRoomNotFound, CodeRoomNotFound},
	{ErrRoomFull, CodeRoomFull},
	{ErrPlayerNotInRoom, CodePlayerNotInRoom},
	{ErrNotYourTurn, CodeNotYourTurn},
	{ErrCellOccupied, CodeCellOccupied},
	{ErrGameFinished, CodeGameFinished},
	{ErrInsufficientPlayers, CodeInsufficientPlayers},
	{ErrInvalidInput, CodeInvalidInput},
}

// Code - returns the protocol error code for err, CodeInternal if err is not a known request error.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return CodeInternal
}

// Message - returns the client facing message for err.
func Message(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}

	return "internal server error"
}
