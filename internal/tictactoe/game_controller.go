package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/triki-backend/internal/apperror"
	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

// MakeTurn - validates and applies a move of the participant bound to sessionID.
// On error the room is left untouched.
func MakeTurn(room *entity.Room, sessionID string, cell int) (*entity.Participant, error) {
	player := room.ParticipantBySession(sessionID)
	if player == nil {
		return nil, apperror.ErrPlayerNotInRoom
	}

	if err := validateMove(room, player, cell); err != nil {
		return player, fmt.Errorf("invalid turn: %w", err)
	}

	room.Board[cell] = player.Mark
	updateGameStatus(room, player.Mark)

	return player, nil
}

// validateMove - checks if the move is valid.
func validateMove(room *entity.Room, player *entity.Participant, cell int) error {
	if len(room.Participants) < entity.MaxParticipants || room.ConnectedCount() < entity.MaxParticipants {
		return apperror.ErrInsufficientPlayers
	}

	if room.Outcome.IsTerminal() {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidInput, cell)
	}

	if room.Turn != player.Mark {
		return apperror.ErrNotYourTurn
	}

	if room.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// updateGameStatus - recomputes the outcome after a move, the turn only flips while the game goes on.
func updateGameStatus(room *entity.Room, mark string) {
	room.Outcome = entity.DetermineOutcome(room.Board)
	if !room.Outcome.IsTerminal() {
		room.Turn = entity.ToggleMark(mark)
	}

	room.RefreshStatus()
}

// Reset - clears the board and outcome and hands the turn to starter.
func Reset(room *entity.Room, starter string) {
	room.Board = entity.Board{}
	room.Outcome = entity.Outcome{}
	room.Starter = starter
	room.Turn = starter
	room.RefreshStatus()
}
